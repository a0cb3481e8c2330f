package convert

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Options configures the Converter
type Options struct {
	ToolNamePrefix string
}

// OperationSummary describes one resolvable operation of a plugin
type OperationSummary struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Method      Method `json:"method"`
	Description string `json:"description,omitempty"`
	Request     string `json:"request,omitempty"`
	Response    string `json:"response,omitempty"`
	Deprecated  bool   `json:"deprecated,omitempty"`
}

// Converter represents an OpenAPI to operation catalog converter
type Converter struct {
	parser  *Parser
	options Options
}

// NewConverter creates a new OpenAPI converter
func NewConverter(parser *Parser, options Options) *Converter {
	return &Converter{
		parser:  parser,
		options: options,
	}
}

// Convert lists every supported operation of the loaded document, ordered by
// path and then by method priority.
func (c *Converter) Convert() ([]OperationSummary, error) {
	if c.parser.GetDocument() == nil {
		return nil, ErrNoDocument
	}

	paths := c.parser.GetPaths()
	if paths == nil {
		return nil, fmt.Errorf("no paths found in OpenAPI document")
	}

	pathMap := paths.Map()
	summaries := make([]OperationSummary, 0, len(pathMap))
	for _, path := range sortedKeys(pathMap) {
		for _, mo := range Operations(pathMap[path]) {
			summaries = append(summaries, c.convertOperation(path, mo.Method, mo.Operation))
		}
	}

	return summaries, nil
}

// convertOperation converts an OpenAPI operation to a catalog entry
func (c *Converter) convertOperation(path string, method Method, operation *openapi3.Operation) OperationSummary {
	name := c.parser.GetOperationID(path, method, operation)
	if c.options.ToolNamePrefix != "" {
		name = c.options.ToolNamePrefix + name
	}

	return OperationSummary{
		Name:        name,
		Path:        path,
		Method:      method,
		Description: getDescription(operation),
		Request:     requestSchemaName(operation, false),
		Response:    responseSchemaName(operation),
		Deprecated:  operation.Deprecated,
	}
}

// Format renders summaries as one line per operation
func Format(summaries []OperationSummary) string {
	var sb strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&sb, "%s %s (%s)", s.Method.Upper(), s.Path, s.Name)
		if s.Request != "" {
			fmt.Fprintf(&sb, " request=%s", s.Request)
		}
		if s.Response != "" {
			fmt.Fprintf(&sb, " response=%s", s.Response)
		}
		if s.Description != "" {
			fmt.Fprintf(&sb, ": %s", strings.ReplaceAll(s.Description, "\n\n", " "))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// getDescription returns a description for an operation
func getDescription(operation *openapi3.Operation) string {
	var parts []string

	if operation.Summary != "" {
		parts = append(parts, operation.Summary)
	}

	if operation.Description != "" {
		parts = append(parts, operation.Description)
	}

	// Add deprecated notice if applicable
	if operation.Deprecated {
		parts = append(parts, "WARNING: This operation is deprecated.")
	}

	return strings.Join(parts, "\n\n")
}
