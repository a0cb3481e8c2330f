package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// ErrNoDocument is returned when the parser is used before a document is loaded
var ErrNoDocument = errors.New("no OpenAPI document loaded")

// Parser represents an OpenAPI parser
type Parser struct {
	doc *openapi3.T
}

// NewParser creates a new OpenAPI parser
func NewParser() *Parser {
	return &Parser{}
}

type versionProbe struct {
	Swagger string `yaml:"swagger"`
}

// Parse parses an OpenAPI document from bytes. YAML and JSON are both accepted;
// Swagger 2.0 documents are converted to OpenAPI 3.
func (p *Parser) Parse(data []byte) error {
	var probe versionProbe
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if probe.Swagger != "" {
		return p.ParseV2(data)
	}

	loader := openapi3.NewLoader()

	// Parse the document (loader can handle both JSON and YAML)
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}

	p.doc = doc
	return nil
}

// ParseV2 parses a Swagger 2.0 document and converts it to OpenAPI 3
func (p *Parser) ParseV2(data []byte) error {
	jsonData, err := toJSON(data)
	if err != nil {
		return fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}

	var doc2 openapi2.T
	err = doc2.UnmarshalJSON(jsonData)
	if err != nil {
		return fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}

	doc3, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return fmt.Errorf("failed to convert OpenAPI document: %w", err)
	}

	p.doc = doc3
	return nil
}

// toJSON re-encodes a YAML (or JSON) document as JSON
func toJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return json.Marshal(stringKeys(raw))
}

// stringKeys converts mappings with non-string keys, such as unquoted status
// codes, into JSON-compatible maps.
func stringKeys(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, item := range v {
			v[k] = stringKeys(item)
		}
		return v
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[fmt.Sprint(k)] = stringKeys(item)
		}
		return m
	case []any:
		for i, item := range v {
			v[i] = stringKeys(item)
		}
		return v
	default:
		return v
	}
}

// GetDocument returns the parsed OpenAPI document
func (p *Parser) GetDocument() *openapi3.T {
	return p.doc
}

// GetPaths returns all paths in the OpenAPI document
func (p *Parser) GetPaths() *openapi3.Paths {
	if p.doc == nil {
		return nil
	}
	return p.doc.Paths
}

// GetPath returns the path item stored under the exact key, or nil
func (p *Parser) GetPath(path string) *openapi3.PathItem {
	paths := p.GetPaths()
	if paths == nil {
		return nil
	}
	return paths.Value(path)
}

// GetServers returns all servers in the OpenAPI document
func (p *Parser) GetServers() []*openapi3.Server {
	if p.doc == nil {
		return nil
	}
	return p.doc.Servers
}

// ServerURL returns the URL of the first declared server
func (p *Parser) ServerURL() (string, error) {
	servers := p.GetServers()
	if len(servers) == 0 || servers[0] == nil {
		return "", errors.New("no servers declared in OpenAPI document")
	}
	return servers[0].URL, nil
}

// GetInfo returns the info section of the OpenAPI document
func (p *Parser) GetInfo() *openapi3.Info {
	if p.doc == nil {
		return nil
	}
	return p.doc.Info
}

// Title returns info.title, or an empty string when absent
func (p *Parser) Title() string {
	if info := p.GetInfo(); info != nil {
		return info.Title
	}
	return ""
}

// GetSchemas returns the component schemas of the OpenAPI document
func (p *Parser) GetSchemas() openapi3.Schemas {
	if p.doc == nil || p.doc.Components == nil {
		return nil
	}
	return p.doc.Components.Schemas
}

// GetOperationID generates an operation ID if one is not provided
func (p *Parser) GetOperationID(path string, method Method, operation *openapi3.Operation) string {
	if operation != nil && operation.OperationID != "" {
		return operation.OperationID
	}

	// Generate an operation ID based on the path and method
	pathName := strings.Trim(path, "/")
	if pathName == "" {
		pathName = "root"
	} else {
		pathName = strings.ReplaceAll(pathName, "/", "_")
		pathName = strings.ReplaceAll(pathName, "{", "")
		pathName = strings.ReplaceAll(pathName, "}", "")
	}

	return fmt.Sprintf("%s_%s", method, pathName)
}
