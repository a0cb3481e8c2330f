package convert

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// RenderPaths renders the paths section of a document as block YAML
func RenderPaths(paths *openapi3.Paths) (string, error) {
	if paths == nil {
		return "", ErrNoDocument
	}
	return renderYAML(paths)
}

// RenderComponents renders a component subset wrapped as components.schemas
func RenderComponents(schemas openapi3.Schemas) (string, error) {
	return renderYAML(map[string]any{
		"components": map[string]any{
			"schemas": schemas,
		},
	})
}

// renderYAML goes through JSON so kin-openapi's marshallers keep $ref nodes
// instead of inlining resolved values.
func renderYAML(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}

	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return "", fmt.Errorf("failed to decode schema: %w", err)
	}

	out, err := yaml.Marshal(tree)
	if err != nil {
		return "", fmt.Errorf("failed to render schema: %w", err)
	}
	return string(out), nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
