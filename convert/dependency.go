package convert

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrSchemaNotFound is returned when a referenced component is missing from the document
var ErrSchemaNotFound = errors.New("schema component not found")

// componentRefPattern matches references to component schemas, local or external
var componentRefPattern = regexp.MustCompile(`#/components/schemas/(\w+)`)

// ExtractDependencies returns root and every component schema it transitively
// references. Each component appears once; cyclic references terminate.
func ExtractDependencies(components openapi3.Schemas, root string) (openapi3.Schemas, error) {
	extracted := make(openapi3.Schemas)
	if err := extractDependencies(components, root, extracted); err != nil {
		return nil, err
	}
	return extracted, nil
}

func extractDependencies(components openapi3.Schemas, name string, extracted openapi3.Schemas) error {
	if _, ok := extracted[name]; ok {
		return nil
	}

	component, ok := components[name]
	if !ok || component == nil {
		return fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}
	extracted[name] = component

	for _, ref := range componentRefs(component) {
		if err := extractDependencies(components, ref, extracted); err != nil {
			return err
		}
	}
	return nil
}

// ExtractOperationComponents returns the component subset needed by an operation's
// JSON request body and JSON 200 response.
func ExtractOperationComponents(components openapi3.Schemas, op *openapi3.Operation) (openapi3.Schemas, error) {
	extracted := make(openapi3.Schemas)
	for _, root := range []string{requestSchemaName(op, false), responseSchemaName(op)} {
		if root == "" {
			continue
		}
		if err := extractDependencies(components, root, extracted); err != nil {
			return nil, err
		}
	}
	return extracted, nil
}

// componentRefs collects the component names referenced from a component, in
// traversal order. A component that is itself a $ref yields only its target;
// referenced schemas are not descended into.
func componentRefs(component *openapi3.SchemaRef) []string {
	w := refWalker{seen: make(map[*openapi3.Schema]bool)}
	w.walkRef(component)
	return w.refs
}

type refWalker struct {
	refs []string
	seen map[*openapi3.Schema]bool
}

func (w *refWalker) addRef(ref string) {
	if m := componentRefPattern.FindStringSubmatch(ref); m != nil {
		w.refs = append(w.refs, m[1])
	}
}

func (w *refWalker) walkRef(ref *openapi3.SchemaRef) {
	if ref == nil {
		return
	}
	if ref.Ref != "" {
		w.addRef(ref.Ref)
		return
	}
	w.walkSchema(ref.Value)
}

func (w *refWalker) walkRefs(refs openapi3.SchemaRefs) {
	for _, ref := range refs {
		w.walkRef(ref)
	}
}

func (w *refWalker) walkSchema(schema *openapi3.Schema) {
	if schema == nil || w.seen[schema] {
		return
	}
	w.seen[schema] = true

	for _, name := range sortedKeys(schema.Properties) {
		w.walkRef(schema.Properties[name])
	}
	w.walkRef(schema.Items)
	w.walkRefs(schema.AllOf)
	w.walkRefs(schema.OneOf)
	w.walkRefs(schema.AnyOf)
	w.walkRef(schema.Not)
	w.walkRef(schema.AdditionalProperties.Schema)

	if schema.Discriminator != nil {
		for _, key := range sortedKeys(schema.Discriminator.Mapping) {
			w.addRef(string(schema.Discriminator.Mapping[key]))
		}
	}
}
