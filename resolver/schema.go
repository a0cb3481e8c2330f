package resolver

import "github.com/invopop/jsonschema"

// ResultSchema describes the JSON form of a Result
func ResultSchema() *jsonschema.Schema {
	return newReflector().Reflect(&Result{})
}

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
}

// inlineSchema reflects v for embedding inside another schema
func inlineSchema(v any) *jsonschema.Schema {
	s := newReflector().Reflect(v)
	s.Version = ""
	s.ID = ""
	return s
}

// JSONSchema describes the marshalled form of a RequestDefinition
func (RequestDefinition) JSONSchema() *jsonschema.Schema {
	return inlineSchema(&requestDefinitionJSON{})
}

// JSONSchema describes the marshalled form of a Message
func (Message) JSONSchema() *jsonschema.Schema {
	return inlineSchema(&messageJSON{})
}

// JSONSchema describes the marshalled form of a MessageChain
func (MessageChain) JSONSchema() *jsonschema.Schema {
	return inlineSchema(&messageChainJSON{})
}
