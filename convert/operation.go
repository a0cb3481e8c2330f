package convert

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const jsonContentType = "application/json"

// ExtractRequestResponseNames returns the component names of the request body and
// the 200 response of the first supported method declared on the path. Only that
// one operation is inspected; other methods on the same path are ignored. An empty
// string means the slot is absent.
func ExtractRequestResponseNames(pathItem *openapi3.PathItem) (request, response string) {
	operations := Operations(pathItem)
	if len(operations) == 0 {
		return "", ""
	}

	op := operations[0].Operation
	return requestSchemaName(op, true), responseSchemaName(op)
}

// requestSchemaName returns the component referenced by the JSON request body.
// With onlyRequired set, optional request bodies are ignored.
func requestSchemaName(op *openapi3.Operation, onlyRequired bool) string {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return ""
	}
	body := op.RequestBody.Value
	if onlyRequired && !body.Required {
		return ""
	}
	return jsonSchemaName(body.Content)
}

// responseSchemaName returns the component referenced by the JSON 200 response
func responseSchemaName(op *openapi3.Operation) string {
	if op == nil || op.Responses == nil {
		return ""
	}
	ref := op.Responses.Value("200")
	if ref == nil || ref.Value == nil {
		return ""
	}
	return jsonSchemaName(ref.Value.Content)
}

func jsonSchemaName(content openapi3.Content) string {
	mediaType := content[jsonContentType]
	if mediaType == nil || mediaType.Schema == nil {
		return ""
	}
	return refName(mediaType.Schema.Ref)
}

// refName returns the last segment of a $ref
func refName(ref string) string {
	if ref == "" {
		return ""
	}
	return ref[strings.LastIndex(ref, "/")+1:]
}
