package convert

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Method is an HTTP method a plugin request can be resolved to
type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodDelete Method = "delete"
)

// Methods lists the supported methods in resolution priority order
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete}

// ParseMethod parses a case-insensitive method name
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(s))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported HTTP method: %q", s)
}

// Upper returns the method as used on the wire
func (m Method) Upper() string {
	return strings.ToUpper(string(m))
}

// MethodOperation pairs an operation with the method it is declared under
type MethodOperation struct {
	Method    Method
	Operation *openapi3.Operation
}

// Operations returns the supported operations of a path item in priority order
func Operations(pathItem *openapi3.PathItem) []MethodOperation {
	if pathItem == nil {
		return nil
	}

	operations := make([]MethodOperation, 0, len(Methods))
	for _, method := range Methods {
		if op := operationFor(pathItem, method); op != nil {
			operations = append(operations, MethodOperation{Method: method, Operation: op})
		}
	}
	return operations
}

func operationFor(pathItem *openapi3.PathItem, method Method) *openapi3.Operation {
	switch method {
	case MethodGet:
		return pathItem.Get
	case MethodPost:
		return pathItem.Post
	case MethodPut:
		return pathItem.Put
	case MethodDelete:
		return pathItem.Delete
	default:
		return nil
	}
}
