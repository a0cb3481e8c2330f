package resolver

import (
	"encoding/json"

	"github.com/zijiren233/openapi-plugin-resolver/convert"
)

// RequestDefinition is the concrete HTTP call a message resolved to
type RequestDefinition struct {
	baseURL string
	path    string
	method  convert.Method
	body    *string
}

// NewRequestDefinition builds a request definition carrying body as its payload
func NewRequestDefinition(baseURL, path string, method convert.Method, body string) *RequestDefinition {
	return &RequestDefinition{
		baseURL: baseURL,
		path:    path,
		method:  method,
		body:    &body,
	}
}

// BaseURL returns the first server URL of the plugin
func (d *RequestDefinition) BaseURL() string {
	return d.baseURL
}

// Path returns the path key the model picked
func (d *RequestDefinition) Path() string {
	return d.path
}

// Method returns the method of the resolved operation
func (d *RequestDefinition) Method() convert.Method {
	return d.method
}

// Body returns the JSON payload and whether one is present
func (d *RequestDefinition) Body() (string, bool) {
	if d.body == nil {
		return "", false
	}
	return *d.body, true
}

type requestDefinitionJSON struct {
	BaseURL string         `json:"base_url"`
	Path    string         `json:"path"`
	Method  convert.Method `json:"method" jsonschema:"enum=get,enum=post,enum=put,enum=delete"`
	Data    *string        `json:"data,omitempty"`
}

// MarshalJSON encodes the definition with the payload under "data"
func (d *RequestDefinition) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestDefinitionJSON{
		BaseURL: d.baseURL,
		Path:    d.path,
		Method:  d.method,
		Data:    d.body,
	})
}

// Result is the outcome of one Resolve call
type Result struct {
	PathFound      bool               `json:"plugin_found"`
	OperationFound bool               `json:"plugin_operation_found"`
	Usage          Usage              `json:"usage"`
	Failure        *Cause             `json:"failure,omitempty"`
	Request        *RequestDefinition `json:"request_definition,omitempty"`
	Chain          *MessageChain      `json:"message_chain"`
}

// Failed reports whether the resolution ended with an error
func (r *Result) Failed() bool {
	return r.Failure != nil
}
