package resolver

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorKind classifies why a resolution failed
type ErrorKind string

const (
	KindPluginLoad   ErrorKind = "plugin_load"
	KindSpecFetch    ErrorKind = "spec_fetch"
	KindSchemaLookup ErrorKind = "schema_lookup"
	KindLLMCall      ErrorKind = "llm_call"
	KindTemplateLoad ErrorKind = "template_load"
	KindInternal     ErrorKind = "internal"
)

// Error is a failure raised by one resolution stage
type Error struct {
	Kind ErrorKind
	Err  error
}

// Error prefixes the wrapped message with the kind
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// wrap tags err with a kind and records the stack at the call site
func wrap(kind ErrorKind, err error, msg string) error {
	return &Error{Kind: kind, Err: errors.WrapWithDepth(1, err, msg)}
}

// Cause is the portable description of a failure stored on a Result
type Cause struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Trace   string    `json:"trace,omitempty"`

	err error
}

// Err returns the underlying error, if the cause was built in this process
func (c *Cause) Err() error {
	return c.err
}

func newCause(err error) *Cause {
	kind := KindInternal
	inner := err

	var rerr *Error
	if errors.As(err, &rerr) {
		kind = rerr.Kind
		inner = rerr.Err
	}

	return &Cause{
		Kind:    kind,
		Message: err.Error(),
		Trace:   fmt.Sprintf("%+v", inner),
		err:     err,
	}
}
