package resolver

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"text/template"
)

const (
	identifyPathTemplate    = "identify_path.tmpl"
	generatePayloadTemplate = "generate_payload.tmpl"
)

//go:embed prompts/*.tmpl
var embeddedPrompts embed.FS

// DefaultPrompts returns the built-in prompt templates
func DefaultPrompts() fs.FS {
	sub, err := fs.Sub(embeddedPrompts, "prompts")
	if err != nil {
		panic(err)
	}
	return sub
}

// Prompts holds the two templates used during a resolution
type Prompts struct {
	identifyPath    *template.Template
	generatePayload *template.Template
}

// LoadPrompts parses identify_path.tmpl and generate_payload.tmpl from fsys
func LoadPrompts(fsys fs.FS) (*Prompts, error) {
	identify, err := parseTemplate(fsys, identifyPathTemplate)
	if err != nil {
		return nil, err
	}
	payload, err := parseTemplate(fsys, generatePayloadTemplate)
	if err != nil {
		return nil, err
	}
	return &Prompts{identifyPath: identify, generatePayload: payload}, nil
}

func parseTemplate(fsys fs.FS, name string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").ParseFS(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	return tmpl, nil
}

// IdentifyPath renders the path identification prompt
func (p *Prompts) IdentifyPath(pathsYAML, message string) (string, error) {
	return execute(p.identifyPath, struct {
		YAML    string
		Message string
	}{pathsYAML, message})
}

// GeneratePayload renders the payload synthesis prompt
func (p *Prompts) GeneratePayload(componentsYAML, entity, message string) (string, error) {
	return execute(p.generatePayload, struct {
		YAML    string
		Entity  string
		Message string
	}{componentsYAML, entity, message})
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
