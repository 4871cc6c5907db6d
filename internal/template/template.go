package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// DefaultFileName is used when no pattern is configured.
const DefaultFileName = "{{.Name}}-{{.Timestamp}}.json"

// Context holds all variables available for template resolution.
type Context struct {
	Name      string
	Timestamp string
	Status    string
	Samples   int64
	Classes   int

	// Vars holds user-defined values from the report metadata.
	Vars map[string]string
}

// Render resolves template expressions in the given string.
// Uses Go's text/template syntax: {{.Name}}, {{.Vars.model}}.
// Returns the input unchanged if it contains no template delimiters.
func Render(tmpl string, ctx *Context) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template: parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("template: render: %w", err)
	}

	return buf.String(), nil
}

// FileName renders pattern and replaces characters that are unsafe in a
// file name. An empty pattern uses DefaultFileName.
func FileName(pattern string, ctx *Context) (string, error) {
	if pattern == "" {
		pattern = DefaultFileName
	}
	name, err := Render(pattern, ctx)
	if err != nil {
		return "", err
	}
	name = sanitize(name)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("template: %q renders to an empty file name", pattern)
	}
	return name, nil
}

// sanitize keeps letters, digits, dots, dashes and underscores.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '-'
	}, strings.TrimSpace(name))
}
