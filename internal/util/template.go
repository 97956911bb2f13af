package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// templateFuncs are the helpers available inside instruction templates.
var templateFuncs = template.FuncMap{
	"default": func(fallback any, val any) any {
		if val == nil || val == "" {
			return fallback
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	},
	"join": func(sep string, items []any) string {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(parts, sep)
	},
}

// RenderTemplate expands {{.key}} references in text against the run input.
// Rendering uses text/template: automation payloads routinely carry raw
// strings (emails, URLs, quotes) that must reach the model unescaped. Text
// without template markers is returned as is.
func RenderTemplate(text string, input map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("instructions").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse instructions template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, input); err != nil {
		return "", fmt.Errorf("render instructions template: %w", err)
	}

	return buf.String(), nil
}
