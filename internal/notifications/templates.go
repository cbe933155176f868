package notifications

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// each .html file must define {{define "name:subject"}} and
// {{define "name:body"}} blocks, where name matches the filename without
// extension.
func LoadTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	return tmpl, nil
}
