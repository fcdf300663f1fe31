package gemini

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/phrazzld/campus-api/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// renderPrompt executes the named template with data.
func renderPrompt(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	prompt := strings.TrimSpace(buf.String())
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	return prompt, nil
}

// templateNames returns the system and user templates for kind.
func templateNames(kind domain.SubmissionType) (system, user string) {
	if kind == domain.SubmissionSpeaking {
		return "speaking_system.tmpl", "speaking_user.tmpl"
	}
	return "writing_system.tmpl", "writing_user.tmpl"
}
