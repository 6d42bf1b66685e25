package mailer

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const resetPasswordTemplate = `Hello {{ .Name | default "there" }},

You are receiving this email because you (or someone else) has requested the reset of a password.
Please make a PUT request to:

{{ .ResetURL }}

The link expires at {{ dateInZone "2006-01-02 15:04 MST" .ExpiresAt "UTC" }}.
If you did not request this, please ignore this email.

{{ .AppName | upper }}
`

var templates = template.Must(
	template.New("reset_password").Funcs(sprig.TxtFuncMap()).Parse(resetPasswordTemplate),
)

const TemplateResetPassword = "reset_password"

// Render executes a named template with sprig functions available.
func Render(name string, data interface{}) (string, error) {
	tmpl := templates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("unknown mail template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
