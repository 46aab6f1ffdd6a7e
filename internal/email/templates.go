package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/iliyamo/online-cinema/internal/queue"
)

// mailContent pairs a subject with an HTML body template. The templates only
// interpolate the link, so they are parsed once at init.
type mailContent struct {
	subject string
	body    *template.Template
}

var contents = map[string]mailContent{
	queue.EmailActivation: {
		subject: "Activate your account",
		body: template.Must(template.New("activation").Parse(
			`<p>Welcome! Please activate your account by following the link below.</p>
<p><a href="{{.Link}}">Activate account</a></p>
<p>The link is valid for 24 hours. If you did not register, ignore this email.</p>`)),
	},
	queue.EmailActivationComplete: {
		subject: "Your account is active",
		body: template.Must(template.New("activation_complete").Parse(
			`<p>Your account has been activated. You can log in now.</p>
<p><a href="{{.Link}}">Log in</a></p>`)),
	},
	queue.EmailPasswordReset: {
		subject: "Reset your password",
		body: template.Must(template.New("password_reset").Parse(
			`<p>A password reset was requested for your account.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>The link is valid for 1 hour. If you did not request a reset, ignore this email.</p>`)),
	},
	queue.EmailPasswordResetComplete: {
		subject: "Your password was changed",
		body: template.Must(template.New("password_reset_complete").Parse(
			`<p>Your password has been changed. You can log in with the new password.</p>
<p><a href="{{.Link}}">Log in</a></p>`)),
	},
}

// render resolves an event kind to its subject and rendered HTML body.
func render(event queue.EmailEvent) (subject, body string, err error) {
	content, ok := contents[event.Kind]
	if !ok {
		return "", "", fmt.Errorf("unknown email kind %q", event.Kind)
	}
	var buf bytes.Buffer
	if err := content.body.Execute(&buf, event); err != nil {
		return "", "", fmt.Errorf("render %s: %w", event.Kind, err)
	}
	return content.subject, buf.String(), nil
}
