// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// PasswordResetData holds data for the password reset email.
type PasswordResetData struct {
	SiteName  string
	Username  string
	ResetLink string
	ExpiresIn string // e.g., "1 hour"
}

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(passwordResetHTMLTemplate))

// BuildPasswordResetEmail creates a reset email with both HTML and text bodies.
// The caller sets To.
func BuildPasswordResetEmail(data PasswordResetData) Email {
	return Email{
		Subject:  fmt.Sprintf("Reset your %s password", data.SiteName),
		TextBody: buildPasswordResetText(data),
		HTMLBody: buildPasswordResetHTML(data),
	}
}

func buildPasswordResetText(data PasswordResetData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi %s,\n\n", data.Username)
	fmt.Fprintf(&buf, "Someone asked to reset the password for your %s account.\n", data.SiteName)
	buf.WriteString("Open this link to choose a new password:\n")
	buf.WriteString(data.ResetLink + "\n\n")
	fmt.Fprintf(&buf, "The link expires in %s.\n\n", data.ExpiresIn)
	buf.WriteString("If you did not request this, you can ignore this email.\n")
	return buf.String()
}

func buildPasswordResetHTML(data PasswordResetData) string {
	var buf bytes.Buffer
	_ = passwordResetTmpl.Execute(&buf, data)
	return buf.String()
}

const passwordResetHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Reset your password</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #1f2937;">Reset your {{.SiteName}} password</h2>
  <p>Hi {{.Username}},</p>
  <p>Someone asked to reset the password for your account. Click the button below to choose a new one.</p>
  <p style="margin: 30px 0;">
    <a href="{{.ResetLink}}" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Reset password</a>
  </p>
  <p style="font-size: 14px; color: #6b7280;">Or copy this link into your browser:<br>{{.ResetLink}}</p>
  <p style="font-size: 14px; color: #6b7280;">The link expires in {{.ExpiresIn}}.</p>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 30px 0;">
  <p style="font-size: 12px; color: #9ca3af;">If you did not request this, you can ignore this email.</p>
</body>
</html>`
