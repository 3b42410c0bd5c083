package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

// TemplateID names an outbound email template.
type TemplateID string

const (
	VetRegistrationPending  TemplateID = "VET_REGISTRATION_PENDING"
	VetApproved             TemplateID = "VET_APPROVED"
	VetRejected             TemplateID = "VET_REJECTED"
	AdminNewVetRegistration TemplateID = "ADMIN_NEW_VET_REGISTRATION"
)

// VetData is the payload of the applicant facing templates.
type VetData struct {
	FullName string
	Email    string
	Remarks  string
}

// AdminRegistrationData is the payload of ADMIN_NEW_VET_REGISTRATION.
type AdminRegistrationData struct {
	FullName       string
	Email          string
	Specialization string
	LicenseNumber  string
	ApplicationID  string
}

type emailTemplate struct {
	subject string
	body    *template.Template
}

const layout = `<!DOCTYPE html><html><body style="font-family: Arial, sans-serif; color: #1f2937;">{{template "content" .}}<p style="color:#6b7280;font-size:12px;">VetCare</p></body></html>`

func mustTemplate(name, content string) *template.Template {
	t := template.Must(template.New(name).Parse(layout))
	return template.Must(t.New("content").Parse(content))
}

var templates = map[TemplateID]emailTemplate{
	VetRegistrationPending: {
		subject: "Your VetCare veterinarian application was received",
		body: mustTemplate(string(VetRegistrationPending), `<h2>Hi {{.FullName}},</h2>
<p>Thank you for registering as a veterinarian. Your application and documents are under review.</p>
<p>We will email you at {{.Email}} once an administrator has reviewed it.</p>`),
	},
	VetApproved: {
		subject: "Your VetCare veterinarian account is approved",
		body: mustTemplate(string(VetApproved), `<h2>Welcome aboard, {{.FullName}}!</h2>
<p>Your application has been approved. You can now sign in and start accepting appointments.</p>
{{if .Remarks}}<p>Reviewer remarks: {{.Remarks}}</p>{{end}}`),
	},
	VetRejected: {
		subject: "Update on your VetCare veterinarian application",
		body: mustTemplate(string(VetRejected), `<h2>Hi {{.FullName}},</h2>
<p>Unfortunately your application could not be approved.</p>
<p>Reason: {{.Remarks}}</p>
<p>You may register again once the issue has been resolved.</p>`),
	},
	AdminNewVetRegistration: {
		subject: "New veterinarian registration awaiting review",
		body: mustTemplate(string(AdminNewVetRegistration), `<h2>New veterinarian application</h2>
<ul>
<li>Name: {{.FullName}}</li>
<li>Email: {{.Email}}</li>
<li>Specialization: {{.Specialization}}</li>
<li>License: {{.LicenseNumber}}</li>
</ul>
<p>Application ID: {{.ApplicationID}}</p>`),
	},
}

// Render returns the subject and HTML body of id rendered with data.
func Render(id TemplateID, data any) (subject, body string, err error) {
	tmpl, ok := templates[id]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", id)
	}
	var buf bytes.Buffer
	if err := tmpl.body.ExecuteTemplate(&buf, string(id), data); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", id, err)
	}
	return tmpl.subject, buf.String(), nil
}
