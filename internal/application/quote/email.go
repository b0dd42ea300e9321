package quote

import (
	"bytes"
	"fmt"
	"text/template"
)

// Email template ids
const (
	EmailStandard  = "standard"
	EmailReminder  = "relance"
	EmailAccepted  = "accepte"
	EmailSignature = "signature"
)

// EmailSender is the signature block appended to every email
type EmailSender struct {
	Team  string
	Phone string
	Email string
}

// emailData is the data every template is executed with
type emailData struct {
	FirstName     string
	LastName      string
	Number        string
	Amount        string
	Date          string
	SignatureLink string
	SignedDate    string
	Sender        EmailSender
}

type emailTemplate struct {
	id       string
	name     string
	subject  string
	body     string
	needLink bool
}

const emailFooter = `

Cordialement,
L'équipe {{.Sender.Team}}
{{- if .Sender.Phone}}
Tél : {{.Sender.Phone}}{{end}}
{{- if .Sender.Email}}
Email : {{.Sender.Email}}{{end}}`

var emailTemplates = []emailTemplate{
	{
		id:      EmailStandard,
		name:    "Envoi Standard",
		subject: "Votre devis BTP #{{.Number}} - {{.Sender.Team}}",
		body: `Bonjour {{.FirstName}} {{.LastName}},

Nous avons le plaisir de vous transmettre votre devis pour vos travaux BTP.

Devis N° : {{.Number}}
Montant : {{.Amount}} € TTC
Date : {{.Date}}

Vous trouverez en pièce jointe le devis détaillé au format PDF.

Pour toute question, n'hésitez pas à nous contacter.` + emailFooter,
	},
	{
		id:       EmailReminder,
		name:     "Relance Client",
		subject:  "Relance - Devis BTP #{{.Number}} - {{.Sender.Team}}",
		needLink: true,
		body: `Bonjour {{.FirstName}} {{.LastName}},

Nous espérons que vous allez bien.

Nous vous avons transmis le devis #{{.Number}} d'un montant de {{.Amount}} € TTC le {{.Date}}.

Avez-vous eu l'occasion de l'examiner ? Nous restons à votre disposition pour tout complément d'information.
{{- if .SignatureLink}}

Lien de signature : {{.SignatureLink}}{{end}}

N'hésitez pas à nous contacter si vous avez des questions.` + emailFooter,
	},
	{
		id:      EmailAccepted,
		name:    "Devis Accepté",
		subject: "Confirmation - Devis #{{.Number}} accepté - {{.Sender.Team}}",
		body: `Bonjour {{.FirstName}} {{.LastName}},

Nous vous remercions d'avoir accepté notre devis #{{.Number}} !
{{if .SignedDate}}
Devis accepté le : {{.SignedDate}}{{end}}
Montant validé : {{.Amount}} € TTC

Prochaines étapes :
- Nous vous recontacterons sous 48h pour planifier les travaux
- Un planning détaillé vous sera transmis
- Les travaux débuteront selon les modalités convenues

Nous sommes ravis de collaborer avec vous sur ce projet.` + emailFooter,
	},
	{
		id:       EmailSignature,
		name:     "Demande de Signature",
		subject:  "Signature électronique - Devis #{{.Number}} - {{.Sender.Team}}",
		needLink: true,
		body: `Bonjour {{.FirstName}} {{.LastName}},

Votre devis BTP est prêt et n'attend plus que votre signature !

Devis N° : {{.Number}}
Montant : {{.Amount}} € TTC

Signez en ligne : {{.SignatureLink}}

La signature électronique est :
- Sécurisée et horodatée
- Juridiquement valable
- Simple et rapide

Une fois signé, nous pourrons démarrer votre projet dans les meilleurs délais.` + emailFooter,
	},
}

// compiledEmail is a parsed template pair
type compiledEmail struct {
	emailTemplate
	subject *template.Template
	body    *template.Template
}

// EmailComposer fills the customer email templates for a quote.
// Sending is left to the caller.
type EmailComposer struct {
	sender    EmailSender
	templates map[string]*compiledEmail
}

// NewEmailComposer parses the built-in templates
func NewEmailComposer(sender EmailSender) (*EmailComposer, error) {
	if sender.Team == "" {
		sender.Team = "NFS"
	}
	c := &EmailComposer{sender: sender, templates: make(map[string]*compiledEmail, len(emailTemplates))}
	for _, t := range emailTemplates {
		subject, err := template.New(t.id + ".subject").Option("missingkey=error").Parse(t.subject)
		if err != nil {
			return nil, fmt.Errorf("failed to parse email subject %s: %w", t.id, err)
		}
		body, err := template.New(t.id + ".body").Option("missingkey=error").Parse(t.body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse email body %s: %w", t.id, err)
		}
		c.templates[t.id] = &compiledEmail{emailTemplate: t, subject: subject, body: body}
	}
	return c, nil
}

// Templates lists the templates in display order, with their raw text
func (c *EmailComposer) Templates() []EmailTemplateResponse {
	out := make([]EmailTemplateResponse, 0, len(emailTemplates))
	for _, t := range emailTemplates {
		out = append(out, EmailTemplateResponse{
			ID:      t.id,
			Name:    t.name,
			Subject: t.subject,
			Body:    t.body,
		})
	}
	return out
}

// needsLink reports whether the template embeds a signature link
func (c *EmailComposer) needsLink(id string) (bool, bool) {
	t, ok := c.templates[id]
	if !ok {
		return false, false
	}
	return t.needLink, true
}

// compose executes the template; ok is false for an unknown id
func (c *EmailComposer) compose(id string, data emailData) (subject, body string, ok bool, err error) {
	t, found := c.templates[id]
	if !found {
		return "", "", false, nil
	}
	data.Sender = c.sender

	var buf bytes.Buffer
	if err := t.subject.Execute(&buf, data); err != nil {
		return "", "", true, fmt.Errorf("failed to render email subject %s: %w", id, err)
	}
	subject = buf.String()

	buf.Reset()
	if err := t.body.Execute(&buf, data); err != nil {
		return "", "", true, fmt.Errorf("failed to render email body %s: %w", id, err)
	}
	return subject, buf.String(), true, nil
}
