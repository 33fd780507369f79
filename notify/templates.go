package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"
)

// Data is the template input.
type Data struct {
	Username  string
	Link      string
	ExpiresIn time.Duration
}

// Template is the subject and bodies for one Kind.
type Template struct {
	Subject string
	Text    string
	HTML    string
}

// Templates renders messages for each Kind.
type Templates struct {
	text map[Kind]*template.Template
	html map[Kind]*htmltemplate.Template
	subj map[Kind]string
}

// DefaultTemplates returns the built-in activation and reset emails.
func DefaultTemplates() map[Kind]Template {
	return map[Kind]Template{
		KindActivation: {
			Subject: "Activate your account",
			Text: "Hello {{.Username}},\n\n" +
				"Open the link below to activate your account:\n{{.Link}}\n\n" +
				"The link expires in {{duration .ExpiresIn}}.\n",
			HTML: `<p>Hello {{.Username}},</p>` +
				`<p><a href="{{.Link}}">Activate your account</a></p>` +
				`<p>The link expires in {{duration .ExpiresIn}}.</p>`,
		},
		KindPasswordReset: {
			Subject: "Reset your password",
			Text: "Hello {{.Username}},\n\n" +
				"Open the link below to choose a new password:\n{{.Link}}\n\n" +
				"The link expires in {{duration .ExpiresIn}}. If you did not ask for this, ignore this email.\n",
			HTML: `<p>Hello {{.Username}},</p>` +
				`<p><a href="{{.Link}}">Choose a new password</a></p>` +
				`<p>The link expires in {{duration .ExpiresIn}}. If you did not ask for this, ignore this email.</p>`,
		},
	}
}

// NewTemplates parses set. Missing kinds fall back to DefaultTemplates.
func NewTemplates(set map[Kind]Template) (*Templates, error) {
	merged := DefaultTemplates()
	for k, v := range set {
		merged[k] = v
	}

	funcs := map[string]any{"duration": humanDuration}
	t := &Templates{
		text: make(map[Kind]*template.Template, len(merged)),
		html: make(map[Kind]*htmltemplate.Template, len(merged)),
		subj: make(map[Kind]string, len(merged)),
	}
	for kind, tpl := range merged {
		txt, err := template.New(string(kind)).Funcs(funcs).Parse(tpl.Text)
		if err != nil {
			return nil, fmt.Errorf("parse %s text template: %w", kind, err)
		}
		t.text[kind] = txt

		if tpl.HTML != "" {
			h, err := htmltemplate.New(string(kind)).Funcs(funcs).Parse(tpl.HTML)
			if err != nil {
				return nil, fmt.Errorf("parse %s html template: %w", kind, err)
			}
			t.html[kind] = h
		}
		t.subj[kind] = tpl.Subject
	}
	return t, nil
}

// Render builds the message of kind for to.
func (t *Templates) Render(kind Kind, to string, data Data) (Message, error) {
	txt, ok := t.text[kind]
	if !ok {
		return Message{}, fmt.Errorf("no template for %s", kind)
	}

	var textBuf bytes.Buffer
	if err := txt.Execute(&textBuf, data); err != nil {
		return Message{}, err
	}

	msg := Message{
		Kind:    kind,
		To:      to,
		Subject: t.subj[kind],
		Text:    textBuf.String(),
		Link:    data.Link,
	}

	if h, ok := t.html[kind]; ok {
		var htmlBuf bytes.Buffer
		if err := h.Execute(&htmlBuf, data); err != nil {
			return Message{}, err
		}
		msg.HTML = htmlBuf.String()
	}
	return msg, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute && d%time.Minute == 0:
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	default:
		return d.String()
	}
}
