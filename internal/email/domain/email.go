package domain

import "strings"

const (
	DefaultSubject = "No Subject"
	DefaultSender  = "No Sender"

	PlaceholderSubject = "Error loading email"
	PlaceholderSender  = "Unknown"
)

// Email is the unit that flows between the mail provider, the classifier and the UI.
// Values are copied, never shared between requests.
type Email struct {
	ID             string `json:"id"`
	Subject        string `json:"subject"`
	Sender         string `json:"sender"`
	Body           string `json:"body"`
	Classification Label  `json:"classification"`
}

// WithLabel returns a copy of the email carrying the given label.
func (e Email) WithLabel(label Label) Email {
	e.Classification = label
	return e
}

// PlaceholderEmail stands in for a message that could not be retrieved.
func PlaceholderEmail(id string) Email {
	return Email{
		ID:             id,
		Subject:        PlaceholderSubject,
		Sender:         PlaceholderSender,
		Body:           "",
		Classification: LabelGeneral,
	}
}

// Header is a single message header as returned by a mail provider.
type Header struct {
	Name  string
	Value string
}

// RawMessage is a provider message with headers intact and the plain-text body already extracted.
type RawMessage struct {
	ID      string
	Headers []Header
	Body    string
}

// ToEmail picks Subject and From and applies the fetch defaults.
func (m RawMessage) ToEmail() Email {
	subject, ok := HeaderValue(m.Headers, "Subject")
	if !ok {
		subject = DefaultSubject
	}
	sender, ok := HeaderValue(m.Headers, "From")
	if !ok {
		sender = DefaultSender
	}

	return Email{
		ID:             m.ID,
		Subject:        subject,
		Sender:         sender,
		Body:           m.Body,
		Classification: LabelGeneral,
	}
}

// HeaderValue returns the first header whose name matches exactly, falling back
// to the first case-insensitive match.
func HeaderValue(headers []Header, name string) (string, bool) {
	for _, h := range headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
