package dto

import (
	emaildomain "mail-triage-backend/internal/email/domain"
)

type EmailsResponse struct {
	Emails []emaildomain.Email `json:"emails"`
}

// ClassifyEmailsRequest accepts the model credential as modelCredential or apiKey.
type ClassifyEmailsRequest struct {
	Emails          []emaildomain.Email `json:"emails"`
	ModelCredential string              `json:"modelCredential,omitempty"`
	APIKey          string              `json:"apiKey,omitempty"`
}

// Credential returns the model credential supplied with the request, if any.
func (r *ClassifyEmailsRequest) Credential() string {
	if r.ModelCredential != "" {
		return r.ModelCredential
	}
	return r.APIKey
}

type ClassifyEmailsResponse struct {
	ClassifiedEmails []emaildomain.Email `json:"classifiedEmails"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
