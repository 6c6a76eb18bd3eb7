package domain

import "context"

// MailProvider opens authenticated sessions against a mailbox.
// Implementations: Gmail REST API, IMAP
type MailProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// Open authenticates with credential and verifies mailbox access.
	Open(ctx context.Context, credential string) (MailSession, error)
}

// MailSession is a single request's view of a mailbox.
type MailSession interface {
	// ListMessageIDs returns up to limit message ids, most recent first.
	ListMessageIDs(ctx context.Context, limit int) ([]string, error)
	// GetMessage retrieves one message with its plain-text body extracted.
	GetMessage(ctx context.Context, id string) (*RawMessage, error)
	Close() error
}
