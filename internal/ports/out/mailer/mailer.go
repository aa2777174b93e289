package mailer

import (
	"context"
	"net/mail"
)

type Message struct {
	To      mail.Address
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers transactional email. Send returns once the provider has
// accepted or rejected the message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
