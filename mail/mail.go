package mail

import (
	"context"
	"io"
	netmail "net/mail"
)

// Relay submits one message to an upstream mail server per call.
type Relay interface {
	Relay(ctx context.Context, msg Message) error
	io.Closer
}

// Message represents a plain text email with a single recipient.
type Message struct {
	From    Address // filled from relay credentials when empty
	To      Address
	Subject string
	Body    string // Plain text body
}

// Address represents an email address.
type Address struct {
	Name    string // "John Doe"
	Address string // "john@example.com"
}

// String formats the address for a message header, encoding the name if needed.
func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	return (&netmail.Address{Name: a.Name, Address: a.Address}).String()
}
