package noop

import (
	"context"
	"sync"

	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/mail"
)

var _ mail.Relay = (*Relay)(nil)

// Relay accepts every message without network I/O and keeps a copy of it.
type Relay struct {
	mx       sync.Mutex
	messages []mail.Message
	closed   bool
}

// NewRelay creates a new no-op Relay.
func NewRelay() *Relay {
	return &Relay{}
}

// Relay records msg and reports success.
func (n *Relay) Relay(ctx context.Context, msg mail.Message) error {
	n.mx.Lock()
	defer n.mx.Unlock()

	if n.closed {
		return mail.NewError(mail.KindUnexpected, "relay is closed", nil)
	}
	n.messages = append(n.messages, msg)
	logger.FromContext(ctx).Info("message discarded by noop relay", "to", msg.To.Address)

	return nil
}

// Messages returns the messages relayed so far.
func (n *Relay) Messages() []mail.Message {
	n.mx.Lock()
	defer n.mx.Unlock()

	return append([]mail.Message(nil), n.messages...)
}

// Close makes further Relay calls fail.
func (n *Relay) Close() error {
	n.mx.Lock()
	defer n.mx.Unlock()

	n.closed = true
	return nil
}
