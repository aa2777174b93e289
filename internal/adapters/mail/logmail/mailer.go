package logmail

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bodyforce/admin-api/internal/ports/out/mailer"
)

// Mailer logs messages instead of delivering them and keeps them for inspection.
// It is the default in development and in tests.
type Mailer struct {
	log *slog.Logger

	mu   sync.Mutex
	sent []mailer.Message
}

var _ mailer.Mailer = (*Mailer)(nil)

func New(log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{log: log}
}

func (m *Mailer) Send(ctx context.Context, msg mailer.Message) error {
	m.log.InfoContext(ctx, "email not delivered (log mailer)",
		slog.String("to", msg.To.Address),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of every message passed to Send.
func (m *Mailer) Sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}
