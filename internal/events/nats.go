package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes every change on "<prefix>.changes" so other
// instances can follow the store. Publish errors are logged only.
type NATSPublisher struct {
	conn    Conn
	subject string
	log     *slog.Logger
}

func NewNATSPublisher(conn Conn, prefix string, log *slog.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = "factory"
	}
	return &NATSPublisher{conn: conn, subject: prefix + ".changes", log: log}
}

func (p *NATSPublisher) Subject() string {
	return p.subject
}

type changeMessage struct {
	Path string    `json:"path"`
	At   time.Time `json:"at"`
}

func (p *NATSPublisher) Notify(_ context.Context, c Change) {
	const op = "events.NATSPublisher.Notify"

	data, err := json.Marshal(changeMessage{Path: c.Path.String(), At: c.At})
	if err != nil {
		p.log.Error("failed to encode change", slog.String("op", op), slog.String("error", err.Error()))
		return
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		p.log.Warn("failed to publish change", slog.String("op", op), slog.String("path", c.Path.String()), slog.String("error", err.Error()))
	}
}

// Connect открывает соединение с NATS с бесконечным переподключением.
func Connect(url, name string) (*nats.Conn, error) {
	const op = "events.Connect"

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nc, nil
}
