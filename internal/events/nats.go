package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects per event family.
const (
	SubjectPaired   = "meetbot.paired"
	SubjectUnpaired = "meetbot.unpaired"
	SubjectQueue    = "meetbot.queue" // queue_timeout, queue_aborted
)

// Subject returns the subject an event of type t is published on.
func Subject(t Type) string {
	switch t {
	case TypePaired:
		return SubjectPaired
	case TypeUnpaired:
		return SubjectUnpaired
	default:
		return SubjectQueue
	}
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int // -1 for infinite
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "meetbot",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events as JSON on per-family subjects.
type NATSPublisher struct {
	conn conn
	log  *slog.Logger
}

// NewNATSPublisher connects to NATS and returns a ready publisher.
func NewNATSPublisher(cfg NATSConfig, log *slog.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	log.Info("nats connected", "url", nc.ConnectedUrl())

	return &NATSPublisher{conn: nc, log: log}, nil
}

// Publish marshals e and sends it on Subject(e.Type).
func (p *NATSPublisher) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", e.Type, err)
	}
	if err := p.conn.Publish(Subject(e.Type), data); err != nil {
		return fmt.Errorf("events: publish %s for %d: %w", e.Type, e.UserID, err)
	}
	p.log.Debug("event published", "type", e.Type, "user", e.UserID, "partner", e.PartnerID)
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
