package providers

import (
	"context"
	"fmt"
	"perimeterd/internal/structures"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

const (
	TopicAudit   = "audit"
	TopicPosture = "posture"
)

// EventPublisherInterface fans security and posture events out to an
// external bus. Publishing is best-effort: callers log and move on.
type EventPublisherInterface interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func (p *NATSPublisher) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(p.subject+"."+topic, data)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

func NewEventPublisher(conf *structures.Config, logger Logger) EventPublisherInterface {
	if !conf.Events.Enabled || conf.Events.URL == "" {
		logger.Infof(TypeApp, "Event bus disabled")
		return &noopPublisher{}
	}

	nc, err := nats.Connect(conf.Events.URL,
		nats.Name(conf.AppName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf(TypeApp, "Event bus disconnected: %s", err)
			}
		}),
	)
	if err != nil {
		logger.Errorf(TypeApp, "Connecting to NATS at %s failed, events disabled: %s", conf.Events.URL, err)
		return &noopPublisher{}
	}

	logger.Infof(TypeApp, "Publishing events to %s under %s.*", conf.Events.URL, conf.Events.Subject)
	return &NATSPublisher{conn: nc, subject: conf.Events.Subject}
}

// noopPublisher is used when no event bus is configured.
type noopPublisher struct{}

func (n *noopPublisher) Publish(_ context.Context, _ string, _ any) error { return nil }
func (n *noopPublisher) Close() error                                     { return nil }
