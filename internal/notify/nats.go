// Package notify publishes build lifecycle events to NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/margin/internal/build"
	"git.home.luguber.info/inful/margin/internal/logfields"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "margin.builds"

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Publisher sends every build event as JSON to a NATS subject.
// It implements build.Observer.
type Publisher struct {
	pub     publisher
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials url and returns a Publisher for subject.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("margin"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p := newPublisher(conn, subject, logger)
	p.conn = conn
	logger.Info("NATS publisher initialized", slog.String("url", url), slog.String("subject", p.subject))
	return p, nil
}

func newPublisher(pub publisher, subject string, logger *slog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{pub: pub, subject: subject, logger: logger}
}

// Subject returns the subject events are published to for t.
func (p *Publisher) Subject(t build.EventType) string {
	return p.subject + "." + string(t)
}

// OnBuildEvent implements build.Observer. Publish failures are logged.
func (p *Publisher) OnBuildEvent(_ context.Context, ev build.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("Failed to marshal build event", logfields.Error(err))
		return
	}
	if err := p.pub.Publish(p.Subject(ev.Type), data); err != nil {
		p.logger.Warn("Failed to publish build event",
			logfields.BuildID(ev.BuildID),
			slog.String("subject", p.Subject(ev.Type)),
			logfields.Error(err))
		return
	}
	p.logger.Debug("Published build event", logfields.BuildID(ev.BuildID), slog.String("type", string(ev.Type)))
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
