// Package notify publishes poll results to NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ernie/bot30/internal/domain"
)

const flushTimeout = 2 * time.Second

// Publisher sends status events to <prefix>.<server>.status and offline
// events to <prefix>.<server>.offline.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// Connect dials the NATS server at url
func Connect(url, prefix string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("bot30"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &Publisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject an event is published on
func (p *Publisher) Subject(ev domain.Event) string {
	kind := "status"
	if ev.Type == domain.EventServerOffline {
		kind = "offline"
	}
	return p.prefix + "." + subjectToken(ev.Server) + "." + kind
}

// Publish sends ev as JSON and waits for the server to acknowledge it
func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	subject := p.Subject(ev)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flushing %s: %w", subject, err)
	}
	p.logger.Debug("published event", zap.String("subject", subject), zap.Int("bytes", len(data)))
	return nil
}

// Close drains pending messages and closes the connection
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

// subjectToken makes a server name safe to use as one subject token
func subjectToken(name string) string {
	if name == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, name)
}
