package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cedana/cedana-spot/types"
	"github.com/cedana/cedana-spot/utils"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	subjectRoot  = "CEDANA"
	flushTimeout = 5 * time.Second
)

// Publisher broadcasts instance lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event types.LifecycleEvent) error
	Close()
}

// Subject is CEDANA.spot.<cedana id>.<event type>
func Subject(event types.LifecycleEvent) string {
	return strings.Join([]string{subjectRoot, "spot", event.CedanaID, string(event.Type)}, ".")
}

type NATSPublisher struct {
	logger *zerolog.Logger
	nc     *nats.Conn
}

// NewPublisher connects to NATS when a url is configured, and falls back to a
// publisher that only logs otherwise.
func NewPublisher(c utils.Connection, logger *zerolog.Logger) (Publisher, error) {
	if c.NATSUrl == "" {
		return &LogPublisher{logger: logger}, nil
	}

	url := c.NATSUrl
	if !strings.Contains(url, "://") {
		url = fmt.Sprintf("nats://%s:%d", c.NATSUrl, c.NATSPort)
	}

	opts := []nats.Option{
		nats.Name("cedana-spot"),
		nats.Timeout(10 * time.Second),
	}
	if c.AuthToken != "" {
		opts = append(opts, nats.Token(c.AuthToken))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to NATS at %s: %w", url, err)
	}

	logger.Debug().Str("url", url).Msg("connected to NATS")
	return &NATSPublisher{
		logger: logger,
		nc:     nc,
	}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event types.LifecycleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := Subject(event)
	if err := p.nc.Publish(subject, data); err != nil {
		return err
	}
	p.logger.Debug().Str("subject", subject).Msg("published lifecycle event")

	return p.nc.FlushTimeout(flushTimeout)
}

func (p *NATSPublisher) Close() {
	p.nc.Close()
}

// LogPublisher is used when no NATS server is configured.
type LogPublisher struct {
	logger *zerolog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, event types.LifecycleEvent) error {
	if p.logger != nil {
		p.logger.Debug().Str("subject", Subject(event)).Str("state", string(event.Instance.State)).Msg("lifecycle event")
	}
	return nil
}

func (p *LogPublisher) Close() {}
