package poller

import (
	"context"
	"errors"
	"io"

	"github.com/fjod/medmarket/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	CheckoutTopic = "checkout-outbox"
	StockTopic    = "stock-updated"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// HandlerFunc processes a single message. A returned error is logged and the
// message is not retried.
type HandlerFunc func(ctx context.Context, m kafka.Message) error

type Poller struct {
	name    string
	reader  messageReader
	handle  HandlerFunc
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// newReader joins the consumer group groupID-name, so each poller tracks its
// own offsets even when they share a configured group prefix.
func newReader(name, topic, groupID string, brokers []string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID + "-" + name,
		MaxBytes: 10e6, // 10MB
	})
}

func newPoller(name string, reader messageReader, handle HandlerFunc, log zerolog.Logger) *Poller {
	return &Poller{
		name:   name,
		reader: reader,
		handle: handle,
		log:    log.With().Str("poller", name).Logger(),
	}
}

// WithMetrics makes the poller count handled messages.
func (p *Poller) WithMetrics(m *metrics.Metrics) *Poller {
	p.metrics = m
	return p
}

// Run reads messages until ctx is cancelled or the reader is closed.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info().Msg("poller started")
	for {
		if ctx.Err() != nil {
			p.log.Info().Msg("poller stopped")
			return
		}
		if !p.poll(ctx) {
			p.log.Info().Msg("reader closed, poller stopped")
			return
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error().Err(err).Msg("error closing reader")
	}
}

// poll handles one message. It reports false once the reader is exhausted.
func (p *Poller) poll(ctx context.Context) bool {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false
		}
		if ctx.Err() == nil {
			p.log.Error().Err(err).Msg("error reading message")
		}
		return true
	}

	err = p.handle(ctx, m)
	p.metrics.ObserveMessage(p.name, err)
	if err != nil {
		p.log.Error().
			Err(err).
			Int64("offset", m.Offset).
			Int("partition", m.Partition).
			Msg("failed to handle message")
	}
	return true
}
