package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishCartChanged(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	err := p.PublishCartChanged(context.Background(), CartChanged{
		EventID:    "ev-1",
		UserID:     "42",
		Kind:       "item_added",
		ProductID:  7,
		Total:      "303.50",
		ItemCount:  2,
		OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, "cart_changed", string(msg.Headers[0].Value))

	var got CartChanged
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "303.50", got.Total)
	assert.Equal(t, int64(7), got.ProductID)
	assert.True(t, at.Equal(got.OccurredAt))
}

func TestPublishCartChanged_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}}

	err := p.PublishCartChanged(context.Background(), CartChanged{UserID: "1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.NoError(t, NopPublisher{}.Close())
	assert.NoError(t, NopPublisher{}.PublishCartChanged(context.Background(), CartChanged{}))
}

func TestNewKafkaPublisher_FlushesEachEvent(t *testing.T) {
	p := NewKafkaPublisher(CartChangedTopic, "localhost:9092")
	defer p.Close()

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, 1, w.BatchSize)
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	assert.Positive(t, w.BatchTimeout)
	assert.Equal(t, CartChangedTopic, w.Topic)
}
