package ingest

import (
	"context"
	"fmt"

	"github.com/ssargent/minewatch/pkg/codec"
)

// Publisher sends readings as canonical text to a topic
type Publisher struct {
	broker Broker
	codec  *codec.ReadingCodec
	topic  string
	qos    byte
}

// NewPublisher creates a publisher for topic
func NewPublisher(broker Broker, c *codec.ReadingCodec, topic string, qos byte) *Publisher {
	return &Publisher{broker: broker, codec: c, topic: topic, qos: qos}
}

// Insert publishes one reading. The name lets a Publisher stand in wherever
// readings are stored.
func (p *Publisher) Insert(ctx context.Context, r codec.WorkerReading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := p.codec.EncodeText(r)
	if err != nil {
		return fmt.Errorf("encode reading %s: %w", r.UniqueKey(), err)
	}
	return p.broker.Publish(p.topic, p.qos, false, payload)
}
