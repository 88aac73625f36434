package ingest

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/codec"
)

// Inserter persists decoded readings
type Inserter interface {
	Insert(ctx context.Context, r codec.WorkerReading) error
}

// Stats counts messages seen by an Ingestor
type Stats struct {
	Received uint64
	Stored   uint64
	Rejected uint64 // undecodable or invalid payloads
	Failed   uint64 // store errors
}

// Ingestor subscribes to a topic and stores every well-formed reading
type Ingestor struct {
	broker Broker
	codec  *codec.ReadingCodec
	sink   Inserter
	topic  string
	qos    byte
	logger *zap.Logger

	received atomic.Uint64
	stored   atomic.Uint64
	rejected atomic.Uint64
	failed   atomic.Uint64
}

// NewIngestor creates an ingestor for topic
func NewIngestor(broker Broker, c *codec.ReadingCodec, sink Inserter, topic string, qos byte, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		broker: broker,
		codec:  c,
		sink:   sink,
		topic:  topic,
		qos:    qos,
		logger: logger.With(zap.String("topic", topic)),
	}
}

// Run subscribes and blocks until ctx is cancelled
func (in *Ingestor) Run(ctx context.Context) error {
	if err := in.broker.Subscribe(in.topic, in.qos, in.handler(ctx)); err != nil {
		return err
	}
	in.logger.Info("ingestion started")

	<-ctx.Done()

	if err := in.broker.Unsubscribe(in.topic); err != nil {
		in.logger.Warn("unsubscribe failed", zap.Error(err))
	}
	st := in.Stats()
	in.logger.Info("ingestion stopped",
		zap.Uint64("received", st.Received),
		zap.Uint64("stored", st.Stored),
		zap.Uint64("rejected", st.Rejected),
		zap.Uint64("failed", st.Failed))
	return nil
}

// Stats returns a snapshot of the message counters
func (in *Ingestor) Stats() Stats {
	return Stats{
		Received: in.received.Load(),
		Stored:   in.stored.Load(),
		Rejected: in.rejected.Load(),
		Failed:   in.failed.Load(),
	}
}

func (in *Ingestor) handler(ctx context.Context) MessageHandler {
	return func(topic string, payload []byte) {
		in.received.Add(1)
		if err := in.handle(ctx, payload); err != nil {
			in.logger.Warn("dropped message", zap.String("message_topic", topic), zap.Error(err))
		}
	}
}

func (in *Ingestor) handle(ctx context.Context, payload []byte) error {
	reading, err := in.codec.DecodeText(payload)
	if err != nil {
		in.rejected.Add(1)
		return err
	}
	if err := reading.Validate(); err != nil {
		in.rejected.Add(1)
		return err
	}

	if err := in.sink.Insert(ctx, reading); err != nil {
		in.failed.Add(1)
		return fmt.Errorf("store reading %s: %w", reading.UniqueKey(), err)
	}
	in.stored.Add(1)
	in.logger.Debug("stored reading", zap.String("key", reading.UniqueKey()))
	return nil
}
