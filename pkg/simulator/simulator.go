// Package simulator emits synthetic worker readings on a fixed interval
package simulator

import (
	"context"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/codec"
)

// Sink receives emitted readings
type Sink interface {
	Insert(ctx context.Context, r codec.WorkerReading) error
}

// Config controls a simulation run
type Config struct {
	Interval time.Duration // pause between readings; zero emits back to back
	Count    int           // readings to emit; zero runs until cancelled
}

// Result summarizes a run
type Result struct {
	RunID  string
	Sent   int
	Failed int
}

// Simulator feeds synthetic readings into a Sink
type Simulator struct {
	codec  *codec.ReadingCodec
	sink   Sink
	cfg    Config
	logger *zap.Logger
}

// New creates a simulator
func New(c *codec.ReadingCodec, sink Sink, cfg Config, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{codec: c, sink: sink, cfg: cfg, logger: logger}
}

// Run emits readings until Count is reached or ctx is cancelled. A sink
// failure is logged and counted but does not stop the run. Cancelling an
// unbounded run is a normal stop; cancelling a bounded one returns ctx.Err().
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: ksuid.New().String()}
	logger := s.logger.With(zap.String("run_id", res.RunID))
	logger.Info("simulation started", zap.Duration("interval", s.cfg.Interval), zap.Int("count", s.cfg.Count))

	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for s.cfg.Count == 0 || res.Sent+res.Failed < s.cfg.Count {
		if err := ctx.Err(); err != nil {
			return s.stopped(logger, res, err)
		}

		reading := s.codec.Synthetic()
		if err := s.sink.Insert(ctx, reading); err != nil {
			res.Failed++
			logger.Warn("failed to emit reading", zap.String("key", reading.UniqueKey()), zap.Error(err))
		} else {
			res.Sent++
			logger.Debug("emitted reading", zap.String("key", reading.UniqueKey()))
		}

		if s.cfg.Count != 0 && res.Sent+res.Failed >= s.cfg.Count {
			break
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return s.stopped(logger, res, ctx.Err())
			case <-tick:
			}
		}
	}

	logger.Info("simulation finished", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	return res, nil
}

func (s *Simulator) stopped(logger *zap.Logger, res Result, err error) (Result, error) {
	logger.Info("simulation stopped", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	if s.cfg.Count == 0 {
		return res, nil
	}
	return res, err
}
