package simulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/pattern"
)

type recordingSink struct {
	mu       sync.Mutex
	readings []codec.WorkerReading
	failEach int // fail every n-th insert when > 0
	calls    int
}

func (s *recordingSink) Insert(_ context.Context, r codec.WorkerReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failEach > 0 && s.calls%s.failEach == 0 {
		return errors.New("sink unavailable")
	}
	s.readings = append(s.readings, r)
	return nil
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

func newCodec() *codec.ReadingCodec {
	return codec.NewReadingCodec(pattern.NewSeeded(11))
}

func TestRunEmitsCount(t *testing.T) {
	sink := &recordingSink{}
	sim := New(newCodec(), sink, Config{Count: 25}, nil)

	res, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, res.Sent)
	assert.Zero(t, res.Failed)
	require.Len(t, sink.readings, 25)

	_, err = ksuid.Parse(res.RunID)
	assert.NoError(t, err)

	for _, r := range sink.readings {
		assert.NoError(t, r.Validate())
	}
}

func TestRunCountsFailures(t *testing.T) {
	sink := &recordingSink{failEach: 3}
	sim := New(newCodec(), sink, Config{Count: 9}, nil)

	res, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, res.Sent)
	assert.Equal(t, 3, res.Failed)
}

func TestRunUnboundedStopsOnCancel(t *testing.T) {
	sink := &recordingSink{}
	sim := New(newCodec(), sink, Config{Interval: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		res, err := sim.Run(ctx)
		assert.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, func() bool { return sink.len() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case res := <-done:
		assert.GreaterOrEqual(t, res.Sent, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("simulator did not stop")
	}
}

func TestRunBoundedReportsCancellation(t *testing.T) {
	sim := New(newCodec(), &recordingSink{}, Config{Count: 1000, Interval: time.Hour}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := sim.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, res.Sent)
}

func TestRunIDsAreUnique(t *testing.T) {
	sim := New(newCodec(), &recordingSink{}, Config{Count: 1}, nil)
	a, err := sim.Run(context.Background())
	require.NoError(t, err)
	b, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}
