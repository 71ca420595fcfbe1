package relay

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/shared/types"
)

func ptr[T any](v T) *T { return &v }

// scriptedChannel feeds frames until dropped, then errors every Read.
type scriptedChannel struct {
	frames  chan wireFrame
	dropped chan struct{}
	once    sync.Once
}

func newScriptedChannel() *scriptedChannel {
	return &scriptedChannel{
		frames:  make(chan wireFrame, 16),
		dropped: make(chan struct{}),
	}
}

func (c *scriptedChannel) Read() (wireFrame, error) {
	select {
	case wf := <-c.frames:
		return wf, nil
	case <-c.dropped:
		return wireFrame{}, errors.New("channel lost")
	}
}

func (c *scriptedChannel) Close() error {
	c.once.Do(func() { close(c.dropped) })
	return nil
}

func (c *scriptedChannel) drop() { c.Close() }

func testConfig() Config {
	return Config{
		ReconnectDelay: 60 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
		MinConfidence:  0.5,
	}
}

func TestAcceptBroadcastsValidFrames(t *testing.T) {
	s := NewWithTransport(testConfig(), nil, nil, logging.NewNop())
	inbox := make(chan types.GazeFrame, 4)
	s.Register("session-a", inbox)

	s.accept(wireFrame{X: 100, Y: 200, Confidence: ptr(0.9)}, "channel")
	frame := <-inbox
	assert.Equal(t, 100.0, frame.X)
	assert.Equal(t, 0.9, frame.Confidence)
	assert.True(t, frame.Available)
}

func TestAcceptDefaultsMissingConfidence(t *testing.T) {
	s := NewWithTransport(testConfig(), nil, nil, logging.NewNop())
	inbox := make(chan types.GazeFrame, 1)
	s.Register("session-a", inbox)

	s.accept(wireFrame{X: 1, Y: 2}, "channel")
	frame := <-inbox
	assert.Equal(t, 1.0, frame.Confidence)
}

func TestAcceptDropsBadFrames(t *testing.T) {
	s := NewWithTransport(testConfig(), nil, nil, logging.NewNop())
	inbox := make(chan types.GazeFrame, 4)
	s.Register("session-a", inbox)

	s.accept(wireFrame{X: math.NaN(), Y: 10}, "channel")
	s.accept(wireFrame{X: 10, Y: math.Inf(1)}, "channel")
	s.accept(wireFrame{X: 10, Y: 10, Confidence: ptr(0.2)}, "channel")
	assert.Empty(t, inbox)
}

func TestOutageMarkerPassesThrough(t *testing.T) {
	s := NewWithTransport(testConfig(), nil, nil, logging.NewNop())
	inbox := make(chan types.GazeFrame, 1)
	s.Register("session-a", inbox)

	s.accept(wireFrame{Available: ptr(false)}, "channel")
	frame := <-inbox
	assert.False(t, frame.Available)
	assert.False(t, frame.Valid())
}

func TestFullInboxIsSkipped(t *testing.T) {
	s := NewWithTransport(testConfig(), nil, nil, logging.NewNop())
	full := make(chan types.GazeFrame, 1)
	full <- types.GazeFrame{}
	open := make(chan types.GazeFrame, 1)
	s.Register("full", full)
	s.Register("open", open)

	done := make(chan struct{})
	go func() {
		s.accept(wireFrame{X: 5, Y: 5, Confidence: ptr(1.0)}, "channel")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full inbox")
	}
	assert.Len(t, open, 1)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	s := NewWithTransport(testConfig(), nil, nil, logging.NewNop())
	inbox := make(chan types.GazeFrame, 4)
	s.Register("session-a", inbox)
	s.Unregister("session-a")

	s.accept(wireFrame{X: 1, Y: 1, Confidence: ptr(1.0)}, "channel")
	assert.Empty(t, inbox)
}

func TestDisconnectStartsPolling(t *testing.T) {
	ch := newScriptedChannel()
	var polls int32

	dial := func(ctx context.Context) (Channel, error) { return ch, nil }
	poll := func(ctx context.Context) (wireFrame, error) {
		atomic.AddInt32(&polls, 1)
		return wireFrame{X: 1, Y: 1}, nil
	}

	s := NewWithTransport(testConfig(), dial, poll, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, s.Connected, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&polls), "no polling while connected")

	ch.drop()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&polls) > 0
	}, time.Second, time.Millisecond, "polling must start within one interval of the drop")
}

func TestReconnectStopsPolling(t *testing.T) {
	var dials int32
	var polls int32
	live := newScriptedChannel()

	dial := func(ctx context.Context) (Channel, error) {
		if atomic.AddInt32(&dials, 1) == 1 {
			return nil, errors.New("source down")
		}
		return live, nil
	}
	poll := func(ctx context.Context) (wireFrame, error) {
		atomic.AddInt32(&polls, 1)
		return wireFrame{X: 1, Y: 1}, nil
	}

	s := NewWithTransport(testConfig(), dial, poll, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, s.Connected, time.Second, time.Millisecond)
	polled := atomic.LoadInt32(&polls)
	assert.Positive(t, polled, "degraded window before reconnect must poll")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polled, atomic.LoadInt32(&polls), "no polling after reconnect")
}

func TestDegradedFramesReachSessions(t *testing.T) {
	dial := func(ctx context.Context) (Channel, error) {
		return nil, errors.New("source down")
	}
	poll := func(ctx context.Context) (wireFrame, error) {
		return wireFrame{X: 42, Y: 7, Confidence: ptr(0.8)}, nil
	}

	s := NewWithTransport(testConfig(), dial, poll, logging.NewNop())
	inbox := make(chan types.GazeFrame, 16)
	s.Register("session-a", inbox)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case frame := <-inbox:
		assert.Equal(t, 42.0, frame.X)
		assert.True(t, frame.Valid())
	case <-time.After(time.Second):
		t.Fatal("polled frame never delivered")
	}
}

func TestStateChangeCallback(t *testing.T) {
	ch := newScriptedChannel()
	dial := func(ctx context.Context) (Channel, error) { return ch, nil }

	s := NewWithTransport(testConfig(), dial, nil, logging.NewNop())
	states := make(chan bool, 4)
	s.OnStateChange = func(up bool) { states <- up }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.True(t, <-states)
	ch.drop()
	assert.False(t, <-states)
}
