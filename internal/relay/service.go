package relay

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/shared/types"
)

// Channel is one live connection to the gaze source. Read blocks until the
// next frame arrives or the connection dies.
type Channel interface {
	Read() (wireFrame, error)
	Close() error
}

// DialFunc opens a gaze channel. PollFunc fetches the latest frame over the
// degraded HTTP path.
type DialFunc func(ctx context.Context) (Channel, error)
type PollFunc func(ctx context.Context) (wireFrame, error)

// Config holds relay tunables. Zero values pick the defaults.
type Config struct {
	URL              string
	PollURL          string
	ReconnectDelay   time.Duration
	PollInterval     time.Duration
	MinConfidence    float64
	HandshakeTimeout time.Duration
}

func (c *Config) normalize() {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
}

// Service owns the process-wide gaze channel and fans accepted frames out to
// registered session inboxes. At most one channel is live at a time; while
// it is down the service polls the HTTP path at a fixed interval so sessions
// keep receiving samples.
type Service struct {
	cfg  Config
	log  *logging.Logger
	dial DialFunc
	poll PollFunc

	mu    sync.Mutex
	sinks map[string]chan<- types.GazeFrame

	connected atomic.Bool

	// OnStateChange, if set, is called when the channel connects or drops.
	// Called from the relay goroutine; must not block.
	OnStateChange func(connected bool)

	// OnFrame, if set, is called with the delivery path ("channel" or
	// "poll") for every frame accepted for broadcast. Must not block.
	OnFrame func(path string)
}

// New builds a relay over the default gorilla dialer and resty poller.
func New(cfg Config, log *logging.Logger) *Service {
	cfg.normalize()
	s := newService(cfg, log)
	s.dial = wsDial(cfg)
	s.poll = httpPoll(cfg)
	return s
}

// NewWithTransport builds a relay with injected dial and poll functions.
func NewWithTransport(cfg Config, dial DialFunc, poll PollFunc, log *logging.Logger) *Service {
	cfg.normalize()
	s := newService(cfg, log)
	s.dial = dial
	s.poll = poll
	return s
}

func newService(cfg Config, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Service{
		cfg:   cfg,
		log:   log.Component("relay"),
		sinks: make(map[string]chan<- types.GazeFrame),
	}
}

// Register adds a session inbox. Delivery is best effort; a full inbox is
// skipped, the next frame supersedes.
func (s *Service) Register(id string, inbox chan<- types.GazeFrame) {
	s.mu.Lock()
	s.sinks[id] = inbox
	s.mu.Unlock()
}

// Unregister removes a session inbox. The channel is not closed.
func (s *Service) Unregister(id string) {
	s.mu.Lock()
	delete(s.sinks, id)
	s.mu.Unlock()
}

// Connected reports whether the live channel is currently up.
func (s *Service) Connected() bool {
	return s.connected.Load()
}

// Run drives the relay until ctx is cancelled. It alternates between a live
// channel read loop and a degraded window that polls at PollInterval while
// waiting ReconnectDelay before the next dial attempt.
func (s *Service) Run(ctx context.Context) {
	for ctx.Err() == nil {
		ch, err := s.dial(ctx)
		if err != nil {
			s.log.Warn("gaze dial failed", zap.Error(err))
			s.degradedWindow(ctx)
			continue
		}

		s.setConnected(true)
		s.log.Info("gaze channel connected")
		s.readLoop(ctx, ch)
		s.setConnected(false)

		if ctx.Err() != nil {
			return
		}
		s.log.Warn("gaze channel lost, entering degraded polling")
		s.degradedWindow(ctx)
	}
}

func (s *Service) setConnected(up bool) {
	s.connected.Store(up)
	if s.OnStateChange != nil {
		s.OnStateChange(up)
	}
}

// readLoop consumes frames until the channel errors or ctx is cancelled.
func (s *Service) readLoop(ctx context.Context, ch Channel) {
	defer ch.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ch.Close()
		case <-done:
		}
	}()

	for {
		wf, err := ch.Read()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Debug("gaze read failed", zap.Error(err))
			}
			return
		}
		s.accept(wf, "channel")
	}
}

// degradedWindow polls for one reconnect delay, then returns so Run can
// attempt the next dial. Polling exists only inside this window, so a
// reconnected channel never races a live poll ticker.
func (s *Service) degradedWindow(ctx context.Context) {
	deadline := time.NewTimer(s.cfg.ReconnectDelay)
	defer deadline.Stop()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	if s.poll == nil {
		return
	}
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.PollInterval)
	defer cancel()

	wf, err := s.poll(pollCtx)
	if err != nil {
		s.log.Debug("gaze poll failed", zap.Error(err))
		return
	}
	s.accept(wf, "poll")
}

// accept validates a wire frame and broadcasts it. Outage markers pass
// through so fusion can latch the source off; malformed or low-confidence
// frames are dropped.
func (s *Service) accept(wf wireFrame, path string) {
	if wf.Available != nil && !*wf.Available {
		s.deliver(types.GazeFrame{T: time.Now()}, path)
		return
	}
	if !finite(wf.X) || !finite(wf.Y) {
		return
	}
	confidence := 1.0
	if wf.Confidence != nil {
		confidence = *wf.Confidence
	}
	if confidence < s.cfg.MinConfidence {
		return
	}
	s.deliver(types.GazeFrame{
		X:          wf.X,
		Y:          wf.Y,
		Confidence: confidence,
		T:          time.Now(),
		Available:  true,
	}, path)
}

func (s *Service) deliver(frame types.GazeFrame, path string) {
	if s.OnFrame != nil {
		s.OnFrame(path)
	}
	s.broadcast(frame)
}

func (s *Service) broadcast(frame types.GazeFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inbox := range s.sinks {
		select {
		case inbox <- frame:
		default:
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
