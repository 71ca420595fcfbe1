package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glintlabs/glint/internal/document"
	"github.com/glintlabs/glint/internal/engine/dwell"
	"github.com/glintlabs/glint/internal/engine/fusion"
	"github.com/glintlabs/glint/internal/extract"
	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/orchestrate"
	"github.com/glintlabs/glint/internal/session"
	"github.com/glintlabs/glint/internal/shared/types"
	"github.com/glintlabs/glint/internal/snapshot"
	"github.com/glintlabs/glint/internal/telemetry"
)

// HostEventKind identifies a host-surface signal.
type HostEventKind string

const (
	HostScroll       HostEventKind = "scroll"
	HostInputFocus   HostEventKind = "input_focus"
	HostVisibility   HostEventKind = "visibility"
	HostOverlayHover HostEventKind = "overlay_hover"
	HostClick        HostEventKind = "click"
)

// HostEvent is a scroll/focus/visibility/overlay signal from the client.
type HostEvent struct {
	Kind   HostEventKind `json:"kind"`
	Hidden bool          `json:"hidden,omitempty"`
}

// Control carries enable/dock/tab changes. Nil fields are unchanged.
type Control struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Docked  *bool   `json:"docked,omitempty"`
	Tab     *string `json:"tab,omitempty"`
}

// CaptureResponse answers a raster request. Denied or empty means the
// chain proceeds text-only.
type CaptureResponse struct {
	RequestID string `json:"request_id"`
	Image     []byte `json:"image,omitempty"`
	Denied    bool   `json:"denied,omitempty"`
}

// Emitter is the session's outbound surface. Implementations must not
// block; the socket writer owns its own queue.
type Emitter interface {
	Result(res *orchestrate.ResolveResult)
	Status(st orchestrate.Status)
	RequestCapture(requestID string)
}

// Resolver extracts context at a point. *extract.Dispatcher is the
// production implementation.
type Resolver interface {
	Resolve(doc *document.Snapshot, pt types.Point) *extract.Result
}

// Config tunes the engine loop.
type Config struct {
	TickInterval   time.Duration
	CaptureWait    time.Duration
	CooldownWindow time.Duration
	CooldownBucket float64
	// TextKeyLen is the extracted-text prefix length used for resolve
	// de-duplication.
	TextKeyLen int
}

func DefaultConfig() Config {
	return Config{
		TickInterval:   200 * time.Millisecond,
		CaptureWait:    5 * time.Second,
		CooldownWindow: 30 * time.Second,
		CooldownBucket: 96,
		TextKeyLen:     32,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.CaptureWait <= 0 {
		c.CaptureWait = def.CaptureWait
	}
	if c.CooldownWindow <= 0 {
		c.CooldownWindow = def.CooldownWindow
	}
	if c.CooldownBucket <= 0 {
		c.CooldownBucket = def.CooldownBucket
	}
	if c.TextKeyLen <= 0 {
		c.TextKeyLen = def.TextKeyLen
	}
	return c
}

// Deps are the engine's collaborators. Orchestrator and Emitter are
// required; the rest default when nil.
type Deps struct {
	Session      *session.Session
	Tracker      *fusion.Tracker
	Detector     *dwell.Detector
	Cooldown     *dwell.CooldownRegistry
	Dispatcher   Resolver
	Snapshots    *snapshot.Pipeline
	Orchestrator *orchestrate.Orchestrator
	Emitter      Emitter
	Telemetry    *telemetry.Recorder
	Log          *logging.Logger
}

// Engine runs one session's cooperative loop: fold input, tick the fusion
// tracker and dwell detector at a fixed interval, and drive a resolve chain
// when a dwell fires. The loop itself never blocks on network calls; the
// chain runs on its own goroutine with at most one in flight.
type Engine struct {
	cfg Config
	d   Deps
	log *logging.Logger

	inbox chan any
	doc   *document.Snapshot

	inflight atomic.Bool

	captureMu sync.Mutex
	pendingID string
	pendingCh chan CaptureResponse
}

func New(cfg Config, deps Deps) *Engine {
	cfg = cfg.withDefaults()
	if deps.Log == nil {
		deps.Log = logging.NewDefault()
	}
	if deps.Tracker == nil {
		deps.Tracker = fusion.NewTracker(fusion.DefaultConfig())
	}
	if deps.Detector == nil {
		deps.Detector = dwell.NewDetector(dwell.DefaultConfig())
	}
	if deps.Cooldown == nil {
		deps.Cooldown = dwell.NewCooldownRegistry(cfg.CooldownWindow, cfg.CooldownBucket)
	}
	if deps.Snapshots == nil {
		deps.Snapshots = snapshot.NewPipeline(snapshot.DefaultConfig())
	}
	log := deps.Log.Component("engine")
	if deps.Session != nil {
		log = log.WithSession(deps.Session.ID)
	}
	e := &Engine{
		cfg:   cfg,
		d:     deps,
		log:   log,
		inbox: make(chan any, 256),
	}
	if deps.Session != nil {
		deps.Detector.SetEnabled(deps.Session.Enabled())
	}
	return e
}

// Pointer folds a pointer sample. Drops under backpressure; the next
// sample supersedes.
func (e *Engine) Pointer(s types.PointerSample) {
	select {
	case e.inbox <- s:
	default:
	}
}

// Host submits a host-surface event.
func (e *Engine) Host(ev HostEvent) {
	e.inbox <- ev
}

// Document replaces the active document snapshot.
func (e *Engine) Document(doc *document.Snapshot) {
	e.inbox <- doc
}

// Control applies a control change.
func (e *Engine) Control(c Control) {
	e.inbox <- c
}

// Capture routes a raster response to the waiting chain.
func (e *Engine) Capture(resp CaptureResponse) {
	e.inbox <- resp
}

// Run drives the loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	var gaze <-chan types.GazeFrame
	if e.d.Session != nil {
		gaze = e.d.Session.Gaze
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-e.inbox:
			e.handle(msg)
		case frame := <-gaze:
			e.d.Tracker.ObserveGaze(frame)
		case now := <-ticker.C:
			e.tick(ctx, now)
		}
	}
}

func (e *Engine) handle(msg any) {
	switch v := msg.(type) {
	case types.PointerSample:
		e.d.Tracker.ObservePointer(v)
	case HostEvent:
		e.hostEvent(v)
	case *document.Snapshot:
		e.doc = v
		e.d.Detector.Reset(dwell.ResetScroll)
	case Control:
		e.control(v)
	case CaptureResponse:
		e.routeCapture(v)
	}
}

func (e *Engine) hostEvent(ev HostEvent) {
	switch ev.Kind {
	case HostScroll:
		e.d.Detector.Reset(dwell.ResetScroll)
		e.d.Telemetry.Record(telemetry.EventScroll)
	case HostInputFocus:
		e.d.Detector.Reset(dwell.ResetInputFocus)
	case HostOverlayHover:
		e.d.Detector.Reset(dwell.ResetOverlayHover)
	case HostVisibility:
		if ev.Hidden {
			e.d.Detector.Reset(dwell.ResetDisabled)
			e.d.Tracker.Reset()
		}
	case HostClick:
		e.d.Telemetry.Record(telemetry.EventClick)
	}
}

func (e *Engine) control(c Control) {
	s := e.d.Session
	if c.Enabled != nil {
		if s != nil {
			s.SetEnabled(*c.Enabled)
		}
		e.d.Detector.SetEnabled(*c.Enabled)
		e.log.Info("detection toggled", zap.Bool("enabled", *c.Enabled))
	}
	if c.Docked != nil && s != nil {
		s.SetDocked(*c.Docked)
	}
	if c.Tab != nil && s != nil {
		s.SetCurrentTab(*c.Tab)
		// A tab switch invalidates the document until the client ships a
		// fresh snapshot.
		e.doc = nil
		e.d.Detector.Reset(dwell.ResetScroll)
		e.d.Tracker.Reset()
	}
}

func (e *Engine) tick(ctx context.Context, now time.Time) {
	e.d.Cooldown.Sweep(now)
	if !e.d.Tracker.Primed() {
		return
	}
	pos := e.d.Tracker.Tick(now)
	ev := e.d.Detector.Observe(pos)
	if ev == nil {
		return
	}
	e.resolve(ctx, ev)
}

// resolve gates a dwell event through the cooldown registry and the
// extraction dispatcher, then launches the orchestration chain.
func (e *Engine) resolve(ctx context.Context, ev *dwell.Event) {
	if e.inflight.Load() {
		e.log.Debug("resolve suppressed, chain in flight")
		return
	}
	if e.doc == nil || e.d.Dispatcher == nil {
		return
	}

	regionKey := e.d.Cooldown.RegionKey(ev.Point.X, ev.Point.Y)
	if !e.d.Cooldown.Allow(ev.At, regionKey) {
		return
	}
	e.d.Cooldown.Mark(ev.At, regionKey)

	res := e.d.Dispatcher.Resolve(e.doc, ev.Point)
	if res == nil {
		e.log.Debug("extraction empty",
			zap.Float64("x", ev.Point.X), zap.Float64("y", ev.Point.Y))
		return
	}

	dedupKeys := []string{
		"container:" + res.ContainerRef,
		"text:" + textPrefix(res.Text, e.cfg.TextKeyLen),
	}
	if !e.d.Cooldown.Allow(ev.At, dedupKeys...) {
		return
	}
	e.d.Cooldown.Mark(ev.At, dedupKeys...)

	if e.d.Orchestrator == nil || e.d.Emitter == nil {
		return
	}
	e.inflight.Store(true)
	e.d.Telemetry.Record(telemetry.EventHover)

	doc := e.doc
	go e.runChain(ctx, ev, doc, res)
}

// runChain requests a raster, crops it, and drives the two-stage remote
// chain, emitting the result or a status to the session.
func (e *Engine) runChain(ctx context.Context, ev *dwell.Event, doc *document.Snapshot, res *extract.Result) {
	defer e.inflight.Store(false)

	var snapBytes []byte
	if raster := e.requestRaster(ctx); raster != nil {
		snap, err := e.d.Snapshots.Crop(raster, doc.Viewport, ev.Point)
		if err != nil {
			e.log.Debug("snapshot crop failed, continuing text-only", zap.Error(err))
		} else {
			snapBytes = snap.Image
		}
	}

	req := orchestrate.CaptureRequest{
		URL:               doc.URL,
		Point:             ev.Point,
		Snapshot:          snapBytes,
		ExtractedText:     res.Text,
		ContextWindowSize: extract.DefaultConfig().WindowLines,
		DwellTimeMS:       ev.DwellTime.Milliseconds(),
	}
	if e.d.Session != nil {
		req.UserID = e.d.Session.UserID
		req.SessionID = e.d.Session.ID
	}

	result, err := e.d.Orchestrator.Execute(ctx, req, e.d.Emitter.Status)
	if err != nil {
		e.log.Warn("resolve chain failed", zap.Error(err))
		return
	}
	e.d.Emitter.Result(result)
}

// requestRaster asks the client for a full-viewport raster and waits for
// the routed response. Returns nil on denial or timeout; the chain then
// continues text-only.
func (e *Engine) requestRaster(ctx context.Context) []byte {
	if e.d.Emitter == nil {
		return nil
	}

	id := uuid.NewString()
	ch := make(chan CaptureResponse, 1)
	e.captureMu.Lock()
	e.pendingID = id
	e.pendingCh = ch
	e.captureMu.Unlock()
	defer func() {
		e.captureMu.Lock()
		e.pendingID = ""
		e.pendingCh = nil
		e.captureMu.Unlock()
	}()

	e.d.Emitter.RequestCapture(id)

	timer := time.NewTimer(e.cfg.CaptureWait)
	defer timer.Stop()
	select {
	case resp := <-ch:
		if resp.Denied || len(resp.Image) == 0 {
			return nil
		}
		return resp.Image
	case <-timer.C:
		e.log.Debug("raster request timed out")
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (e *Engine) routeCapture(resp CaptureResponse) {
	e.captureMu.Lock()
	defer e.captureMu.Unlock()
	if e.pendingCh == nil || resp.RequestID != e.pendingID {
		return
	}
	select {
	case e.pendingCh <- resp:
	default:
	}
}

func textPrefix(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
