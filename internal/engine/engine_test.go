package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glintlabs/glint/internal/document"
	"github.com/glintlabs/glint/internal/engine/dwell"
	"github.com/glintlabs/glint/internal/extract"
	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/orchestrate"
	"github.com/glintlabs/glint/internal/session"
	"github.com/glintlabs/glint/internal/shared/types"
)

type countingResolver struct {
	calls  int32
	result *extract.Result
}

func (r *countingResolver) Resolve(_ *document.Snapshot, _ types.Point) *extract.Result {
	atomic.AddInt32(&r.calls, 1)
	if r.result == nil {
		return nil
	}
	res := *r.result
	return &res
}

type fakeEmitter struct {
	engine      *Engine
	raster      []byte
	respond     bool
	captureReqs int32
	results     chan *orchestrate.ResolveResult
	statuses    chan orchestrate.Status
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{
		results:  make(chan *orchestrate.ResolveResult, 4),
		statuses: make(chan orchestrate.Status, 4),
	}
}

func (f *fakeEmitter) Result(res *orchestrate.ResolveResult) { f.results <- res }
func (f *fakeEmitter) Status(st orchestrate.Status)          { f.statuses <- st }

func (f *fakeEmitter) RequestCapture(id string) {
	atomic.AddInt32(&f.captureReqs, 1)
	if f.respond {
		f.engine.Capture(CaptureResponse{RequestID: id, Image: f.raster})
	}
}

type recordingNotebook struct {
	calls int32
}

func (r *recordingNotebook) Persist(_ context.Context, _ orchestrate.NotebookEntry) error {
	atomic.AddInt32(&r.calls, 1)
	return nil
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func testDoc() *document.Snapshot {
	return &document.Snapshot{
		URL:      "https://example.com/article",
		Title:    "Article",
		Viewport: types.Size{Width: 200, Height: 100},
	}
}

func openTestSession(t *testing.T) *session.Session {
	t.Helper()
	mgr := session.NewManager(session.NewFileStore(t.TempDir()), nil, logging.NewNop())
	s, err := mgr.Open(context.Background(), "user-1")
	require.NoError(t, err)
	return s
}

func testEngineConfig() Config {
	return Config{
		TickInterval:   20 * time.Millisecond,
		CaptureWait:    200 * time.Millisecond,
		CooldownWindow: 30 * time.Second,
		CooldownBucket: 96,
		TextKeyLen:     32,
	}
}

func testDetector() *dwell.Detector {
	return dwell.NewDetector(dwell.Config{
		Radius:       48,
		DwellTime:    100 * time.Millisecond,
		RestVelocity: 12,
	})
}

func newChainBackend(t *testing.T) (captureURL, reasonURL string, captures, reasons *int32, lastSnapshotLen *int32) {
	t.Helper()
	captures, reasons, lastSnapshotLen = new(int32), new(int32), new(int32)

	captureSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(captures, 1)
		var req orchestrate.CaptureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			atomic.StoreInt32(lastSnapshotLen, int32(len(req.Snapshot)))
		}
		fmt.Fprint(w, `{"success":true,"data":{"extracted_text":"normalized"}}`)
	}))
	t.Cleanup(captureSrv.Close)

	reasonSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(reasons, 1)
		fmt.Fprint(w, `{"success":true,"data":{"agents":{"classification":"definition","explanation":"It means X."}}}`)
	}))
	t.Cleanup(reasonSrv.Close)

	return captureSrv.URL, reasonSrv.URL, captures, reasons, lastSnapshotLen
}

func TestSustainedDwellProducesExactlyOneChain(t *testing.T) {
	captureURL, reasonURL, captures, reasons, snapLen := newChainBackend(t)
	nb := &recordingNotebook{}
	client := orchestrate.NewClient(orchestrate.Config{
		CaptureURL:       captureURL,
		ReasoningURL:     reasonURL,
		CaptureTimeout:   2 * time.Second,
		ReasoningTimeout: 2 * time.Second,
	}, logging.NewNop())
	orch := orchestrate.NewOrchestrator(client, nil, nb, logging.NewNop())

	resolver := &countingResolver{result: &extract.Result{
		ContainerRef: "node:3",
		Text:         "the extracted passage",
		Profile:      document.ProfileGeneric,
	}}
	emitter := newFakeEmitter()
	emitter.respond = true
	emitter.raster = encodePNG(t, 200, 100)

	e := New(testEngineConfig(), Deps{
		Session:      openTestSession(t),
		Detector:     testDetector(),
		Dispatcher:   resolver,
		Orchestrator: orch,
		Emitter:      emitter,
		Log:          logging.NewNop(),
	})
	emitter.engine = e

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	e.Document(testDoc())
	e.Pointer(types.PointerSample{X: 100, Y: 50, T: time.Now()})

	select {
	case res := <-emitter.results:
		assert.Equal(t, "definition", res.Classification)
		assert.Equal(t, "It means X.", res.Explanation)
	case <-time.After(3 * time.Second):
		t.Fatal("dwell never resolved")
	}

	// Keep the dwell sustained well past another full dwell window; the
	// cooldown must suppress any second chain.
	time.Sleep(400 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&resolver.calls), "exactly one extraction")
	assert.Equal(t, int32(1), atomic.LoadInt32(captures), "exactly one capture call")
	assert.Equal(t, int32(1), atomic.LoadInt32(reasons), "exactly one reasoning call")
	assert.Equal(t, int32(1), atomic.LoadInt32(&nb.calls), "exactly one notebook entry")
	assert.Positive(t, atomic.LoadInt32(snapLen), "chain carried the cropped snapshot")
	assert.Empty(t, emitter.results)
}

func TestScrollBeforeDwellPreventsResolve(t *testing.T) {
	resolver := &countingResolver{result: &extract.Result{Text: "text", ContainerRef: "node:1"}}
	e := New(testEngineConfig(), Deps{
		Session:    openTestSession(t),
		Detector:   testDetector(),
		Dispatcher: resolver,
		Emitter:    newFakeEmitter(),
		Log:        logging.NewNop(),
	})
	e.doc = testDoc()

	t0 := time.Now()
	e.handle(types.PointerSample{X: 100, Y: 50, T: t0})

	// Tick every 20ms for 500ms, scrolling every 60ms so no anchor ever
	// survives a full dwell window.
	for i := 1; i <= 25; i++ {
		now := t0.Add(time.Duration(i) * 20 * time.Millisecond)
		if i%3 == 0 {
			e.handle(HostEvent{Kind: HostScroll})
		}
		e.tick(context.Background(), now)
	}

	assert.Zero(t, atomic.LoadInt32(&resolver.calls))
}

func TestInputFocusPreventsResolve(t *testing.T) {
	resolver := &countingResolver{result: &extract.Result{Text: "text", ContainerRef: "node:1"}}
	e := New(testEngineConfig(), Deps{
		Session:    openTestSession(t),
		Detector:   testDetector(),
		Dispatcher: resolver,
		Emitter:    newFakeEmitter(),
		Log:        logging.NewNop(),
	})
	e.doc = testDoc()

	t0 := time.Now()
	e.handle(types.PointerSample{X: 100, Y: 50, T: t0})
	for i := 1; i <= 25; i++ {
		if i%3 == 0 {
			e.handle(HostEvent{Kind: HostInputFocus})
		}
		e.tick(context.Background(), t0.Add(time.Duration(i)*20*time.Millisecond))
	}

	assert.Zero(t, atomic.LoadInt32(&resolver.calls))
}

func TestDisabledDetectionNeverResolves(t *testing.T) {
	resolver := &countingResolver{result: &extract.Result{Text: "text", ContainerRef: "node:1"}}
	s := openTestSession(t)
	e := New(testEngineConfig(), Deps{
		Session:    s,
		Detector:   testDetector(),
		Dispatcher: resolver,
		Emitter:    newFakeEmitter(),
		Log:        logging.NewNop(),
	})
	e.doc = testDoc()

	off := false
	e.handle(Control{Enabled: &off})
	assert.False(t, s.Enabled())

	t0 := time.Now()
	e.handle(types.PointerSample{X: 100, Y: 50, T: t0})
	for i := 1; i <= 15; i++ {
		e.tick(context.Background(), t0.Add(time.Duration(i)*20*time.Millisecond))
	}

	assert.Zero(t, atomic.LoadInt32(&resolver.calls))
}

func TestEmptyExtractionIsTerminalNotError(t *testing.T) {
	resolver := &countingResolver{result: nil}
	emitter := newFakeEmitter()
	e := New(testEngineConfig(), Deps{
		Session:    openTestSession(t),
		Detector:   testDetector(),
		Dispatcher: resolver,
		Emitter:    emitter,
		Log:        logging.NewNop(),
	})
	e.doc = testDoc()

	t0 := time.Now()
	e.handle(types.PointerSample{X: 100, Y: 50, T: t0})
	for i := 1; i <= 15; i++ {
		e.tick(context.Background(), t0.Add(time.Duration(i)*20*time.Millisecond))
	}

	assert.Positive(t, atomic.LoadInt32(&resolver.calls))
	assert.Empty(t, emitter.statuses, "empty extraction emits nothing")
	assert.Empty(t, emitter.results)
}

func TestCaptureTimeoutContinuesTextOnly(t *testing.T) {
	captureURL, reasonURL, captures, _, snapLen := newChainBackend(t)
	client := orchestrate.NewClient(orchestrate.Config{
		CaptureURL:       captureURL,
		ReasoningURL:     reasonURL,
		CaptureTimeout:   2 * time.Second,
		ReasoningTimeout: 2 * time.Second,
	}, logging.NewNop())
	orch := orchestrate.NewOrchestrator(client, nil, nil, logging.NewNop())

	resolver := &countingResolver{result: &extract.Result{Text: "passage", ContainerRef: "node:2"}}
	emitter := newFakeEmitter()
	emitter.respond = false // raster request times out

	cfg := testEngineConfig()
	cfg.CaptureWait = 30 * time.Millisecond
	e := New(cfg, Deps{
		Session:      openTestSession(t),
		Detector:     testDetector(),
		Dispatcher:   resolver,
		Orchestrator: orch,
		Emitter:      emitter,
		Log:          logging.NewNop(),
	})
	emitter.engine = e

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	e.Document(testDoc())
	e.Pointer(types.PointerSample{X: 100, Y: 50, T: time.Now()})

	select {
	case <-emitter.results:
	case <-time.After(3 * time.Second):
		t.Fatal("text-only chain never completed")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(captures))
	assert.Zero(t, atomic.LoadInt32(snapLen), "no snapshot when the raster request times out")
	assert.Equal(t, int32(1), atomic.LoadInt32(&emitter.captureReqs))
}

func TestTabSwitchInvalidatesDocument(t *testing.T) {
	resolver := &countingResolver{result: &extract.Result{Text: "text", ContainerRef: "node:1"}}
	s := openTestSession(t)
	e := New(testEngineConfig(), Deps{
		Session:    s,
		Detector:   testDetector(),
		Dispatcher: resolver,
		Emitter:    newFakeEmitter(),
		Log:        logging.NewNop(),
	})
	e.doc = testDoc()

	tab := "tab-42"
	e.handle(Control{Tab: &tab})
	assert.Equal(t, "tab-42", s.CurrentTab())
	assert.Nil(t, e.doc)

	t0 := time.Now()
	e.handle(types.PointerSample{X: 100, Y: 50, T: t0})
	for i := 1; i <= 15; i++ {
		e.tick(context.Background(), t0.Add(time.Duration(i)*20*time.Millisecond))
	}
	assert.Zero(t, atomic.LoadInt32(&resolver.calls), "no document, no extraction")
}

func TestStaleCaptureResponseIsIgnored(t *testing.T) {
	e := New(testEngineConfig(), Deps{
		Session: openTestSession(t),
		Emitter: newFakeEmitter(),
		Log:     logging.NewNop(),
	})
	// No pending request: routing must be a silent no-op.
	e.routeCapture(CaptureResponse{RequestID: "stale", Image: []byte{1}})
}
