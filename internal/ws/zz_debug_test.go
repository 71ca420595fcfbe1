package ws

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glintlabs/glint/internal/engine"
	"github.com/glintlabs/glint/internal/engine/dwell"
	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/session"
	"net/http/httptest"
)

func newDebugServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	sessions := session.NewManager(session.NewFileStore(dir), nil, logging.NewNop())
	factory := func(s *session.Session, em engine.Emitter) *engine.Engine {
		return engine.New(engine.Config{
			TickInterval: 20 * time.Millisecond,
			CaptureWait:  150 * time.Millisecond,
		}, engine.Deps{
			Session:    s,
			Detector:   dwell.NewDetector(dwell.Config{Radius: 48, DwellTime: 100 * time.Millisecond, RestVelocity: 12}),
			Dispatcher: staticResolver{},
			Emitter:    em,
			Log:        logging.NewNop(),
		})
	}
	r := gin.New()
	h := NewHandler(sessions, factory, logging.NewNop())
	r.GET("/ws", h.HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, dir
}

func dumpDir(dir string) {
	found := false
	filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		b, _ := os.ReadFile(p)
		fmt.Printf("  file %s: %s\n", p, string(b))
		found = true
		return nil
	})
	if !found {
		fmt.Println("  (no state files)")
	}
}

func TestZZDebugPersist(t *testing.T) {
	for iter := 0; iter < 10; iter++ {
		srv, dir := newDebugServer(t)

		conn := dial(t, srv, "user-1")
		readMessage(t, conn, time.Second)
		sendMessage(t, conn, TypeControl, map[string]any{"enabled": false, "docked": true})
		sendMessage(t, conn, TypePing, nil)
		readMessage(t, conn, time.Second)
		fmt.Printf("iter %d, after pong:\n", iter)
		dumpDir(dir)
		conn.Close()
		time.Sleep(200 * time.Millisecond)
		fmt.Printf("iter %d, after close+200ms:\n", iter)
		dumpDir(dir)

		conn2 := dial(t, srv, "user-1")
		msg := readMessage(t, conn2, time.Second)
		var welcome struct {
			Enabled bool `json:"enabled"`
			Docked  bool `json:"docked"`
		}
		json.Unmarshal(msg.Data, &welcome)
		fmt.Printf("iter %d, welcome2: %s ok=%v\n", iter, string(msg.Data), !welcome.Enabled && welcome.Docked)
		conn2.Close()
	}
}
