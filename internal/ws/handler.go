package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/glintlabs/glint/internal/document"
	"github.com/glintlabs/glint/internal/engine"
	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/session"
	"github.com/glintlabs/glint/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // extension origins are opaque; auth happens per user
	},
}

// EngineFactory builds the per-connection engine. The handler owns the
// engine's lifecycle.
type EngineFactory func(s *session.Session, em engine.Emitter) *engine.Engine

// Handler upgrades client sockets and bridges them to session engines.
type Handler struct {
	sessions  *session.Manager
	newEngine EngineFactory
	onMessage func(direction, msgType string)
	log       *logging.Logger

	outboundQueue int
}

func NewHandler(sessions *session.Manager, factory EngineFactory, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Handler{
		sessions:      sessions,
		newEngine:     factory,
		log:           log.Component("ws"),
		outboundQueue: 64,
	}
}

// SetMessageObserver attaches a per-message hook ("in"/"out" plus the
// message type). Nil disables it.
func (h *Handler) SetMessageObserver(fn func(direction, msgType string)) {
	h.onMessage = fn
}

// HandleConnection upgrades the socket, opens a session, starts its engine,
// and pumps messages until the client goes away.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	userID := c.Query("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	s, err := h.sessions.Open(ctx, userID)
	if err != nil {
		h.log.Error("session open failed", zap.Error(err))
		h.writeMessage(conn, Message{Type: TypeError, Data: errPayload("session unavailable")})
		return
	}
	defer h.sessions.Close(context.Background(), s.ID)

	log := h.log.WithSession(s.ID)

	em := newEmitter(h.outboundQueue, log)
	eng := h.newEngine(s, em)

	welcome, _ := sonic.Marshal(map[string]any{
		"session_id": s.ID,
		"enabled":    s.Enabled(),
		"docked":     s.Docked(),
	})
	h.writeMessage(conn, Message{Type: TypeSystem, Data: welcome})

	go eng.Run(ctx)
	go h.writeLoop(ctx, conn, em.out, log)

	h.readLoop(ctx, conn, s, eng, em, log)
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, s *session.Session, eng *engine.Engine, em *emitter, log *logging.Logger) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("socket read failed", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := sonic.Unmarshal(payload, &msg); err != nil {
			em.push(TypeError, map[string]string{"message": "malformed envelope"})
			continue
		}
		if h.onMessage != nil {
			h.onMessage("in", msg.Type)
		}

		switch msg.Type {
		case TypePointerSample:
			var sample types.PointerSample
			if sonic.Unmarshal(msg.Data, &sample) != nil {
				continue
			}
			if sample.T.IsZero() {
				sample.T = time.Now()
			}
			eng.Pointer(sample)
		case TypeHostEvent:
			var ev engine.HostEvent
			if sonic.Unmarshal(msg.Data, &ev) != nil {
				continue
			}
			eng.Host(ev)
		case TypeDocument:
			var doc document.Snapshot
			if err := sonic.Unmarshal(msg.Data, &doc); err != nil {
				em.push(TypeError, map[string]string{"message": "malformed document snapshot"})
				continue
			}
			eng.Document(&doc)
		case TypeCaptureResponse:
			var resp engine.CaptureResponse
			if sonic.Unmarshal(msg.Data, &resp) != nil {
				continue
			}
			eng.Capture(resp)
		case TypeControl:
			var ctrl engine.Control
			if sonic.Unmarshal(msg.Data, &ctrl) != nil {
				continue
			}
			eng.Control(ctrl)
			// Durable fields changed; persist so a reconnect resumes them.
			if err := h.sessions.Persist(ctx, s); err != nil {
				log.Warn("persist failed", zap.Error(err))
			}
		case TypePing:
			em.push(TypePong, nil)
		default:
			em.push(TypeError, map[string]string{"message": "unknown message type"})
		}
	}
}

// writeLoop owns all writes after the welcome message. gorilla connections
// allow one concurrent writer.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan Message, log *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			if err := h.writeMessage(conn, msg); err != nil {
				log.Debug("socket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *Handler) writeMessage(conn *websocket.Conn, msg Message) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	if h.onMessage != nil {
		h.onMessage("out", msg.Type)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func errPayload(message string) []byte {
	data, _ := sonic.Marshal(map[string]string{"message": message})
	return data
}
