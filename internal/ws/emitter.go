package ws

import (
	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/orchestrate"
)

// emitter adapts the socket's outbound queue to the engine. Sends are
// non-blocking; a full queue drops the message and the client catches up
// from the next one.
type emitter struct {
	out chan Message
	log *logging.Logger
}

func newEmitter(queue int, log *logging.Logger) *emitter {
	return &emitter{
		out: make(chan Message, queue),
		log: log,
	}
}

func (e *emitter) Result(res *orchestrate.ResolveResult) {
	e.push(TypeResolveResult, res)
}

func (e *emitter) Status(st orchestrate.Status) {
	e.push(TypeStatus, st)
}

func (e *emitter) RequestCapture(requestID string) {
	e.push(TypeCaptureRequest, map[string]string{"request_id": requestID})
}

func (e *emitter) push(msgType string, payload any) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		e.log.Warn("outbound encode failed", zap.String("type", msgType), zap.Error(err))
		return
	}
	select {
	case e.out <- Message{Type: msgType, Data: data}:
	default:
		e.log.Warn("outbound queue full, dropping", zap.String("type", msgType))
	}
}
