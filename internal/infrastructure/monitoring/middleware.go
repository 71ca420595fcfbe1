package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordHTTPRequest(method, path, status, time.Since(start))
	}
}

// Timer measures one chain stage.
type Timer struct {
	start   time.Time
	metrics *Metrics
	stage   string
}

// NewTimer starts a stage timer.
func NewTimer(metrics *Metrics, stage string) *Timer {
	return &Timer{start: time.Now(), metrics: metrics, stage: stage}
}

// Stop records the elapsed stage duration.
func (t *Timer) Stop() {
	t.metrics.RecordStage(t.stage, time.Since(t.start))
}
