package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/glintlabs/glint/internal/logging"
)

// NotebookSink persists structured notes derived from successful resolves.
type NotebookSink interface {
	Persist(ctx context.Context, entry NotebookEntry) error
}

// NotebookClient posts entries to the notebook endpoint. Persisting is a
// fire-and-forget side effect of a successful chain; its failure is
// surfaced as a status message and never rolled back into the chain
// result.
type NotebookClient struct {
	http    *resty.Client
	url     string
	timeout time.Duration
	log     *logging.Logger
}

// NewNotebookClient creates a notebook sink.
func NewNotebookClient(url string, timeout time.Duration, log *logging.Logger) *NotebookClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logging.NewDefault()
	}
	return &NotebookClient{
		http:    resty.New().SetHeader("Content-Type", "application/json"),
		url:     url,
		timeout: timeout,
		log:     log.Component("notebook"),
	}
}

// Persist implements NotebookSink.
func (n *NotebookClient) Persist(ctx context.Context, entry NotebookEntry) error {
	if n.url == "" {
		return fmt.Errorf("notebook endpoint not configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.http.R().
		SetContext(callCtx).
		SetBody(entry).
		Post(n.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("notebook endpoint returned status %d", resp.StatusCode())
	}
	return nil
}
