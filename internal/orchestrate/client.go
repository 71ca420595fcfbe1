package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/glintlabs/glint/internal/infrastructure/resilience"
	"github.com/glintlabs/glint/internal/logging"
)

// Stage failure classes. The chain aborts on either; there is no partial
// result and no fallback mechanism.
var (
	ErrCaptureFailed   = errors.New("capture stage failed")
	ErrReasoningFailed = errors.New("reasoning stage failed")
)

// Config tunes the remote chain client.
type Config struct {
	CaptureURL       string
	ReasoningURL     string
	CaptureTimeout   time.Duration
	ReasoningTimeout time.Duration
}

// DefaultConfig returns the production stage timeouts.
func DefaultConfig() Config {
	return Config{
		CaptureTimeout:   10 * time.Second,
		ReasoningTimeout: 30 * time.Second,
	}
}

// Client drives the capture -> reasoning chain. Each Run is a short-lived
// state machine; both stages are hard-deadlined, and a timeout or explicit
// failure aborts the whole chain.
type Client struct {
	http    *resty.Client
	breaker *resilience.Breaker
	cfg     Config
	log     *logging.Logger
}

// NewClient creates a chain client.
func NewClient(cfg Config, log *logging.Logger) *Client {
	def := DefaultConfig()
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = def.CaptureTimeout
	}
	if cfg.ReasoningTimeout <= 0 {
		cfg.ReasoningTimeout = def.ReasoningTimeout
	}
	if log == nil {
		log = logging.NewDefault()
	}

	// Transport-level retries stay off: the retry path for a failed chain
	// is the next qualifying dwell event.
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil

	httpClient := resty.NewWithClient(rc.StandardClient()).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "glint-engine/1.0")

	return &Client{
		http:    httpClient,
		breaker: resilience.New("orchestrate", resilience.RemoteStageSettings()),
		cfg:     cfg,
		log:     log.Component("orchestrate"),
	}
}

// Run executes one chain. The returned result's Stage is StageDone only
// when both stages explicitly succeeded; every other outcome carries a
// non-nil error identifying the failed stage.
func (c *Client) Run(ctx context.Context, req CaptureRequest) (*ChainResult, error) {
	result := &ChainResult{Stage: StageCapturing}

	started := time.Now()
	capture, err := c.capture(ctx, req)
	result.CaptureTook = time.Since(started)
	if err != nil {
		result.Stage = StageFailed
		return result, err
	}
	result.Capture = *capture

	result.Stage = StageReasoning
	started = time.Now()
	agents, err := c.reason(ctx, req.UserID, req.SessionID, capture)
	result.ReasoningTook = time.Since(started)
	if err != nil {
		result.Stage = StageFailed
		return result, err
	}
	result.Agents = *agents

	result.Stage = StageDone
	return result, nil
}

func (c *Client) capture(ctx context.Context, req CaptureRequest) (*CaptureData, error) {
	stageCtx, cancel := context.WithTimeout(ctx, c.cfg.CaptureTimeout)
	defer cancel()

	started := time.Now()
	env, err := c.post(stageCtx, c.cfg.CaptureURL, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", ErrCaptureFailed, remoteError(env))
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrCaptureFailed)
	}

	var data CaptureData
	if err := sonic.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrCaptureFailed, err)
	}
	data.Raw = env.Data

	c.log.Debug("capture stage done",
		zap.Duration("took", time.Since(started)),
		zap.Int("text_len", len(data.ExtractedText)))
	return &data, nil
}

func (c *Client) reason(ctx context.Context, userID, sessionID string, capture *CaptureData) (*AgentsData, error) {
	stageCtx, cancel := context.WithTimeout(ctx, c.cfg.ReasoningTimeout)
	defer cancel()

	body := map[string]interface{}{
		"user_id":        userID,
		"session_id":     sessionID,
		"capture_result": capture.Raw,
	}

	started := time.Now()
	env, err := c.post(stageCtx, c.cfg.ReasoningURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReasoningFailed, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", ErrReasoningFailed, remoteError(env))
	}

	var data struct {
		Agents AgentsData `json:"agents"`
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrReasoningFailed)
	}
	if err := sonic.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrReasoningFailed, err)
	}
	if !data.Agents.Populated() {
		return nil, fmt.Errorf("%w: payload missing agent output", ErrReasoningFailed)
	}

	c.log.Debug("reasoning stage done", zap.Duration("took", time.Since(started)))
	return &data.Agents, nil
}

func (c *Client) post(ctx context.Context, url string, body interface{}) (*envelope, error) {
	var env envelope
	err := c.breaker.Do(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			Post(url)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("status %d", resp.StatusCode())
		}
		return sonic.Unmarshal(resp.Body(), &env)
	})
	if err != nil {
		return nil, err
	}
	return &env, nil
}

func remoteError(env *envelope) string {
	if env.Error != "" {
		return env.Error
	}
	return "remote stage reported failure"
}
