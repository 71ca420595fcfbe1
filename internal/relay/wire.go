package relay

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

// wireFrame is the gaze source's payload for both the channel and the poll
// endpoint. Confidence and Available are pointers so absence is
// distinguishable from zero.
type wireFrame struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Confidence *float64 `json:"confidence,omitempty"`
	Available  *bool    `json:"available,omitempty"`
}

// wsChannel adapts a gorilla connection to the Channel interface.
type wsChannel struct {
	conn *websocket.Conn
}

func (c *wsChannel) Read() (wireFrame, error) {
	var wf wireFrame
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		return wf, err
	}
	if err := sonic.Unmarshal(payload, &wf); err != nil {
		return wf, fmt.Errorf("decode gaze frame: %w", err)
	}
	return wf, nil
}

func (c *wsChannel) Close() error {
	return c.conn.Close()
}

// wsDial returns the default channel dialer for the configured gaze URL.
func wsDial(cfg Config) DialFunc {
	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	return func(ctx context.Context) (Channel, error) {
		conn, resp, err := dialer.DialContext(ctx, cfg.URL, nil)
		if err != nil {
			return nil, err
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return &wsChannel{conn: conn}, nil
	}
}

// httpPoll returns the default degraded-path poller against the latest-frame
// endpoint.
func httpPoll(cfg Config) PollFunc {
	client := resty.New().
		SetTimeout(cfg.PollInterval).
		SetHeader("Accept", "application/json")
	return func(ctx context.Context) (wireFrame, error) {
		var wf wireFrame
		resp, err := client.R().SetContext(ctx).Get(cfg.PollURL)
		if err != nil {
			return wf, err
		}
		if resp.StatusCode() == http.StatusNoContent {
			unavailable := false
			return wireFrame{Available: &unavailable}, nil
		}
		if resp.IsError() {
			return wf, fmt.Errorf("gaze poll status %d", resp.StatusCode())
		}
		if err := sonic.Unmarshal(resp.Body(), &wf); err != nil {
			return wf, fmt.Errorf("decode gaze poll: %w", err)
		}
		return wf, nil
	}
}
