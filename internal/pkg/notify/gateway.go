package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/qs3c/listing_sub_server/config"
)

type gatewayRequest struct {
	Channel  string `json:"channel"`
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id,omitempty"`
}

type gatewayResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// GatewayClient 通过 HTTP 消息网关发送 WhatsApp/SMS
type GatewayClient struct {
	channel    string
	url        string
	token      string
	senderID   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewGatewayClient(channel string, cfg *config.MessagingConfig) *GatewayClient {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &GatewayClient{
		channel:  channel,
		url:      cfg.GatewayURL,
		token:    cfg.APIToken,
		senderID: cfg.SenderID,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (c *GatewayClient) Send(ctx context.Context, to, body string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &TransportError{Channel: c.channel, Err: err}
	}

	payload, err := json.Marshal(gatewayRequest{
		Channel:  c.channel,
		To:       to,
		Message:  body,
		SenderID: c.senderID,
	})
	if err != nil {
		return "", &TransportError{Channel: c.channel, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Channel: c.channel, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Channel: c.channel, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", &TransportError{Channel: c.channel, StatusCode: resp.StatusCode, Err: err}
	}

	var out gatewayResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &TransportError{Channel: c.channel, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
	if out.MessageID == "" {
		return "", &TransportError{Channel: c.channel, StatusCode: resp.StatusCode, Err: fmt.Errorf("missing message id")}
	}
	return out.MessageID, nil
}
