// Package avatar drives a hosted streaming-avatar service: a short-lived
// session token is exchanged over HTTPS, then a realtime session carries
// speak tasks and lifecycle events over WebSocket.
package avatar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTokenURL is the endpoint that mints streaming session tokens.
const DefaultTokenURL = "https://api.heygen.com/v1/streaming.create_token"

// DefaultStreamURL is the realtime endpoint sessions connect to.
const DefaultStreamURL = "wss://api.heygen.com/v1/ws/streaming"

// Quality levels for the avatar video stream.
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// Settings selects the avatar persona and voice for a session.
type Settings struct {
	AvatarName string
	VoiceID    string
	Quality    string
}

// Token is a short-lived credential for one streaming session.
type Token struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
}

// Client exchanges an API key for streaming session tokens.
type Client struct {
	apiKey     string
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an avatar API client.
func NewClient(apiKey string, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		tokenURL:   DefaultTokenURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// CreateToken mints a new session token.
func (c *Client) CreateToken(ctx context.Context) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.tokenURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var payload struct {
		Data Token `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.Data.Token == "" {
		return nil, fmt.Errorf("token response contained no token")
	}

	c.logger.Info("created avatar session token", "session_id", payload.Data.SessionID)
	return &payload.Data, nil
}
