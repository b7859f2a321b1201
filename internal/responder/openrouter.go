package responder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/castillo-ev/talk2jesus/internal/session"
)

// DefaultOpenRouterURL is the chat-completions endpoint.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

const sseDataPrefix = "data: "
const sseDoneMarker = "[DONE]"

var tracer = otel.Tracer("talk2jesus/responder")
var meter = otel.Meter("talk2jesus/responder")

// OpenRouter is a Responder backed by the OpenRouter chat-completions API.
type OpenRouter struct {
	apiKey       string
	model        string
	baseURL      string
	systemPrompt string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewOpenRouter creates an OpenRouter responder.
func NewOpenRouter(apiKey, model, systemPrompt string, logger *slog.Logger) *OpenRouter {
	return &OpenRouter{
		apiKey:       apiKey,
		model:        model,
		baseURL:      DefaultOpenRouterURL,
		systemPrompt: systemPrompt,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		logger:       logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// buildMessages assembles the ordered request messages: one leading persona
// system entry, the prior history, then the latest user turn.
func (o *OpenRouter) buildMessages(history []session.Message, text string) []chatMessage {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: o.systemPrompt})
	for _, msg := range history {
		messages = append(messages, chatMessage{Role: historyRole(msg.Role), Content: msg.Text})
	}
	messages = append(messages, chatMessage{Role: "user", Content: text})
	return messages
}

// Complete returns the full reply text.
func (o *OpenRouter) Complete(ctx context.Context, history []session.Message, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "openrouter_chat_completion")
	defer span.End()

	start := time.Now()
	resp, err := o.send(ctx, chatRequest{Model: o.model, Messages: o.buildMessages(history, text)})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp chatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	o.recordDuration(ctx, time.Since(start))

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenRouter")
	}
	return strings.TrimSpace(apiResp.Choices[0].Message.Content), nil
}

// CompleteStream returns the reply as newline-delimited SSE fragments
// decoded into plain text chunks. The channel is closed after the DONE
// sentinel, a stream error, or context cancellation.
func (o *OpenRouter) CompleteStream(ctx context.Context, history []session.Message, text string) (<-chan Chunk, error) {
	ctx, span := tracer.Start(ctx, "openrouter_chat_stream")

	resp, err := o.send(ctx, chatRequest{Model: o.model, Messages: o.buildMessages(history, text), Stream: true})
	if err != nil {
		span.End()
		return nil, err
	}

	chunks := make(chan Chunk)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()
		defer span.End()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, sseDataPrefix) {
				continue
			}
			payload := strings.TrimPrefix(line, sseDataPrefix)
			if payload == sseDoneMarker {
				return
			}

			var event streamEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				o.logger.Warn("skipping malformed stream event", "error", err)
				continue
			}
			if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case chunks <- Chunk{Text: event.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case chunks <- Chunk{Err: fmt.Errorf("stream read failed: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return chunks, nil
}

// send posts the request with the bearer credential and app headers.
func (o *OpenRouter) send(ctx context.Context, reqBody chatRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "Talk-to-Jesus-App")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}
	return resp, nil
}

func (o *OpenRouter) recordDuration(ctx context.Context, d time.Duration) {
	histogram, err := meter.Float64Histogram(
		"llm.request.duration",
		metric.WithDescription("LLM request duration in milliseconds"),
	)
	if err != nil {
		o.logger.Warn("failed to create duration histogram", "error", err)
		return
	}
	histogram.Record(ctx, float64(d.Milliseconds()))
}
