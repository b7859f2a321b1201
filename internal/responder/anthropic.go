package responder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/castillo-ev/talk2jesus/internal/session"
)

// maxReplyTokens caps the length of a single persona reply.
const maxReplyTokens = 1024

// Anthropic is a Responder backed by the official Anthropic SDK.
type Anthropic struct {
	client       anthropic.Client
	model        string
	systemPrompt string
	logger       *slog.Logger
}

// NewAnthropic creates an Anthropic responder.
func NewAnthropic(apiKey, model, systemPrompt string, logger *slog.Logger) *Anthropic {
	return &Anthropic{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:        model,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// buildParams assembles the request: the persona system prompt, the prior
// history mapped onto user/assistant turns, then the latest user turn.
func (a *Anthropic) buildParams(history []session.Message, text string) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, msg := range history {
		if msg.Role == session.RoleUser {
			messages = append(messages, buildUserMessage(msg.Text))
		} else {
			messages = append(messages, buildAssistantMessage(msg.Text))
		}
	}
	messages = append(messages, buildUserMessage(text))

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxReplyTokens,
		System: []anthropic.TextBlockParam{
			{Text: a.systemPrompt},
		},
		Messages: messages,
	}
}

// Complete returns the full reply text.
func (a *Anthropic) Complete(ctx context.Context, history []session.Message, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "anthropic_message")
	defer span.End()

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, a.buildParams(history, text))
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	recordAnthropicDuration(ctx, a.logger, time.Since(start))

	reply := extractText(msg)
	if reply == "" {
		return "", fmt.Errorf("empty response from Anthropic")
	}
	return reply, nil
}

// CompleteStream returns the reply as incremental text deltas.
func (a *Anthropic) CompleteStream(ctx context.Context, history []session.Message, text string) (<-chan Chunk, error) {
	ctx, span := tracer.Start(ctx, "anthropic_message_stream")

	stream := a.client.Messages.NewStreaming(ctx, a.buildParams(history, text))

	chunks := make(chan Chunk)
	go func() {
		defer close(chunks)
		defer span.End()

		for stream.Next() {
			event := stream.Current()
			deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			textDelta, ok := deltaEvent.Delta.AsAny().(anthropic.TextDelta)
			if !ok || textDelta.Text == "" {
				continue
			}

			select {
			case chunks <- Chunk{Text: textDelta.Text}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			select {
			case chunks <- Chunk{Err: fmt.Errorf("anthropic stream failed: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return chunks, nil
}

// buildUserMessage creates a user message param.
func buildUserMessage(content string) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role: anthropic.MessageParamRoleUser,
		Content: []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(content),
		},
	}
}

// buildAssistantMessage creates an assistant message param.
func buildAssistantMessage(content string) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role: anthropic.MessageParamRoleAssistant,
		Content: []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(content),
		},
	}
}

// extractText extracts the text content from a message.
func extractText(msg *anthropic.Message) string {
	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		}
	}
	return strings.TrimSpace(text.String())
}

func recordAnthropicDuration(ctx context.Context, logger *slog.Logger, d time.Duration) {
	histogram, err := meter.Float64Histogram(
		"llm.request.duration",
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", "error", err)
		return
	}
	histogram.Record(ctx, float64(d.Milliseconds()))
}
