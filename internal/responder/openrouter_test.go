package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/castillo-ev/talk2jesus/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestOpenRouter(url string) *OpenRouter {
	o := NewOpenRouter("test-key", "gpt-4.1", "You are the persona.", testLogger())
	o.baseURL = url
	return o
}

func TestOpenRouter_BuildMessages(t *testing.T) {
	o := newTestOpenRouter("")
	history := []session.Message{
		{Role: session.RoleUser, Text: "first question"},
		{Role: session.RolePersona, Text: "first answer"},
		{Role: "narrator", Text: "anything unknown acts as the assistant"},
	}

	messages := o.buildMessages(history, "second question")

	want := []chatMessage{
		{Role: "system", Content: "You are the persona."},
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "assistant", Content: "anything unknown acts as the assistant"},
		{Role: "user", Content: "second question"},
	}
	if len(messages) != len(want) {
		t.Fatalf("buildMessages() returned %d messages, want %d", len(messages), len(want))
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Errorf("messages[%d] = %+v, want %+v", i, messages[i], want[i])
		}
	}
}

func TestOpenRouter_Complete(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer credential", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"  Peace be with you.  "}}]}`)
	}))
	defer server.Close()

	o := newTestOpenRouter(server.URL)
	reply, err := o.Complete(context.Background(), nil, "hello")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "Peace be with you." {
		t.Errorf("Complete() = %q, want trimmed reply", reply)
	}
	if gotReq.Stream {
		t.Error("Complete() set stream=true")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("request messages = %+v, want system entry then user turn", gotReq.Messages)
	}
}

func TestOpenRouter_CompleteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"out of credits"}`, http.StatusPaymentRequired)
	}))
	defer server.Close()

	o := newTestOpenRouter(server.URL)
	if _, err := o.Complete(context.Background(), nil, "hello"); err == nil {
		t.Fatal("Complete() error = nil, want API error")
	}
}

func TestOpenRouter_CompleteStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if !req.Stream {
			t.Error("streaming request did not set stream=true")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Peace \"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"be with \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"you.\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"after done, never seen\"}}]}\n\n")
	}))
	defer server.Close()

	o := newTestOpenRouter(server.URL)
	chunks, err := o.CompleteStream(context.Background(), nil, "hello")
	if err != nil {
		t.Fatalf("CompleteStream() error = %v", err)
	}

	var got string
	for chunk := range chunks {
		if chunk.Err != nil {
			t.Fatalf("stream chunk error = %v", chunk.Err)
		}
		got += chunk.Text
	}
	if got != "Peace be with you." {
		t.Errorf("streamed text = %q, want %q", got, "Peace be with you.")
	}
}

func TestOpenRouter_CompleteStreamCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		flusher.Flush()
		// Keep the stream open; the client is expected to walk away.
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	o := newTestOpenRouter(server.URL)
	chunks, err := o.CompleteStream(ctx, nil, "hello")
	if err != nil {
		t.Fatalf("CompleteStream() error = %v", err)
	}

	first, ok := <-chunks
	if !ok || first.Text != "first" {
		t.Fatalf("first chunk = %+v, ok = %v", first, ok)
	}
	cancel()

	// The channel must close without delivering a stream error caused by
	// our own cancellation.
	for chunk := range chunks {
		if chunk.Err != nil {
			t.Errorf("chunk after cancel carried error: %v", chunk.Err)
		}
	}
}
