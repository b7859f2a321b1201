package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/castillo-ev/talk2jesus/internal/session"
)

func sampleSession() *session.ChatSession {
	created := time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
	return &session.ChatSession{
		ID:    "sess-42",
		Type:  session.TypeText,
		Title: "How do I forgive someone?",
		Messages: []session.Message{
			{Role: session.RolePersona, Text: "Peace be with you, my child. How may I guide you today?", Timestamp: created},
			{Role: session.RoleUser, Text: "How do I forgive someone?", Timestamp: created.Add(time.Minute)},
			{Role: session.RolePersona, Text: "Begin with honesty about the hurt.", Timestamp: created.Add(2 * time.Minute)},
		},
		CreatedAt: created,
		UpdatedAt: created.Add(2 * time.Minute),
	}
}

func TestNewExporter(t *testing.T) {
	for format, ext := range map[string]string{
		"json":     "json",
		"md":       "md",
		"markdown": "md",
		"yaml":     "yaml",
	} {
		e, err := NewExporter(format)
		if err != nil {
			t.Fatalf("NewExporter(%q) error = %v", format, err)
		}
		if e.Extension() != ext {
			t.Errorf("NewExporter(%q).Extension() = %q, want %q", format, e.Extension(), ext)
		}
	}

	if _, err := NewExporter("pdf"); err == nil {
		t.Error("NewExporter(pdf) error = nil, want unsupported format")
	}
}

func TestJSONExporter_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(sampleSession(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var got session.ChatSession
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got.ID != "sess-42" || len(got.Messages) != 3 {
		t.Errorf("decoded session = %+v", got)
	}
}

func TestMarkdownExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(sampleSession(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# How do I forgive someone?",
		"**Mode:** text",
		"**Jesus:**",
		"**You:**",
		"Begin with honesty about the hurt.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "jesus:") {
		t.Error("raw role leaked into the transcript labels")
	}
}

func TestYAMLExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(sampleSession(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "id: sess-42") {
		t.Errorf("yaml output missing session id:\n%s", out)
	}
	if !strings.Contains(out, "How do I forgive someone?") {
		t.Errorf("yaml output missing title:\n%s", out)
	}
}
