// Package controller drives conversation turns: it appends user input to
// the active session, obtains the persona's reply, persists every
// mutation, and hands finished text to speech output.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/castillo-ev/talk2jesus/internal/responder"
	"github.com/castillo-ev/talk2jesus/internal/session"
)

// Persona lines used outside the language model.
const (
	// TextGreeting seeds the transcript of a fresh text conversation.
	TextGreeting = "Peace be with you, my child. How may I guide you today?"
	// CallGreeting is spoken when a voice or video call connects, before
	// listening starts.
	CallGreeting = "Hello, my child. I am here with you. What is on your heart?"
	// ApologyReply replaces the persona's answer when the language model
	// call fails. The failure itself is only logged.
	ApologyReply = "Peace, my child. I could not find the words just now. Please ask me again."
)

// streamPlaceholder is shown in the transcript while a streamed reply is
// still arriving.
const streamPlaceholder = "..."

// ErrBusy is returned when a turn is submitted while a previous reply is
// still outstanding.
var ErrBusy = errors.New("a reply is already in progress")

// sentenceEnd matches text that ends a spoken sentence, with optional
// trailing whitespace.
var sentenceEnd = regexp.MustCompile(`[.!?]\s*$`)

// Status is the controller's turn state. Interrupted is transient: it only
// exists between an interrupt and the abandoned turn noticing it.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusAwaitingReply Status = "awaiting-reply"
	StatusInterrupted   Status = "interrupted"
)

// Speaker voices persona text. The returned channel closes when playback
// ends or is stopped.
type Speaker interface {
	Speak(ctx context.Context, text string) (<-chan struct{}, error)
	Stop()
}

// InputListener is the single-shot speech capture the controller re-arms
// between turns in call modes.
type InputListener interface {
	Supported() bool
	Start(ctx context.Context) error
	Stop()
}

// Controller owns one active session and its turn state machine.
type Controller struct {
	store     session.Store
	responder responder.Responder
	speaker   Speaker
	listener  InputListener
	mode      session.Type
	logger    *slog.Logger

	mu          sync.Mutex
	sess        *session.ChatSession
	status      Status
	prefillUsed bool
	cancelTurn  context.CancelFunc
}

// New creates a controller for the given conversation mode. listener may
// be nil for text mode.
func New(
	store session.Store,
	resp responder.Responder,
	speaker Speaker,
	listener InputListener,
	mode session.Type,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		store:     store,
		responder: resp,
		speaker:   speaker,
		listener:  listener,
		mode:      mode,
		logger:    logger,
		status:    StatusIdle,
	}
}

// StartSession attaches the controller to a session: the one named by id
// when it exists, otherwise a fresh one seeded from prefill. New text
// sessions open with the persona greeting in the transcript; new calls
// speak the greeting instead.
func (c *Controller) StartSession(ctx context.Context, id, prefill string) error {
	if id != "" {
		sess, err := c.store.Get(ctx, id)
		if err == nil {
			c.mu.Lock()
			c.sess = sess
			c.mu.Unlock()
			return nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return err
		}
		c.logger.Warn("session not found, starting a new one", "session_id", id)
	}

	sess, err := c.store.Create(ctx, c.mode, prefill)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	if c.mode == session.TypeText {
		c.appendMessage(ctx, session.RolePersona, TextGreeting)
		return nil
	}
	if _, err := c.speaker.Speak(ctx, CallGreeting); err != nil {
		c.logger.Warn("greeting speech failed", "error", err)
	}
	return nil
}

// Session returns a copy of the active session's current state.
func (c *Controller) Session() *session.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil
	}
	return c.sess.Clone()
}

// Status returns the current turn state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SubmitPrefill runs deep-link prefill text as a user turn, at most once
// per controller.
func (c *Controller) SubmitPrefill(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.prefillUsed {
		c.mu.Unlock()
		return nil
	}
	c.prefillUsed = true
	c.mu.Unlock()
	return c.SubmitUserText(ctx, text)
}

// SubmitUserText runs one full conversation turn: append the user message,
// ask the responder, append the reply (or the apology when the responder
// fails), and voice it. Empty input is a no-op; a turn already in flight
// returns ErrBusy.
func (c *Controller) SubmitUserText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := c.beginTurn(); err != nil {
		return err
	}

	history := c.historySnapshot()
	c.appendMessage(ctx, session.RoleUser, text)

	reply, err := c.responder.Complete(ctx, history, text)
	if err != nil {
		c.logger.Error("responder failed", "error", err)
		reply = ApologyReply
	}
	c.appendMessage(ctx, session.RolePersona, reply)
	c.endTurn()

	done := c.speak(ctx, reply)
	c.listenAfter(ctx, done)
	return nil
}

// SubmitStreamingUserText runs a turn against the responder's streamed
// output. Fragments accumulate in a transcript placeholder as they arrive,
// and speech starts at each sentence boundary instead of waiting for the
// full reply. An interrupt mid-stream stops both consumption and any
// further speech for the turn.
func (c *Controller) SubmitStreamingUserText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := c.beginTurn(); err != nil {
		return err
	}

	// The stream gets its own context so an interrupt, or the turn ending,
	// releases the responder's producer and its open connection.
	streamCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelTurn = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		c.mu.Lock()
		c.cancelTurn = nil
		c.mu.Unlock()
	}()

	history := c.historySnapshot()
	c.appendMessage(ctx, session.RoleUser, text)
	replyIdx := c.appendMessage(ctx, session.RolePersona, streamPlaceholder)

	stream, err := c.responder.CompleteStream(streamCtx, history, text)
	if err != nil {
		c.logger.Error("responder failed", "error", err)
		c.patchMessage(ctx, replyIdx, ApologyReply)
		c.endTurn()
		done := c.speak(ctx, ApologyReply)
		c.listenAfter(ctx, done)
		return nil
	}

	var full, buffer string
	var lastDone <-chan struct{}
	for chunk := range stream {
		if c.interrupted() {
			break
		}
		if chunk.Err != nil {
			c.logger.Error("streamed reply failed", "error", chunk.Err)
			if full == "" {
				full = ApologyReply
				c.patchMessage(ctx, replyIdx, full)
				lastDone = c.flush(ctx, full, lastDone)
			}
			break
		}

		full += chunk.Text
		buffer += chunk.Text
		c.patchMessage(ctx, replyIdx, full)

		if sentenceEnd.MatchString(buffer) {
			lastDone = c.flush(ctx, buffer, lastDone)
			buffer = ""
		}
	}

	if !c.interrupted() && strings.TrimSpace(buffer) != "" {
		lastDone = c.flush(ctx, buffer, lastDone)
	}
	c.persist(ctx)
	c.endTurn()
	c.listenAfter(ctx, lastDone)
	return nil
}

// Interrupt stops speech immediately and abandons any in-flight streamed
// reply. In call modes the microphone is re-armed right away so the user
// can speak over the persona.
func (c *Controller) Interrupt(ctx context.Context) {
	c.mu.Lock()
	if c.status == StatusAwaitingReply {
		c.status = StatusInterrupted
	}
	cancel := c.cancelTurn
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.speaker.Stop()

	if c.mode != session.TypeText && c.listener != nil && c.listener.Supported() {
		if err := c.listener.Start(ctx); err != nil {
			c.logger.Warn("failed to resume listening", "error", err)
		}
	}
}

func (c *Controller) beginTurn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return errors.New("no active session")
	}
	if c.status != StatusIdle {
		return ErrBusy
	}
	c.status = StatusAwaitingReply
	return nil
}

func (c *Controller) endTurn() {
	c.mu.Lock()
	c.status = StatusIdle
	c.mu.Unlock()
}

func (c *Controller) interrupted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusInterrupted
}

// historySnapshot copies the messages that precede the turn being
// submitted.
func (c *Controller) historySnapshot() []session.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := make([]session.Message, len(c.sess.Messages))
	copy(history, c.sess.Messages)
	return history
}

// appendMessage adds a message to the session and persists it, returning
// the message's index for later patching.
func (c *Controller) appendMessage(ctx context.Context, role session.Role, text string) int {
	c.mu.Lock()
	c.sess.Messages = append(c.sess.Messages, session.Message{
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	})
	idx := len(c.sess.Messages) - 1
	c.mu.Unlock()

	c.persist(ctx)
	return idx
}

// patchMessage rewrites the text of an existing message and persists the
// session.
func (c *Controller) patchMessage(ctx context.Context, idx int, text string) {
	c.mu.Lock()
	if idx >= 0 && idx < len(c.sess.Messages) {
		c.sess.Messages[idx].Text = text
	}
	c.mu.Unlock()

	c.persist(ctx)
}

func (c *Controller) persist(ctx context.Context) {
	c.mu.Lock()
	snapshot := c.sess.Clone()
	c.mu.Unlock()

	if err := c.store.Save(ctx, snapshot); err != nil {
		c.logger.Warn("failed to persist session", "session_id", snapshot.ID, "error", err)
	}

	c.mu.Lock()
	c.sess.UpdatedAt = snapshot.UpdatedAt
	c.mu.Unlock()
}

// speak voices text and returns the playback-done channel, or nil when
// speech could not start.
func (c *Controller) speak(ctx context.Context, text string) <-chan struct{} {
	done, err := c.speaker.Speak(ctx, text)
	if err != nil {
		c.logger.Warn("speech output failed", "error", err)
		return nil
	}
	return done
}

// flush speaks one buffered sentence, waiting out the previous one first
// so consecutive sentences do not cut each other off.
func (c *Controller) flush(ctx context.Context, text string, prev <-chan struct{}) <-chan struct{} {
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return prev
		}
	}
	if c.interrupted() {
		return prev
	}
	done := c.speak(ctx, text)
	if done == nil {
		return prev
	}
	// An interrupt can land between the check above and the speaker
	// starting; the sentence must not play through it.
	if c.interrupted() {
		c.speaker.Stop()
	}
	return done
}

// listenAfter re-arms the microphone once playback finishes, in call modes
// only.
func (c *Controller) listenAfter(ctx context.Context, done <-chan struct{}) {
	if c.mode == session.TypeText || c.listener == nil || !c.listener.Supported() {
		return
	}
	if done == nil {
		return
	}
	go func() {
		select {
		case <-done:
			if err := c.listener.Start(ctx); err != nil {
				c.logger.Warn("failed to resume listening", "error", err)
			}
		case <-ctx.Done():
		}
	}()
}
