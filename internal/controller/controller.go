// Package controller sequences the conversation: it persists every visible
// line, drives the response generator, consults the lead-capture gate and
// emits outward signals to the host UI.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/qmuntal/stateless"

	"github.com/qubitlabs/concierge/internal/auth"
	"github.com/qubitlabs/concierge/internal/gate"
	"github.com/qubitlabs/concierge/internal/logger"
)

var log = logger.Component("controller")

// Widget states.
var (
	StateClosed           = stateless.State("Closed")
	StateGreeting         = stateless.State("Greeting")
	StateChatting         = stateless.State("Chatting")
	StateCollectingEmail  = stateless.State("CollectingEmail")
	StateLoginPromptShown = stateless.State("LoginPromptShown")
)

var (
	triggerOpen          stateless.Trigger = "Open"
	triggerGreeted       stateless.Trigger = "Greeted"
	triggerPromptLead    stateless.Trigger = "PromptLead"
	triggerChooseLogin   stateless.Trigger = "ChooseLogin"
	triggerChooseEmail   stateless.Trigger = "ChooseEmail"
	triggerDismiss       stateless.Trigger = "DismissPrompt"
	triggerResume        stateless.Trigger = "Resume"
	triggerEmailAccepted stateless.Trigger = "EmailAccepted"
	triggerClose         stateless.Trigger = "Close"
)

// PromptChoice is the visitor's answer to the lead-capture prompt.
type PromptChoice string

const (
	ChoiceLogin   PromptChoice = "login"
	ChoiceEmail   PromptChoice = "email"
	ChoiceDismiss PromptChoice = "dismiss"
)

var (
	// ErrTurnInFlight rejects a send while a previous turn is still running.
	ErrTurnInFlight = errors.New("a turn is already in progress")
	// ErrClosed rejects interaction with a closed widget.
	ErrClosed = errors.New("widget is closed")
	// ErrEmptyMessage rejects blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNoPrompt rejects a prompt choice when no prompt is visible.
	ErrNoPrompt = errors.New("no capture prompt is visible")
)

const (
	greetingText = "Hello! Welcome to Qubit Quantum AI! 👋 How can I help you today?"

	emailPromptText = "I'd love to provide you with personalized assistance! Could you please share your email address? This will help me follow up with relevant information and updates. 📧"

	emailInvalidText = "Please enter a valid email address so I can provide you with personalized assistance! 📧"

	emailConfirmFormat = "Thank you! I've saved your email (%s). Now I can provide you with personalized follow-up and assistance. How can I help you with your automation needs? 🚀"
)

// Log is the slice of the conversation store the controller writes through.
type Log interface {
	StartConversation() string
	Append(text string, isUser bool, userID string) error
}

// Responder produces the assistant reply (or fallback) for one utterance.
type Responder interface {
	Reply(ctx context.Context, utterance string) string
}

// Events receives the outward signals a host UI must handle.
type Events interface {
	// RequestAuthentication asks the host to present its login surface.
	RequestAuthentication()
}

// NopEvents discards all signals.
type NopEvents struct{}

func (NopEvents) RequestAuthentication() {}

// Line is one visible transcript entry, in display order.
type Line struct {
	Text   string `json:"text"`
	IsUser bool   `json:"is_user"`
}

// Controller is the per-widget-instance state machine. All methods are safe
// for concurrent use; turns are strictly serialized.
type Controller struct {
	log       Log
	responder Responder
	identity  auth.Identity
	events    Events

	fsm *stateless.StateMachine

	mu           sync.Mutex
	inFlight     bool
	epoch        int
	visibleCount int
	promptShown  bool
	transcript   []Line
}

// New wires a controller over its collaborators. A nil events sink is valid.
func New(log Log, responder Responder, identity auth.Identity, events Events) *Controller {
	if events == nil {
		events = NopEvents{}
	}
	c := &Controller{
		log:       log,
		responder: responder,
		identity:  identity,
		events:    events,
	}

	fsm := stateless.NewStateMachine(StateClosed)
	fsm.Configure(StateClosed).
		Permit(triggerOpen, StateGreeting)
	fsm.Configure(StateGreeting).
		OnEntry(func(ctx context.Context, _ ...any) error {
			c.log.StartConversation()
			c.visibleCount = 0
			c.transcript = nil
			c.show(greetingText, false)
			return c.fsm.FireCtx(ctx, triggerGreeted)
		}).
		Permit(triggerGreeted, StateChatting)
	fsm.Configure(StateChatting).
		Permit(triggerPromptLead, StateLoginPromptShown).
		Permit(triggerClose, StateClosed)
	fsm.Configure(StateLoginPromptShown).
		Permit(triggerChooseLogin, StateChatting).
		Permit(triggerChooseEmail, StateCollectingEmail).
		Permit(triggerDismiss, StateChatting).
		Permit(triggerResume, StateChatting).
		Permit(triggerClose, StateClosed)
	fsm.Configure(StateCollectingEmail).
		Permit(triggerEmailAccepted, StateChatting).
		Permit(triggerClose, StateClosed)
	c.fsm = fsm

	return c
}

// Open starts a fresh conversation: new conversation id, canned greeting
// persisted as a bot message. Opening an already-open widget is a no-op.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fsm.MustState() != StateClosed {
		return nil
	}
	return c.fsm.FireCtx(ctx, triggerOpen)
}

// Close stops further transitions. An in-flight turn may still complete; its
// result is discarded. The capture-prompt "already shown" flag survives until
// the whole widget session ends.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fsm.MustState() == StateClosed {
		return
	}
	if err := c.fsm.FireCtx(ctx, triggerClose); err != nil {
		log.Error("close transition failed", "error", err)
		return
	}
	// Outstanding turns belong to the closed conversation; bumping the epoch
	// invalidates their results even if the widget reopens meanwhile.
	c.epoch++
}

// Send runs one turn for a user utterance and returns the visible reply.
// The sequence is strict: persist user message, await the responder, persist
// the reply. A send while a turn is outstanding returns ErrTurnInFlight.
func (c *Controller) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	c.mu.Lock()
	switch c.fsm.MustState() {
	case StateClosed:
		c.mu.Unlock()
		return "", ErrClosed
	case StateCollectingEmail:
		defer c.mu.Unlock()
		return c.collectEmail(ctx, text), nil
	}
	if c.inFlight {
		c.mu.Unlock()
		return "", ErrTurnInFlight
	}
	c.inFlight = true
	if c.fsm.MustState() == StateLoginPromptShown {
		// Typing past the prompt dismisses it.
		if err := c.fsm.FireCtx(ctx, triggerResume); err != nil {
			log.Error("prompt dismissal failed", "error", err)
		}
	}
	c.show(text, true)
	epoch := c.epoch
	c.mu.Unlock()

	reply := c.responder.Reply(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if c.fsm.MustState() == StateClosed || c.epoch != epoch {
		// Widget closed (and possibly reopened) while the call was
		// outstanding: the result belongs to the old conversation, discard it.
		return "", ErrClosed
	}
	c.show(reply, false)
	c.maybePromptLead(ctx)
	return reply, nil
}

// ResolvePrompt applies the visitor's answer to the lead-capture prompt.
func (c *Controller) ResolvePrompt(ctx context.Context, choice PromptChoice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fsm.MustState() != StateLoginPromptShown {
		return ErrNoPrompt
	}
	switch choice {
	case ChoiceLogin:
		if err := c.fsm.FireCtx(ctx, triggerChooseLogin); err != nil {
			return err
		}
		c.events.RequestAuthentication()
	case ChoiceEmail:
		if err := c.fsm.FireCtx(ctx, triggerChooseEmail); err != nil {
			return err
		}
		c.show(emailPromptText, false)
	default:
		// Dismissal, including "I'll use another channel".
		if err := c.fsm.FireCtx(ctx, triggerDismiss); err != nil {
			return err
		}
	}
	return nil
}

// RecordQuickAction persists the audit trail for a shortcut click such as the
// booking redirect. The pair is log-only and never rendered.
func (c *Controller) RecordQuickAction(action string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fsm.MustState() == StateClosed {
		return
	}
	c.append("User clicked: "+action, true)
	c.append("User was redirected to booking page", false)
}

// State returns the current widget state.
func (c *Controller) State() stateless.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fsm.MustState()
}

// PromptVisible reports whether the capture prompt is on screen.
func (c *Controller) PromptVisible() bool {
	return c.State() == StateLoginPromptShown
}

// Transcript returns a copy of the visible lines of the active conversation,
// in display order. Display order always equals storage order.
func (c *Controller) Transcript() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]Line, len(c.transcript))
	copy(lines, c.transcript)
	return lines
}

// collectEmail handles one input while the widget is gathering an email
// address. Called with c.mu held.
func (c *Controller) collectEmail(ctx context.Context, input string) string {
	if !strings.Contains(input, "@") {
		c.show(input, true)
		c.show(emailInvalidText, false)
		return emailInvalidText
	}
	c.show("User provided email: "+input, true)
	reply := fmt.Sprintf(emailConfirmFormat, input)
	c.show(reply, false)
	if err := c.fsm.FireCtx(ctx, triggerEmailAccepted); err != nil {
		log.Error("email accepted transition failed", "error", err)
	}
	return reply
}

// maybePromptLead surfaces the capture prompt at most once per widget
// session. Called with c.mu held, after a completed turn.
func (c *Controller) maybePromptLead(ctx context.Context) {
	_, authenticated := c.identity.CurrentUser()
	collecting := c.fsm.MustState() == StateCollectingEmail
	if !gate.ShouldPrompt(c.visibleCount, authenticated, c.promptShown, collecting) {
		return
	}
	if err := c.fsm.FireCtx(ctx, triggerPromptLead); err != nil {
		log.Error("lead prompt transition failed", "error", err)
		return
	}
	c.promptShown = true
}

// show persists a visible line and adds it to the transcript. Called with
// c.mu held. Append failures are logged and swallowed: the dialogue keeps
// flowing even if every write fails.
func (c *Controller) show(text string, isUser bool) {
	c.append(text, isUser)
	c.visibleCount++
	c.transcript = append(c.transcript, Line{Text: text, IsUser: isUser})
}

// append writes through to the store without affecting the visible count.
func (c *Controller) append(text string, isUser bool) {
	if err := c.log.Append(text, isUser, c.userID()); err != nil {
		log.Error("failed to persist message", "is_user", isUser, "error", err)
	}
}

func (c *Controller) userID() string {
	user, ok := c.identity.CurrentUser()
	if !ok {
		return ""
	}
	return user.ID
}
