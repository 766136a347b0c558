// Package chat drives a tutoring session: it owns the turn lifecycle from
// the student's submission through evaluation, progress accounting, and the
// streamed coaching or recap response.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/abhisek/stepwise/internal/backend"
	"github.com/abhisek/stepwise/internal/evaluate"
	"github.com/abhisek/stepwise/internal/stream"
	"github.com/abhisek/stepwise/internal/transcript"
)

// State is the controller's turn-lifecycle state. Only one turn is in
// flight at a time; starting a new one supersedes the old.
type State int

const (
	// StateIdle means no turn is in flight.
	StateIdle State = iota
	// StateCreating means a model solution is being generated for a new
	// problem.
	StateCreating
	// StateAwaitingEvaluation means the student's answer has been
	// submitted and the verdict is pending.
	StateAwaitingEvaluation
	// StateStreaming means a coaching response is streaming in.
	StateStreaming
	// StateCompleting means the final step was answered and the recap is
	// streaming in.
	StateCompleting
)

// String returns a short human label for display in the UI.
func (s State) String() string {
	switch s {
	case StateCreating:
		return "creating solution…"
	case StateAwaitingEvaluation:
		return "evaluating…"
	case StateStreaming:
		return "streaming…"
	case StateCompleting:
		return "wrapping up…"
	default:
		return "idle"
	}
}

// PlaceholderContent is the assistant turn shown while a response is
// pending. The first streamed delta overwrites it.
const PlaceholderContent = "Please wait…"

const congratsContent = "Congratulations, you worked through every step of this problem. Start a new chat whenever you want more practice."

// Backend is the slice of the tutoring backend the controller needs.
// *backend.Client and *backend.Mock both satisfy it.
type Backend interface {
	evaluate.Checker
	CreateSolution(ctx context.Context, concept, problemDescription string) (*backend.Solution, error)
	StreamTurn(ctx context.Context, conv *transcript.Conversation, expectedAnswer string, verdict evaluate.Verdict) (io.ReadCloser, error)
	StreamRecap(ctx context.Context, conv *transcript.Conversation, expectedAnswer string, verdict evaluate.Verdict) (io.ReadCloser, error)
}

// Drafts is the per-conversation draft cache the controller clears when a
// conversation is deleted.
type Drafts interface {
	Clear(conversationID string)
}

// invocation is the cancellation handle for one in-flight turn. Deltas are
// applied only while the invocation is still the controller's current one,
// so output from a superseded or stopped turn can never land in the
// transcript regardless of goroutine timing.
type invocation struct {
	conversationID string
	ctx            context.Context
	cancel         context.CancelFunc
	buf            strings.Builder
}

// Controller owns the session state machine. All methods are safe for
// concurrent use; the blocking ones (SendTurn, StartProblem) are intended
// to run on their own goroutine.
type Controller struct {
	store    *transcript.Store
	backend  Backend
	eval     *evaluate.Evaluator
	notifier Notifier
	drafts   Drafts
	onUpdate func()

	mu      sync.Mutex
	state   State
	current *invocation
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier installs the notice sink. Without one, notices are dropped.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithDrafts installs the draft cache cleared on conversation deletion.
func WithDrafts(d Drafts) Option {
	return func(c *Controller) { c.drafts = d }
}

// WithOnUpdate installs a callback fired after every transcript mutation
// and state change. The TUI uses it to schedule a redraw. The callback
// runs with the controller lock held and must not call back into it.
func WithOnUpdate(fn func()) Option {
	return func(c *Controller) { c.onUpdate = fn }
}

// NewController creates a controller over the given store and backend.
func NewController(store *transcript.Store, b Backend, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		backend: b,
		eval:    evaluate.New(b),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a turn or session creation is in flight.
func (c *Controller) Busy() bool {
	return c.State() != StateIdle
}

// Stop cancels the in-flight turn, if any. Partial assistant content
// already committed to the transcript is kept.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}
	c.current.cancel()
	c.current = nil
	c.state = StateIdle
	c.notifyUpdate()
}

// StartProblem generates a model solution for a new problem in the active
// conversation, installs it, and opens the session with an introductory
// assistant turn. Blocks until creation finishes or fails.
func (c *Controller) StartProblem(ctx context.Context, concept, problemDescription string) {
	concept = strings.TrimSpace(concept)
	problemDescription = strings.TrimSpace(problemDescription)
	if concept == "" || problemDescription == "" {
		c.notify(Notice{Title: "Missing Fields", Description: "Both a concept and a problem description are required.", Level: NoticeError})
		return
	}

	conv := c.store.Active()
	if conv.Started() {
		c.notify(Notice{Title: "Session In Progress", Description: "This chat already has a problem. Start a new chat first.", Level: NoticeError})
		return
	}

	inv := c.begin(ctx, conv.ID, StateCreating)
	defer c.finish(inv)

	sol, err := c.backend.CreateSolution(inv.ctx, concept, problemDescription)
	if err != nil {
		if !canceled(err) {
			c.notify(Notice{Title: "Create Failed", Description: err.Error(), Level: NoticeError})
		}
		return
	}
	if sol == nil || len(sol.Steps) == 0 {
		c.notify(Notice{Title: "Create Failed", Description: "The backend returned an empty solution.", Level: NoticeError})
		return
	}

	c.mu.Lock()
	if c.current != inv {
		c.mu.Unlock()
		return
	}
	c.store.Append(inv.conversationID, transcript.Turn{
		Role:    transcript.RoleUser,
		Content: fmt.Sprintf("Concept: %s\n\n%s", concept, problemDescription),
	})
	c.store.SetSolution(inv.conversationID, sol.Steps, sol.Reasoning)
	c.store.Append(inv.conversationID, transcript.Turn{
		Role:    transcript.RoleAssistant,
		Content: openingContent(len(sol.Steps)),
	})
	c.notifyUpdate()
	c.mu.Unlock()
}

// SendTurn submits the student's answer for the active conversation and
// drives the full turn: evaluation, progress accounting, and the streamed
// coaching or recap response. Blocks until the turn finishes, fails, or is
// superseded; run it on its own goroutine.
func (c *Controller) SendTurn(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	conv := c.store.Active()
	switch {
	case !conv.Started():
		c.notify(Notice{Title: "No Problem Yet", Description: "Start a problem before answering.", Level: NoticeError})
		return
	case conv.Completed:
		c.notify(Notice{Title: "Chat Completed", Description: "This problem is finished. Start a new chat to keep practicing.", Level: NoticeInfo})
		return
	}

	inv := c.begin(ctx, conv.ID, StateAwaitingEvaluation)
	defer c.finish(inv)

	c.store.Append(inv.conversationID,
		transcript.Turn{Role: transcript.RoleUser, Content: text},
		transcript.Turn{Role: transcript.RoleAssistant, Content: PlaceholderContent},
	)
	c.notifyUpdate()

	// Evaluate against the transcript as submitted. The expected answer is
	// fixed by the pre-verdict progress and reused for the follow-up stream.
	snapshot, ok2 := c.store.Get(inv.conversationID)
	if !ok2 {
		return
	}
	expected, ok2 := evaluate.ExpectedStep(snapshot.ModelSolution, snapshot.Progress)
	if !ok2 {
		c.notify(Notice{Title: "Evaluation Failed", Description: "No remaining step to evaluate against.", Level: NoticeError})
		return
	}
	verdict, err := c.eval.Check(inv.ctx, snapshot)
	if err != nil {
		if !canceled(err) {
			c.notify(Notice{Title: "Evaluation Failed", Description: err.Error(), Level: NoticeError})
		}
		return
	}

	remaining := snapshot.Progress
	if verdict.Correct() {
		remaining--
		if !c.setProgress(inv, remaining) {
			return
		}
	}

	if remaining == 0 {
		c.runRecap(inv, expected, verdict)
		return
	}
	c.runCoaching(inv, expected, verdict)
}

// runCoaching streams the next coaching turn into the placeholder.
func (c *Controller) runCoaching(inv *invocation, expected string, verdict evaluate.Verdict) {
	c.setState(inv, StateStreaming)

	snapshot, ok := c.store.Get(inv.conversationID)
	if !ok {
		return
	}
	body, err := c.backend.StreamTurn(inv.ctx, snapshot, expected, verdict)
	if err != nil {
		if !canceled(err) {
			c.notify(Notice{Title: "Stream Failed", Description: err.Error(), Level: NoticeError})
		}
		return
	}
	if err := c.consume(inv, body); err != nil && !canceled(err) {
		c.notify(Notice{Title: "Stream Interrupted", Description: err.Error(), Level: NoticeError})
	}
}

// runRecap streams the end-of-session recap, then appends the closing
// congratulations turn and marks the conversation completed.
func (c *Controller) runRecap(inv *invocation, expected string, verdict evaluate.Verdict) {
	c.setState(inv, StateCompleting)

	snapshot, ok := c.store.Get(inv.conversationID)
	if !ok {
		return
	}
	body, err := c.backend.StreamRecap(inv.ctx, snapshot, expected, verdict)
	if err != nil {
		if !canceled(err) {
			c.notify(Notice{Title: "Recap Failed", Description: err.Error(), Level: NoticeError})
		}
		return
	}
	if err := c.consume(inv, body); err != nil {
		if !canceled(err) {
			c.notify(Notice{Title: "Recap Interrupted", Description: err.Error(), Level: NoticeError})
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != inv {
		return
	}
	c.store.Append(inv.conversationID, transcript.Turn{
		Role:    transcript.RoleAssistant,
		Content: congratsContent,
	})
	c.store.SetCompleted(inv.conversationID, true)
	c.notifyUpdate()
	c.notify(Notice{Title: "Chat Completed", Description: "You finished every step. Nicely done.", Level: NoticeInfo})
}

// consume drains a "data: " framed stream body, applying each delta to the
// invocation's accumulated text. Returns nil on clean end of stream.
func (c *Controller) consume(inv *invocation, body io.ReadCloser) error {
	defer body.Close()

	dec := stream.NewDecoder(body)
	for {
		delta, err := dec.Next(inv.ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			// A transport error after cancellation is just the stream
			// being torn down; report the cancellation instead.
			if ctxErr := inv.ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		inv.buf.WriteString(delta)
		if !c.applyDelta(inv) {
			return nil
		}
	}
}

// applyDelta commits the invocation's accumulated text to the transcript.
// The identity check happens here, at application time, so a delta that
// raced a Stop or a newer turn is discarded instead of applied.
func (c *Controller) applyDelta(inv *invocation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != inv {
		return false
	}
	c.store.ReplaceLastTurnContent(inv.conversationID, inv.buf.String())
	c.notifyUpdate()
	return true
}

// NewChat activates an empty conversation and cancels any in-flight turn.
func (c *Controller) NewChat() string {
	c.Stop()
	id := c.store.Create()
	c.notifyUpdateLocked()
	return id
}

// SelectConversation switches the active conversation. The in-flight turn,
// if any, keeps streaming into its own conversation.
func (c *Controller) SelectConversation(id string) {
	c.store.SetActive(id)
	c.notifyUpdateLocked()
}

// DeleteConversation removes a conversation along with its draft and any
// turn streaming into it.
func (c *Controller) DeleteConversation(id string) {
	c.mu.Lock()
	if c.current != nil && c.current.conversationID == id {
		c.current.cancel()
		c.current = nil
		c.state = StateIdle
	}
	c.mu.Unlock()

	c.store.Remove(id)
	if c.drafts != nil {
		c.drafts.Clear(id)
	}
	c.notifyUpdateLocked()
}

// begin installs a fresh invocation as current, superseding any prior one.
func (c *Controller) begin(ctx context.Context, conversationID string, st State) *invocation {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.cancel()
	}
	invCtx, cancel := context.WithCancel(ctx)
	inv := &invocation{conversationID: conversationID, ctx: invCtx, cancel: cancel}
	c.current = inv
	c.state = st
	c.notifyUpdate()
	return inv
}

// finish clears the invocation if it is still current.
func (c *Controller) finish(inv *invocation) {
	inv.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != inv {
		return
	}
	c.current = nil
	c.state = StateIdle
	c.notifyUpdate()
}

// setState transitions the lifecycle state if the invocation is still
// current.
func (c *Controller) setState(inv *invocation, st State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != inv {
		return
	}
	c.state = st
	c.notifyUpdate()
}

// setProgress commits the decremented counter if the invocation is still
// current.
func (c *Controller) setProgress(inv *invocation, progress int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != inv {
		return false
	}
	c.store.SetProgress(inv.conversationID, progress)
	c.notifyUpdate()
	return true
}

func (c *Controller) notify(n Notice) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

// notifyUpdate fires the redraw callback. Callers hold the lock.
func (c *Controller) notifyUpdate() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}

// notifyUpdateLocked is notifyUpdate for callers not holding the lock.
func (c *Controller) notifyUpdateLocked() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyUpdate()
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func openingContent(steps int) string {
	noun := "steps"
	if steps == 1 {
		noun = "step"
	}
	return fmt.Sprintf("I've broken this problem into %d %s. Let's take it one step at a time. What would you do first?", steps, noun)
}
