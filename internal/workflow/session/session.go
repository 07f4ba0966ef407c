// Package session runs the agent loop: it owns the conversation, calls the
// model, dispatches tool calls in order and handles interruption, retries
// and the iteration limit as an explicit state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Cyclone1070/mini/internal/provider"
	"github.com/Cyclone1070/mini/internal/workflow"
)

// DefaultMaxIterations bounds tool rounds per submitted message.
const DefaultMaxIterations = 25

// maxRetryWait caps how long a retry honours a provider's Retry-After hint.
const maxRetryWait = 30 * time.Second

// Notes appended to the conversation as system messages.
const (
	rejectedNote    = "[User rejected tool execution. Wait for further instructions.]"
	interruptedNote = "[Interrupted by user]"
	maxIterNote     = "[Stopped after reaching the iteration limit]"
)

// Params are the sampling settings sent with every request.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Options configures a Session.
type Options struct {
	Provider      provider.Provider
	Tools         toolManager
	SystemPrompt  string
	Params        Params
	MaxIterations int // DefaultMaxIterations when zero
	Logger        *slog.Logger
	Recorder      recorder // nil disables debug artifacts
}

// Stats summarizes session activity.
type Stats struct {
	SessionID  string
	Provider   string
	Model      string
	Requests   int
	Iterations int
	Messages   int
	Usage      provider.Usage
}

// Session is one conversation with the model. Submit runs a turn; the other
// methods may be called from any goroutine.
type Session struct {
	id            string
	tools         toolManager
	maxIterations int
	logger        *slog.Logger
	recorder      recorder

	mu       sync.Mutex
	provider provider.Provider
	params   Params
	state    State
	busy     bool
	cancel   context.CancelFunc
	stats    Stats

	interrupted atomic.Bool

	conv *provider.Conversation

	// Touched only by the goroutine running Submit, or under mu while idle.
	iteration int
}

func New(opts Options) *Session {
	if opts.Provider == nil {
		panic("provider is required")
	}
	if opts.Tools == nil {
		panic("tool manager is required")
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Session{
		id:            id,
		tools:         opts.Tools,
		maxIterations: maxIter,
		logger:        logger.With("session_id", id),
		recorder:      opts.Recorder,
		provider:      opts.Provider,
		params:        opts.Params,
		state:         StateIdle,
		conv:          provider.NewConversation(opts.SystemPrompt),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.SessionID = s.id
	st.Provider = s.provider.Name()
	st.Model = s.params.Model
	st.Messages = s.conv.Len()
	return st
}

func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.Model
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []provider.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Messages()
}

// SetProvider swaps the backend between turns. It also clears a fatal
// error, since the usual fix for one is new credentials.
func (s *Session) SetProvider(p provider.Provider, params Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.provider = p
	s.params = params
	if s.state == StateFatalError {
		s.state = StateIdle
	}
	s.logger.Info("provider changed", "provider", p.Name(), "model", params.Model)
	return nil
}

// SetModel changes the model name sent with subsequent requests.
func (s *Session) SetModel(model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.params.Model = model
	return nil
}

// Clear drops everything but the leading system prompt.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.conv.Clear()
	s.iteration = 0
	return nil
}

// Interrupt aborts the running turn: the in-flight request and any running
// tool are canceled and the loop stops at its next boundary. It reports
// whether a turn was running.
func (s *Session) Interrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy {
		return false
	}
	s.interrupted.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
	return true
}

// Submit appends input as a user message and runs the loop until the model
// replies without tool calls, the user rejects or interrupts, or an error
// ends the turn. Events are emitted on events, finishing with DoneEvent.
//
// Recoverable failures are reported as ErrorEvent and leave the session
// idle; Submit returns an error only for ErrBusy, ErrFatal or a broken
// state machine.
func (s *Session) Submit(ctx context.Context, input string, events chan<- workflow.Event) (err error) {
	ctx, err = s.begin(ctx)
	if err != nil {
		return err
	}

	out, flush := s.relay(events)
	defer func() {
		flush()
		s.end()
		workflow.Emit(events, workflow.DoneEvent{Err: err})
	}()

	s.iteration = 0
	if err := s.transition(StateAwaitingModel); err != nil {
		return err
	}
	s.append(provider.UserMessage(input))

	return s.run(ctx, out)
}

func (s *Session) begin(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFatalError {
		return nil, ErrFatal
	}
	if s.busy {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.cancel = cancel
	s.interrupted.Store(false)
	return ctx, nil
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.busy = false
	if s.state != StateIdle && s.state != StateFatalError {
		// A broken transition left the loop mid-turn.
		s.logger.Error("turn ended outside idle", "state", s.state)
		s.state = StateIdle
	}
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.state, to) {
		return &TransitionError{From: s.state, To: to}
	}
	s.logger.Debug("transition", "state", to, "from", s.state)
	s.state = to
	return nil
}

// relay forwards events to the caller and marks the session as awaiting
// approval while an approval request is outstanding.
func (s *Session) relay(events chan<- workflow.Event) (chan<- workflow.Event, func()) {
	if events == nil {
		return nil, func() {}
	}
	in := make(chan workflow.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range in {
			if _, ok := ev.(workflow.ApprovalRequestEvent); ok {
				s.markAwaitingApproval()
			}
			events <- ev
		}
	}()
	return in, func() {
		close(in)
		<-done
	}
}

// markAwaitingApproval moves ExecutingTools to AwaitingApproval. Any other
// state means the turn already moved on, e.g. after an interrupt.
func (s *Session) markAwaitingApproval() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateExecutingTools {
		s.logger.Debug("transition", "state", StateAwaitingApproval, "from", s.state)
		s.state = StateAwaitingApproval
	}
}

func (s *Session) append(msgs ...provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.Append(msgs...)
}

func (s *Session) run(ctx context.Context, events chan<- workflow.Event) error {
	for {
		if s.interrupted.Load() {
			return s.stopInterrupted(events)
		}

		workflow.Emit(events, workflow.ThinkingEvent{Iteration: s.iteration + 1})

		resp, err := s.complete(ctx)
		if err != nil {
			retry, err := s.handleError(ctx, events, err)
			if err != nil || !retry {
				return err
			}
			// A retry spends an iteration but adds nothing to the conversation.
			if cont, err := s.advance(ctx, events); err != nil || !cont {
				return err
			}
			continue
		}

		if resp.Usage != nil {
			s.mu.Lock()
			s.stats.Usage.Add(*resp.Usage)
			total := s.stats.Usage
			s.mu.Unlock()
			workflow.Emit(events, workflow.UsageEvent{Usage: *resp.Usage, Total: total})
		}

		msg := resp.Message
		msg.Role = provider.RoleAssistant
		s.append(msg)

		if len(msg.ToolCalls) == 0 {
			workflow.Emit(events, workflow.FinalMessageEvent{Text: msg.Content, Reasoning: msg.Reasoning})
			return s.transition(StateIdle)
		}

		if msg.Content != "" || msg.Reasoning != "" {
			workflow.Emit(events, workflow.ThinkingTextEvent{Text: msg.Content, Reasoning: msg.Reasoning})
		}
		if err := s.transition(StateExecutingTools); err != nil {
			return err
		}

		rejected, err := s.executeTools(ctx, msg.ToolCalls, events)
		if err != nil {
			return err
		}
		if s.interrupted.Load() {
			return s.stopInterrupted(events)
		}
		if rejected {
			s.append(provider.SystemMessage(rejectedNote))
			return s.transition(StateIdle)
		}

		cont, err := s.advance(ctx, events)
		if err != nil || !cont {
			return err
		}
	}
}

// complete sends the conversation to the provider.
func (s *Session) complete(ctx context.Context) (*provider.ChatResponse, error) {
	s.mu.Lock()
	p := s.provider
	params := s.params
	s.stats.Requests++
	n := s.stats.Requests
	s.mu.Unlock()

	req := &provider.ChatRequest{
		Model:       params.Model,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Messages:    s.Messages(),
		Tools:       s.tools.Declarations(),
	}

	logger := s.logger.With("request", n, "iteration", s.iteration+1)
	logger.Debug("model request", "messages", len(req.Messages), "tools", len(req.Tools))
	start := time.Now()

	resp, err := p.CreateChatCompletion(ctx, req)
	if s.recorder != nil {
		s.recorder.Record(n, req, resp, err)
	}
	if err != nil {
		logger.Debug("model request failed", "err", err, "elapsed", time.Since(start))
		return nil, err
	}
	logger.Debug("model response", "tool_calls", len(resp.Message.ToolCalls), "elapsed", time.Since(start))
	return resp, nil
}

// executeTools runs calls one at a time in model order. It stops at the
// first rejected call; the calls after it are never dispatched.
func (s *Session) executeTools(ctx context.Context, calls []provider.ToolCall, events chan<- workflow.Event) (bool, error) {
	for _, tc := range calls {
		if s.interrupted.Load() {
			return false, nil
		}

		msg, res := s.tools.Execute(ctx, tc, events)

		if s.State() == StateAwaitingApproval {
			if err := s.transition(StateExecutingTools); err != nil {
				return false, err
			}
		}
		s.append(msg)

		if res.UserRejected {
			s.logger.Debug("tool call rejected", "tool", tc.Name, "call_id", tc.ID)
			return true, nil
		}
	}
	return false, nil
}

// advance counts a finished round and, at the limit, asks whether to keep
// going. It reports whether the loop should call the model again.
func (s *Session) advance(ctx context.Context, events chan<- workflow.Event) (bool, error) {
	s.iteration++
	s.mu.Lock()
	s.stats.Iterations++
	s.mu.Unlock()

	if s.iteration < s.maxIterations {
		if s.State() != StateAwaitingModel {
			return true, s.transition(StateAwaitingModel)
		}
		return true, nil
	}

	if err := s.transition(StateMaxIterationsReached); err != nil {
		return false, err
	}
	s.logger.Info("iteration limit reached", "iteration", s.iteration)

	cont, err := workflow.ConfirmContinue(ctx, events, s.maxIterations)
	if s.interrupted.Load() || err != nil {
		return false, s.stopInterrupted(events)
	}
	if !cont {
		s.append(provider.SystemMessage(maxIterNote))
		return false, s.transition(StateIdle)
	}

	s.iteration = 0
	return true, s.transition(StateAwaitingModel)
}

// handleError decides what a failed request means for the turn. It reports
// whether to retry; a non-nil error ends Submit.
func (s *Session) handleError(ctx context.Context, events chan<- workflow.Event, err error) (bool, error) {
	// Aborted requests are covered by the interruption note.
	if s.interrupted.Load() || errors.Is(err, context.Canceled) {
		return false, s.stopInterrupted(events)
	}

	if provider.IsAuth(err) {
		s.logger.Error("authentication failed", "err", err)
		if terr := s.transition(StateFatalError); terr != nil {
			return false, terr
		}
		workflow.Emit(events, workflow.ErrorEvent{Err: err, Fatal: true})
		return false, fmt.Errorf("%w: %w", ErrFatal, err)
	}

	if provider.IsRetryable(err) {
		retry, askErr := workflow.ConfirmRetry(ctx, events, err)
		if s.interrupted.Load() || askErr != nil {
			return false, s.stopInterrupted(events)
		}
		if retry {
			s.logger.Info("retrying request", "err", err)
			if !s.waitRetry(ctx, err) {
				return false, s.stopInterrupted(events)
			}
			return true, nil
		}
	}

	s.logger.Warn("request failed", "err", err)
	s.append(provider.SystemMessage(fmt.Sprintf("[Request failed: %v]", err)))
	workflow.Emit(events, workflow.ErrorEvent{Err: err})
	return false, s.transition(StateIdle)
}

// waitRetry honours a Retry-After hint. It returns false if ctx ends first.
func (s *Session) waitRetry(ctx context.Context, err error) bool {
	d := provider.GetRetryAfter(err)
	if d == nil || *d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(min(*d, maxRetryWait))
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) stopInterrupted(events chan<- workflow.Event) error {
	if err := s.transition(StateInterrupted); err != nil {
		return err
	}
	s.logger.Info("turn interrupted")
	s.append(provider.SystemMessage(interruptedNote))
	workflow.Emit(events, workflow.InterruptedEvent{})
	return s.transition(StateIdle)
}
