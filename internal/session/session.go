// Package session orchestrates one conversation turn: prompt assembly,
// streaming completion, action extraction, and lifecycle record setup.
// Execution is the caller's decision; the session only produces the record.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"contentpilot/internal/action"
	"contentpilot/internal/llm"
	"contentpilot/internal/logging"
	"contentpilot/internal/parse"
	"contentpilot/internal/stream"

	"go.uber.org/zap"
)

// historyWindow is how many prior exchanges travel with each prompt.
const historyWindow = 10

// Recorder persists completed turns. history.Store implements it.
type Recorder interface {
	SaveTurn(ctx context.Context, userMessage, assistantText string, actions []action.Action) error
}

// Turn is the finalized result of one exchange.
type Turn struct {
	// UserMessage is the prompt that started the turn.
	UserMessage string

	// ResponseText is the raw model output, action fences included.
	ResponseText string

	// DisplayText is the cleaned text to show the user.
	DisplayText string

	// Record tracks the extracted actions' lifecycle. Empty record when
	// the response carried no actions or the turn was cancelled.
	Record *action.Record

	// Partial is set when the stream broke before completing.
	Partial bool

	// Cancelled is set when the user abandoned the turn. Cancelled turns
	// skip action extraction entirely.
	Cancelled bool

	// Err holds the transport error for partial turns.
	Err error
}

type exchange struct {
	user      string
	assistant string
}

// Session holds the conversation state for one chat.
type Session struct {
	client   llm.StreamingClient
	recorder Recorder
	history  []exchange
	log      *zap.Logger
}

// New creates a session. recorder may be nil to skip persistence.
func New(client llm.StreamingClient, recorder Recorder) *Session {
	return &Session{
		client:   client,
		recorder: recorder,
		log:      logging.L(logging.CategorySession),
	}
}

// Run executes one turn. onDelta, when non-nil, receives each text fragment
// as it arrives so callers can render incrementally.
func (s *Session) Run(ctx context.Context, userMessage string, onDelta func(string)) *Turn {
	fragments, errs := s.client.CompleteWithStreaming(ctx, SystemPrompt, s.buildPrompt(userMessage))

	if onDelta != nil {
		var stopTee func()
		fragments, stopTee = tee(fragments, onDelta)
		// A cancelled stream can keep flushing buffered fragments after
		// Consume returns; stop the tee before Run returns so onDelta
		// never fires against a caller that has moved on.
		defer stopTee()
	}

	outcome := stream.Consume(ctx, fragments, errs)

	turn := &Turn{
		UserMessage:  userMessage,
		ResponseText: outcome.Text,
		Partial:      outcome.Partial,
		Cancelled:    outcome.Cancelled,
		Err:          outcome.Err,
	}

	if outcome.Cancelled {
		// Abandoned turn: keep the partial text visible but never extract
		// actions from it.
		turn.DisplayText = parse.CleanDisplayText(outcome.Text)
		turn.Record = action.NewRecord(nil)
		s.log.Info("turn cancelled", zap.Int("partial_len", len(outcome.Text)))
		return turn
	}

	result := parse.Parse(outcome.Text)
	turn.DisplayText = result.DisplayText
	turn.Record = action.NewRecord(result.Actions)

	s.history = append(s.history, exchange{user: userMessage, assistant: result.DisplayText})
	if len(s.history) > historyWindow {
		s.history = s.history[len(s.history)-historyWindow:]
	}

	if s.recorder != nil {
		if err := s.recorder.SaveTurn(ctx, userMessage, result.DisplayText, result.Actions); err != nil {
			s.log.Warn("failed to persist turn", zap.Error(err))
		}
	}

	s.log.Debug("turn complete",
		zap.Int("actions", len(result.Actions)),
		zap.Bool("partial", outcome.Partial))
	return turn
}

// buildPrompt prepends the recent conversation window so the model keeps
// referential context ("update that page") across turns.
func (s *Session) buildPrompt(userMessage string) string {
	if len(s.history) == 0 {
		return userMessage
	}
	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	for _, ex := range s.history {
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", ex.user, ex.assistant)
	}
	sb.WriteString("\nCurrent message:\n")
	sb.WriteString(userMessage)
	return sb.String()
}

// tee forwards fragments downstream while invoking fn on each one. The
// returned stop function guarantees fn is never invoked again once it has
// returned; after stop the tee keeps draining the provider so nothing
// upstream blocks, but delivers nothing further.
func tee(in <-chan string, fn func(string)) (<-chan string, func()) {
	out := make(chan string, 16)
	stopped := make(chan struct{})
	var mu sync.Mutex

	emit := func(frag string) {
		mu.Lock()
		defer mu.Unlock()
		select {
		case <-stopped:
		default:
			fn(frag)
		}
	}

	go func() {
		defer close(out)
		for frag := range in {
			if frag != stream.Terminator {
				emit(frag)
			}
			select {
			case out <- frag:
			case <-stopped:
			}
		}
	}()

	stop := func() {
		// Taking the mutex waits out any fn call already in flight.
		mu.Lock()
		defer mu.Unlock()
		select {
		case <-stopped:
		default:
			close(stopped)
		}
	}
	return out, stop
}
