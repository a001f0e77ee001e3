package action

// EventType identifies an execution-side-effect event reported by the
// executor. The tracker itself never executes anything.
type EventType string

const (
	EventExecutionStarted   EventType = "executionStarted"
	EventExecutionSucceeded EventType = "executionSucceeded"
	EventExecutionFailed    EventType = "executionFailed"
	EventUserCancelled      EventType = "userCancelled"
)

// Event is one lifecycle event. Reason is only meaningful for failures.
type Event struct {
	Type   EventType
	Reason string
}

// Transition is the lifecycle tracker: a pure reducer over (Action, Event).
// Legal transitions:
//
//	pending   -> executing  (executionStarted)
//	executing -> completed  (executionSucceeded)
//	executing -> failed     (executionFailed, carries reason)
//	pending|executing -> cancelled (userCancelled)
//
// Illegal transitions, including duplicate events that may race in from the
// executor, are absorbed as no-ops rather than errors.
func Transition(a Action, e Event) Action {
	switch e.Type {
	case EventExecutionStarted:
		if a.Status == StatusPending {
			a.Status = StatusExecuting
		}
	case EventExecutionSucceeded:
		if a.Status == StatusExecuting {
			a.Status = StatusCompleted
		}
	case EventExecutionFailed:
		if a.Status == StatusExecuting {
			a.Status = StatusFailed
			a.FailureReason = e.Reason
		}
	case EventUserCancelled:
		if a.Status == StatusPending || a.Status == StatusExecuting {
			a.Status = StatusCancelled
		}
	}
	return a
}

// Record holds the lifecycle state for the actions of one conversation
// turn, keyed by action ID. It is a plain value owned by the turn, not
// shared mutable state; concurrent turns each carry their own Record.
type Record struct {
	byID  map[string]Action
	order []string
}

// NewRecord seeds a record with freshly parsed actions, preserving their
// extraction order.
func NewRecord(actions []Action) *Record {
	r := &Record{byID: make(map[string]Action, len(actions))}
	for _, a := range actions {
		if _, dup := r.byID[a.ID]; dup {
			continue
		}
		r.byID[a.ID] = a
		r.order = append(r.order, a.ID)
	}
	return r
}

// Apply routes an event to the action with the given ID. Unknown IDs and
// illegal transitions leave the record unchanged; the bool reports whether
// the status actually moved.
func (r *Record) Apply(id string, e Event) bool {
	a, ok := r.byID[id]
	if !ok {
		return false
	}
	next := Transition(a, e)
	if next.Status == a.Status {
		return false
	}
	r.byID[id] = next
	return true
}

// Get returns the current state of one action.
func (r *Record) Get(id string) (Action, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// List returns the actions in extraction order.
func (r *Record) List() []Action {
	out := make([]Action, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// CancelOutstanding marks every non-terminal action cancelled. Used when
// the user aborts a turn mid-execution.
func (r *Record) CancelOutstanding() {
	for id, a := range r.byID {
		if !a.Status.Terminal() {
			r.byID[id] = Transition(a, Event{Type: EventUserCancelled})
		}
	}
}
