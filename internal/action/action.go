// Package action defines the typed content-mutation actions extracted from
// model responses, the grammar that validates them, and the lifecycle state
// machine that tracks their execution.
//
// Actions are descriptions of intent. Nothing in this package executes
// anything; execution outcomes are reported back through Transition events
// so "what was requested" stays strictly separated from "what happened".
package action

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed category of an action. Unknown kinds are rejected at
// normalization time and never become Actions.
type Kind string

const (
	KindCreate      Kind = "create"
	KindUpdate      Kind = "update"
	KindDelete      Kind = "delete"
	KindQuery       Kind = "query"
	KindNavigate    Kind = "navigate"
	KindExplain     Kind = "explain"
	KindUploadImage Kind = "uploadImage"
)

// Status tracks where an action is in its execution lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// knownKinds is the closed kind set. Membership here is the grammar's
// first gate; everything else in the payload is best-effort.
var knownKinds = map[Kind]bool{
	KindCreate:      true,
	KindUpdate:      true,
	KindDelete:      true,
	KindQuery:       true,
	KindNavigate:    true,
	KindExplain:     true,
	KindUploadImage: true,
}

// defaultDescriptions supply a human-readable summary when the model
// omitted one.
var defaultDescriptions = map[Kind]string{
	KindCreate:      "Create a new document",
	KindUpdate:      "Update a document",
	KindDelete:      "Delete a document",
	KindQuery:       "Run a content query",
	KindNavigate:    "Navigate to a page",
	KindExplain:     "Explain the content model",
	KindUploadImage: "Upload an image",
}

// ValidKind reports whether k is a member of the closed kind set.
func ValidKind(k Kind) bool { return knownKinds[k] }

// Payload is the loosely-typed argument bag of an action. All fields are
// optional; which ones matter depends on the Kind.
type Payload struct {
	DocumentType string         `json:"documentType,omitempty"`
	DocumentID   string         `json:"documentId,omitempty"`
	Fields       map[string]any `json:"fields,omitempty"`
	Query        string         `json:"query,omitempty"`
	Path         string         `json:"path,omitempty"`
	Explanation  string         `json:"explanation,omitempty"`
}

// Action is one validated unit of intended content mutation or navigation.
// Status is mutated only through Transition; the parser never touches an
// Action again after constructing it.
type Action struct {
	ID            string  `json:"id"`
	Kind          Kind    `json:"kind"`
	Description   string  `json:"description"`
	Status        Status  `json:"status"`
	Payload       Payload `json:"payload"`
	FailureReason string  `json:"failureReason,omitempty"`
}

// NewID generates an action identifier that is collision-free within a
// process lifetime: millisecond timestamp prefix plus a random suffix.
func NewID() string {
	return fmt.Sprintf("act-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
