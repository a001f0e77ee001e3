// Package executor runs validated actions against the content store and
// reports lifecycle events back into the turn's action record. Actions are
// isolated: one failure never aborts its siblings.
package executor

import (
	"context"
	"fmt"
	"os"

	"contentpilot/internal/action"
	"contentpilot/internal/content"
	"contentpilot/internal/live"
	"contentpilot/internal/logging"

	"go.uber.org/zap"
)

// Outcome summarizes one action's execution for the caller. Documents and
// query results are surfaced so the chat layer can render them.
type Outcome struct {
	ActionID string
	Document *content.Document
	Results  []content.Document
	AssetRef string
	Path     string
	Message  string
	Err      error
}

// Executor applies actions to the store and publishes live updates.
type Executor struct {
	store content.Store
	feed  live.Feed
	log   *zap.Logger
}

// New creates an executor. feed may be nil when no live views are mounted.
func New(store content.Store, feed live.Feed) *Executor {
	return &Executor{
		store: store,
		feed:  feed,
		log:   logging.L(logging.CategoryAction),
	}
}

// Execute runs every action in the record in extraction order, routing
// lifecycle events through the record. A cancelled context marks all
// outstanding actions cancelled and returns what completed so far.
func (e *Executor) Execute(ctx context.Context, rec *action.Record) []Outcome {
	var outcomes []Outcome

	for _, a := range rec.List() {
		if ctx.Err() != nil {
			rec.CancelOutstanding()
			e.log.Info("turn cancelled, outstanding actions dropped",
				zap.Int("completed", len(outcomes)))
			return outcomes
		}
		if a.Status != action.StatusPending {
			continue
		}

		rec.Apply(a.ID, action.Event{Type: action.EventExecutionStarted})
		out := e.run(ctx, a)
		outcomes = append(outcomes, out)

		if out.Err != nil {
			rec.Apply(a.ID, action.Event{
				Type:   action.EventExecutionFailed,
				Reason: out.Err.Error(),
			})
			e.log.Warn("action failed",
				zap.String("id", a.ID),
				zap.String("kind", string(a.Kind)),
				zap.Error(out.Err))
			continue
		}

		rec.Apply(a.ID, action.Event{Type: action.EventExecutionSucceeded})
		e.log.Debug("action completed",
			zap.String("id", a.ID),
			zap.String("kind", string(a.Kind)))
	}

	return outcomes
}

func (e *Executor) run(ctx context.Context, a action.Action) Outcome {
	out := Outcome{ActionID: a.ID}

	switch a.Kind {
	case action.KindCreate:
		doc, err := e.store.Create(ctx, &content.Document{
			Type:   a.Payload.DocumentType,
			Fields: a.Payload.Fields,
		})
		if err != nil {
			out.Err = fmt.Errorf("create failed: %w", err)
			return out
		}
		out.Document = doc
		out.Message = fmt.Sprintf("Created %s %s", doc.Type, doc.ID)
		e.publish(ctx, doc)

	case action.KindUpdate:
		if a.Payload.DocumentID == "" {
			out.Err = fmt.Errorf("update requires a document ID")
			return out
		}
		doc, err := e.store.Patch(ctx, a.Payload.DocumentID, a.Payload.Fields)
		if err != nil {
			out.Err = fmt.Errorf("update failed: %w", err)
			return out
		}
		out.Document = doc
		out.Message = fmt.Sprintf("Updated %s", doc.ID)
		e.publish(ctx, doc)

	case action.KindDelete:
		if a.Payload.DocumentID == "" {
			out.Err = fmt.Errorf("delete requires a document ID")
			return out
		}
		if err := e.store.Delete(ctx, a.Payload.DocumentID); err != nil {
			out.Err = fmt.Errorf("delete failed: %w", err)
			return out
		}
		out.Message = fmt.Sprintf("Deleted %s", a.Payload.DocumentID)
		e.publishDeleted(ctx, a.Payload.DocumentID)

	case action.KindQuery:
		if a.Payload.Query == "" {
			out.Err = fmt.Errorf("query action carried no query")
			return out
		}
		docs, err := e.store.Query(ctx, a.Payload.Query)
		if err != nil {
			out.Err = fmt.Errorf("query failed: %w", err)
			return out
		}
		out.Results = docs
		out.Message = fmt.Sprintf("Query matched %d documents", len(docs))

	case action.KindNavigate:
		if a.Payload.Path == "" {
			out.Err = fmt.Errorf("navigate requires a path")
			return out
		}
		out.Path = a.Payload.Path
		out.Message = "Navigate to " + a.Payload.Path

	case action.KindExplain:
		out.Message = a.Payload.Explanation
		if out.Message == "" {
			out.Message = a.Description
		}

	case action.KindUploadImage:
		if a.Payload.Path == "" {
			out.Err = fmt.Errorf("uploadImage requires a file path")
			return out
		}
		data, err := os.ReadFile(a.Payload.Path)
		if err != nil {
			out.Err = fmt.Errorf("failed to read image: %w", err)
			return out
		}
		ref, err := e.store.Upload(ctx, a.Payload.Path, data)
		if err != nil {
			out.Err = fmt.Errorf("upload failed: %w", err)
			return out
		}
		out.AssetRef = ref
		out.Message = "Uploaded image as " + ref

	default:
		out.Err = fmt.Errorf("unexecutable action kind %q", a.Kind)
	}

	return out
}

func (e *Executor) publish(ctx context.Context, doc *content.Document) {
	if e.feed == nil || doc == nil {
		return
	}
	if err := e.feed.Publish(ctx, live.Event{DocumentID: doc.ID, Document: doc}); err != nil {
		e.log.Warn("live publish failed", zap.String("document", doc.ID), zap.Error(err))
	}
}

func (e *Executor) publishDeleted(ctx context.Context, id string) {
	if e.feed == nil {
		return
	}
	if err := e.feed.Publish(ctx, live.Event{DocumentID: id}); err != nil {
		e.log.Warn("live publish failed", zap.String("document", id), zap.Error(err))
	}
}
