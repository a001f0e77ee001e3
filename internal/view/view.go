// Package view maintains the client-side section list for one mounted
// document. Incoming live updates are reconciled against the current list
// so in-flight local edits survive pure reorders.
package view

import (
	"sync"

	"contentpilot/internal/live"
	"contentpilot/internal/logging"
	"contentpilot/internal/reconcile"

	"go.uber.org/zap"
)

// DocumentView tracks the rendered sections of a single document.
type DocumentView struct {
	mu         sync.RWMutex
	documentID string
	rev        int64
	sections   []reconcile.Block
	watchers   []func([]reconcile.Block)
}

// NewDocumentView mounts a view over the given document.
func NewDocumentView(documentID string, initial []reconcile.Block) *DocumentView {
	return &DocumentView{
		documentID: documentID,
		sections:   cloneBlocks(initial),
	}
}

// DocumentID returns the mounted document's ID.
func (v *DocumentView) DocumentID() string {
	return v.documentID
}

// Sections returns a copy of the current section list.
func (v *DocumentView) Sections() []reconcile.Block {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cloneBlocks(v.sections)
}

// ApplyUpdate reconciles a live event into the view. Events for other
// documents are ignored. Returns true when the section list changed.
func (v *DocumentView) ApplyUpdate(ev live.Event) bool {
	if ev.DocumentID != v.documentID || ev.Document == nil {
		return false
	}

	v.mu.Lock()
	if ev.Document.Rev != 0 && ev.Document.Rev < v.rev {
		v.mu.Unlock()
		logging.L(logging.CategoryReconcile).Debug("skipping stale update",
			zap.String("document", v.documentID),
			zap.Int64("rev", ev.Document.Rev))
		return false
	}

	merged := reconcile.Merge(v.sections, ev.Document.Sections)
	changed := !sameBlocks(v.sections, merged)
	v.sections = merged
	if ev.Document.Rev != 0 {
		v.rev = ev.Document.Rev
	}
	watchers := append([]func([]reconcile.Block){}, v.watchers...)
	snapshot := cloneBlocks(merged)
	v.mu.Unlock()

	if changed {
		for _, w := range watchers {
			w(snapshot)
		}
	}
	return changed
}

// Watch registers fn to run after every change to the section list.
func (v *DocumentView) Watch(fn func([]reconcile.Block)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.watchers = append(v.watchers, fn)
}

func cloneBlocks(in []reconcile.Block) []reconcile.Block {
	if in == nil {
		return nil
	}
	out := make([]reconcile.Block, len(in))
	copy(out, in)
	return out
}

func sameBlocks(a, b []reconcile.Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key {
			return false
		}
	}
	return true
}
