// Package reconcile merges live-pushed section lists into the list a view
// is currently rendering.
//
// The classification is a key-set heuristic: when an update carries exactly
// the same block keys as the current list it is treated as a pure reorder
// and locally-held block data (already-resolved references, expanded
// previews) survives the merge. Any key difference means real content
// changed and the incoming list wins wholesale.
package reconcile

import (
	"sort"
	"strings"
)

// Block is one entry of a document's ordered content-block list. Identity
// is defined solely by Key; Data carries whatever the renderer has locally
// attached, which the incoming copy of the same block may lack.
type Block struct {
	Key  string         `json:"_key"`
	Type string         `json:"_type,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// keySignature joins the sorted keys of a list. Two lists with equal
// non-empty signatures hold the same block multiset, order aside.
func keySignature(blocks []Block) string {
	keys := make([]string, len(blocks))
	for i, b := range blocks {
		keys[i] = b.Key
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// Merge computes the next rendered list from the current one and an
// incoming update for the same document.
//
// Reorder (equal, non-empty key signatures): walk incoming in its new
// order, substituting the current entry for each key so local data is
// preserved. Content change (any key difference): incoming verbatim —
// stale local data for changed blocks is intentionally not carried over.
// Nil incoming leaves the current list unchanged.
//
// Merge is a pure fold: it never mutates its inputs and identical inputs
// produce structurally identical outputs.
func Merge(current, incoming []Block) []Block {
	if incoming == nil {
		return current
	}

	sig := keySignature(incoming)
	if sig == "" || sig != keySignature(current) {
		return incoming
	}

	byKey := make(map[string]Block, len(current))
	for _, b := range current {
		if _, dup := byKey[b.Key]; !dup {
			byKey[b.Key] = b
		}
	}

	next := make([]Block, 0, len(incoming))
	for _, in := range incoming {
		if cur, ok := byKey[in.Key]; ok {
			next = append(next, cur)
			// Duplicate keys fall through to the incoming entry.
			delete(byKey, in.Key)
		} else {
			next = append(next, in)
		}
	}
	return next
}
