package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func block(key string, data map[string]any) Block {
	return Block{Key: key, Type: "section", Data: data}
}

func keys(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Key
	}
	return out
}

func TestMerge_ReorderPreservesCurrentData(t *testing.T) {
	expanded := map[string]any{"ref": "resolved-hero", "expanded": true}
	current := []Block{
		block("a", nil),
		block("b", expanded),
		block("c", nil),
	}
	incoming := []Block{
		block("c", nil),
		block("a", nil),
		block("b", nil), // incoming copy lacks the expanded data
	}

	next := Merge(current, incoming)

	if diff := cmp.Diff([]string{"c", "a", "b"}, keys(next)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(expanded, next[2].Data); diff != "" {
		t.Fatalf("expanded data lost on reorder (-want +got):\n%s", diff)
	}
}

func TestMerge_ContentChangeTakesIncomingVerbatim(t *testing.T) {
	current := []Block{
		block("a", map[string]any{"expanded": true}),
		block("b", nil),
	}
	incoming := []Block{
		block("a", nil),
		block("d", map[string]any{"fresh": true}),
	}

	next := Merge(current, incoming)

	if diff := cmp.Diff(incoming, next); diff != "" {
		t.Fatalf("content change must adopt incoming exactly (-want +got):\n%s", diff)
	}
}

func TestMerge_NilIncomingKeepsCurrent(t *testing.T) {
	current := []Block{block("a", nil)}
	next := Merge(current, nil)
	if diff := cmp.Diff(current, next); diff != "" {
		t.Fatalf("nil incoming must leave list unchanged (-want +got):\n%s", diff)
	}
}

func TestMerge_BothEmptyIsContentChange(t *testing.T) {
	// Empty signatures never classify as a reorder.
	next := Merge([]Block{}, []Block{})
	if len(next) != 0 {
		t.Fatalf("len = %d, want 0", len(next))
	}

	next = Merge([]Block{block("a", nil)}, []Block{})
	if len(next) != 0 {
		t.Fatalf("emptied list must win, got %v", keys(next))
	}
}

func TestMerge_AddedBlockIsContentChange(t *testing.T) {
	current := []Block{block("a", map[string]any{"expanded": true})}
	incoming := []Block{block("a", nil), block("b", nil)}

	next := Merge(current, incoming)
	if diff := cmp.Diff(incoming, next); diff != "" {
		t.Fatalf("added key must discard local data (-want +got):\n%s", diff)
	}
}

func TestMerge_PureAndDeterministic(t *testing.T) {
	current := []Block{block("a", map[string]any{"x": 1}), block("b", nil)}
	incoming := []Block{block("b", nil), block("a", nil)}

	first := Merge(current, incoming)
	second := Merge(current, incoming)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("identical inputs produced different outputs:\n%s", diff)
	}
	// Inputs must be untouched.
	if current[0].Key != "a" || incoming[0].Key != "b" {
		t.Fatal("Merge mutated its inputs")
	}
	if current[0].Data["x"] != 1 {
		t.Fatal("Merge mutated current block data")
	}
}

func TestMerge_EndToEndScenario(t *testing.T) {
	// [a b c] reordered to [c a b]; local b carries expanded data the
	// incoming b does not.
	localB := block("b", map[string]any{"resolvedRef": map[string]any{"title": "Hero"}})
	current := []Block{block("a", nil), localB, block("c", nil)}
	incoming := []Block{block("c", nil), block("a", nil), block("b", nil)}

	next := Merge(current, incoming)

	if diff := cmp.Diff([]string{"c", "a", "b"}, keys(next)); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(localB, next[2]); diff != "" {
		t.Fatalf("local block b not preserved (-want +got):\n%s", diff)
	}
}
