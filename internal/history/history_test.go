package history

import (
	"context"
	"path/filepath"
	"testing"

	"contentpilot/internal/action"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndRecentTurns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	acts := []action.Action{{
		ID:          action.NewID(),
		Kind:        action.KindCreate,
		Description: "Create a new document",
		Status:      action.StatusPending,
		Payload: action.Payload{
			DocumentType: "page",
			Fields:       map[string]any{"title": "Home"},
		},
	}}

	require.NoError(t, s.SaveTurn(ctx, "make a home page", "Done.", acts))
	require.NoError(t, s.SaveTurn(ctx, "thanks", "Any time.", nil))

	turns, err := s.RecentTurns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)

	assert.Equal(t, "make a home page", turns[0].UserMessage)
	assert.Equal(t, "thanks", turns[1].UserMessage)

	require.Len(t, turns[0].Actions, 1)
	got := turns[0].Actions[0]
	assert.Equal(t, action.KindCreate, got.Kind)
	assert.Equal(t, "page", got.Payload.DocumentType)
	assert.Equal(t, "Home", got.Payload.Fields["title"])
	assert.Empty(t, turns[1].Actions)
}

func TestRecentTurns_LimitKeepsNewest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, s.SaveTurn(ctx, msg, "ok", nil))
	}

	turns, err := s.RecentTurns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "two", turns[0].UserMessage)
	assert.Equal(t, "three", turns[1].UserMessage)
}

func TestRecentTurns_EmptyStore(t *testing.T) {
	s := openTestStore(t)
	turns, err := s.RecentTurns(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
