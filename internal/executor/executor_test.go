package executor

import (
	"context"
	"fmt"
	"testing"

	"contentpilot/internal/action"
	"contentpilot/internal/content"
	"contentpilot/internal/live"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records mutations and fails on demand per document ID.
type fakeStore struct {
	docs    map[string]*content.Document
	failIDs map[string]bool
	created int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:    make(map[string]*content.Document),
		failIDs: make(map[string]bool),
	}
}

func (s *fakeStore) Get(ctx context.Context, id string) (*content.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, content.ErrNotFound
	}
	return doc, nil
}

func (s *fakeStore) Create(ctx context.Context, doc *content.Document) (*content.Document, error) {
	s.created++
	doc.ID = fmt.Sprintf("doc-%d", s.created)
	doc.Rev = 1
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *fakeStore) Patch(ctx context.Context, id string, set map[string]any) (*content.Document, error) {
	if s.failIDs[id] {
		return nil, fmt.Errorf("backend rejected patch")
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, content.ErrNotFound
	}
	if doc.Fields == nil {
		doc.Fields = map[string]any{}
	}
	for k, v := range set {
		doc.Fields[k] = v
	}
	doc.Rev++
	return doc, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.docs[id]; !ok {
		return content.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *fakeStore) Query(ctx context.Context, query string) ([]content.Document, error) {
	var out []content.Document
	for _, d := range s.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (s *fakeStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	return "image-ref", nil
}

func (s *fakeStore) Close() error { return nil }

func pendingAction(kind action.Kind, p action.Payload) action.Action {
	return action.Action{
		ID:      action.NewID(),
		Kind:    kind,
		Status:  action.StatusPending,
		Payload: p,
	}
}

func TestExecute_CreatePublishesLiveEvent(t *testing.T) {
	store := newFakeStore()
	feed := live.NewMemoryFeed()
	defer feed.Close()

	events, cancel := feed.Subscribe(context.Background())
	defer cancel()

	a := pendingAction(action.KindCreate, action.Payload{
		DocumentType: "page",
		Fields:       map[string]any{"title": "Home"},
	})
	rec := action.NewRecord([]action.Action{a})

	outcomes := New(store, feed).Execute(context.Background(), rec)
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, "doc-1", outcomes[0].Document.ID)

	got, _ := rec.Get(a.ID)
	assert.Equal(t, action.StatusCompleted, got.Status)

	ev := <-events
	assert.Equal(t, "doc-1", ev.DocumentID)
	assert.Equal(t, "Home", ev.Document.Fields["title"])
}

func TestExecute_FailureIsolation(t *testing.T) {
	store := newFakeStore()
	store.docs["doc-ok"] = &content.Document{ID: "doc-ok", Type: "page"}
	store.docs["doc-bad"] = &content.Document{ID: "doc-bad", Type: "page"}
	store.failIDs["doc-bad"] = true

	bad := pendingAction(action.KindUpdate, action.Payload{
		DocumentID: "doc-bad",
		Fields:     map[string]any{"title": "x"},
	})
	good := pendingAction(action.KindUpdate, action.Payload{
		DocumentID: "doc-ok",
		Fields:     map[string]any{"title": "y"},
	})
	rec := action.NewRecord([]action.Action{bad, good})

	outcomes := New(store, nil).Execute(context.Background(), rec)
	require.Len(t, outcomes, 2)
	assert.Error(t, outcomes[0].Err)
	assert.NoError(t, outcomes[1].Err)

	badState, _ := rec.Get(bad.ID)
	goodState, _ := rec.Get(good.ID)
	assert.Equal(t, action.StatusFailed, badState.Status)
	assert.Contains(t, badState.FailureReason, "backend rejected patch")
	assert.Equal(t, action.StatusCompleted, goodState.Status)
}

func TestExecute_CancelledContextCancelsOutstanding(t *testing.T) {
	store := newFakeStore()
	a1 := pendingAction(action.KindCreate, action.Payload{DocumentType: "page"})
	a2 := pendingAction(action.KindCreate, action.Payload{DocumentType: "page"})
	rec := action.NewRecord([]action.Action{a1, a2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := New(store, nil).Execute(ctx, rec)
	assert.Empty(t, outcomes)

	for _, a := range rec.List() {
		assert.Equal(t, action.StatusCancelled, a.Status)
	}
}

func TestExecute_ValidationErrors(t *testing.T) {
	store := newFakeStore()

	cases := []struct {
		name string
		act  action.Action
	}{
		{"update without id", pendingAction(action.KindUpdate, action.Payload{})},
		{"delete without id", pendingAction(action.KindDelete, action.Payload{})},
		{"query without query", pendingAction(action.KindQuery, action.Payload{})},
		{"navigate without path", pendingAction(action.KindNavigate, action.Payload{})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := action.NewRecord([]action.Action{tc.act})
			outcomes := New(store, nil).Execute(context.Background(), rec)
			require.Len(t, outcomes, 1)
			assert.Error(t, outcomes[0].Err)

			got, _ := rec.Get(tc.act.ID)
			assert.Equal(t, action.StatusFailed, got.Status)
		})
	}
}

func TestExecute_NavigateAndExplainAreLocal(t *testing.T) {
	store := newFakeStore()
	nav := pendingAction(action.KindNavigate, action.Payload{Path: "/pages/home"})
	exp := pendingAction(action.KindExplain, action.Payload{Explanation: "Pages hold sections."})
	rec := action.NewRecord([]action.Action{nav, exp})

	outcomes := New(store, nil).Execute(context.Background(), rec)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "/pages/home", outcomes[0].Path)
	assert.Equal(t, "Pages hold sections.", outcomes[1].Message)
	assert.Equal(t, 0, store.created)
}

func TestExecute_DeletePublishesTombstone(t *testing.T) {
	store := newFakeStore()
	store.docs["doc-1"] = &content.Document{ID: "doc-1", Type: "page"}
	feed := live.NewMemoryFeed()
	defer feed.Close()

	events, cancel := feed.Subscribe(context.Background())
	defer cancel()

	a := pendingAction(action.KindDelete, action.Payload{DocumentID: "doc-1"})
	rec := action.NewRecord([]action.Action{a})

	outcomes := New(store, feed).Execute(context.Background(), rec)
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)

	ev := <-events
	assert.Equal(t, "doc-1", ev.DocumentID)
	assert.Nil(t, ev.Document)
}
