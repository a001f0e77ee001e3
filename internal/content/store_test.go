package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStore_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/doc/production/doc-1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"documents":[{"_id":"doc-1","_type":"page","fields":{"title":"Home"}}]}`)
	}))
	defer srv.Close()

	s, err := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL, Token: "tok"})
	require.NoError(t, err)

	doc, err := s.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "page", doc.Type)
	assert.Equal(t, "Home", doc.Fields["title"])
}

func TestHTTPStore_GetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"documents":[]}`)
	}))
	defer srv.Close()

	s, err := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPStore_CreateSendsMutation(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/mutate/production":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			fmt.Fprint(w, `{"results":[{"id":"doc-9"}]}`)
		case "/data/doc/production/doc-9":
			fmt.Fprint(w, `{"documents":[{"_id":"doc-9","_type":"page"}]}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	s, err := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	doc, err := s.Create(context.Background(), &Document{Type: "page"})
	require.NoError(t, err)
	assert.Equal(t, "doc-9", doc.ID)

	muts, ok := captured["mutations"].([]any)
	require.True(t, ok)
	require.Len(t, muts, 1)
	first := muts[0].(map[string]any)
	assert.Contains(t, first, "create")
}

func TestHTTPStore_DeleteMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	s, err := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Delete(context.Background(), "missing"), ErrNotFound)
}

func TestHTTPStore_QueryEscapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `*[_type == "page"]`, r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"result":[{"_id":"a","_type":"page"},{"_id":"b","_type":"page"}]}`)
	}))
	defer srv.Close()

	s, err := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	docs, err := s.Query(context.Background(), `*[_type == "page"]`)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestHTTPStore_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, err := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "doc-1")
	assert.ErrorContains(t, err, "status 500")
}

func TestSplitPatch_LeavesCallerMapIntact(t *testing.T) {
	set := map[string]any{
		"title":    "New",
		"sections": []any{map[string]any{"_key": "a"}},
	}

	fields, sections, err := splitPatch(set)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"New"}`, string(fields))
	assert.JSONEq(t, `[{"_key":"a"}]`, string(sections))

	// The map belongs to the action record; splitting must not consume it.
	assert.Contains(t, set, "sections")
	assert.Contains(t, set, "title")
}

func TestSplitPatch_NoSections(t *testing.T) {
	fields, sections, err := splitPatch(map[string]any{"title": "New"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"New"}`, string(fields))
	assert.Nil(t, sections)

	fields, sections, err = splitPatch(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(fields))
	assert.Nil(t, sections)
}

func TestTypeQueryRe(t *testing.T) {
	cases := []struct {
		query    string
		wantType string
	}{
		{`*[_type == "page"]`, "page"},
		{`  * [ _type == 'post' ] `, "post"},
		{`*[_type == "page"]{title}`, ""},
		{`*[_id == "doc-1"]`, ""},
	}
	for _, tc := range cases {
		m := typeQueryRe.FindStringSubmatch(tc.query)
		if tc.wantType == "" {
			assert.Nil(t, m, "query %q should not match", tc.query)
			continue
		}
		require.NotNil(t, m, "query %q should match", tc.query)
		assert.Equal(t, tc.wantType, m[1])
	}
}
