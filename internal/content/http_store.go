package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contentpilot/internal/logging"

	"go.uber.org/zap"
)

// HTTPStore talks to a hosted content store over its JSON HTTP API
// (document endpoint, mutation endpoint, query endpoint, asset upload).
type HTTPStore struct {
	baseURL    string
	dataset    string
	token      string
	httpClient *http.Client
}

// HTTPStoreConfig holds configuration for the HTTP backend.
type HTTPStoreConfig struct {
	BaseURL string
	Dataset string
	Token   string
	Timeout time.Duration
}

// NewHTTPStore creates an HTTP-backed store.
func NewHTTPStore(cfg HTTPStoreConfig) (*HTTPStore, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("content store base URL is required")
	}
	if cfg.Dataset == "" {
		cfg.Dataset = "production"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		dataset: cfg.Dataset,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// mutation is one entry of a mutation request.
type mutation struct {
	Create *Document      `json:"create,omitempty"`
	Patch  *mutationPatch `json:"patch,omitempty"`
	Delete *mutationRef   `json:"delete,omitempty"`
}

type mutationPatch struct {
	ID  string         `json:"id"`
	Set map[string]any `json:"set"`
}

type mutationRef struct {
	ID string `json:"id"`
}

// Get fetches one document by ID.
func (s *HTTPStore) Get(ctx context.Context, id string) (*Document, error) {
	var out struct {
		Documents []Document `json:"documents"`
	}
	path := fmt.Sprintf("/data/doc/%s/%s", s.dataset, url.PathEscape(id))
	if err := s.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Documents) == 0 {
		return nil, ErrNotFound
	}
	return &out.Documents[0], nil
}

// Create stores a new document.
func (s *HTTPStore) Create(ctx context.Context, doc *Document) (*Document, error) {
	var out struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := s.mutate(ctx, []mutation{{Create: doc}}, &out); err != nil {
		return nil, err
	}
	if len(out.Results) > 0 && out.Results[0].ID != "" {
		return s.Get(ctx, out.Results[0].ID)
	}
	return doc, nil
}

// Patch merges fields into an existing document.
func (s *HTTPStore) Patch(ctx context.Context, id string, set map[string]any) (*Document, error) {
	if err := s.mutate(ctx, []mutation{{Patch: &mutationPatch{ID: id, Set: set}}}, nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a document.
func (s *HTTPStore) Delete(ctx context.Context, id string) error {
	var out struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := s.mutate(ctx, []mutation{{Delete: &mutationRef{ID: id}}}, &out); err != nil {
		return err
	}
	if len(out.Results) == 0 {
		return ErrNotFound
	}
	return nil
}

// Query runs a content query string.
func (s *HTTPStore) Query(ctx context.Context, query string) ([]Document, error) {
	var out struct {
		Result []Document `json:"result"`
	}
	path := fmt.Sprintf("/data/query/%s?query=%s", s.dataset, url.QueryEscape(query))
	if err := s.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Upload stores an image asset and returns its reference.
func (s *HTTPStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	path := fmt.Sprintf("/assets/images/%s?filename=%s", s.dataset, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Document struct {
			ID string `json:"_id"`
		} `json:"document"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	return out.Document.ID, nil
}

// Close releases the backend. The HTTP client holds no resources.
func (s *HTTPStore) Close() error { return nil }

func (s *HTTPStore) mutate(ctx context.Context, muts []mutation, out any) error {
	body := map[string]any{"mutations": muts}
	return s.do(ctx, "POST", "/data/mutate/"+s.dataset, body, out)
}

func (s *HTTPStore) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		logging.L(logging.CategoryStore).Warn("store request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("store request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (s *HTTPStore) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}
