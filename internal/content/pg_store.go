package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"contentpilot/internal/logging"
	"contentpilot/internal/reconcile"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PGStore is a Postgres-backed content store for self-hosted deployments.
// Documents live in one table with JSONB fields and sections; Patch bumps
// the revision so stale live views can be detected downstream.
type PGStore struct {
	pool *pgxpool.Pool
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	rev        BIGINT NOT NULL DEFAULT 1,
	fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
	sections   JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_type_idx ON documents (type);

CREATE TABLE IF NOT EXISTS assets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	data       BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// NewPGStore connects to Postgres and bootstraps the schema.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
	}
	logging.L(logging.CategoryStore).Info("postgres store ready")
	return &PGStore{pool: pool}, nil
}

// Get fetches one document by ID.
func (s *PGStore) Get(ctx context.Context, id string) (*Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, type, rev, fields, sections FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// Create stores a new document, assigning an ID when absent.
func (s *PGStore) Create(ctx context.Context, doc *Document) (*Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Type == "" {
		return nil, fmt.Errorf("document type is required")
	}

	fields, sections, err := marshalDoc(doc)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (id, type, fields, sections)
		VALUES ($1, $2, $3, $4)
		RETURNING id, type, rev, fields, sections`,
		doc.ID, doc.Type, fields, sections)
	return scanDocument(row)
}

// Patch merges fields into an existing document and bumps its revision.
// A "sections" key replaces the section list instead of merging fields.
func (s *PGStore) Patch(ctx context.Context, id string, set map[string]any) (*Document, error) {
	fieldsJSON, sectionsJSON, err := splitPatch(set)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE documents
		SET fields = fields || $2::jsonb,
		    sections = COALESCE($3::jsonb, sections),
		    rev = rev + 1,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, type, rev, fields, sections`,
		id, fieldsJSON, sectionsJSON)
	return scanDocument(row)
}

// Delete removes a document.
func (s *PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// typeQueryRe matches the supported query form: *[_type == "page"].
var typeQueryRe = regexp.MustCompile(`^\s*\*\s*\[\s*_type\s*==\s*["']([^"']+)["']\s*\]\s*$`)

// Query supports the type-filter query form the chat model is prompted to
// produce. Anything richer belongs to the hosted backend's query engine.
func (s *PGStore) Query(ctx context.Context, query string) ([]Document, error) {
	m := typeQueryRe.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("unsupported query for postgres backend: %q", query)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, type, rev, fields, sections FROM documents WHERE type = $1 ORDER BY updated_at DESC`,
		m[1])
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Upload stores an image asset and returns its reference.
func (s *PGStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	id := "image-" + uuid.NewString()
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO assets (id, name, data) VALUES ($1, $2, $3)`, id, name, data); err != nil {
		return "", fmt.Errorf("asset insert failed: %w", err)
	}
	logging.L(logging.CategoryStore).Debug("asset stored",
		zap.String("id", id), zap.Int("bytes", len(data)))
	return id, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

// splitPatch separates a "sections" replacement from the field merge. The
// caller's map is the action record's payload and stays untouched.
func splitPatch(set map[string]any) (fields, sections []byte, err error) {
	fieldSet := set
	if raw, ok := set["sections"]; ok {
		sections, err = json.Marshal(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal sections: %w", err)
		}
		fieldSet = make(map[string]any, len(set)-1)
		for k, v := range set {
			if k != "sections" {
				fieldSet[k] = v
			}
		}
	}
	if fieldSet == nil {
		fieldSet = map[string]any{}
	}
	fields, err = json.Marshal(fieldSet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal patch: %w", err)
	}
	return fields, sections, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc      Document
		fields   []byte
		sections []byte
	)
	if err := row.Scan(&doc.ID, &doc.Type, &doc.Rev, &fields, &sections); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &doc.Fields); err != nil {
			return nil, fmt.Errorf("corrupt fields for %s: %w", doc.ID, err)
		}
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &doc.Sections); err != nil {
			return nil, fmt.Errorf("corrupt sections for %s: %w", doc.ID, err)
		}
	}
	return &doc, nil
}

func marshalDoc(doc *Document) (fields, sections []byte, err error) {
	f := doc.Fields
	if f == nil {
		f = map[string]any{}
	}
	sec := doc.Sections
	if sec == nil {
		sec = []reconcile.Block{}
	}
	fields, err = json.Marshal(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal fields: %w", err)
	}
	sections, err = json.Marshal(sec)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal sections: %w", err)
	}
	return fields, sections, nil
}
