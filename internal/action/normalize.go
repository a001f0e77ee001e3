package action

import (
	"contentpilot/internal/logging"

	"go.uber.org/zap"
)

// Normalize is the action grammar and validator. It takes an arbitrary
// decoded JSON object and either produces a fully formed Action with
// status pending, or (nil, false).
//
// Malformed input is a normal, expected case: models misnest payloads,
// rename fields, and invent kinds. Nothing here returns an error or
// panics; rejected objects are logged and dropped.
func Normalize(obj map[string]any) (*Action, bool) {
	if obj == nil {
		return nil, false
	}

	kind, ok := kindOf(obj)
	if !ok {
		logging.L(logging.CategoryAction).Debug("rejected action object",
			zap.Any("type", obj["type"]))
		return nil, false
	}

	// Models inconsistently nest: payload fields may live in a "payload"
	// object or directly on the action object. Prefer the nested form.
	src := obj
	if nested, ok := obj["payload"].(map[string]any); ok {
		src = nested
	}

	desc := stringField(obj, "description")
	if desc == "" {
		desc = stringField(src, "description")
	}
	if desc == "" {
		desc = defaultDescriptions[kind]
	}

	a := &Action{
		ID:          NewID(),
		Kind:        kind,
		Description: desc,
		Status:      StatusPending,
		Payload: Payload{
			DocumentType: stringField(src, "documentType", "document_type", "docType"),
			DocumentID:   stringField(src, "documentId", "document_id", "id"),
			Fields:       mapField(src, "fields", "data"),
			Query:        stringField(src, "query", "groq"),
			Path:         stringField(src, "path", "url"),
			Explanation:  stringField(src, "explanation"),
		},
	}
	return a, true
}

// kindOf reads the kind from "type" (the wire name) or "kind" and checks
// it against the closed set.
func kindOf(obj map[string]any) (Kind, bool) {
	for _, key := range []string{"type", "kind"} {
		if s, ok := obj[key].(string); ok {
			k := Kind(s)
			if knownKinds[k] {
				return k, true
			}
			return "", false
		}
	}
	return "", false
}

// stringField returns the first present string value among the aliased keys.
func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// mapField returns the first present object value among the aliased keys.
func mapField(obj map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if m, ok := obj[key].(map[string]any); ok {
			return m
		}
	}
	return nil
}
