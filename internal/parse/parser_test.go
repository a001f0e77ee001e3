package parse

import (
	"strings"
	"testing"

	"contentpilot/internal/action"
)

func TestParse_NoBlocks(t *testing.T) {
	text := "  Just a plain answer with no structure.\n"
	res := Parse(text)
	if len(res.Actions) != 0 {
		t.Fatalf("Actions = %d, want 0", len(res.Actions))
	}
	if res.DisplayText != strings.TrimSpace(text) {
		t.Fatalf("DisplayText = %q, want trimmed input", res.DisplayText)
	}
}

func TestParse_SingleActionBlock(t *testing.T) {
	text := "Here is your page.\n```action\n{\"type\":\"create\",\"documentType\":\"page\",\"description\":\"Create About page\"}\n```\nLet me know if you want changes."

	res := Parse(text)
	if len(res.Actions) != 1 {
		t.Fatalf("Actions = %d, want 1", len(res.Actions))
	}
	a := res.Actions[0]
	if a.Kind != action.KindCreate {
		t.Errorf("Kind = %q, want create", a.Kind)
	}
	if a.Status != action.StatusPending {
		t.Errorf("Status = %q, want pending", a.Status)
	}
	if a.ID == "" {
		t.Error("ID is empty")
	}
	if a.Payload.DocumentType != "page" {
		t.Errorf("DocumentType = %q, want page", a.Payload.DocumentType)
	}
	want := "Here is your page.\n\nLet me know if you want changes."
	if res.DisplayText != want {
		t.Fatalf("DisplayText = %q, want %q", res.DisplayText, want)
	}
}

func TestParse_UnknownKindDropped(t *testing.T) {
	text := "```action\n{\"type\":\"formatDisk\"}\n```"
	res := Parse(text)
	if len(res.Actions) != 0 {
		t.Fatalf("Actions = %d, want 0", len(res.Actions))
	}
}

func TestParse_MalformedBlockDoesNotSuppressLater(t *testing.T) {
	text := "```action\n{\"type\": \"create\", \"fields\": {unclosed\n```\n" +
		"```action\n{\"type\":\"delete\",\"documentId\":\"doc-1\"}\n```"

	res := Parse(text)
	if len(res.Actions) != 1 {
		t.Fatalf("Actions = %d, want 1", len(res.Actions))
	}
	if res.Actions[0].Kind != action.KindDelete {
		t.Fatalf("Kind = %q, want delete", res.Actions[0].Kind)
	}
}

func TestParse_JSONBlockRequiresKind(t *testing.T) {
	// A json fence without a type member is an example payload, not an action.
	text := "```json\n{\"title\":\"About\",\"slug\":\"about\"}\n```\n" +
		"```json\n{\"type\":\"navigate\",\"path\":\"/about\"}\n```"

	res := Parse(text)
	if len(res.Actions) != 1 {
		t.Fatalf("Actions = %d, want 1", len(res.Actions))
	}
	if res.Actions[0].Kind != action.KindNavigate {
		t.Fatalf("Kind = %q, want navigate", res.Actions[0].Kind)
	}
	if res.Actions[0].Payload.Path != "/about" {
		t.Fatalf("Path = %q, want /about", res.Actions[0].Payload.Path)
	}
}

func TestParse_RepairsTrailingCommaAndBareKeys(t *testing.T) {
	text := "```action\n{type: \"update\", documentId: \"doc-2\", fields: {\"title\": \"New\",},}\n```"

	res := Parse(text)
	if len(res.Actions) != 1 {
		t.Fatalf("Actions = %d, want 1", len(res.Actions))
	}
	a := res.Actions[0]
	if a.Kind != action.KindUpdate {
		t.Fatalf("Kind = %q, want update", a.Kind)
	}
	if a.Payload.DocumentID != "doc-2" {
		t.Fatalf("DocumentID = %q, want doc-2", a.Payload.DocumentID)
	}
	if a.Payload.Fields["title"] != "New" {
		t.Fatalf("Fields[title] = %v, want New", a.Payload.Fields["title"])
	}
}

func TestParse_ProseInsideFence(t *testing.T) {
	text := "```action\nHere is the action you asked for:\n{\"type\":\"explain\",\"explanation\":\"Pages hold sections.\"}\n```"

	res := Parse(text)
	if len(res.Actions) != 1 {
		t.Fatalf("Actions = %d, want 1", len(res.Actions))
	}
	if res.Actions[0].Payload.Explanation != "Pages hold sections." {
		t.Fatalf("Explanation = %q", res.Actions[0].Payload.Explanation)
	}
}

func TestParse_DocumentOrderAcrossTags(t *testing.T) {
	text := "```json\n{\"type\":\"query\",\"query\":\"*[_type=='page']\"}\n```\n" +
		"middle\n" +
		"```action\n{\"type\":\"create\",\"documentType\":\"post\"}\n```\n" +
		"```json\n{\"type\":\"navigate\",\"path\":\"/\"}\n```"

	res := Parse(text)
	if len(res.Actions) != 3 {
		t.Fatalf("Actions = %d, want 3", len(res.Actions))
	}
	wantKinds := []action.Kind{action.KindQuery, action.KindCreate, action.KindNavigate}
	for i, k := range wantKinds {
		if res.Actions[i].Kind != k {
			t.Errorf("Actions[%d].Kind = %q, want %q", i, res.Actions[i].Kind, k)
		}
	}
}

func TestCleanDisplayText_StripsLegacyFormat(t *testing.T) {
	text := "Before\n[ACTION] {\"type\":\"create\"} [/ACTION]\nAfter"
	got := CleanDisplayText(text)
	if strings.Contains(got, "ACTION") {
		t.Fatalf("legacy span not stripped: %q", got)
	}
}

func TestCleanDisplayText_Idempotent(t *testing.T) {
	raw := "Intro\n\n\n\n```action\n{\"type\":\"create\"}\n```\n\n\n\nOutro\n"
	once := CleanDisplayText(raw)
	twice := CleanDisplayText(once)
	if once != twice {
		t.Fatalf("cleaning is not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
	if strings.Contains(once, "\n\n\n") {
		t.Fatalf("blank lines not collapsed: %q", once)
	}
}

func TestFindJSONCandidates_NestedAndStrings(t *testing.T) {
	s := `noise {"a": {"b": "br}ace"}, "c": [1, 2]} trailing {"d": 1}`
	got := findJSONCandidates(s)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0] != `{"a": {"b": "br}ace"}, "c": [1, 2]}` {
		t.Fatalf("candidate[0] = %q", got[0])
	}
}
