// Package parse extracts typed actions from free-form model output.
//
// The input is generative-model text, not a designed protocol, so the
// scanner is regex-based and the JSON handling is tolerant by design. One
// malformed block never aborts extraction of its siblings.
package parse

import (
	"regexp"
	"strings"

	"contentpilot/internal/action"
	"contentpilot/internal/logging"

	"go.uber.org/zap"
)

var (
	// fenceRe matches ```action and ```json blocks. A single pattern over
	// both tags keeps actions in document order when the two interleave.
	fenceRe = regexp.MustCompile("(?s)```(action|json)[ \t]*\r?\n(.*?)```")

	// legacyActionRe matches the bracket-tagged action format some older
	// prompts taught the model. Stripped from display text, never parsed.
	legacyActionRe = regexp.MustCompile(`(?s)\[ACTION\].*?\[/ACTION\]`)

	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// Result is the parser output: the validated actions in source order and
// the text the user should actually see.
type Result struct {
	Actions     []action.Action
	DisplayText string
}

// Parse scans a complete model response for embedded action blocks.
//
// Blocks tagged "action" become candidate actions directly. Blocks tagged
// "json" are only considered when they carry a type/kind member, since
// models also emit unrelated example payloads in json fences. Every
// candidate goes through action.Normalize; rejects are logged and dropped.
func Parse(text string) Result {
	log := logging.L(logging.CategoryParse)

	var actions []action.Action
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		tag, body := m[1], m[2]

		obj, state := tolerantParse(body)
		if state == blockDiscarded {
			log.Debug("discarded unparseable block",
				zap.String("tag", tag),
				zap.Int("len", len(body)))
			continue
		}
		if state == blockRepaired {
			log.Debug("repaired malformed block", zap.String("tag", tag))
		}

		if tag == "json" && !hasKindMember(obj) {
			continue
		}

		a, ok := action.Normalize(obj)
		if !ok {
			log.Debug("block failed action grammar", zap.String("tag", tag))
			continue
		}
		actions = append(actions, *a)
	}

	return Result{
		Actions:     actions,
		DisplayText: CleanDisplayText(text),
	}
}

// CleanDisplayText removes every recognized action/json fence and legacy
// bracket span, then collapses runs of blank lines and trims. Idempotent:
// cleaning already-clean text returns it unchanged.
func CleanDisplayText(text string) string {
	text = fenceRe.ReplaceAllString(text, "")
	text = legacyActionRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func hasKindMember(obj map[string]any) bool {
	if _, ok := obj["type"]; ok {
		return true
	}
	_, ok := obj["kind"]
	return ok
}
