package parse

import (
	"encoding/json"
	"regexp"
)

// Models produce almost-JSON often enough that dropping every malformed
// block would throw away real work. The repair set is deliberately small
// and textual: strip trailing commas, quote bare keys. Anything that still
// fails after one repaired retry is discarded.
var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// repairJSON applies the bounded repair set to a candidate JSON string.
func repairJSON(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2":`)
	return s
}

// blockState is the terminal state of one scanned block.
type blockState int

const (
	blockParsed blockState = iota
	blockRepaired
	blockDiscarded
)

// tolerantParse decodes one fence body into an object. It tries, in order:
// strict parse of the whole body, strict parse of the first balanced
// object inside the body, then a single repaired retry of that object.
func tolerantParse(body string) (map[string]any, blockState) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err == nil {
		return obj, blockParsed
	}

	candidate := body
	if cands := findJSONCandidates(body); len(cands) > 0 {
		candidate = cands[0]
		if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
			return obj, blockParsed
		}
	}

	if err := json.Unmarshal([]byte(repairJSON(candidate)), &obj); err == nil {
		return obj, blockRepaired
	}

	return nil, blockDiscarded
}
