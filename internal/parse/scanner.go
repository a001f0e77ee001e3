package parse

// findJSONCandidates scans s for top-level JSON object candidates. Fence
// bodies produced by models sometimes carry prose before or after the
// object ("Here is the action: { ... }"); this trims extraction to the
// balanced-brace spans.
//
// It handles nested braces and string escaping with a byte-level state
// machine. Iterating bytes is safe for the ASCII delimiters involved
// because UTF-8 never embeds ASCII bytes inside multi-byte sequences.
func findJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	start := -1
	var inString, escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		if b == '"' {
			inString = true
			continue
		}

		if b == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if b == '}' {
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}
