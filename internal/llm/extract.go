package llm

import (
	"triage/pkg/schema"
)

// ExtractObject returns the first balanced top-level JSON object in text.
// Surrounding prose and markdown fences are ignored. Only the first candidate
// is decoded; if it is not valid JSON the result is a parse error.
func ExtractObject(text string) (schema.Object, error) {
	candidate, ok := firstJSONObject(text)
	if !ok {
		return nil, NewParseError(text, "no JSON object found", nil)
	}

	obj, err := schema.DecodeObject([]byte(candidate))
	if err != nil {
		return nil, NewParseError(text, "invalid JSON object", err)
	}

	return obj, nil
}

// firstJSONObject scans for the first balanced {...} span, skipping braces
// inside string literals. Iterating bytes is safe for the ASCII delimiters
// because UTF-8 continuation bytes never collide with them.
func firstJSONObject(s string) (string, bool) {
	depth := 0
	start := -1
	inString := false
	escape := false

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

		switch b {
		case '"':
			// Quotes only matter once an object has opened; a stray quote in
			// leading prose must not hide the object that follows.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
