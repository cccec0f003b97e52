package artifact

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/git-iris/gitiris/internal/girerr"
)

// maxParseErrorSample bounds how much of the raw text a ParseError's sample
// carries, per spec.md §4.6 step 5 ("a prefix of the raw text").
const maxParseErrorSample = 500

// Parse runs the five-step coercion ladder from spec.md §4.6 against raw,
// unmarshaling the first successful candidate into a value of type out
// (a pointer) and, when schema is non-nil, validating it against schema
// before accepting the result (§4.6 / artifact JSON-Schema validation).
// Stops at the first candidate that both unmarshals and validates.
func Parse(raw string, out any, schema map[string]any) error {
	var compiled *jsonschema.Schema
	if schema != nil {
		c, err := compileSchema(schema)
		if err != nil {
			return girerr.New(girerr.KindConfiguration, "artifact.Parse", "invalid response schema", err)
		}
		compiled = c
	}

	for _, candidate := range candidates(raw) {
		if tryDecode(candidate, out, compiled) {
			return nil
		}
	}
	return girerr.New(girerr.KindParse, "artifact.Parse", "no candidate parsed under any coercion strategy", nil).
		WithHint(sample(raw))
}

// candidates produces, in order, the raw text and each progressively more
// aggressive extraction from spec.md §4.6 steps 1-4. Candidates beyond the
// first are only included when they differ from the previous stage's
// output, since strategies often agree on well-formed input.
func candidates(raw string) []string {
	out := []string{raw}

	fenceStripped := stripCodeFence(raw)
	if fenceStripped != raw {
		out = append(out, fenceStripped)
	}

	widest := widestBraces(fenceStripped)
	if widest != "" && widest != fenceStripped {
		out = append(out, widest)
	}

	repaired := repairTruncatedJSON(fenceStripped)
	if repaired != "" && repaired != widest {
		out = append(out, repaired)
	}

	return out
}

func tryDecode(candidate string, out any, schema *jsonschema.Schema) bool {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return false
	}
	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return false
	}
	if schema == nil {
		return true
	}
	var doc any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return false
	}
	return schema.Validate(doc) == nil
}

// stripCodeFence removes a single surrounding ```json ... ``` or ``` ... ```
// markdown fence, per spec.md §4.6 step 2.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// widestBraces extracts the substring from the first '{' to the last '}',
// per spec.md §4.6 step 3.
func widestBraces(s string) string {
	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first < 0 || last < 0 || last < first {
		return ""
	}
	return s[first : last+1]
}

// repairTruncatedJSON scans from the first '{', tracking brace depth, and
// returns the substring up to the point depth first returns to zero — the
// balance-tracker from spec.md §4.6 step 4. Returns "" if no balanced
// object is found (the model's JSON was cut off mid-object).
func repairTruncatedJSON(s string) string {
	first := strings.IndexByte(s, '{')
	if first < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := first; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[first : i+1]
			}
		}
	}
	return ""
}

func sample(raw string) string {
	if len(raw) <= maxParseErrorSample {
		return raw
	}
	return raw[:maxParseErrorSample] + "…"
}

func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("response.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("response.json")
}
