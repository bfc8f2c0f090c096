// Package repair recovers structured domain assessments from malformed
// LLM completions. The remote model is asked for JSON inside a markdown
// fence but routinely returns truncated, mis-escaped, or otherwise broken
// text; the engine applies a small set of rewrite rules keyed on the
// exact parse-error class and gives up rather than guess, so a returned
// assessment never contains a value that was not present in the source.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/leeaandrob/marketlens/internal/jsonutil"
	"github.com/leeaandrob/marketlens/internal/models"
	"github.com/rs/zerolog/log"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n```")

// errorClass identifies the parse-error categories the engine knows how
// to rewrite. Anything else is unrecoverable on purpose.
type errorClass int

const (
	classUnknown errorClass = iota
	classMissingComma
	classMissingColon
	classUnterminatedString
)

// Repair extracts a DomainAssessment from a raw completion. A nil
// assessment with a non-nil error means the content was unrecoverable;
// callers record the reason and move on.
func Repair(raw string) (*models.DomainAssessment, error) {
	candidate := extractEnvelope(raw)
	if candidate == "" {
		return nil, errors.New("empty completion content")
	}

	candidate = normalize(candidate)

	doc, err := parse(candidate)
	if err != nil {
		repaired, ok := rewrite(candidate, err)
		if !ok {
			return nil, fmt.Errorf("unrecognized parse error: %w", err)
		}

		doc, err = parse(repaired)
		if err != nil {
			return nil, fmt.Errorf("parse failed after structural repair: %w", err)
		}
		candidate = repaired
	}

	for _, key := range models.RequiredDomainKeys {
		if jsonutil.GetMap(doc, key) == nil {
			return nil, fmt.Errorf("assessment missing required key %q", key)
		}
	}

	var assessment models.DomainAssessment
	if err := json.Unmarshal([]byte(candidate), &assessment); err != nil {
		return nil, fmt.Errorf("assessment has malformed domain values: %w", err)
	}
	if !assessment.Complete() {
		return nil, errors.New("assessment missing domain verdicts")
	}

	return &assessment, nil
}

// extractEnvelope takes the interior of a ```json fence when present,
// otherwise the whole text.
func extractEnvelope(raw string) string {
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}

	// Completions are often truncated before the closing fence.
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "```json"); idx != -1 {
		raw = raw[idx+len("```json"):]
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

// normalize applies lexical fixes observed across captured completions:
// a transposed field name the upstream model produces, literal and
// escaped newlines, doubled and double-escaped quotes, and stray
// non-ASCII bytes. Order matters; it mirrors how the corpus was repaired.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "reascoreoning", "reasoning")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, `\n`, "")
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `""`, `"`)
	s = strings.TrimSpace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parse(candidate string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// classify maps a json parse error onto a known rewrite class. Only
// *json.SyntaxError carries enough information to act on.
func classify(err error) errorClass {
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return classUnknown
	}

	msg := syntaxErr.Error()
	switch {
	case strings.Contains(msg, "after object key:value pair"),
		strings.Contains(msg, "after top-level value"),
		strings.Contains(msg, "after array element"):
		return classMissingComma
	case strings.Contains(msg, "after object key"):
		return classMissingColon
	case strings.Contains(msg, "unexpected end of JSON input"):
		return classUnterminatedString
	}
	return classUnknown
}

// rewrite applies the single rule matching the reported error class.
// Returns false when the error is not one the engine recognizes.
func rewrite(candidate string, parseErr error) (string, bool) {
	class := classify(parseErr)

	switch class {
	case classMissingComma:
		log.Debug().Msg("Repairing missing separator between adjacent literals")
		candidate = strings.ReplaceAll(candidate, "} {", "}, {")
		candidate = strings.ReplaceAll(candidate, `" "`, `", "`)
		return candidate, true

	case classMissingColon:
		log.Debug().Msg("Repairing missing key separator")
		return insertMissingColons(candidate), true

	case classUnterminatedString:
		repaired, ok := closeUnterminatedString(candidate)
		if ok {
			log.Debug().Msg("Closing unterminated string literal")
		}
		return repaired, ok
	}

	return candidate, false
}

// insertMissingColons re-segments the candidate on quote boundaries and
// inserts a key separator wherever a quoted segment is followed directly
// by a value instead of ':', ',', '}' or ']'. Escaped quotes no longer
// exist at this point; normalize collapsed them.
func insertMissingColons(candidate string) string {
	parts := strings.Split(candidate, `"`)

	// parts alternates outside/inside string content; odd indices are the
	// interiors of string literals.
	for i := 1; i+1 < len(parts); i += 2 {
		next := strings.TrimSpace(parts[i+1])
		if strings.HasPrefix(next, ":") || strings.HasPrefix(next, ",") ||
			strings.HasPrefix(next, "}") || strings.HasPrefix(next, "]") {
			continue
		}
		parts[i+1] = ":" + parts[i+1]
	}
	return strings.Join(parts, `"`)
}

// closeUnterminatedString appends the missing closing quote when the
// candidate ends inside a string literal that was opened immediately
// after a key separator. Truncations elsewhere (a missing brace, a cut
// key) stay broken and fail the re-parse, which is the desired outcome.
func closeUnterminatedString(candidate string) (string, bool) {
	if strings.Count(candidate, `"`)%2 == 0 {
		return candidate, false
	}

	open := strings.LastIndex(candidate, `"`)
	if open <= 0 {
		return candidate, false
	}

	before := strings.TrimSpace(candidate[:open])
	if !strings.HasSuffix(before, ":") {
		return candidate, false
	}

	return candidate + `"`, true
}
