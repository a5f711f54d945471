package engine

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/jaalnet/jaal/pkg/patterns"
)

// ============================================================================
// INTELLIGENCE EXTRACTOR
// ============================================================================
// Scans message text for typed identifiers using the shared pattern table,
// normalizes values, and deduplicates against the session's accumulated set.
// RE2 has no lookarounds, so the contextual exclusions the patterns cannot
// express (digit runs, currency prefixes, dotted UPI domains) are applied
// here as post-match predicates.

// Extractor produces typed, deduplicated identifiers.
type Extractor struct {
	pats   []*patterns.IdentifierPattern
	folder cases.Caser
}

// NewExtractor returns an extractor bound to the shared identifier table.
func NewExtractor() *Extractor {
	return &Extractor{
		pats:   patterns.IdentifierPatterns(),
		folder: cases.Fold(),
	}
}

// Extract scans text, stores new identifiers into the session set, and
// returns only the identifiers added by this call. Already-seen values are
// filtered out, not duplicated. Malformed or empty input yields an empty
// list, never an error.
func (e *Extractor) Extract(text string, sess *Session) []Identifier {
	var added []Identifier
	for _, id := range e.Scan(text) {
		if sess.AddIdentifier(id) {
			added = append(added, id)
		}
	}
	return added
}

// ExtractFromHistory replays extraction over prior scammer messages, for
// stateless-recovery scenarios where the session set was lost.
func (e *Extractor) ExtractFromHistory(messages []Message, sess *Session) []Identifier {
	var added []Identifier
	for _, m := range messages {
		if m.Role != RoleScammer {
			continue
		}
		added = append(added, e.Extract(m.Text, sess)...)
	}
	return added
}

// Scan extracts every identifier present in text without touching session
// state. The responder uses this to interpolate values the counterpart just
// sent, duplicates included.
func (e *Extractor) Scan(text string) []Identifier {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []Identifier
	seen := make(map[string]bool)         // type:value dedup within this scan
	phoneDigits := make(map[string]bool)  // guards phone/account collisions
	emailSpans := make([][2]int, 0, 2)    // guards email/UPI collisions

	for _, p := range e.pats {
		locs := p.Regex.FindAllStringSubmatchIndex(text, -1)
		for _, loc := range locs {
			start, end := loc[2*p.Group], loc[2*p.Group+1]
			if start < 0 {
				continue
			}
			raw := text[start:end]

			if p.NeedsDigit && !containsDigit(raw) {
				continue
			}

			value, ok := e.normalize(p.Type, raw, text, start, end, phoneDigits, emailSpans)
			if !ok {
				continue
			}

			if p.Type == patterns.IDEmail {
				emailSpans = append(emailSpans, [2]int{loc[0], loc[1]})
			}
			if p.Type == patterns.IDPhone {
				phoneDigits[digitsOf(value)] = true
			}

			key := string(p.Type) + ":" + value
			if seen[key] {
				continue
			}
			seen[key] = true

			out = append(out, Identifier{Type: p.Type, Value: value, Confidence: p.Confidence})
		}
	}
	return out
}

// normalize applies per-type normalization and the contextual exclusion
// predicates. ok=false rejects the candidate.
func (e *Extractor) normalize(t patterns.IdentifierType, raw, text string, start, end int, phoneDigits map[string]bool, emailSpans [][2]int) (string, bool) {
	switch t {
	case patterns.IDPhone:
		return normalizePhone(raw, text, start, end)

	case patterns.IDBankAccount:
		digits := digitsOf(raw)
		if len(digits) < 11 || len(digits) > 18 {
			return "", false
		}
		// A known phone's digits are never an account.
		if phoneDigits[digits] || phoneDigits[strings.TrimPrefix(digits, "91")] {
			return "", false
		}
		// Currency context means this is an amount, not an account.
		if patterns.AmountContext.MatchString(text[max(0, start-12):start]) {
			return "", false
		}
		if embeddedInDigitRun(text, start, end) {
			return "", false
		}
		return digits, true

	case patterns.IDUPI:
		value := e.folder.String(raw)
		at := strings.LastIndex(value, "@")
		if at <= 0 {
			return "", false
		}
		// A dotted domain is an email, not a UPI handle.
		if strings.Contains(value[at+1:], ".") {
			return "", false
		}
		// Reject spans inside an already-matched email.
		for _, span := range emailSpans {
			if start >= span[0] && end <= span[1] {
				return "", false
			}
		}
		return value, true

	case patterns.IDEmail:
		return e.folder.String(raw), true

	case patterns.IDAadhaar:
		return digitsOf(raw), true

	case patterns.IDURL:
		return strings.TrimRight(raw, ".,;:!?"), true

	case patterns.IDIFSC, patterns.IDPAN:
		return strings.ToUpper(raw), true

	case patterns.IDCaseID, patterns.IDPolicyNumber, patterns.IDOrderNumber, patterns.IDOtherID:
		return strings.ToUpper(strings.TrimSpace(raw)), true

	default:
		return strings.TrimSpace(raw), true
	}
}

// normalizePhone strips separators and treats +91/0091/0-prefixed numbers as
// equal to the bare 10-digit form. Spans embedded in longer digit runs are
// rejected.
func normalizePhone(raw, text string, start, end int) (string, bool) {
	if embeddedInDigitRun(text, start, end) {
		return "", false
	}
	digits := digitsOf(raw)
	switch {
	case len(digits) == 10:
	case len(digits) == 11 && digits[0] == '0':
		digits = digits[1:]
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 14 && strings.HasPrefix(digits, "0091"):
		digits = digits[4:]
	default:
		return "", false
	}
	if digits[0] < '6' || digits[0] > '9' {
		return "", false
	}
	return digits, true
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func embeddedInDigitRun(text string, start, end int) bool {
	if start > 0 && text[start-1] >= '0' && text[start-1] <= '9' {
		return true
	}
	if end < len(text) && text[end] >= '0' && text[end] <= '9' {
		return true
	}
	return false
}
