package engine

import (
	"strings"

	"github.com/jaalnet/jaal/pkg/patterns"
)

// ============================================================================
// RESPONSE SELECTION ENGINE
// ============================================================================
// Maps message intent + phase to a reply. Intent is resolved by a fixed
// priority cascade; the chosen pool is walked deterministically (rotated by
// turn count) so repeated turns cycle templates instead of repeating them.
// Every emitted reply survives the safety filter and ends with exactly one
// terminal question mark.

// ResponderConfig carries the policy parameters of the selection engine.
type ResponderConfig struct {
	// Language-matching thresholds. Empirically tuned in the field, kept
	// as policy parameters rather than constants.
	HinglishDensity   float64
	HinglishMinTokens int

	// ReplyMemory bounds the anti-repetition window.
	ReplyMemory int
}

// DefaultResponderConfig returns the tuned defaults.
func DefaultResponderConfig() ResponderConfig {
	return ResponderConfig{
		HinglishDensity:   0.25,
		HinglishMinTokens: 3,
		ReplyMemory:       20,
	}
}

// SelectedReply is the responder's decision for one turn.
type SelectedReply struct {
	Text     string
	Intent   patterns.Intent
	Language Language
	Stalling bool // drawn from a stall/fallback pool
	Fallback bool // safety-rejected or pool-exhausted substitution
}

// Responder selects replies from the template packs.
type Responder struct {
	cfg      ResponderConfig
	english  *TemplatePack
	hinglish *TemplatePack
}

// NewResponder builds a responder with the compiled-in packs, applying an
// optional YAML overlay to the English pack.
func NewResponder(cfg ResponderConfig, overlay *TemplatePack) *Responder {
	english := DefaultEnglishPack()
	hinglish := DefaultHinglishPack()
	english.Merge(overlay)
	return &Responder{
		cfg:      cfg,
		english:  english,
		hinglish: hinglish,
	}
}

// Memory returns the anti-repetition window size.
func (r *Responder) Memory() int {
	return r.cfg.ReplyMemory
}

// ResolveIntent walks the priority cascade; first match wins.
func ResolveIntent(text string) patterns.Intent {
	lower := strings.ToLower(text)
	for _, entry := range patterns.IntentCascade() {
		if !entry.Regex.MatchString(lower) {
			continue
		}
		if entry.Require != nil && !entry.Require.MatchString(lower) {
			continue
		}
		return entry.Intent
	}
	return patterns.IntentNone
}

// Select picks the reply for the current turn. current carries identifiers
// found in the counterpart's current message for placeholder interpolation;
// phase is the phase the session is entering.
func (r *Responder) Select(text string, phase Phase, sess *Session, current []Identifier) SelectedReply {
	lang := DetectLanguage(text, r.cfg.HinglishMinTokens, r.cfg.HinglishDensity)
	pack := r.english
	if lang == LangHinglish {
		pack = r.hinglish
	}

	intent := ResolveIntent(text)
	values := placeholderValues(current)

	sel := SelectedReply{Intent: intent, Language: lang}

	pool, stalling := r.pool(pack, intent, phase, sess.TurnCount)
	sel.Stalling = stalling

	reply, ok := r.pick(pool, pack.Variations, values, sess)
	if !ok {
		// NoTemplateAvailable: fall through to the generic clarification
		// pool rather than raising.
		reply, ok = r.pick(pack.Clarify, pack.Variations, values, sess)
		sel.Stalling = true
		sel.Fallback = true
	}
	if !ok {
		reply = pack.Clarify[0]
	}

	if r.unsafe(reply) {
		reply, ok = r.pick(pack.Apologetic, pack.Variations, values, sess)
		if !ok {
			reply = pack.Apologetic[0]
		}
		sel.Fallback = true
	}

	sel.Text = ensureQuestion(reply)
	return sel
}

// pool resolves which template list serves this turn. Intent pools win;
// otherwise the phase default; otherwise the depth-bucketed stall pools.
func (r *Responder) pool(pack *TemplatePack, intent patterns.Intent, phase Phase, turn int) ([]string, bool) {
	if intent != patterns.IntentNone {
		if pool := pack.Intent[intent]; len(pool) > 0 {
			return pool, false
		}
	}
	if pool := pack.Phase[phase]; len(pool) > 0 {
		return pool, true
	}
	switch {
	case turn <= 1:
		return pack.FallbackEarly, true
	case turn <= 4:
		return pack.FallbackMid, true
	default:
		return pack.FallbackLate, true
	}
}

// pick walks the pool starting at an offset rotated by turn count, skipping
// templates whose placeholders cannot be filled and replies already emitted
// in the memory window. When the whole pool is spent it retries with the
// pack's mechanical variation prefixes before giving up.
func (r *Responder) pick(pool, prefixes []string, values map[string]string, sess *Session) (string, bool) {
	if len(pool) == 0 {
		return "", false
	}

	offset := sess.TurnCount % len(pool)
	for i := 0; i < len(pool); i++ {
		tmpl := pool[(offset+i)%len(pool)]
		reply, ok := fillPlaceholders(tmpl, values)
		if !ok {
			continue
		}
		if !r.repeated(reply, sess) {
			return reply, true
		}
	}

	// Every fillable template was already used; vary mechanically.
	for _, prefix := range prefixes {
		for i := 0; i < len(pool); i++ {
			tmpl := pool[(offset+i)%len(pool)]
			reply, ok := fillPlaceholders(tmpl, values)
			if !ok {
				continue
			}
			varied := prefix + lowerFirst(reply)
			if !r.repeated(varied, sess) {
				return varied, true
			}
		}
	}

	return "", false
}

func (r *Responder) repeated(reply string, sess *Session) bool {
	for _, prev := range sess.ReplyHistory {
		if prev == reply {
			return true
		}
	}
	return false
}

func (r *Responder) unsafe(reply string) bool {
	for _, re := range patterns.ForbiddenReplyPatterns() {
		if re.MatchString(reply) {
			return true
		}
	}
	return false
}

// placeholderValues maps template placeholders to identifier values from the
// current message. First value per type wins.
func placeholderValues(current []Identifier) map[string]string {
	values := make(map[string]string)
	set := func(key, v string) {
		if _, ok := values[key]; !ok {
			values[key] = v
		}
	}
	for _, id := range current {
		switch id.Type {
		case patterns.IDPhone:
			set("phone", id.Value)
		case patterns.IDUPI:
			set("upi", id.Value)
		case patterns.IDBankAccount:
			set("account", id.Value)
		case patterns.IDURL:
			set("url", id.Value)
		case patterns.IDEmail:
			set("email", id.Value)
		case patterns.IDPersonName:
			set("name", id.Value)
		}
	}
	return values
}

// fillPlaceholders substitutes {name}-style placeholders. A template whose
// placeholder has no value is rejected, not emitted half-filled.
func fillPlaceholders(tmpl string, values map[string]string) (string, bool) {
	if !strings.Contains(tmpl, "{") {
		return tmpl, true
	}
	out := tmpl
	for {
		open := strings.Index(out, "{")
		if open < 0 {
			return out, true
		}
		closing := strings.Index(out[open:], "}")
		if closing < 0 {
			return out, true
		}
		key := out[open+1 : open+closing]
		value, ok := values[key]
		if !ok {
			return "", false
		}
		out = out[:open] + value + out[open+closing+1:]
	}
}

// ensureQuestion enforces the always-ask-one-question invariant: the reply
// ends with exactly one question mark.
func ensureQuestion(reply string) string {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimRight(reply, "?!. ")
	return reply + "?"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
