package engine

import (
	"strings"
	"unicode"

	"github.com/jaalnet/jaal/pkg/patterns"
)

// ============================================================================
// SCAM CONFIDENCE SCORER
// ============================================================================
// Weighted-regex scoring over the current message plus accumulated
// conversation evidence. Deterministic: identical text and history always
// produce identical output. Never fails - empty input scores as ambiguous.

// Urgency levels derived from urgency-signal density.
const (
	UrgencyNone     = "none"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// Evidence is one matched rule, kept for explainability.
type Evidence struct {
	Category string  `json:"category"`
	Pattern  string  `json:"pattern"`
	Weight   float64 `json:"weight"`
}

// ScoreResult is the scorer's verdict for one turn.
type ScoreResult struct {
	Confidence          float64    `json:"confidence"`
	IsScam              bool       `json:"is_scam"`
	ScamType            string     `json:"scam_type"`
	HasFinancialContext bool       `json:"has_financial_context"`
	HasDirectRequest    bool       `json:"has_direct_request"`
	UrgencyLevel        string     `json:"urgency_level"`
	Evidence            []Evidence `json:"evidence,omitempty"`

	// Raw component scores, exposed for the gateway's analysis block.
	ScamScore  float64 `json:"scam_score"`
	LegitScore float64 `json:"legit_score"`
}

// History-escalation bonuses. Two financial mentions inside the first five
// turns is the rapid-escalation signature of a scripted scam opening.
const (
	rapidEscalationBonus = 0.15
	urgencyDensityBonus  = 0.10
)

// Scorer evaluates scam likelihood using the shared pattern registry.
type Scorer struct {
	reg *patterns.Registry
}

// NewScorer returns a scorer bound to the global pattern registry.
func NewScorer() *Scorer {
	return &Scorer{reg: patterns.Get()}
}

// Score evaluates the current message against every scam-indicator and
// legitimate-chat rule, layers keyword and behavioral bonuses, and applies
// the conversation-history escalation heuristics. history holds the turns
// prior to text, oldest first.
func (sc *Scorer) Score(text string, history []Message) ScoreResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		// Ambiguous by design, not an error.
		return ScoreResult{Confidence: 0.5, ScamType: "unknown", UrgencyLevel: UrgencyNone}
	}

	lower := strings.ToLower(trimmed)

	var res ScoreResult

	// 1. Weighted scam-indicator rules. The highest-weight match's category
	// yields the provisional scam type.
	topWeight := 0.0
	topCategory := patterns.Category("")
	for _, m := range sc.reg.MatchAll(lower, patterns.ScamCategories...) {
		res.ScamScore += m.Weight
		res.Evidence = append(res.Evidence, Evidence{Category: string(m.Category), Pattern: m.Name, Weight: m.Weight})
		if m.Weight > topWeight {
			topWeight = m.Weight
			topCategory = m.Category
		}
	}

	// Flat keyword bonuses stack on top.
	for _, m := range sc.reg.MatchAll(lower, patterns.CategoryHighRiskKeyword, patterns.CategoryMediumRiskKeyword) {
		res.ScamScore += m.Weight
		res.Evidence = append(res.Evidence, Evidence{Category: string(m.Category), Pattern: m.Name, Weight: m.Weight})
	}

	// Behavioral signals.
	res.ScamScore += behavioralScore(trimmed)

	// 2. Legitimate-chat counter-signals.
	for _, m := range sc.reg.MatchAll(lower, patterns.CategoryLegitimate) {
		res.LegitScore += m.Weight
		res.Evidence = append(res.Evidence, Evidence{Category: string(m.Category), Pattern: m.Name, Weight: m.Weight})
	}

	// 3. History escalation heuristics over the last five scammer turns.
	if len(history) >= 2 {
		res.ScamScore += sc.historyBonus(history)
	}

	// 4. Normalize into [0,1].
	denom := res.ScamScore + res.LegitScore
	if denom < 1 {
		denom = 1
	}
	res.Confidence = clamp01(res.ScamScore / denom)

	// 5. Threshold cascade; evaluation order matters.
	switch {
	case res.ScamScore >= 0.7:
		res.IsScam = true
	case res.ScamScore >= 0.4 && res.LegitScore < 0.3:
		res.IsScam = true
	case res.LegitScore >= 0.5 && res.ScamScore < 0.3:
		res.IsScam = false
	default:
		res.IsScam = res.ScamScore > res.LegitScore
	}

	// 6. Boolean evidence flags, current message only.
	res.HasFinancialContext = sc.reg.MatchAny(lower, patterns.CategoryFinancialContext) != nil
	res.HasDirectRequest = sc.reg.MatchAny(lower, patterns.CategoryDirectRequest) != nil

	res.UrgencyLevel = urgencyLevel(sc.reg.CountMatches(lower, patterns.CategoryUrgency))
	res.ScamType = sc.classifyType(lower, topCategory)

	return res
}

// classifyType picks the scam type. The keyword classifier is authoritative
// when it has two or more hits for a type; a single-hit result only confirms
// the provisional category mapping, which wins ties.
func (sc *Scorer) classifyType(lower string, topCategory patterns.Category) string {
	provisional := categoryScamType[topCategory]

	best, bestN := "", 0
	for _, rule := range patterns.ScamTypeRules() {
		n := len(rule.Regex.FindAllStringIndex(lower, -1))
		if n > bestN || (n == bestN && n > 0 && rule.Type == provisional) {
			bestN, best = n, rule.Type
		}
	}

	switch {
	case bestN >= 2:
		return best
	case provisional != "":
		return provisional
	case bestN >= 1:
		return best
	}
	return "unknown"
}

// categoryScamType maps a signal category to the scam-type tag reported when
// the keyword classifier stays silent.
var categoryScamType = map[patterns.Category]string{
	patterns.CategoryUrgency:      "generic",
	patterns.CategoryAuthority:    "bank_fraud",
	patterns.CategoryFinancial:    "upi_fraud",
	patterns.CategoryVerification: "kyc_scam",
	patterns.CategoryOTPFraud:     "otp_fraud",
	patterns.CategoryLottery:      "lottery_scam",
	patterns.CategoryJobScam:      "job_scam",
	patterns.CategoryInvestment:   "investment_scam",
	patterns.CategoryThreat:       "threat_scam",
	patterns.CategoryPhishing:     "phishing",
}

// ClassifyScamType runs the 18-type keyword classifier. Confidence is
// min(0.85, 0.5 + 0.1*matches); the type with the most keyword hits wins.
func ClassifyScamType(lower string) (string, float64) {
	bestType := ""
	bestMatches := 0
	for _, rule := range patterns.ScamTypeRules() {
		n := len(rule.Regex.FindAllStringIndex(lower, -1))
		if n > bestMatches {
			bestMatches = n
			bestType = rule.Type
		}
	}
	if bestType == "" {
		return "", 0
	}
	conf := 0.5 + 0.1*float64(bestMatches)
	if conf > 0.85 {
		conf = 0.85
	}
	return bestType, conf
}

// MatchRedFlags returns the analyst-facing labels whose regex fires on the
// message.
func MatchRedFlags(text string) []string {
	var flags []string
	for _, rf := range patterns.RedFlags() {
		if rf.Regex.MatchString(text) {
			flags = append(flags, rf.Label)
		}
	}
	return flags
}

// historyBonus scans the last five scammer turns for financial and urgency
// keyword density.
func (sc *Scorer) historyBonus(history []Message) float64 {
	recent := make([]Message, 0, 5)
	for i := len(history) - 1; i >= 0 && len(recent) < 5; i-- {
		if history[i].Role == RoleScammer {
			recent = append(recent, history[i])
		}
	}

	financial, urgency := 0, 0
	earlyFinancial := 0
	for _, m := range recent {
		lower := strings.ToLower(m.Text)
		if sc.reg.MatchAny(lower, patterns.CategoryFinancialContext) != nil {
			financial++
			if m.Turn <= 5 {
				earlyFinancial++
			}
		}
		urgency += sc.reg.CountMatches(lower, patterns.CategoryUrgency)
	}

	bonus := 0.0
	if earlyFinancial >= 2 {
		bonus += rapidEscalationBonus
	}
	if urgency >= 2 {
		bonus += urgencyDensityBonus
	}
	return bonus
}

// behavioralScore captures non-lexical tells: shouting, exclamation spam,
// and walls of text.
func behavioralScore(text string) float64 {
	score := 0.0
	if len(text) > 200 {
		score += 0.04
	}
	if strings.Count(text, "!") > 2 {
		score += 0.05
	}
	if isMostlyUpper(text) {
		score += 0.05
	}
	return score
}

func isMostlyUpper(text string) bool {
	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 10 && upper*10 >= letters*7
}

func urgencyLevel(matches int) string {
	switch {
	case matches >= 3:
		return UrgencyCritical
	case matches >= 2:
		return UrgencyHigh
	case matches >= 1:
		return UrgencyMedium
	default:
		return UrgencyNone
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
