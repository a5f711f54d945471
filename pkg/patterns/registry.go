// Package patterns provides a centralized pattern registry for the
// engagement pipeline. All regex patterns are compiled once at package init
// and shared across the scorer, extractor, and responder.
//
// Design principles:
// - COMPILE ONCE: All patterns compiled at init, not per-turn
// - DRY: Single source of truth for all scam-signal patterns
// - CATEGORIZED: Patterns organized by signal category for targeted scans
// - DATA ONLY: The registry holds rules and weights; scoring logic lives in
//   pkg/engine
package patterns

import (
	"regexp"
	"sync"
)

// Category represents a scam-signal pattern category
type Category string

const (
	// Weighted scam-indicator categories
	CategoryUrgency      Category = "urgency"
	CategoryAuthority    Category = "authority"
	CategoryFinancial    Category = "financial"
	CategoryVerification Category = "verification"
	CategoryOTPFraud     Category = "otp_fraud"
	CategoryLottery      Category = "lottery"
	CategoryJobScam      Category = "job_scam"
	CategoryInvestment   Category = "investment"
	CategoryThreat       Category = "threat"
	CategoryPhishing     Category = "phishing"

	// Counter-signal category for ordinary conversation
	CategoryLegitimate Category = "legitimate"

	// Flat keyword bonuses layered on top of the weighted categories
	CategoryHighRiskKeyword   Category = "high_risk_keyword"
	CategoryMediumRiskKeyword Category = "medium_risk_keyword"

	// Boolean evidence detectors, evaluated on the current message only
	CategoryFinancialContext Category = "financial_context"
	CategoryDirectRequest    Category = "direct_request"
)

// ScamCategories lists the weighted scam-indicator categories in scoring order.
var ScamCategories = []Category{
	CategoryUrgency,
	CategoryAuthority,
	CategoryFinancial,
	CategoryVerification,
	CategoryOTPFraud,
	CategoryLottery,
	CategoryJobScam,
	CategoryInvestment,
	CategoryThreat,
	CategoryPhishing,
}

// Pattern holds a compiled regex with metadata
type Pattern struct {
	Name        string         // Human-readable name for logging
	Regex       *regexp.Regexp // Compiled regex (never nil after init)
	Category    Category       // Signal category
	Weight      float64        // Score contribution when matched
	Description string         // What this pattern detects
}

// Registry holds all compiled patterns, organized by category
type Registry struct {
	mu         sync.RWMutex
	byCategory map[Category][]*Pattern
	all        []*Pattern
}

// global singleton - initialized once at package load
var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global pattern registry (singleton)
// Thread-safe and guaranteed to be initialized
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

// newRegistry creates and populates the pattern registry
func newRegistry() *Registry {
	r := &Registry{
		byCategory: make(map[Category][]*Pattern),
		all:        make([]*Pattern, 0, 128),
	}

	// Register all pattern categories
	r.registerUrgencyPatterns()
	r.registerAuthorityPatterns()
	r.registerFinancialPatterns()
	r.registerVerificationPatterns()
	r.registerOTPFraudPatterns()
	r.registerLotteryPatterns()
	r.registerJobScamPatterns()
	r.registerInvestmentPatterns()
	r.registerThreatPatterns()
	r.registerPhishingPatterns()
	r.registerLegitimatePatterns()
	r.registerRiskKeywords()
	r.registerEvidenceDetectors()

	return r
}

// register adds a pattern to the registry (internal use only)
func (r *Registry) register(name string, pattern string, category Category, weight float64, description string) {
	compiled := regexp.MustCompile(pattern)
	p := &Pattern{
		Name:        name,
		Regex:       compiled,
		Category:    category,
		Weight:      weight,
		Description: description,
	}

	r.byCategory[category] = append(r.byCategory[category], p)
	r.all = append(r.all, p)
}

// GetByCategory returns all patterns for a specific category
// Returns empty slice if category not found (never nil)
func (r *Registry) GetByCategory(cat Category) []*Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if patterns, ok := r.byCategory[cat]; ok {
		return patterns
	}
	return []*Pattern{}
}

// GetMultipleCategories returns patterns from multiple categories
func (r *Registry) GetMultipleCategories(cats ...Category) []*Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Pattern
	for _, cat := range cats {
		if patterns, ok := r.byCategory[cat]; ok {
			result = append(result, patterns...)
		}
	}
	return result
}

// MatchAny checks if text matches any pattern in the given categories
// Returns the first matching pattern or nil
// This is optimized for early exit on first match
func (r *Registry) MatchAny(text string, cats ...Category) *Pattern {
	patterns := r.GetMultipleCategories(cats...)
	for _, p := range patterns {
		if p.Regex.MatchString(text) {
			return p
		}
	}
	return nil
}

// MatchAll returns all patterns that match the text in given categories
// Use when you need to know ALL matches (for weighted scoring)
func (r *Registry) MatchAll(text string, cats ...Category) []*Pattern {
	patterns := r.GetMultipleCategories(cats...)
	var matches []*Pattern
	for _, p := range patterns {
		if p.Regex.MatchString(text) {
			matches = append(matches, p)
		}
	}
	return matches
}

// CountMatches returns how many times any pattern in the given categories
// matches the text, counting multiple hits of the same pattern. Used for
// keyword-density heuristics over conversation history.
func (r *Registry) CountMatches(text string, cats ...Category) int {
	patterns := r.GetMultipleCategories(cats...)
	total := 0
	for _, p := range patterns {
		total += len(p.Regex.FindAllStringIndex(text, -1))
	}
	return total
}

// TotalPatterns returns the total count of registered patterns
func (r *Registry) TotalPatterns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// CategoryCount returns the number of patterns in a category
func (r *Registry) CategoryCount(cat Category) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCategory[cat])
}
