package patterns

import (
	"regexp"
	"sync"
)

// =============================================================================
// IDENTIFIER EXTRACTION PATTERNS
// One entry per identifier type, ordered so that more specific types are
// tried before types they could be confused with (IFSC before other-id,
// email before UPI, phone before bank account). Go's RE2 engine has no
// lookarounds, so contextual exclusions (digit runs, currency prefixes,
// dotted UPI domains) are post-match predicates applied by the extractor.
// =============================================================================

// IdentifierType enumerates the structured identifier types the extractor
// can produce.
type IdentifierType string

const (
	IDPhone        IdentifierType = "phone"
	IDBankAccount  IdentifierType = "bank_account"
	IDUPI          IdentifierType = "upi"
	IDURL          IdentifierType = "url"
	IDEmail        IdentifierType = "email"
	IDIFSC         IdentifierType = "ifsc"
	IDPAN          IdentifierType = "pan"
	IDAadhaar      IdentifierType = "aadhaar"
	IDCryptoWallet IdentifierType = "crypto_wallet"
	IDPersonName   IdentifierType = "person_name"
	IDOrganization IdentifierType = "organization"
	IDCaseID       IdentifierType = "case_id"
	IDPolicyNumber IdentifierType = "policy_number"
	IDOrderNumber  IdentifierType = "order_number"
	IDOtherID      IdentifierType = "other_id"
)

// HighValueTypes are the identifier types that count toward extraction
// progress (denominator 5).
var HighValueTypes = []IdentifierType{
	IDPhone, IDUPI, IDBankAccount, IDURL, IDEmail,
}

// IdentifierPattern couples an extraction regex with its type and the
// confidence assigned to a raw match.
type IdentifierPattern struct {
	Type       IdentifierType
	Regex      *regexp.Regexp
	Confidence float64
	Group      int  // capture group holding the value; 0 = whole match
	NeedsDigit bool // matched span must contain at least one digit
}

var (
	identifierPatterns []*IdentifierPattern
	identifierOnce     sync.Once
)

// IdentifierPatterns returns the ordered extraction rule table, compiled once.
func IdentifierPatterns() []*IdentifierPattern {
	identifierOnce.Do(func() {
		identifierPatterns = buildIdentifierPatterns()
	})
	return identifierPatterns
}

func buildIdentifierPatterns() []*IdentifierPattern {
	mk := func(t IdentifierType, pattern string, conf float64, group int, needsDigit bool) *IdentifierPattern {
		return &IdentifierPattern{
			Type:       t,
			Regex:      regexp.MustCompile(pattern),
			Confidence: conf,
			Group:      group,
			NeedsDigit: needsDigit,
		}
	}

	return []*IdentifierPattern{
		// IFSC first: its shape (4 letters, zero, 6 alphanumerics) would
		// otherwise be swallowed by the generic reference-id patterns.
		mk(IDIFSC, `\b[A-Z]{4}0[A-Z0-9]{6}\b`, 0.90, 0, false),

		mk(IDPAN, `\b[A-Z]{5}\d{4}[A-Z]\b`, 0.80, 0, false),

		// Email before UPI: both are local@domain, an email's domain has a dot.
		mk(IDEmail, `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,}\b`, 0.85, 0, false),

		// UPI handles. The extractor rejects candidates whose domain part
		// contains a dot (those are emails).
		mk(IDUPI, `\b[A-Za-z0-9._-]{2,}@[A-Za-z][A-Za-z0-9]+\b`, 0.95, 0, false),

		mk(IDURL, `(?i)\b(?:https?://|www\.)[^\s<>"')]+`, 0.85, 0, false),
		mk(IDURL, `(?i)\b(?:bit\.ly|tinyurl\.com|t\.co|cutt\.ly|rb\.gy|rebrand\.ly)/[A-Za-z0-9_-]+`, 0.85, 0, false),

		// Indian mobile numbers in their common formats. The extractor
		// normalizes separators and country-code prefixes and rejects spans
		// embedded in longer digit runs.
		mk(IDPhone, `(?:\+91|0091)[\s.-]?[6-9]\d{4}[\s.-]?\d{5}`, 0.85, 0, false),
		mk(IDPhone, `\b0?[6-9]\d{4}[\s.-]?\d{5}\b`, 0.85, 0, false),

		mk(IDCryptoWallet, `\b(?:bc1[a-z0-9]{25,59}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})\b`, 0.85, 0, false),
		mk(IDCryptoWallet, `\b0x[a-fA-F0-9]{40}\b`, 0.85, 0, false),

		// Aadhaar with separators only; a bare 12-digit run is treated as a
		// bank account candidate instead.
		mk(IDAadhaar, `\b\d{4}[\s-]\d{4}[\s-]\d{4}\b`, 0.75, 0, false),

		// Bank accounts: 11-18 digit runs. Ten digits are phones; the
		// extractor also drops spans that reuse an extracted phone's digits
		// or that follow currency context ("rs 50000...").
		mk(IDBankAccount, `\b\d{11,18}\b`, 0.80, 0, false),

		mk(IDPersonName, `(?:[Mm]y name is|[Tt]his is|I am|I'm)\s+([A-Z][a-z]+(?: [A-Z][a-z]+){0,2})`, 0.70, 1, false),
		mk(IDOrganization, `(?:from|calling from|behalf of)\s+((?:[A-Z][A-Za-z&.]*\s?){1,4}(?:Bank|Ltd|Limited|Pvt|Company|Corp|Services|Insurance|Finance|Telecom))`, 0.65, 1, false),

		// Prefixed reference identifiers. The value part requires a digit so
		// bare words like "case closed" never match.
		mk(IDCaseID, `(?i)\b(?:REF|CASE|FIR|TICKET|TKT|COMPLAINT|CR|UTR|IMPS|NEFT|RTGS)[\s:#/-]+[A-Za-z/-]*\d[\w/-]{2,}`, 0.70, 0, true),
		mk(IDPolicyNumber, `(?i)\b(?:POL|POLICY|INS|PLAN|LIC|CLAIM)[\s:#/-]+[A-Za-z/-]*\d[\w/-]{2,}`, 0.70, 0, true),
		mk(IDOrderNumber, `(?i)\b(?:ORD|ORDER|AWB|TXN|TRACK|INV|SHIP|CONSIGNMENT)[\s:#/-]+[A-Za-z/-]*\d[\w/-]{2,}`, 0.70, 0, true),
		mk(IDOtherID, `\b(?:ID|NO|NUMBER)[:#-]\s*[A-Za-z/-]*\d[\w/-]{2,}`, 0.60, 0, true),
	}
}

// AmountContext matches currency vocabulary immediately preceding a number,
// used to reject money amounts masquerading as account numbers.
var AmountContext = regexp.MustCompile(`(?i)(?:rs\.?|inr|₹|rupees?|amount|fee|charge|price|cost|pay)\s*$`)

// UPISuffixes lists well-known UPI handle domains. A dot-free domain outside
// this list is still accepted as a UPI handle; the list only boosts
// disambiguation of borderline candidates in tests and tooling.
var UPISuffixes = map[string]bool{
	"ybl": true, "paytm": true, "okaxis": true, "oksbi": true,
	"okicici": true, "okhdfcbank": true, "axl": true, "ibl": true,
	"apl": true, "upi": true, "gpay": true, "phonepe": true,
	"freecharge": true, "airtel": true, "jio": true, "sbi": true,
	"hdfcbank": true, "icici": true, "axisbank": true, "yapl": true,
}
