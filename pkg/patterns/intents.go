package patterns

import (
	"regexp"
	"sync"
)

// =============================================================================
// INTENT CASCADE, SAFETY FILTER, RED FLAGS, SCAM-TYPE CLASSIFIER
// The intent table is ordered by priority; the responder walks it top to
// bottom and the first match wins. All tables here are pure data - the
// resolution loops live in pkg/engine.
// =============================================================================

// Intent classifies the purpose of the counterpart's current message.
type Intent string

const (
	IntentOTPRequest     Intent = "otp_request"
	IntentPaymentRequest Intent = "payment_request"
	IntentAccountRequest Intent = "account_request"
	IntentUrgencyThreat  Intent = "urgency_threat"
	IntentLinkRequest    Intent = "link_request"
	IntentKYCVerify      Intent = "kyc_verify"
	IntentRewardBait     Intent = "reward_bait"
	IntentAuthorityClaim Intent = "authority_claim"
	IntentPhoneMention   Intent = "phone_mention"
	IntentNone           Intent = "none"
)

// IntentPattern is one priority-cascade entry. When Require is non-nil both
// regexes must match (used for the urgency+threat combination).
type IntentPattern struct {
	Intent  Intent
	Regex   *regexp.Regexp
	Require *regexp.Regexp
}

var (
	intentCascade []*IntentPattern
	intentOnce    sync.Once
)

// IntentCascade returns the priority-ordered intent table, compiled once.
// First match wins.
func IntentCascade() []*IntentPattern {
	intentOnce.Do(func() {
		intentCascade = []*IntentPattern{
			{Intent: IntentOTPRequest, Regex: regexp.MustCompile(`(?i)\b(otp|cvv|mpin|pin|passcode|verification code)\b`)},
			{Intent: IntentPaymentRequest, Regex: regexp.MustCompile(`(?i)\b(pay|payment|transfer|send money|upi|gpay|google pay|phonepe|paytm|qr code|rs\.?\s*\d|₹)\b`)},
			{Intent: IntentAccountRequest, Regex: regexp.MustCompile(`(?i)\b(account number|a/c|acc no|card number|debit card|credit card|ifsc|net ?banking)\b`)},
			{
				Intent:  IntentUrgencyThreat,
				Regex:   regexp.MustCompile(`(?i)\b(urgent|immediately|right now|jaldi|turant|last chance|final warning)\b`),
				Require: regexp.MustCompile(`(?i)\b(block(?:ed)?|suspend(?:ed)?|arrest|police|legal|seiz|freez|frozen|disconnect)\b`),
			},
			{Intent: IntentLinkRequest, Regex: regexp.MustCompile(`(?i)\b(click|open|visit)\b.{0,20}\b(link|url|website|page)\b|https?://|\bwww\.`)},
			{Intent: IntentKYCVerify, Regex: regexp.MustCompile(`(?i)\b(kyc|aadhaar|aadhar|pan card|verify your|verification|identity proof)\b`)},
			{Intent: IntentRewardBait, Regex: regexp.MustCompile(`(?i)\b(won|winner|prize|lottery|reward|refund|cashback|gift|lucky)\b`)},
			{Intent: IntentAuthorityClaim, Regex: regexp.MustCompile(`(?i)\b(bank officer|manager|rbi|police|cbi|income tax|customs|telecom|calling from|head office|government)\b`)},
			{Intent: IntentPhoneMention, Regex: regexp.MustCompile(`(?:\+91|0091)?[\s.-]?[6-9]\d{4}[\s.-]?\d{5}`)},
		}
	})
	return intentCascade
}

// ForbiddenReplyPatterns matches language an agent reply must never contain:
// accusations, enforcement references, or anything that reveals the agent.
// A candidate reply matching any of these is replaced with an apologetic
// fallback.
func ForbiddenReplyPatterns() []*regexp.Regexp {
	forbiddenOnce.Do(func() {
		forbiddenReply = []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(scammer|fraudster|con artist|scam|fraud)\b`),
			regexp.MustCompile(`(?i)\b(honeypot|honey pot|trap|bait)\b`),
			regexp.MustCompile(`(?i)\b(i am an ai|i'?m an ai|i am a bot|i'?m a bot|artificial intelligence|language model)\b`),
			regexp.MustCompile(`(?i)\b(police|investigation|arrest you|report you|cyber ?cell|cyber ?crime)\b`),
			regexp.MustCompile(`(?i)\bi know (?:you'?re|what you)\b|\byou'?re (?:a |trying to )?(?:scam|cheat|fool)`),
		}
	})
	return forbiddenReply
}

var (
	forbiddenReply []*regexp.Regexp
	forbiddenOnce  sync.Once
)

// RedFlag pairs an analyst-facing label with the regex that raises it.
type RedFlag struct {
	Label string
	Regex *regexp.Regexp
}

var (
	redFlags    []RedFlag
	redFlagOnce sync.Once
)

// RedFlags returns the labeled red-flag table used for agent notes.
func RedFlags() []RedFlag {
	redFlagOnce.Do(func() {
		redFlags = []RedFlag{
			{"OTP or PIN requested", regexp.MustCompile(`(?i)\b(share|send|tell|give|enter)\b.{0,15}\b(otp|pin|cvv|mpin)\b`)},
			{"Account blocking threat", regexp.MustCompile(`(?i)\b(account|card|sim)\b.{0,18}\b(block|suspend|freez|frozen|deactivat)`)},
			{"Urgency pressure", regexp.MustCompile(`(?i)\b(urgent|immediately|right now|last chance|final warning|jaldi|turant)\b`)},
			{"Authority impersonation", regexp.MustCompile(`(?i)\b(calling from|bank officer|rbi|police|cbi|income tax|customs|government)\b`)},
			{"Payment or fee demanded", regexp.MustCompile(`(?i)\b(pay|send|transfer)\b.{0,20}\b(fee|charge|amount|money|rs\.?|₹)`)},
			{"KYC verification bait", regexp.MustCompile(`(?i)\bkyc\b.{0,20}\b(expire|pending|update|suspend|verify)`)},
			{"Lottery or prize bait", regexp.MustCompile(`(?i)\b(won|winner|lottery|prize|lucky draw|jackpot)\b`)},
			{"Suspicious link shared", regexp.MustCompile(`(?i)https?://|\bwww\.|\b(?:bit\.ly|tinyurl\.com)\b`)},
			{"Remote access requested", regexp.MustCompile(`(?i)\b(anydesk|teamviewer|quick ?support|screen ?shar)`)},
			{"Legal action threat", regexp.MustCompile(`(?i)\b(arrest|legal action|court|warrant|fir|digital arrest)\b`)},
		}
	})
	return redFlags
}

// ScamTypeRule maps a named scam type to its keyword alternation. The
// classifier's confidence is min(0.85, 0.5 + 0.1*matches).
type ScamTypeRule struct {
	Type  string
	Regex *regexp.Regexp
}

var (
	scamTypeRules []ScamTypeRule
	scamTypeOnce  sync.Once
)

// ScamTypeRules returns the keyword classifier table for the named scam
// types.
func ScamTypeRules() []ScamTypeRule {
	scamTypeOnce.Do(func() {
		mk := func(t, pattern string) ScamTypeRule {
			return ScamTypeRule{Type: t, Regex: regexp.MustCompile(pattern)}
		}
		scamTypeRules = []ScamTypeRule{
			mk("bank_fraud", `(?i)\b(bank|account|debit|credit|card|net ?banking|branch|ifsc)\b`),
			mk("upi_fraud", `(?i)\b(upi|gpay|google pay|phonepe|paytm|bhim|qr code|collect request)\b`),
			mk("kyc_scam", `(?i)\b(kyc|aadhaar|aadhar|pan card|identity|verification|re-?verify)\b`),
			mk("otp_fraud", `(?i)\b(otp|cvv|mpin|pin|passcode|verification code)\b`),
			mk("lottery_scam", `(?i)\b(lottery|lucky draw|prize|jackpot|winner|won)\b`),
			mk("job_scam", `(?i)\b(job|work from home|part ?time|salary|hiring|vacancy|interview)\b`),
			mk("investment_scam", `(?i)\b(invest|investment|returns|profit|trading|stock|mutual fund)\b`),
			mk("crypto_investment", `(?i)\b(crypto|bitcoin|btc|ethereum|eth|usdt|binance|wallet)\b`),
			mk("tech_support", `(?i)\b(computer|laptop|virus|hacked|microsoft|anydesk|teamviewer|remote)\b`),
			mk("phishing", `(?i)\b(click|link|login|password|website|portal|url)\b`),
			mk("refund_scam", `(?i)\b(refund|cashback|return|reversal|wrongly (?:charged|debited))\b`),
			mk("customs_fraud", `(?i)\b(customs|parcel|courier|package|shipment|fedex|dhl|consignment)\b`),
			mk("insurance_fraud", `(?i)\b(insurance|policy|premium|lic|claim|maturity)\b`),
			mk("electricity_scam", `(?i)\b(electricity|power|bill|meter|disconnect|connection)\b`),
			mk("loan_approval", `(?i)\b(loan|emi|pre-?approved|credit score|cibil|disbursal)\b`),
			mk("income_tax", `(?i)\b(income tax|itr|tax refund|tds|assessment|notice)\b`),
			mk("govt_scheme", `(?i)\b(government scheme|pm ?yojana|subsidy|benefit|sarkar)\b`),
			mk("threat_scam", `(?i)\b(arrest|police|cbi|legal|court|warrant|digital arrest|fir)\b`),
		}
	})
	return scamTypeRules
}
