package patterns

// =============================================================================
// PATTERN DEFINITIONS BY CATEGORY
// All weighted scam-indicator and legitimate-chat rules are registered here
// and compiled once at package init. Weights are summed by the scorer; the
// flat keyword bonuses stack on top of category matches.
// =============================================================================

// --- URGENCY PRESSURE ---
func (r *Registry) registerUrgencyPatterns() {
	cat := CategoryUrgency

	r.register("urgency_keywords", `(?i)\b(urgent|urgently|immediately|right now|asap|turant|jaldi|abhi|within (?:an? )?(?:hour|24 hours)|within today)\b`, cat, 0.18, "Urgency pressure keywords")
	r.register("deadline_pressure", `(?i)\b(last (?:chance|warning|day)|final (?:notice|warning|reminder)|expire[sd]? (?:today|soon|tonight)|time (?:is )?running out|only (?:few|2|two) hours)\b`, cat, 0.15, "Artificial deadline pressure")
	r.register("act_now", `(?i)\b(act now|do it now|don'?t delay|hurry up|before it'?s too late)\b`, cat, 0.14, "Act-now pressure")
}

// --- AUTHORITY IMPERSONATION ---
func (r *Registry) registerAuthorityPatterns() {
	cat := CategoryAuthority

	r.register("authority_claim", `(?i)\b(i am|i'?m|this is|calling from|speaking from|on behalf of)\b.{0,30}\b(bank|rbi|sbi|hdfc|icici|axis|kotak|police|cbi|ed|income tax|customs|courier|telecom|trai|government|ministry|microsoft|amazon|flipkart)\b`, cat, 0.15, "Claims to represent an institution")
	r.register("account_status_claim", `(?i)\byour (account|card|sim|number|connection|parcel|kyc) (is|has been|will be)\b`, cat, 0.15, "Unsolicited account status claim")
	r.register("official_notice", `(?i)\b(official (?:notice|communication|intimation)|legal notice|case (?:has been )?(?:registered|filed)|department of)\b`, cat, 0.14, "Fake official notice language")
}

// --- FINANCIAL DEMANDS ---
func (r *Registry) registerFinancialPatterns() {
	cat := CategoryFinancial

	r.register("payment_demand", `(?i)\b(send|transfer|pay|deposit|recharge)\b.{0,20}\b(money|amount|cash|rs\.?|rupees|inr|₹|\d+)`, cat, 0.18, "Demand to send or transfer money")
	r.register("fee_request", `(?i)\b(processing|registration|activation|clearance|verification|refundable|custom|delivery) (?:fee|charge|charges|amount)\b`, cat, 0.16, "Upfront fee request")
	r.register("upi_channel", `(?i)\b(upi|gpay|google pay|phonepe|phone pe|paytm|bhim)\b`, cat, 0.12, "UPI payment channel mention")
	r.register("small_amount_hook", `(?i)\b(just|only|sirf)\s*(?:rs\.?|₹|inr)?\s*\d{1,4}\b`, cat, 0.10, "Trivial amount used as a hook")
}

// --- CREDENTIAL / DETAIL PHISHING ---
func (r *Registry) registerVerificationPatterns() {
	cat := CategoryVerification

	r.register("detail_request", `(?i)\b(update|confirm|verify|share|send|provide)\b.{0,12}\b(your|ur)\b.{0,12}\b(details|otp|pin|kyc|aadhaar|aadhar|pan|card|account|cvv|number)\b`, cat, 0.20, "Request for personal or account details")
	r.register("kyc_expiry", `(?i)\bkyc\b.{0,20}\b(expire|expired|expiring|pending|incomplete|update|suspend)`, cat, 0.18, "KYC expiry or update bait")
	r.register("reverify_identity", `(?i)\b(re-?verify|re-?validate|re-?activate)\b.{0,15}\b(identity|account|card|sim|number)\b`, cat, 0.16, "Identity re-verification bait")
}

// --- OTP / PIN EXTRACTION ---
func (r *Registry) registerOTPFraudPatterns() {
	cat := CategoryOTPFraud

	r.register("otp_request", `(?i)\b(share|send|tell|give|provide|enter|read|forward)\b.{0,15}\b(otp|pin|cvv|mpin|password|passcode)\b`, cat, 0.22, "Direct request for OTP, PIN, or CVV")
	r.register("otp_incoming", `(?i)\b(otp|code|pin) (?:sent|received|aayega|aaya|coming|will come)\b`, cat, 0.12, "Announces an incoming OTP")
	r.register("code_on_phone", `(?i)\b(6|six|4|four)[\s-]?digit (?:otp|code|number|pin)\b`, cat, 0.14, "References the n-digit code on the victim's phone")
}

// --- LOTTERY / PRIZE ---
func (r *Registry) registerLotteryPatterns() {
	cat := CategoryLottery

	r.register("prize_claim", `(?i)\b(you (?:have )?won|winner|lucky draw|lottery|jackpot|prize money|lucky customer)\b`, cat, 0.18, "Lottery or prize winnings bait")
	r.register("big_amount_bait", `(?i)\b\d+\s*(lakh|lakhs|crore|crores)\b`, cat, 0.12, "Implausibly large amount mention")
	r.register("claim_prize", `(?i)\bclaim (?:your |the )?(prize|reward|amount|winnings|gift)\b`, cat, 0.16, "Prize claim instruction")
}

// --- JOB / EARNING ---
func (r *Registry) registerJobScamPatterns() {
	cat := CategoryJobScam

	r.register("work_from_home", `(?i)\b(work from home|part[\s-]?time job|online (?:job|work|task)|data entry job)\b`, cat, 0.16, "Work-from-home job bait")
	r.register("easy_earning", `(?i)\b(earn|earning)\b.{0,15}\b(daily|per day|from home|easily|₹?\d+)`, cat, 0.15, "Easy earnings promise")
	r.register("telegram_task", `(?i)\b(join (?:our )?telegram|complete (?:simple |small )?tasks?|like and subscribe)\b`, cat, 0.14, "Task-based earning scheme")
}

// --- INVESTMENT ---
func (r *Registry) registerInvestmentPatterns() {
	cat := CategoryInvestment

	r.register("guaranteed_returns", `(?i)\b(double your money|guaranteed (?:returns?|profit|income)|high returns?|risk[\s-]?free (?:investment|returns?))\b`, cat, 0.18, "Guaranteed returns promise")
	r.register("trading_tips", `(?i)\b(trading tips|stock tips|crypto (?:investment|trading)|bitcoin (?:profit|investment)|forex)\b`, cat, 0.15, "Trading or crypto investment bait")
	r.register("investment_plan", `(?i)\binvest(?:ment)?\b.{0,15}\b(plan|scheme|opportunity|offer)\b`, cat, 0.14, "Investment scheme pitch")
}

// --- THREATS ---
func (r *Registry) registerThreatPatterns() {
	cat := CategoryThreat

	r.register("service_block_threat", `(?i)\b(account|card|sim|number|service|connection|electricity|gas)\b.{0,18}\b(block(?:ed)?|suspend(?:ed)?|deactivat(?:e|ed)|disconnect(?:ed)?|seiz(?:e|ed)|freez(?:e|ing)|frozen|cut off)\b`, cat, 0.16, "Service blocking threat")
	r.register("legal_threat", `(?i)\b(arrest(?:ed)?|police complaint|fir (?:will be|has been)|legal action|court (?:case|summons)|warrant|digital arrest)\b`, cat, 0.17, "Arrest or legal action threat")
	r.register("money_seizure", `(?i)\b(money|funds|amount|balance)\b.{0,15}\b(seized|confiscated|frozen|on hold)\b`, cat, 0.15, "Funds seizure threat")
}

// --- PHISHING DELIVERY ---
func (r *Registry) registerPhishingPatterns() {
	cat := CategoryPhishing

	r.register("link_bait", `(?i)\b(click (?:on )?(?:this|the|below|given) link|open (?:this|the) link|link (?:pe|par) click)\b`, cat, 0.17, "Click-this-link instruction")
	r.register("remote_access_app", `(?i)\b(download|install)\b.{0,15}\b(anydesk|any desk|teamviewer|team viewer|quick ?support|screen ?share|this app)\b`, cat, 0.18, "Remote access app installation")
	r.register("credential_page", `(?i)\b(login|log in|sign in)\b.{0,20}\b(link|page|portal|website)\b`, cat, 0.14, "Login page redirection")
}

// --- LEGITIMATE CONVERSATION SIGNALS ---
func (r *Registry) registerLegitimatePatterns() {
	cat := CategoryLegitimate

	r.register("greeting_smalltalk", `(?i)\b(good (?:morning|afternoon|evening|night)|how are you|how'?s it going|nice to (?:meet|talk)|long time no)\b`, cat, 0.15, "Ordinary greeting or small talk")
	r.register("gratitude", `(?i)\b(thank you|thanks(?: a lot| so much)?|shukriya|dhanyavad)\b`, cat, 0.12, "Gratitude expression")
	r.register("family_chat", `(?i)\b(mom|dad|mummy|papa|bhai|didi|beta|family|dinner|lunch|breakfast|school|college|office meeting)\b`, cat, 0.12, "Family or daily-life chat")
	r.register("casual_plan", `(?i)\b(see you (?:soon|tomorrow|later)|let'?s meet|catch up|call you later|talk (?:to you )?later)\b`, cat, 0.15, "Casual plan making")
	r.register("wellbeing", `(?i)\b(i'?m (?:fine|good|okay|ok)|all (?:good|well)|take care|get well soon)\b`, cat, 0.12, "Wellbeing exchange")
}

// --- FLAT RISK KEYWORD BONUSES ---
// Single keywords that raise suspicion on their own, stacked on top of the
// weighted category matches.
func (r *Registry) registerRiskKeywords() {
	high := []string{
		"otp", "cvv", "mpin", "anydesk", "teamviewer", "blocked",
		"suspended", "lottery", "kyc", "aadhaar", "remote access",
	}
	for _, kw := range high {
		r.register("high_risk_"+kw, `(?i)\b`+kw+`\b`, CategoryHighRiskKeyword, 0.12, "High-risk keyword: "+kw)
	}

	medium := []string{
		"verify", "urgent", "bank", "account", "refund", "prize",
		"claim", "fee", "pending", "expired",
	}
	for _, kw := range medium {
		r.register("medium_risk_"+kw, `(?i)\b`+kw+`\b`, CategoryMediumRiskKeyword, 0.06, "Medium-risk keyword: "+kw)
	}
}

// --- BOOLEAN EVIDENCE DETECTORS ---
// These are not summed into the scam score. The scorer evaluates them on the
// current message to produce the hasFinancialContext / hasDirectRequest flags
// and the state machine consumes them as transition guards.
func (r *Registry) registerEvidenceDetectors() {
	r.register("financial_context", `(?i)(₹|\brs\.?\s*\d|\binr\b|\brupees?\b|\bpaisa\b|\bpaise\b|\bmoney\b|\bpayment\b|\bpay\b|\bamount\b|\bfee\b|\bupi\b|\baccount\b|\bbank\b|\btransfer\b|\brefund\b|\bwallet\b|\blakh\b|\bcrore\b)`, CategoryFinancialContext, 0, "Financial vocabulary present")
	r.register("direct_request", `(?i)\b(send|share|tell|provide|give|transfer|forward|enter|bhejo|batao|bhej do)\b`, CategoryDirectRequest, 0, "Imperative request verb present")
}
