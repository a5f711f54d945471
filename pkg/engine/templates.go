package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jaalnet/jaal/pkg/patterns"
)

// ============================================================================
// REPLY TEMPLATE POOLS
// ============================================================================
// Typed mapping from Intent and Phase to ordered template lists. Templates
// use named placeholders ({phone}, {upi}, {account}, {url}, {email},
// {name}) filled from identifiers in the counterpart's current message; a
// template whose placeholder cannot be filled is skipped. Every template
// ends with exactly one question mark - the always-ask-one-question
// invariant is authored in, then enforced again at emit time.
//
// The compiled-in packs are the complete implementation; an operator can
// overlay pools from a YAML pack without rebuilding.

// TemplatePack holds every reply pool for one language.
type TemplatePack struct {
	Intent map[patterns.Intent][]string `yaml:"intent"`
	Phase  map[Phase][]string           `yaml:"phase"`

	// Depth-bucketed stall pools used when no intent pool applies.
	FallbackEarly []string `yaml:"fallback_early"` // turn <= 1
	FallbackMid   []string `yaml:"fallback_mid"`   // turn <= 4
	FallbackLate  []string `yaml:"fallback_late"`

	// Apologetic replaces safety-rejected candidates; Clarify is the
	// generic pool of last resort.
	Apologetic []string `yaml:"apologetic"`
	Clarify    []string `yaml:"clarify"`

	// Variations are the mechanical prefixes applied to an exhausted pool.
	// Kept per pack so a pure-English reply never picks up Hindi filler.
	Variations []string `yaml:"variations"`
}

// DefaultEnglishPack returns the compiled-in English pools.
func DefaultEnglishPack() *TemplatePack {
	return &TemplatePack{
		Intent: map[patterns.Intent][]string{
			patterns.IntentOTPRequest: {
				"I got some message but it has so many numbers, which one is the OTP?",
				"My phone is showing two messages, should I read both codes to you?",
				"Wait, the message got deleted I think. Can you send the OTP again?",
				"I am not getting any message yet, from which number will the OTP come?",
				"My son told me never to share OTP, but you are from the bank na, so it is okay?",
			},
			patterns.IntentPaymentRequest: {
				"Ok I am trying to send, what UPI ID should I send to?",
				"My UPI is showing some error, can you give me your account number instead?",
				"I opened the app but it is asking for so many things, can you tell me step by step what to press?",
				"Should I send the full amount at once, or can I send a small amount first to test?",
				"Which app should I use, my daughter installed two or three of them?",
			},
			patterns.IntentAccountRequest: {
				"I have two accounts, one savings one current, which one do you need?",
				"My passbook is in the cupboard, can I call you back on {phone} after I find it?",
				"The card number is very long, should I read the front or the back side?",
				"My account is in a joint name with my wife, does that matter?",
				"I don't remember the IFSC, can you check it from your side with my branch name?",
			},
			patterns.IntentUrgencyThreat: {
				"Please don't block anything, I am doing it right now, just tell me again what to do first?",
				"Oh no, this is very tense. How much time do I have exactly?",
				"I am an old customer for twenty years, can you extend the deadline a little?",
				"If it gets blocked can I come to the branch tomorrow and fix it?",
				"My heart is beating fast. Can you stay on and guide me slowly?",
			},
			patterns.IntentLinkRequest: {
				"The link is not opening on my phone, can you send it again?",
				"It is showing some warning page, should I still continue?",
				"My internet is very slow today, can you tell me the website name and I will type it?",
				"I clicked but nothing happened, should I restart the phone first?",
				"Is this the official site, it looks little different from last time?",
			},
			patterns.IntentKYCVerify: {
				"I did KYC last year in the branch, do I really have to do it again?",
				"My Aadhaar is in my village home, can I send the number from memory?",
				"Which documents exactly do you need, PAN or Aadhaar or both?",
				"Can my son do this KYC for me from his phone?",
				"The branch person said KYC is valid for ten years, why is yours saying expired?",
			},
			patterns.IntentRewardBait: {
				"Oh wonderful, I never win anything! How will the prize money come to me?",
				"Is there any form to fill for the refund, or you will do it from your side?",
				"How much is the amount exactly, and do I have to pay any tax on it?",
				"Can you send the confirmation on email also, what is your email ID?",
				"My neighbour also got such a call last month, is it the same scheme?",
			},
			patterns.IntentAuthorityClaim: {
				"Which branch are you calling from exactly, I know the manager in my branch?",
				"Can you give me your employee ID and a number where I can call you back?",
				"You sound very young for a senior officer, how long have you been there?",
				"Should I come to your office directly, where is it located?",
				"My nephew also works in the bank, do you know which department handles this?",
			},
			patterns.IntentPhoneMention: {
				"I wrote down {phone}, should I call on this number or will you call me?",
				"Is {phone} a WhatsApp number also, I find typing easier than calling?",
				"Whose number is this exactly, yours or the office one?",
			},
		},
		Phase: map[Phase][]string{
			PhaseInitial:          {"Hello? Who is this?"},
			PhaseGreeting:         {"Hello, yes, who is speaking?", "Haan hello, I can hear you, who is this?", "Sorry I was in the kitchen, who did you say you are?"},
			PhaseBuildingRapport:  {"Accha, and where are you calling from?", "Okay okay. And how did you get my number?", "You sound like a nice person, what is your good name?"},
			PhaseFinancialContext: {"Money matters make me nervous, can you explain slowly?", "Is this about my savings account or the other one?", "My pension comes in that account, there is no problem na?"},
			PhaseRequest:          {"Okay tell me clearly, what exactly do you need from me?", "I am writing this down, can you repeat the last part?"},
			PhaseExtraction:       {"Ok I am almost ready, which number should I send it to?", "Let me get my spectacles. Can you give me the details once more?", "And if something goes wrong, on which number can I reach you?"},
			PhaseSuspicious:       {"You are going so fast, can we start from the beginning?", "My phone battery is low, can you quickly repeat only the important part?"},
			PhaseClosing:          {"Okay I have to go now, but can you share your number so I call you back?", "Someone is at the door, can I call you in ten minutes on this same number?"},
			PhaseEnded:            {"Hello, are you still there?"},
		},
		FallbackEarly: []string{
			"Hello? I can't hear you properly, can you say that again?",
			"Who is this? Do I know you?",
			"Sorry, my hearing is weak, can you speak louder?",
			"One minute, let me put on my spectacles. Now tell me, who are you?",
			"Is this about the electricity bill? Or something else?",
		},
		FallbackMid: []string{
			"Accha, I see. But why is this so urgent?",
			"Okay okay. And you said you are calling from where?",
			"My son usually handles these things, should I ask him to call you?",
			"Hmm, I am listening. What do I have to do exactly?",
			"Wait, the pressure cooker is whistling. Okay tell me again, what happened?",
			"This all sounds complicated. Can you explain like I am a child?",
		},
		FallbackLate: []string{
			"Ok I'm trying, what UPI ID should I send to?",
			"The app is asking for a PIN, which PIN is that?",
			"I pressed something and the screen went black, what do I do now?",
			"Almost done, just tell me your number once more so I note it properly?",
			"My internet stopped, should I go near the window and try again?",
			"It is saying server error. Do you have another account I can try?",
			"I wrote everything on paper, should I read it back to you to confirm?",
		},
		Apologetic: []string{
			"Sorry sorry, I got confused. Can you tell me once more what to do?",
			"Forgive me, I am a little slow with these things. Where were we?",
			"My mistake, I pressed the wrong button. Can we start again?",
		},
		Clarify: []string{
			"Sorry, I didn't understand that. Can you explain again?",
			"What do you mean exactly?",
			"Can you say that in simple words?",
			"I am confused, what should I do first?",
		},
		Variations: []string{"Sorry, ", "One second, ", "Wait, ", "Actually, "},
	}
}

// DefaultHinglishPack returns the compiled-in Hinglish pools, used when the
// inbound message carries Devanagari or dense romanized Hindi.
func DefaultHinglishPack() *TemplatePack {
	return &TemplatePack{
		Intent: map[patterns.Intent][]string{
			patterns.IntentOTPRequest: {
				"Message aaya hai par number bahut saare hain, kaunsa OTP hai?",
				"OTP nahi aa raha abhi tak, kis number se aayega?",
				"Mera beta bolta hai OTP kisi ko mat do, par aap bank se ho na, theek hai na?",
				"Ruko, message delete ho gaya lagta hai, dobara bhejoge?",
			},
			patterns.IntentPaymentRequest: {
				"Haan bhej raha hoon, kaunsi UPI ID pe bhejna hai?",
				"UPI mein error aa raha hai, account number de do na?",
				"Pehle thoda sa bhej ke test karun, ya poora ek saath bhejun?",
				"Kaunsa app kholun, PhonePe ya GPay?",
			},
			patterns.IntentAccountRequest: {
				"Mere do account hain, savings aur current, kaunsa chahiye?",
				"Passbook almari mein hai, dhoond ke bataun kya?",
				"Card ka number bahut lamba hai, aage wala padhun ya peeche wala?",
			},
			patterns.IntentUrgencyThreat: {
				"Arre block mat karo please, main abhi kar raha hoon, pehle kya karna hai?",
				"Kitna time hai mere paas exactly?",
				"Bees saal se customer hoon main, thoda time aur milega kya?",
			},
			patterns.IntentLinkRequest: {
				"Link khul nahi raha mere phone pe, dobara bhejo na?",
				"Koi warning aa rahi hai screen pe, phir bhi aage badhun kya?",
				"Net bahut slow hai aaj, website ka naam bolo main type karta hoon?",
			},
			patterns.IntentKYCVerify: {
				"KYC toh pichhle saal branch mein kiya tha, phir se karna padega kya?",
				"Aadhaar gaon ke ghar pe hai, number yaad se bata dun kya?",
				"PAN chahiye ya Aadhaar, ya dono?",
			},
			patterns.IntentRewardBait: {
				"Arre wah, main toh kabhi kuch nahi jeeta! Paise kaise milenge mujhe?",
				"Kitna amount hai exactly, aur tax bhi dena padega kya?",
				"Email pe bhi confirmation bhejoge, aapki email ID kya hai?",
			},
			patterns.IntentAuthorityClaim: {
				"Kaunsi branch se bol rahe ho aap, mere branch ka manager mera jaanne wala hai?",
				"Apna employee ID do na, aur ek number jispe main wapas call kar sakun?",
				"Main seedha aapke office aa jaun kya, kahan hai office?",
			},
			patterns.IntentPhoneMention: {
				"Maine likh liya {phone}, isi number pe call karun ya aap karoge?",
				"Yeh {phone} WhatsApp pe bhi hai kya?",
			},
		},
		Phase: map[Phase][]string{
			PhaseInitial:          {"Hello? Kaun bol raha hai?"},
			PhaseGreeting:         {"Haan hello, kaun?", "Awaaz kat rahi hai, kaun bol rahe ho?"},
			PhaseBuildingRapport:  {"Accha accha, aap kahan se bol rahe ho?", "Mera number kahan se mila aapko?"},
			PhaseFinancialContext: {"Paison ka mamla hai toh dhyaan se batao, kya hua hai?", "Mera pension wala account hai, koi problem toh nahi na?"},
			PhaseRequest:          {"Theek hai, saaf saaf batao, mujhse kya chahiye?", "Main likh raha hoon, aakhri wala phir se bolo?"},
			PhaseExtraction:       {"Haan taiyar hoon, kis number pe bhejna hai?", "Chashma laga loon pehle. Details ek baar phir se do?"},
			PhaseSuspicious:       {"Aap bahut jaldi jaldi bol rahe ho, shuru se batao na?", "Battery kam hai, jaldi se sirf important cheez bolo?"},
			PhaseClosing:          {"Abhi jaana padega mujhe, apna number de do, main wapas call karta hoon?", "Koi darwaze pe aaya hai, dus minute mein isi number pe call karun?"},
			PhaseEnded:            {"Hello, aap ho abhi bhi?"},
		},
		FallbackEarly: []string{
			"Hello? Awaaz nahi aa rahi, phir se bolo?",
			"Kaun? Main jaanta hoon aapko?",
			"Thoda zor se bolo na, sunai kam deta hai mujhe?",
		},
		FallbackMid: []string{
			"Accha. Par itni jaldi kyun hai?",
			"Hmm, sun raha hoon. Karna kya hai mujhe exactly?",
			"Mera beta yeh sab dekhta hai, usse baat karoge?",
			"Ruko, cooker ki seeti baj rahi hai. Haan ab batao, kya hua?",
		},
		FallbackLate: []string{
			"Haan kar raha hoon, kaunsi UPI ID pe bhejna hai?",
			"App PIN maang raha hai, kaunsa PIN hai yeh?",
			"Kuch dab gaya aur screen kaali ho gayi, ab kya karun?",
			"Bas ho gaya, apna number ek baar aur bolo, main likh leta hoon?",
			"Server error bol raha hai, koi aur account hai aapka?",
		},
		Apologetic: []string{
			"Sorry sorry, main confuse ho gaya. Phir se batao kya karna hai?",
			"Maaf karna, main thoda dheere samajhta hoon. Kahan the hum?",
		},
		Clarify: []string{
			"Samajh nahi aaya, phir se samjhao?",
			"Matlab kya hai iska?",
			"Aasan shabdon mein bolo na?",
		},
		Variations: []string{"Haan, ", "Arre, ", "Ek second, ", "Accha, "},
	}
}

// LoadTemplatePack reads a YAML pool overlay from disk.
func LoadTemplatePack(path string) (*TemplatePack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template pack: %w", err)
	}
	var pack TemplatePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse template pack %s: %w", path, err)
	}
	return &pack, nil
}

// Merge overlays non-empty pools from other onto p. Pools present in the
// overlay replace the compiled-in pool wholesale; absent pools are kept.
func (p *TemplatePack) Merge(other *TemplatePack) {
	if other == nil {
		return
	}
	for intent, pool := range other.Intent {
		if len(pool) > 0 {
			if p.Intent == nil {
				p.Intent = make(map[patterns.Intent][]string)
			}
			p.Intent[intent] = pool
		}
	}
	for phase, pool := range other.Phase {
		if len(pool) > 0 {
			if p.Phase == nil {
				p.Phase = make(map[Phase][]string)
			}
			p.Phase[phase] = pool
		}
	}
	if len(other.FallbackEarly) > 0 {
		p.FallbackEarly = other.FallbackEarly
	}
	if len(other.FallbackMid) > 0 {
		p.FallbackMid = other.FallbackMid
	}
	if len(other.FallbackLate) > 0 {
		p.FallbackLate = other.FallbackLate
	}
	if len(other.Apologetic) > 0 {
		p.Apologetic = other.Apologetic
	}
	if len(other.Clarify) > 0 {
		p.Clarify = other.Clarify
	}
	if len(other.Variations) > 0 {
		p.Variations = other.Variations
	}
}
