package engine

import (
	"strings"
	"unicode"
)

// Language selects which template pool set replies are drawn from.
type Language string

const (
	LangEnglish  Language = "english"
	LangHinglish Language = "hinglish"
)

// hinglishLexicon is the fixed token set for the coarse density check.
// Romanized Hindi function words and the verbs scammers actually use.
var hinglishLexicon = map[string]bool{
	"kya": true, "hai": true, "hain": true, "nahi": true, "nahin": true,
	"haan": true, "aap": true, "tum": true, "mera": true, "tera": true,
	"apna": true, "kaise": true, "kaisa": true, "karo": true, "karna": true,
	"kiya": true, "bhejo": true, "bhej": true, "batao": true, "bolo": true,
	"paisa": true, "paise": true, "rupaye": true, "jaldi": true, "abhi": true,
	"turant": true, "theek": true, "thik": true, "acha": true, "accha": true,
	"kyun": true, "kyon": true, "kab": true, "kahan": true, "hoga": true,
	"hogi": true, "bhai": true, "ji": true, "sahab": true, "madam": true,
}

// DetectLanguage inspects the incoming text for a Devanagari script signal
// or a threshold density of romanized-Hindi tokens. minTokens and density
// are policy parameters; the defaults live on ResponderConfig.
func DetectLanguage(text string, minTokens int, density float64) Language {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return LangHinglish
		}
	}

	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) < minTokens {
		return LangEnglish
	}

	hits := 0
	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,!?;:'\"")
		if hinglishLexicon[tok] {
			hits++
		}
	}

	if float64(hits)/float64(len(tokens)) >= density {
		return LangHinglish
	}
	return LangEnglish
}
