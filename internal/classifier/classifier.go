// Package classifier maps free text to an intent with ordered keyword rules.
package classifier

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"chat-responder/internal/domain"
)

type rule struct {
	intent  domain.Intent
	matches func(lowered string) bool
}

var (
	questionWords = wordPattern("what", "how", "why", "when", "where", "who")
	greetingWords = wordPattern("hello", "hi", "hey", "greetings")
	farewellWords = wordPattern("bye", "goodbye", "see you", "farewell")
	gratitudeWord = wordPattern("thank", "thanks", "appreciate")

	introduction = regexp.MustCompile(`(?i)\b(?:my name is|i am|call me)\s+([\p{L}\p{M}\p{N}_]+)`)
)

// rules is evaluated top to bottom; the first match wins.
var rules = []rule{
	{intent: domain.IntentQuestion, matches: func(s string) bool {
		return strings.Contains(s, "?") || questionWords.MatchString(s)
	}},
	{intent: domain.IntentGreeting, matches: greetingWords.MatchString},
	{intent: domain.IntentFarewell, matches: farewellWords.MatchString},
	{intent: domain.IntentGratitude, matches: gratitudeWord.MatchString},
}

// Classify returns the intent of text. Inputs matching no rule are General.
// Name introductions are not detected here; use ExtractIntroducedName first.
func Classify(text string) domain.Intent {
	lowered := strings.ToLower(text)
	for _, r := range rules {
		if r.matches(lowered) {
			return r.intent
		}
	}
	return domain.IntentGeneral
}

// ExtractIntroducedName finds "my name is X", "i am X" or "call me X" and
// returns X with its first letter upper-cased.
func ExtractIntroducedName(text string) (string, bool) {
	m := introduction.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return capitalizeFirst(m[1]), true
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func wordPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
