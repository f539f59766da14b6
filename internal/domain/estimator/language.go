package estimator

import (
	"strings"
)

// Phrase lists for explanation-text classification. Aimed at the vocabulary
// grade-school learners actually type; matching is case-insensitive
// substring search, which is deliberately forgiving of typos around the
// matched phrase.
var (
	// sequencingPhrases signal planning (ordering the work before doing it).
	sequencingPhrases = []string{
		"first", "then", "next", "after that", "step", "before", "finally", "start by",
	}

	// verificationPhrases signal monitoring (checking work in flight).
	verificationPhrases = []string{
		"check", "verify", "make sure", "double-check", "confirm", "recount", "went back",
	}

	// causalPhrases are the causal connectives a strategic explanation uses.
	causalPhrases = []string{
		"because", "so that", "therefore", "which means", "that's why", "since",
	}

	// analogyPhrases are the analogy/equivalence connectives of a deep
	// explanation.
	analogyPhrases = []string{
		"like", "similar to", "same as", "just as", "works the same", "reminds me of", "equivalent",
	}

	// rotePhrases are rote-method language: applying a memorized recipe.
	rotePhrases = []string{
		"memorized", "the formula", "just did", "always do", "the rule says", "copied",
	}

	// methodPhrases are method-selection language: naming or choosing an
	// approach.
	methodPhrases = []string{
		"method", "approach", "strategy", "chose", "picked", "decided to", "used the", "tried",
	}
)

// containsAny reports whether text contains any of the phrases.
func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// explanationText lowercases an explanation once for repeated matching.
func explanationText(explanation string) string {
	return strings.ToLower(explanation)
}

// hasSequencing reports planning language in a (lowercased) explanation.
func hasSequencing(text string) bool {
	return containsAny(text, sequencingPhrases)
}

// hasVerification reports monitoring language.
func hasVerification(text string) bool {
	return containsAny(text, verificationPhrases)
}

// hasCausal reports a causal connective.
func hasCausal(text string) bool {
	return containsAny(text, causalPhrases)
}

// hasAnalogy reports an analogy/equivalence connective.
func hasAnalogy(text string) bool {
	return containsAny(text, analogyPhrases)
}

// hasRote reports rote-method language.
func hasRote(text string) bool {
	return containsAny(text, rotePhrases)
}

// hasMethodSelection reports method-selection language.
func hasMethodSelection(text string) bool {
	return containsAny(text, methodPhrases)
}
