// Package scorer computes the two numbers the rest of the memory
// subsystem ranks everything by: an episode's importance at capture time,
// and how much of that importance survives to "now" (spec §4.3).
package scorer

import (
	"math"
	"strings"
	"time"
)

const (
	baselineImportance = 0.5

	rememberBonus   = 0.30
	personalBonus   = 0.20
	commitmentBonus = 0.25

	maxImportance = 1.0
)

// rememberPhrase matches an explicit request to remember something.
const rememberPhrase = "remember"

// personalPhrases match first-person identity or preference statements.
var personalPhrases = []string{
	"i am", "i want", "i like", "my name", "i feel", "i work",
}

// commitmentPhrases match a promise or stated intention.
var commitmentPhrases = []string{
	"i will", "promise",
}

// Importance scores a fresh exchange on a 0..1 scale. It starts from a
// baseline and adds weight for signals that the exchange is worth
// remembering: an explicit ask, a first-person identity/preference
// statement, or a commitment. Bonuses stack and the total saturates at 1.0.
func Importance(userMessage, assistantMessage string) float32 {
	lower := strings.ToLower(userMessage)

	score := baselineImportance

	if strings.Contains(lower, rememberPhrase) {
		score += rememberBonus
	}

	for _, phrase := range personalPhrases {
		if strings.Contains(lower, phrase) {
			score += personalBonus
			break
		}
	}

	for _, phrase := range commitmentPhrases {
		if strings.Contains(lower, phrase) {
			score += commitmentBonus
			break
		}
	}

	if score > maxImportance {
		score = maxImportance
	}

	return float32(score)
}

// Decay applies exponential time decay to a base importance score, with a
// half-life proportional to the base score itself: more important
// memories decay more slowly. capturedAt is when the episode was scored;
// now is the time decay is evaluated at.
//
// decay = base * 2^(-age_days / (100 * base))
//
// A non-positive base decays to 0. An age of zero or negative (clock skew,
// or scoring at capture time) returns base unchanged.
func Decay(base float32, capturedAt, now time.Time) float32 {
	if base <= 0 {
		return 0
	}

	ageDays := now.Sub(capturedAt).Hours() / 24
	if ageDays <= 0 {
		return base
	}

	halfLife := 100 * float64(base)
	decayed := float64(base) * math.Pow(2, -ageDays/halfLife)

	return float32(decayed)
}
