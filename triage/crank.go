package triage

import (
	"strings"

	"emergency-triage-service/models"
)

// crankIndicator is one independent indicator family contributing a fixed
// weight when its pattern matches anywhere in the combined current + history
// text.
type crankIndicator struct {
	Family    string
	Weight    int
	Phrases   []string
	Fictional bool
}

var crankIndicators = []crankIndicator{
	{
		Family:    "fictional_creature",
		Weight:    40,
		Phrases:   []string{"unicorn", "dragon", "zombie", "godzilla", "vampire", "werewolf", "kraken", "mermaid"},
		Fictional: true,
	},
	{
		Family:    "impossible_scenario",
		Weight:    50,
		Phrases:   []string{"alien", "ufo", "time travel", "teleport", "ghost", "flying saucer", "laser from space"},
		Fictional: true,
	},
	{
		Family:  "joke_admission",
		Weight:  60,
		Phrases: []string{"just kidding", "just joking", "jk", "it's a joke", "its a joke", "a prank", "made it up", "i'm joking", "im joking", "not really"},
	},
	{
		Family:  "inappropriate_laughter",
		Weight:  35,
		Phrases: []string{"lol", "haha", "hehe", "lmao", "rofl"},
	},
}

const (
	hedgingWeight       = 25
	contradictionWeight = 30

	// crankThreshold classifies the report; the raw total is compared
	// before any clamping.
	crankThreshold = 50
	// AdminEscalationConfidence notifies a human supervisor.
	AdminEscalationConfidence = 70
	// CriminalWarningConfidence additionally produces a criminal-liability
	// warning and the FALSE_EMERGENCY incident code.
	CriminalWarningConfidence = 80
)

var hedgingPhrases = []string{"maybe", "i think", "might", "probably", "not sure", "kind of", "sort of", "possibly"}

// CrankDetector scores the credibility of a report. Stateless; history is
// supplied by the caller.
type CrankDetector struct{}

// NewCrankDetector creates a new crank detector.
func NewCrankDetector() *CrankDetector {
	return &CrankDetector{}
}

// Detect evaluates the current utterance against the full caller-utterance
// history. Scoring is additive over independent indicator families; the raw
// total decides the verdict and the returned confidence is clamped to 100.
func (d *CrankDetector) Detect(utterance string, history []string) models.CrankAssessment {
	combined := strings.ToLower(utterance + " " + strings.Join(history, " "))
	turns := len(history) + 1

	assessment := models.CrankAssessment{}
	total := 0

	for _, ind := range crankIndicators {
		if containsAny(combined, ind.Phrases) {
			total += ind.Weight
			assessment.Indicators = append(assessment.Indicators, ind.Family)
			if ind.Fictional {
				assessment.HasFictional = true
			}
		}
	}

	if turns >= 3 && countMatches(combined, hedgingPhrases) >= 2 {
		total += hedgingWeight
		assessment.Indicators = append(assessment.Indicators, "excessive_hedging")
	}

	if strings.Contains(combined, "no emergency") && strings.Contains(combined, "help") {
		total += contradictionWeight
		assessment.Indicators = append(assessment.Indicators, "self_contradiction")
	}

	assessment.RawScore = total
	assessment.IsCrank = total >= crankThreshold
	if total > 100 {
		assessment.Confidence = 100
	} else {
		assessment.Confidence = total
	}
	return assessment
}

func countMatches(text string, phrases []string) int {
	count := 0
	for _, p := range phrases {
		if strings.Contains(text, p) {
			count++
		}
	}
	return count
}
