package triage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"emergency-triage-service/models"

	"github.com/shopspring/decimal"
)

// severityRule is one entry in the professional severity catalogue: a
// phrase family, its base points, and the responder units it calls for.
// Points are grouped into bands: catastrophic 8-10, critical 6-8, major
// 4-6, moderate 2-4.
type severityRule struct {
	Phrases []string
	Points  float64
	Reason  string
	Units   []string
}

var severityRules = []severityRule{
	// Catastrophic band (8-10)
	{
		Phrases: []string{"shark attack"},
		Points:  9.0,
		Reason:  "Shark attack in progress",
		Units:   []string{"Marine Rescue Unit", "EMS Advanced Life Support", "Police"},
	},
	{
		Phrases: []string{"building collapse", "collapsed building"},
		Points:  9.0,
		Reason:  "Structural collapse with probable entrapment",
		Units:   []string{"Urban Search and Rescue", "Fire Brigade", "EMS Advanced Life Support"},
	},
	{
		Phrases: []string{"explosion"},
		Points:  8.5,
		Reason:  "Explosion reported",
		Units:   []string{"Fire Brigade", "EMS Advanced Life Support", "Police"},
	},
	{
		Phrases: []string{"not breathing"},
		Points:  8.0,
		Reason:  "Victim reported not breathing",
		Units:   []string{"EMS Advanced Life Support"},
	},
	// Critical band (6-8)
	{
		Phrases: []string{"stabbed", "shot"},
		Points:  7.5,
		Reason:  "Penetrating trauma reported",
		Units:   []string{"EMS Advanced Life Support", "Police"},
	},
	{
		Phrases: []string{"drowning"},
		Points:  7.0,
		Reason:  "Active drowning in progress",
		Units:   []string{"Marine Rescue Unit", "EMS"},
	},
	{
		Phrases: []string{"heart attack"},
		Points:  7.0,
		Reason:  "Suspected cardiac event",
		Units:   []string{"EMS Advanced Life Support"},
	},
	{
		Phrases: []string{"severe bleeding", "bleeding badly", "bleeding heavily"},
		Points:  7.0,
		Reason:  "Severe hemorrhage reported",
		Units:   []string{"EMS Advanced Life Support"},
	},
	{
		Phrases: []string{"unconscious", "not moving", "unresponsive"},
		Points:  6.5,
		Reason:  "Victim unresponsive",
		Units:   []string{"EMS Advanced Life Support"},
	},
	{
		Phrases: []string{"choking"},
		Points:  6.5,
		Reason:  "Airway obstruction reported",
		Units:   []string{"EMS"},
	},
	{
		Phrases: []string{"trapped"},
		Points:  6.0,
		Reason:  "Person trapped and unable to self-rescue",
		Units:   []string{"Fire Brigade", "EMS"},
	},
	// Major band (4-6)
	{
		Phrases: []string{"chest pain"},
		Points:  5.5,
		Reason:  "Chest pain, possible cardiac",
		Units:   []string{"EMS"},
	},
	{
		Phrases: []string{"bleeding"},
		Points:  5.0,
		Reason:  "Active bleeding reported",
		Units:   []string{"EMS"},
	},
	{
		Phrases: []string{"can't swim", "swept out"},
		Points:  5.0,
		Reason:  "Swimmer in difficulty",
		Units:   []string{"Marine Rescue Unit"},
	},
	{
		Phrases: []string{"blood"},
		Points:  4.5,
		Reason:  "Blood observed at scene",
		Units:   []string{"EMS"},
	},
	{
		Phrases: []string{"broken"},
		Points:  4.5,
		Reason:  "Suspected fracture",
		Units:   []string{"EMS"},
	},
	{
		Phrases: []string{"struggling"},
		Points:  4.0,
		Reason:  "Victim struggling, condition degrading",
		Units:   []string{"EMS"},
	},
	// Moderate band (2-4)
	{
		Phrases: []string{"fire"},
		Points:  3.0,
		Reason:  "Fire reported, extent unconfirmed",
		Units:   []string{"Fire Brigade"},
	},
	{
		Phrases: []string{"injured"},
		Points:  3.0,
		Reason:  "Injury reported",
		Units:   []string{"EMS"},
	},
	{
		Phrases: []string{"accident", "crash"},
		Points:  3.0,
		Reason:  "Accident reported",
		Units:   []string{"EMS", "Traffic Police"},
	},
	{
		Phrases: []string{"hurt"},
		Points:  2.5,
		Reason:  "Person hurt, severity unknown",
		Units:   []string{"EMS"},
	},
	{
		Phrases: []string{"fell", "fallen"},
		Points:  2.5,
		Reason:  "Fall reported",
		Units:   []string{"EMS"},
	},
	{
		Phrases: []string{"smoke"},
		Points:  2.5,
		Reason:  "Smoke observed",
		Units:   []string{"Fire Brigade"},
	},
	{
		Phrases: []string{"stuck"},
		Points:  2.0,
		Reason:  "Person stuck, no immediate danger confirmed",
		Units:   []string{"Fire Brigade"},
	},
}

var panicMarkers = []string{"please", "hurry", "quickly", "oh god", "oh my god", "right now", "please help", "hurry up"}

var missingPhrases = []string{"missing", "disappeared", "can't find", "cannot find"}

var severityVictimPattern = regexp.MustCompile(`(\d+)\s*(?:people|persons|person|victims|victim|swimmers|kids|children)`)

// SeverityAssessor scores real-world danger from a fixed protocol-style
// rule matrix. Stateless; recomputed every turn.
type SeverityAssessor struct{}

// NewSeverityAssessor creates a new severity assessor.
func NewSeverityAssessor() *SeverityAssessor {
	return &SeverityAssessor{}
}

// Assess computes the severity value object for the current utterance given
// the caller-utterance history. Base points are additive over matched
// catalogue rules; a multiplicative escalation factor accounts for multiple
// victims, caller panic, and missing-person language. The final score is
// min(base x multiplier, 10), rounded to one decimal.
func (a *SeverityAssessor) Assess(utterance string, history []string) models.SeverityAssessment {
	lower := strings.ToLower(utterance)
	combined := strings.ToLower(strings.Join(history, " ") + " " + lower)

	assessment := models.SeverityAssessment{}
	base := decimal.Zero
	unitSet := make(map[string]bool)

	for _, rule := range severityRules {
		if !containsAny(lower, rule.Phrases) {
			continue
		}
		base = base.Add(decimal.NewFromFloat(rule.Points))
		assessment.Reasoning = append(assessment.Reasoning, rule.Reason)
		for _, unit := range rule.Units {
			if !unitSet[unit] {
				unitSet[unit] = true
				assessment.RequiredUnits = append(assessment.RequiredUnits, unit)
			}
		}
	}

	multiplier := decimal.NewFromInt(1)

	victims := extractVictimCount(combined)
	if victims > 1 {
		extra := victims - 1
		if extra > 5 {
			extra = 5
		}
		multiplier = multiplier.Add(decimal.NewFromFloat(0.3).Mul(decimal.NewFromInt(int64(extra))))
		assessment.Reasoning = append(assessment.Reasoning, fmt.Sprintf("Multiple victims reported (%d)", victims))
	}

	if panicLevel(utterance, history) >= 4 {
		multiplier = multiplier.Add(decimal.NewFromFloat(0.2))
		assessment.Reasoning = append(assessment.Reasoning, "Caller panic level high")
	}

	if base.IsPositive() && containsAny(combined, missingPhrases) {
		multiplier = multiplier.Add(decimal.NewFromFloat(0.4))
		assessment.Reasoning = append(assessment.Reasoning, "Missing/disappeared person language present")
	}

	score := base.Mul(multiplier)
	ten := decimal.NewFromInt(10)
	if score.GreaterThan(ten) {
		score = ten
	}
	score = score.Round(1)
	assessment.SeverityScore, _ = score.Float64()

	// Category and dispatch tier are looked up from fixed thresholds; the
	// boundaries are exact (a score of exactly 6.0 is CRITICAL).
	switch {
	case score.GreaterThanOrEqual(decimal.NewFromInt(8)):
		assessment.Category = models.CategoryCatastrophic
		assessment.DispatchLevel = models.DispatchMassCasualty
		assessment.EstimatedResponseSeconds = 0
	case score.GreaterThanOrEqual(decimal.NewFromInt(6)):
		assessment.Category = models.CategoryCritical
		assessment.DispatchLevel = models.DispatchFullResponse
		assessment.EstimatedResponseSeconds = 30
	case score.GreaterThanOrEqual(decimal.NewFromInt(4)):
		assessment.Category = models.CategoryMajor
		assessment.DispatchLevel = models.DispatchMultiUnit
		assessment.EstimatedResponseSeconds = 60
	case score.GreaterThanOrEqual(decimal.NewFromInt(2)):
		assessment.Category = models.CategoryModerate
		assessment.DispatchLevel = models.DispatchSingleUnit
		assessment.EstimatedResponseSeconds = 180
	default:
		assessment.Category = models.CategoryMinor
		assessment.DispatchLevel = models.DispatchSingleUnit
		assessment.EstimatedResponseSeconds = 300
	}

	assessment.ImmediateDispatch = assessment.Category == models.CategoryMajor ||
		assessment.Category == models.CategoryCritical ||
		assessment.Category == models.CategoryCatastrophic

	return assessment
}

// panicLevel counts distress markers in the current utterance plus verbatim
// repetition across turns, capped at 5.
func panicLevel(utterance string, history []string) int {
	lower := strings.ToLower(utterance)
	level := 0
	for _, marker := range panicMarkers {
		if strings.Contains(lower, marker) {
			level++
		}
	}
	level += strings.Count(utterance, "!")
	normalized := strings.TrimSpace(lower)
	for _, prev := range history {
		if strings.TrimSpace(strings.ToLower(prev)) == normalized && normalized != "" {
			level += 2
			break
		}
	}
	if level > 5 {
		level = 5
	}
	return level
}

func extractVictimCount(text string) int {
	m := severityVictimPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
