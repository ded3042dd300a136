package triage

import (
	"testing"

	"emergency-triage-service/models"

	"github.com/stretchr/testify/assert"
)

func TestSeverityUnmatchedTextScoresZero(t *testing.T) {
	a := NewSeverityAssessor()

	result := a.Assess("lovely sunny day at the beach", nil)
	assert.Equal(t, 0.0, result.SeverityScore)
	assert.Equal(t, models.CategoryMinor, result.Category)
	assert.False(t, result.ImmediateDispatch)
	assert.Equal(t, 300, result.EstimatedResponseSeconds)
}

func TestSeverityExactBoundaryIsCritical(t *testing.T) {
	a := NewSeverityAssessor()

	// "trapped" alone scores exactly 6.0; the boundary is exact, so this
	// classifies as CRITICAL, not MAJOR.
	result := a.Assess("my friend is trapped", nil)
	assert.Equal(t, 6.0, result.SeverityScore)
	assert.Equal(t, models.CategoryCritical, result.Category)
	assert.Equal(t, models.DispatchFullResponse, result.DispatchLevel)
	assert.Equal(t, 30, result.EstimatedResponseSeconds)
	assert.True(t, result.ImmediateDispatch)
}

func TestSeverityClampAtTen(t *testing.T) {
	a := NewSeverityAssessor()

	result := a.Assess("shark attack, he's drowning and not breathing", nil)
	assert.Equal(t, 10.0, result.SeverityScore)
	assert.Equal(t, models.CategoryCatastrophic, result.Category)
	assert.Equal(t, models.DispatchMassCasualty, result.DispatchLevel)
	assert.Equal(t, 0, result.EstimatedResponseSeconds)
}

func TestSeverityCategoryBands(t *testing.T) {
	a := NewSeverityAssessor()

	testCases := []struct {
		name         string
		utterance    string
		wantCategory string
		wantDispatch bool
	}{
		{"moderate fire", "I think there might be a fire", models.CategoryModerate, false},
		{"moderate hurt", "someone got hurt", models.CategoryModerate, false},
		{"major bleeding", "he's bleeding", models.CategoryMajor, true},
		{"critical drowning", "someone is drowning", models.CategoryCritical, true},
		{"catastrophic collapse", "a building collapse on main road", models.CategoryCatastrophic, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := a.Assess(tc.utterance, nil)
			assert.Equal(t, tc.wantCategory, result.Category)
			assert.Equal(t, tc.wantDispatch, result.ImmediateDispatch)
		})
	}
}

func TestSeverityMultipleVictimsMultiplier(t *testing.T) {
	a := NewSeverityAssessor()

	single := a.Assess("someone is drowning", nil)
	multiple := a.Assess("3 people are drowning", nil)

	// 7.0 x (1 + 0.3x2) = 11.2, clamped to 10.
	assert.Equal(t, 7.0, single.SeverityScore)
	assert.Equal(t, 10.0, multiple.SeverityScore)
	assert.Contains(t, multiple.Reasoning, "Multiple victims reported (3)")
}

func TestSeverityVictimMultiplierCapped(t *testing.T) {
	a := NewSeverityAssessor()

	// The per-victim factor caps at 5 extra victims: 2.5 x (1+1.5) = 6.25.
	result := a.Assess("20 people hurt", nil)
	assert.Equal(t, 6.3, result.SeverityScore)
}

func TestSeverityMissingPersonMultiplier(t *testing.T) {
	a := NewSeverityAssessor()

	base := a.Assess("he was struggling in the water", nil)
	boosted := a.Assess("he was struggling in the water and now he's disappeared", nil)

	// 4.0 x 1.4 = 5.6 with missing-language co-occurrence.
	assert.Equal(t, 4.0, base.SeverityScore)
	assert.Equal(t, 5.6, boosted.SeverityScore)
}

func TestSeverityMissingAloneDoesNotScore(t *testing.T) {
	a := NewSeverityAssessor()

	// The missing multiplier only applies to an already-nonzero base.
	result := a.Assess("my towel disappeared", nil)
	assert.Equal(t, 0.0, result.SeverityScore)
	assert.Equal(t, models.CategoryMinor, result.Category)
}

func TestSeverityPanicMultiplier(t *testing.T) {
	a := NewSeverityAssessor()

	calm := a.Assess("someone is drowning", nil)
	// Repetition plus stacked distress markers push panic to >=4.
	panicked := a.Assess("someone is drowning!! please hurry, oh god",
		[]string{"someone is drowning!! please hurry, oh god"})

	assert.Equal(t, 7.0, calm.SeverityScore)
	assert.Greater(t, panicked.SeverityScore, calm.SeverityScore)
	assert.Contains(t, panicked.Reasoning, "Caller panic level high")
}

func TestSeverityReasoningAndUnits(t *testing.T) {
	a := NewSeverityAssessor()

	result := a.Assess("shark attack, he's bleeding", nil)
	assert.Contains(t, result.Reasoning, "Shark attack in progress")
	assert.Contains(t, result.RequiredUnits, "Marine Rescue Unit")
	assert.Contains(t, result.RequiredUnits, "EMS Advanced Life Support")
	// Units are deduplicated across rules.
	count := 0
	for _, u := range result.RequiredUnits {
		if u == "EMS Advanced Life Support" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
