package triage

import (
	"testing"

	"emergency-triage-service/models"

	"github.com/stretchr/testify/assert"
)

func TestExtractorWaterRescueScenario(t *testing.T) {
	e := NewExtractor()
	info := models.CriticalInfo{}

	e.Apply(&info, "Someone is drowning, not moving, at Camps Bay")

	assert.Equal(t, "camps bay", info.Location)
	assert.Equal(t, "Water Rescue - Drowning", info.IncidentType)
	assert.Equal(t, "Marine Rescue + EMS", info.ResponderNeeded)
	assert.Equal(t, 1, info.NumberOfVictims)
	assert.Equal(t, "Unconscious/unresponsive", info.CurrentCondition)
	assert.Equal(t, "witness", info.CallerRelation)
}

func TestExtractorFirstWriterWinsPerField(t *testing.T) {
	e := NewExtractor()
	info := models.CriticalInfo{}

	e.Apply(&info, "there's a fire at muizenberg")
	assert.Equal(t, "muizenberg", info.Location)
	assert.Equal(t, "Fire", info.IncidentType)

	// A later turn mentioning another place or incident family does not
	// overwrite already-set fields.
	e.Apply(&info, "wait, someone got stabbed near clifton")
	assert.Equal(t, "muizenberg", info.Location)
	assert.Equal(t, "Fire", info.IncidentType)
	assert.Equal(t, "Fire Brigade + EMS", info.ResponderNeeded)
}

func TestExtractorVictimCountPrecedence(t *testing.T) {
	e := NewExtractor()
	info := models.CriticalInfo{}

	// Singular referent sets a default of 1.
	e.Apply(&info, "someone fell off the rocks")
	assert.Equal(t, 1, info.NumberOfVictims)

	// An explicit count is more specific and overwrites the default.
	e.Apply(&info, "actually there are 3 people in the water")
	assert.Equal(t, 3, info.NumberOfVictims)
}

func TestExtractorConditionSpecificityOverride(t *testing.T) {
	e := NewExtractor()
	info := models.CriticalInfo{}

	e.Apply(&info, "he's waving and struggling out there")
	assert.Equal(t, "Conscious but in distress", info.CurrentCondition)

	e.Apply(&info, "he's bleeding now")
	assert.Equal(t, "Active bleeding", info.CurrentCondition)

	e.Apply(&info, "he stopped, he's not moving")
	assert.Equal(t, "Unconscious/unresponsive", info.CurrentCondition)

	// A vaguer condition never overwrites a more specific one.
	e.Apply(&info, "he was struggling before")
	assert.Equal(t, "Unconscious/unresponsive", info.CurrentCondition)
}

func TestExtractorConditionMostSpecificWithinTurn(t *testing.T) {
	e := NewExtractor()
	info := models.CriticalInfo{}

	e.Apply(&info, "she's struggling and bleeding and now not moving at all")
	assert.Equal(t, "Unconscious/unresponsive", info.CurrentCondition)
}

func TestExtractorCallerRelationVictim(t *testing.T) {
	e := NewExtractor()
	info := models.CriticalInfo{}

	e.Apply(&info, "help me, my leg is broken, I was attacked")
	assert.Equal(t, "victim/involved", info.CallerRelation)
}

func TestExtractorHazardsAccumulate(t *testing.T) {
	e := NewExtractor()
	info := models.CriticalInfo{}

	e.Apply(&info, "there's a rip current near the rocks")
	e.Apply(&info, "the fire spreading fast and there's a gas leak")
	e.Apply(&info, "still a rip current here")

	assert.Contains(t, info.Hazards, "rip current")
	assert.Contains(t, info.Hazards, "rocks")
	assert.Contains(t, info.Hazards, "spreading fast")
	assert.Contains(t, info.Hazards, "gas leak")
	// Exact duplicates are not appended twice.
	count := 0
	for _, h := range info.Hazards {
		if h == "rip current" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractorNoSignal(t *testing.T) {
	e := NewExtractor()
	info := models.CriticalInfo{}

	e.Apply(&info, "um, hello? can you hear me?")
	assert.Equal(t, models.CriticalInfo{}, info)
}
