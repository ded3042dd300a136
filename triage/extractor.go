package triage

import (
	"regexp"
	"strconv"
	"strings"

	"emergency-triage-service/models"
)

// Extractor pulls structured critical facts out of single utterances and
// merges them into the session's CriticalInfo record. It never decides
// dispatch; it only enriches the record consumed by the dispatch summary.
type Extractor struct{}

// NewExtractor creates a new critical-info extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// knownLocations is the fixed gazetteer of place names. The first match in
// an utterance sets the session location.
var knownLocations = []string{
	"camps bay",
	"clifton",
	"sea point",
	"muizenberg",
	"hout bay",
	"fish hoek",
	"boulders beach",
	"bloubergstrand",
	"llandudno",
	"kommetjie",
	"strand beach",
	"gordon's bay",
	"table mountain",
	"lion's head",
	"long street",
	"v&a waterfront",
}

// incidentRule maps a keyword family to the incident type it implies and
// the responder units that type needs.
type incidentRule struct {
	Phrases         []string
	IncidentType    string
	ResponderNeeded string
}

var incidentRules = []incidentRule{
	{
		Phrases:         []string{"shark", "bite", "bitten"},
		IncidentType:    "Shark Attack",
		ResponderNeeded: "EMS + Marine Rescue",
	},
	{
		Phrases:         []string{"drown", "swept out", "rip current", "can't swim", "under water", "sinking"},
		IncidentType:    "Water Rescue - Drowning",
		ResponderNeeded: "Marine Rescue + EMS",
	},
	{
		Phrases:         []string{"fire", "smoke", "burning", "flames"},
		IncidentType:    "Fire",
		ResponderNeeded: "Fire Brigade + EMS",
	},
	{
		Phrases:         []string{"crash", "collision", "car accident", "knocked over", "hit by a car"},
		IncidentType:    "Vehicle Accident",
		ResponderNeeded: "EMS + Traffic Police",
	},
	{
		Phrases:         []string{"stabbed", "shot", "robbed", "assault", "attacked me", "fight"},
		IncidentType:    "Assault / Violent Crime",
		ResponderNeeded: "Police + EMS",
	},
	{
		Phrases:         []string{"heart attack", "chest pain", "seizure", "stroke", "collapsed", "not breathing"},
		IncidentType:    "Medical Emergency",
		ResponderNeeded: "EMS",
	},
	{
		Phrases:         []string{"missing", "disappeared", "can't find"},
		IncidentType:    "Missing Person",
		ResponderNeeded: "Police + Search and Rescue",
	},
}

// conditionRule maps phrases to a victim-condition label with a specificity
// rank. Within a turn the rules are applied together and the most specific
// match wins; across turns a more specific condition overwrites a vaguer
// one, never the reverse.
type conditionRule struct {
	Phrases   []string
	Condition string
	Rank      int
}

var conditionRules = []conditionRule{
	{
		Phrases:   []string{"waving", "struggling", "calling for", "screaming", "shouting"},
		Condition: "Conscious but in distress",
		Rank:      1,
	},
	{
		Phrases:   []string{"bleeding", "blood"},
		Condition: "Active bleeding",
		Rank:      2,
	},
	{
		Phrases:   []string{"unconscious", "not moving", "unresponsive", "not breathing", "passed out"},
		Condition: "Unconscious/unresponsive",
		Rank:      3,
	},
}

var conditionRank = func() map[string]int {
	ranks := make(map[string]int, len(conditionRules))
	for _, r := range conditionRules {
		ranks[r.Condition] = r.Rank
	}
	return ranks
}()

var victimCountPattern = regexp.MustCompile(`(\d+)\s*(?:people|persons|person|victims|victim|swimmers|kids|children|men|women)`)

var singularReferents = []string{
	"someone", "somebody", " he ", " she ", "a man", "a woman", "a child",
	"my friend", "my wife", "my husband", "my son", "my daughter",
}

var victimRelationPhrases = []string{
	"i'm hurt", "i am hurt", "i'm bleeding", "i am bleeding", "help me",
	"my leg", "my arm", "my chest", "i can't breathe", "i've been",
	"i got bitten", "i was attacked", "i'm trapped", "i am trapped",
}

var witnessRelationPhrases = []string{
	"i see", "i saw", "i can see", "i'm watching", "there's a", "there is a",
	"someone is", "somebody is", "i noticed",
}

var hazardPhrases = []string{
	"rip current", "strong current", "big waves", "sharks in the area",
	"rocks", "slippery", "traffic", "fire spreading", "spreading fast",
	"chemicals", "gas leak", "live wire", "electrical", "smoke everywhere",
	"armed", "crowd",
}

var accessPhrases = []string{"access via", "entrance", "gate", "through the", "take the path"}

// Apply extracts facts from one utterance and merges them into info.
// First writer wins per field per session, except that a later, more
// specific victim condition overwrites an earlier vaguer one and an
// explicit victim count overwrites the singular-referent default.
func (e *Extractor) Apply(info *models.CriticalInfo, utterance string) {
	lower := strings.ToLower(utterance)

	if info.Location == "" {
		for _, place := range knownLocations {
			if strings.Contains(lower, place) {
				info.Location = place
				break
			}
		}
	}

	if info.IncidentType == "" {
		for _, rule := range incidentRules {
			if containsAny(lower, rule.Phrases) {
				info.IncidentType = rule.IncidentType
				info.ResponderNeeded = rule.ResponderNeeded
				break
			}
		}
	}

	if m := victimCountPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			// Explicit counts take precedence over the singular default.
			if info.NumberOfVictims <= 1 || n > info.NumberOfVictims {
				info.NumberOfVictims = n
			}
		}
	} else if info.NumberOfVictims == 0 && containsAny(" "+lower+" ", singularReferents) {
		info.NumberOfVictims = 1
	}

	best := conditionRank[info.CurrentCondition]
	for _, rule := range conditionRules {
		if rule.Rank > best && containsAny(lower, rule.Phrases) {
			info.CurrentCondition = rule.Condition
			best = rule.Rank
		}
	}

	if info.CallerRelation == "" {
		if containsAny(lower, victimRelationPhrases) {
			info.CallerRelation = "victim/involved"
		} else if containsAny(lower, witnessRelationPhrases) {
			info.CallerRelation = "witness"
		}
	}

	for _, hazard := range hazardPhrases {
		if strings.Contains(lower, hazard) && !containsString(info.Hazards, hazard) {
			info.Hazards = append(info.Hazards, hazard)
		}
	}

	if info.AccessInstructions == "" && containsAny(lower, accessPhrases) {
		info.AccessInstructions = strings.TrimSpace(utterance)
	}
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
