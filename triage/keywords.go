package triage

import "strings"

// threatKeyword maps a keyword or phrase to its point value and the
// canonical threat token recorded in the session. The tables are data, not
// code, so the catalogues stay auditable and extensible without touching
// control flow.
type threatKeyword struct {
	Phrase    string
	Points    int
	Canonical string
}

// Matching is plain substring containment over the lower-cased utterance.
// Entries are not mutually exclusive: "shark" and "shark attack" both match
// a shark-attack report. That is a deliberate simplicity/precision trade-off
// favoring auditability over linguistic sophistication.
var threatKeywords = []threatKeyword{
	{"shark attack", 90, "shark"},
	{"shark", 50, "shark"},
	{"drowning", 60, "drowning"},
	{"drown", 40, "drowning"},
	{"not breathing", 70, "medical"},
	{"unconscious", 60, "medical"},
	{"heart attack", 70, "medical"},
	{"choking", 65, "medical"},
	{"collapsed", 55, "medical"},
	{"seizure", 60, "medical"},
	{"bleeding", 50, "injury"},
	{"blood", 40, "injury"},
	{"injured", 35, "injury"},
	{"broken", 30, "injury"},
	{"fire", 50, "fire"},
	{"smoke", 30, "fire"},
	{"burning", 40, "fire"},
	{"explosion", 80, "explosion"},
	{"trapped", 60, "trapped"},
	{"stuck", 25, "trapped"},
	{"sinking", 50, "water"},
	{"swept out", 55, "water"},
	{"rip current", 45, "water"},
	{"can't swim", 50, "water"},
	{"gun", 60, "weapon"},
	{"knife", 50, "weapon"},
	{"shot", 65, "weapon"},
	{"stabbed", 65, "weapon"},
	{"attack", 40, "assault"},
	{"robbed", 45, "assault"},
	{"assault", 45, "assault"},
	{"accident", 40, "accident"},
	{"crash", 45, "accident"},
	{"missing", 35, "missing"},
	{"emergency", 40, "general"},
	{"help", 30, "general"},
	{"hurt", 25, "general"},
	{"dying", 60, "general"},
	{"water", 10, "water"},
}

// ScoreUtterance runs the lexical threat scorer over one utterance. It
// returns every matched table phrase, the canonical threat tokens they map
// to, and the summed point value clamped to [0,100]. Pure function: same
// input always yields the same output.
func ScoreUtterance(text string) (matched []string, threats []string, score int) {
	lower := strings.ToLower(text)
	seenThreat := make(map[string]bool)
	for _, kw := range threatKeywords {
		if !strings.Contains(lower, kw.Phrase) {
			continue
		}
		matched = append(matched, kw.Phrase)
		score += kw.Points
		if !seenThreat[kw.Canonical] {
			seenThreat[kw.Canonical] = true
			threats = append(threats, kw.Canonical)
		}
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return matched, threats, score
}
