package triage

import (
	"strings"

	"emergency-triage-service/models"
)

// Emergency, retraction, and sarcasm term sets driving the state machine.
// Retraction and sarcasm are checked before threat language, so a turn that
// contains both is treated as a retraction.
var emergencyTerms = []string{
	"help", "emergency", "drowning", "drown", "shark", "fire", "attack",
	"bleeding", "blood", "trapped", "accident", "crash", "injured",
	"unconscious", "not breathing", "not moving", "sinking", "missing",
	"explosion", "stabbed", "shot", "choking", "heart attack", "dying",
	"people trapped", "hurt",
}

var retractionTerms = []string{
	"just kidding", "just joking", "joking", "a joke", "prank", "made it up",
	"not real", "false alarm", "never mind", "nevermind", "it's fine now",
	"nothing happened",
}

var sarcasmTerms = []string{
	"yeah right", "as if", "whatever", "sure sure", "totally serious",
	"wink wink",
}

// StepResult is the outcome of one escalation transition.
type StepResult struct {
	Level                string
	ShouldBlock          bool
	RetractionDetected   bool
	ThreatDetected       bool
	MatchedThreats       []string
	Reactivated          bool
	RecoveredFromMisflag bool
	// RouteToResponder authorizes full dispatch routing.
	RouteToResponder bool
	// InformationalRouting permits informational routing to a responder
	// without full deployment. It never sets the dispatch verdict.
	InformationalRouting bool
}

// EscalationEngine runs the per-caller escalation state machine.
// Transitions are deterministic given the current state and the turn's
// threat/retraction/sarcasm signals.
type EscalationEngine struct{}

// NewEscalationEngine creates a new escalation engine.
func NewEscalationEngine() *EscalationEngine {
	return &EscalationEngine{}
}

// Step consumes one utterance and mutates the session's escalation state
// according to the transition rules. The caller must hold the session lock.
func (e *EscalationEngine) Step(st *models.EscalationState, utterance string) StepResult {
	lower := strings.ToLower(utterance)
	st.ConversationTurns++

	isRetraction := containsAny(lower, retractionTerms)
	isSarcastic := containsAny(lower, sarcasmTerms)
	threats := matchedTerms(lower, emergencyTerms)

	result := StepResult{}

	if isRetraction || isSarcastic {
		result.RetractionDetected = true
		if st.RetractionFlag {
			// Second consecutive retraction-type turn: terminal for
			// dispatch purposes, admin review required.
			st.RetractionConfirmed = true
			st.Level = models.EscalationFalseReport
			result.Level = st.Level
			result.ShouldBlock = true
			return result
		}
		if st.Level == models.EscalationActive || st.Level == models.EscalationPending {
			st.RetractionFlag = true
			st.Level = models.EscalationRetracted
		}
		result.Level = st.Level
		return result
	}

	if len(threats) > 0 {
		result.ThreatDetected = true
		result.MatchedThreats = threats
		// A threat-bearing turn breaks a retraction streak, so false_report
		// only ever follows two consecutive retraction-type turns.
		st.RetractionFlag = false
		if st.ConfirmedThreats == nil {
			st.ConfirmedThreats = make(map[string]bool)
		}
		for _, t := range threats {
			st.ConfirmedThreats[t] = true
		}

		switch st.Level {
		case models.EscalationRetracted:
			// Genuine threat language after a retraction reopens the case,
			// but dispatch stays withheld until the session earns active
			// again through the ordinary two-turn rule.
			st.Level = models.EscalationPending
			st.Reactivated = true
		case models.EscalationNone:
			st.Level = models.EscalationPending
		case models.EscalationPending:
			if st.ConversationTurns >= 2 {
				st.Level = models.EscalationActive
				if st.Reactivated {
					st.RecoveredFromMisflag = true
				}
			}
		}
	}

	result.Level = st.Level
	result.Reactivated = st.Reactivated
	result.RecoveredFromMisflag = st.RecoveredFromMisflag
	result.RouteToResponder = st.Level == models.EscalationActive
	result.InformationalRouting = st.Level == models.EscalationPending && !st.Reactivated
	return result
}

func matchedTerms(text string, terms []string) []string {
	var out []string
	for _, term := range terms {
		if strings.Contains(text, term) {
			out = append(out, term)
		}
	}
	return out
}
