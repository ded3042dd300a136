package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emergency-triage-service/metrics"
	"emergency-triage-service/models"
	"emergency-triage-service/session"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// PhrasingClient is the optional natural-language reply generator. It only
// prettifies reply text; it never makes the dispatch decision, and its
// failure must not block or alter the verdict.
type PhrasingClient interface {
	PolishReply(ctx context.Context, draft string) (string, error)
}

// DispatchPublisher publishes authorized dispatch summaries to downstream
// consumers.
type DispatchPublisher interface {
	Publish(message interface{}) error
}

// IncidentWriter persists the incident created once dispatch is authorized.
type IncidentWriter interface {
	SaveIncident(summary *models.DispatchSummary) error
}

const genericProbeReply = "Can you tell me your exact location and what is happening?"

// Engine is the response orchestrator: it composes the crank detector,
// severity assessor, escalation state machine, and critical-info extractor
// into one verdict per turn.
type Engine struct {
	store     session.Store
	detector  *CrankDetector
	assessor  *SeverityAssessor
	escalator *EscalationEngine
	extractor *Extractor

	// Optional collaborators; any of them may be nil.
	Phrasing  PhrasingClient
	Publisher DispatchPublisher
	Incidents IncidentWriter
}

// NewEngine creates a triage engine backed by the given session store.
func NewEngine(store session.Store) *Engine {
	return &Engine{
		store:     store,
		detector:  NewCrankDetector(),
		assessor:  NewSeverityAssessor(),
		escalator: NewEscalationEngine(),
		extractor: NewExtractor(),
	}
}

// ProcessTurn consumes one caller utterance and returns the turn verdict.
func (e *Engine) ProcessTurn(ctx context.Context, callerID, utterance string) (*models.TurnResult, error) {
	if callerID == "" {
		return nil, fmt.Errorf("caller id is required")
	}

	start := time.Now()
	sess := e.store.GetOrCreate(callerID)
	// Reading the gauge takes the store lock, which must never be waited on
	// while a session lock is held; this defer runs after the unlock below.
	defer func() {
		metrics.ActiveSessions.Set(float64(e.store.Len()))
	}()
	sess.Lock()
	defer sess.Unlock()
	defer func() {
		metrics.TurnDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	trimmed := strings.TrimSpace(utterance)
	history := callerHistory(sess)

	// Malformed/empty utterance is a no-signal turn: probe, never raise.
	// The derived level is still recomputed so it tracks every turn.
	if trimmed == "" {
		sess.EscalationLevel = derivedLevel(sess.ThreatScore, len(sess.History)+1)
		result := &models.TurnResult{
			ReplyText:        genericProbeReply,
			EscalationLevel:  externalLabel(sess, false),
			SeverityCategory: models.CategoryMinor,
		}
		e.finishTurn(ctx, sess, trimmed, result, "empty")
		return result, nil
	}

	crank := e.detector.Detect(trimmed, history)
	if crank.IsCrank {
		metrics.CranksDetectedTotal.Inc()
	}

	// High-confidence crank short-circuit. A retraction of a previously
	// confirmed genuine threat is not blocked here; the state machine
	// handles it with a contradiction warning instead.
	if crank.IsCrank && crank.Confidence >= AdminEscalationConfidence &&
		(crank.HasFictional || len(sess.Escalation.ConfirmedThreats) == 0) {
		result := &models.TurnResult{
			CrankDetected:    true,
			EscalateToAdmin:  true,
			EscalationLevel:  externalLabel(sess, false),
			SeverityCategory: models.CategoryMinor,
		}
		if crank.Confidence >= CriminalWarningConfidence {
			result.IncidentCode = models.IncidentCodeFalseEmergency
			result.ReplyText = "This call has been flagged as a false emergency report. " +
				"Filing false reports is a criminal offence and diverts responders from real emergencies. " +
				"This incident has been logged for review."
		} else {
			result.ReplyText = "We were unable to verify this report. A supervisor has been notified to review this call."
		}
		log.WithFields(log.Fields{
			"caller_id":  callerID,
			"confidence": crank.Confidence,
			"indicators": strings.Join(crank.Indicators, ","),
		}).Warn("triage.crank.blocked")
		e.finishTurn(ctx, sess, trimmed, result, "crank_blocked")
		return result, nil
	}

	// Lexical scoring: threat score is monotone non-decreasing, capped at 100.
	matched, threats, points := ScoreUtterance(trimmed)
	sess.ThreatScore += points
	if sess.ThreatScore > 100 {
		sess.ThreatScore = 100
	}
	for _, kw := range matched {
		sess.MentionedKeywords[kw] = true
	}
	for _, t := range threats {
		sess.ActiveThreats[t] = true
	}

	e.extractor.Apply(&sess.CriticalInfo, trimmed)

	severity := e.assessor.Assess(trimmed, history)
	step := e.escalator.Step(&sess.Escalation, trimmed)
	sess.EscalationLevel = derivedLevel(sess.ThreatScore, len(sess.History)+1)

	shouldDispatch := severity.ImmediateDispatch || severity.SeverityScore >= 6 || step.RouteToResponder
	if step.ShouldBlock ||
		sess.Escalation.Level == models.EscalationRetracted ||
		sess.Escalation.Level == models.EscalationFalseReport {
		shouldDispatch = false
	}
	// A reactivated case is treated with extra caution: dispatch stays
	// withheld until the session re-reaches active or new critical-severity
	// information arrives.
	if sess.Escalation.Level == models.EscalationPending && sess.Escalation.Reactivated &&
		!sess.Escalation.RecoveredFromMisflag && severity.SeverityScore < 6 {
		shouldDispatch = false
	}

	result := &models.TurnResult{
		ShouldDispatch:   shouldDispatch,
		CrankDetected:    crank.IsCrank,
		EscalateToAdmin:  crank.Confidence >= AdminEscalationConfidence || step.ShouldBlock,
		SeverityScore:    severity.SeverityScore,
		SeverityCategory: severity.Category,
	}
	if step.ShouldBlock {
		result.IncidentCode = models.IncidentCodeFalseEmergency
	}

	// Dispatch summary is generated exactly once, when dispatch first
	// becomes authorized for the session.
	if shouldDispatch && !sess.DispatchAuthorized {
		sess.DispatchAuthorized = true
		summary := buildDispatchSummary(sess, severity)
		result.DispatchSummary = summary
		metrics.DispatchesTotal.Inc()
		e.persistIncident(summary)
		e.publishDispatch(summary)
		log.WithFields(log.Fields{
			"caller_id":   callerID,
			"incident_id": summary.IncidentID,
			"category":    severity.Category,
			"score":       severity.SeverityScore,
		}).Info("triage.dispatch.authorized")
	}

	result.ReplyText = e.composeReply(sess, step, severity, shouldDispatch)
	result.EscalationLevel = externalLabel(sess, shouldDispatch)

	e.finishTurn(ctx, sess, trimmed, result, "ok")
	return result, nil
}

// GetSession returns a read-only snapshot of the caller's session.
func (e *Engine) GetSession(callerID string) (*models.SessionSnapshot, error) {
	sess, exists := e.store.Get(callerID)
	if !exists {
		return nil, fmt.Errorf("session not found: %s", callerID)
	}
	sess.Lock()
	defer sess.Unlock()
	snap := sess.Snapshot()
	return &snap, nil
}

// ResetSession drops the caller's state.
func (e *Engine) ResetSession(callerID string) error {
	if !e.store.Delete(callerID) {
		return fmt.Errorf("session not found: %s", callerID)
	}
	metrics.ActiveSessions.Set(float64(e.store.Len()))
	return nil
}

// CleanupIdleSessions evicts sessions idle longer than maxIdle. Invoked on
// a timer by the host process.
func (e *Engine) CleanupIdleSessions(maxIdle time.Duration) int {
	removed := e.store.Sweep(maxIdle)
	metrics.ActiveSessions.Set(float64(e.store.Len()))
	if removed > 0 {
		log.Infof("Evicted %d idle triage sessions", removed)
	}
	return removed
}

// finishTurn runs the per-turn bookkeeping shared by all verdict paths:
// optional reply phrasing, history append, and metrics.
func (e *Engine) finishTurn(ctx context.Context, sess *session.Session, utterance string, result *models.TurnResult, outcome string) {
	if e.Phrasing != nil && result.ReplyText != "" {
		polished, err := e.Phrasing.PolishReply(ctx, result.ReplyText)
		if err != nil {
			// Degrade to the rule-generated reply; the verdict is computed
			// independently and is unaffected.
			log.Warnf("Reply phrasing failed, using rule-generated text: %v", err)
		} else if strings.TrimSpace(polished) != "" {
			result.ReplyText = polished
		}
	}

	now := time.Now()
	sess.History = append(sess.History, models.ConversationTurn{
		CallerText:    utterance,
		OperatorReply: result.ReplyText,
		Timestamp:     now,
	})
	sess.LastUpdate = now
	metrics.TurnsProcessedTotal.WithLabelValues(outcome).Inc()
}

// composeReply picks the most specific phrasing available: contradiction
// and false-report warnings first, then severity-assessor phrasing at
// severity >= 6, then escalation-engine phrasing, then a generic probe.
func (e *Engine) composeReply(sess *session.Session, step StepResult, severity models.SeverityAssessment, shouldDispatch bool) string {
	switch {
	case step.ShouldBlock:
		return "This case has been closed as a false report and flagged for administrative review. " +
			"No responders will be dispatched. Filing false emergency reports is a criminal offence."
	case sess.Escalation.Level == models.EscalationRetracted && step.RetractionDetected:
		return "You reported an emergency and are now saying it was not real. This contradiction has been noted. " +
			"Responders will not be dispatched; please confirm clearly whether there is an emergency right now."
	case severity.SeverityScore >= 6:
		reply := fmt.Sprintf("Emergency confirmed: %s severity %.1f. Dispatching %s",
			severity.Category, severity.SeverityScore, strings.Join(severity.RequiredUnits, ", "))
		if sess.CriticalInfo.Location != "" {
			reply += " to " + sess.CriticalInfo.Location
		}
		reply += ". Stay on the line and keep the victim in sight if it is safe to do so."
		if !shouldDispatch {
			reply = "The reported situation is serious, but dispatch is on hold pending verification. " +
				"Please confirm the emergency and your exact location."
		}
		return reply
	case sess.Escalation.Level == models.EscalationActive:
		return "Emergency confirmed. Responders are being routed to your location now. Stay on the line."
	case sess.Escalation.Level == models.EscalationPending && sess.Escalation.Reactivated:
		return "I understand the situation may have changed. Please confirm exactly what is happening now; " +
			"responders will be dispatched once the emergency is verified."
	case sess.Escalation.Level == models.EscalationPending:
		return "I'm treating this as a possible emergency. Can you confirm the exact location and what is happening right now?"
	default:
		return genericProbeReply
	}
}

func (e *Engine) persistIncident(summary *models.DispatchSummary) {
	if e.Incidents == nil {
		return
	}
	if err := e.Incidents.SaveIncident(summary); err != nil {
		log.Errorf("Failed to persist incident %s: %v", summary.IncidentID, err)
	}
}

func (e *Engine) publishDispatch(summary *models.DispatchSummary) {
	if e.Publisher == nil {
		return
	}
	if err := e.Publisher.Publish(summary); err != nil {
		log.Errorf("Failed to publish dispatch event %s: %v", summary.IncidentID, err)
	}
}

// buildDispatchSummary assembles the responder briefing from the session's
// critical info, mentioned keywords, and the severity reasoning list.
func buildDispatchSummary(sess *session.Session, severity models.SeverityAssessment) *models.DispatchSummary {
	snap := sess.Snapshot()
	summary := &models.DispatchSummary{
		IncidentID:      uuid.New().String(),
		CallerID:        sess.CallerID,
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		Location:        sess.CriticalInfo.Location,
		IncidentType:    sess.CriticalInfo.IncidentType,
		NumberOfVictims: sess.CriticalInfo.NumberOfVictims,
		Condition:       sess.CriticalInfo.CurrentCondition,
		ResponderNeeded: sess.CriticalInfo.ResponderNeeded,
		Hazards:         snap.CriticalInfo.Hazards,
		Keywords:        snap.MentionedKeywords,
		SeverityScore:   severity.SeverityScore,
		Category:        severity.Category,
		DispatchLevel:   severity.DispatchLevel,
		RequiredUnits:   severity.RequiredUnits,
		Reasoning:       severity.Reasoning,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DISPATCH SUMMARY %s\n", summary.IncidentID)
	fmt.Fprintf(&b, "Location: %s\n", orUnknown(summary.Location))
	fmt.Fprintf(&b, "Incident: %s\n", orUnknown(summary.IncidentType))
	if summary.NumberOfVictims > 0 {
		fmt.Fprintf(&b, "Victims: %d\n", summary.NumberOfVictims)
	}
	fmt.Fprintf(&b, "Condition: %s\n", orUnknown(summary.Condition))
	fmt.Fprintf(&b, "Responders: %s\n", orUnknown(summary.ResponderNeeded))
	if len(summary.Hazards) > 0 {
		fmt.Fprintf(&b, "Hazards: %s\n", strings.Join(summary.Hazards, ", "))
	}
	fmt.Fprintf(&b, "Severity: %.1f (%s), dispatch level %s\n",
		summary.SeverityScore, summary.Category, summary.DispatchLevel)
	for _, reason := range summary.Reasoning {
		fmt.Fprintf(&b, "- %s\n", reason)
	}
	summary.BriefingText = b.String()
	return summary
}

func orUnknown(value string) string {
	if value == "" {
		return "Unknown - determine en route"
	}
	return value
}

// derivedLevel recomputes the 0-5 session escalation level from the threat
// score band and the conversation length.
func derivedLevel(threatScore, turns int) int {
	level := 0
	switch {
	case threatScore >= 80:
		level = 3
	case threatScore >= 50:
		level = 2
	case threatScore >= 20:
		level = 1
	}
	if turns >= 3 {
		level++
	}
	if turns >= 6 {
		level++
	}
	if level > 5 {
		level = 5
	}
	return level
}

// externalLabel maps session state onto the four external escalation labels.
func externalLabel(sess *session.Session, shouldDispatch bool) string {
	st := sess.Escalation.Level
	switch {
	case shouldDispatch || (sess.DispatchAuthorized && st == models.EscalationActive):
		return models.LabelDispatched
	case st == models.EscalationActive || st == models.EscalationRetracted || sess.EscalationLevel >= 3:
		return models.LabelEscalating
	case sess.ThreatScore > 0 || len(sess.History) >= 1:
		return models.LabelGathering
	default:
		return models.LabelInitial
	}
}

func callerHistory(sess *session.Session) []string {
	if len(sess.History) == 0 {
		return nil
	}
	out := make([]string, 0, len(sess.History))
	for _, turn := range sess.History {
		out = append(out, turn.CallerText)
	}
	return out
}
