package models

import "time"

// Escalation states for a caller session.
const (
	EscalationNone        = "none"
	EscalationPending     = "pending"
	EscalationActive      = "active"
	EscalationRetracted   = "retracted"
	EscalationFalseReport = "false_report"
	EscalationReactivated = "reactivated_case"
)

// External escalation labels reported to the surrounding application.
const (
	LabelInitial    = "initial"
	LabelGathering  = "gathering"
	LabelEscalating = "escalating"
	LabelDispatched = "dispatched"
)

// Severity categories, ordered by increasing danger.
const (
	CategoryMinor        = "MINOR"
	CategoryModerate     = "MODERATE"
	CategoryMajor        = "MAJOR"
	CategoryCritical     = "CRITICAL"
	CategoryCatastrophic = "CATASTROPHIC"
)

// Dispatch levels looked up from the severity score.
const (
	DispatchMassCasualty = "MASS_CASUALTY_RESPONSE"
	DispatchFullResponse = "FULL_RESPONSE"
	DispatchMultiUnit    = "MULTI_UNIT"
	DispatchSingleUnit   = "SINGLE_UNIT"
)

// IncidentCodeFalseEmergency marks a high-confidence false report.
const IncidentCodeFalseEmergency = "FALSE_EMERGENCY"

// ConversationTurn is one caller/operator exchange in a session history.
type ConversationTurn struct {
	CallerText    string    `json:"caller_text"`
	OperatorReply string    `json:"operator_reply"`
	Timestamp     time.Time `json:"timestamp"`
}

// CriticalInfo holds the structured facts extracted incrementally from
// caller speech. Fields are set once and only refined by more specific
// values; they are never erased except by a session reset.
type CriticalInfo struct {
	Location           string   `json:"location,omitempty"`
	IncidentType       string   `json:"incident_type,omitempty"`
	NumberOfVictims    int      `json:"number_of_victims,omitempty"`
	CurrentCondition   string   `json:"current_condition,omitempty"`
	CallerRelation     string   `json:"caller_relation,omitempty"`
	ResponderNeeded    string   `json:"responder_needed,omitempty"`
	Hazards            []string `json:"hazards,omitempty"`
	AccessInstructions string   `json:"access_instructions,omitempty"`
}

// EscalationState is the small per-caller automaton governing whether
// dispatch is authorized.
type EscalationState struct {
	Level                string          `json:"level"`
	ConfirmedThreats     map[string]bool `json:"confirmed_threats,omitempty"`
	RetractionFlag       bool            `json:"retraction_flag"`
	RetractionConfirmed  bool            `json:"retraction_confirmed"`
	ConversationTurns    int             `json:"conversation_turns"`
	Reactivated          bool            `json:"reactivated"`
	RecoveredFromMisflag bool            `json:"recovered_from_misflag"`
}

// ExternalLevel is the escalation level reported outside the engine; a
// retracted case revived by threat language is reported as reactivated_case.
func (s *EscalationState) ExternalLevel() string {
	if s.Level == EscalationPending && s.Reactivated {
		return EscalationReactivated
	}
	return s.Level
}

// SeverityAssessment is the per-turn professional severity judgment.
// It is recomputed every turn and never stored beyond the turn that
// produced it.
type SeverityAssessment struct {
	SeverityScore            float64  `json:"severity_score"`
	Category                 string   `json:"category"`
	ImmediateDispatch        bool     `json:"immediate_dispatch"`
	DispatchLevel            string   `json:"dispatch_level"`
	RequiredUnits            []string `json:"required_units,omitempty"`
	Reasoning                []string `json:"reasoning,omitempty"`
	EstimatedResponseSeconds int      `json:"estimated_response_seconds"`
}

// CrankAssessment is the credibility verdict for the current turn.
type CrankAssessment struct {
	IsCrank    bool     `json:"is_crank"`
	Confidence int      `json:"confidence"`
	Indicators []string `json:"indicators,omitempty"`
	// RawScore is the unclamped indicator total used for classification.
	RawScore int `json:"raw_score"`
	// HasFictional is true when the fictional/impossible content family
	// matched, which distinguishes a fabricated call from a retracted
	// genuine one.
	HasFictional bool `json:"has_fictional"`
}

// DispatchSummary is the structured responder briefing generated at the
// moment dispatch is authorized.
type DispatchSummary struct {
	IncidentID      string   `json:"incident_id"`
	CallerID        string   `json:"caller_id"`
	GeneratedAt     string   `json:"generated_at"`
	Location        string   `json:"location"`
	IncidentType    string   `json:"incident_type"`
	NumberOfVictims int      `json:"number_of_victims"`
	Condition       string   `json:"condition"`
	ResponderNeeded string   `json:"responder_needed"`
	Hazards         []string `json:"hazards,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	SeverityScore   float64  `json:"severity_score"`
	Category        string   `json:"category"`
	DispatchLevel   string   `json:"dispatch_level"`
	RequiredUnits   []string `json:"required_units,omitempty"`
	Reasoning       []string `json:"reasoning,omitempty"`
	BriefingText    string   `json:"briefing_text"`
}

// TurnResult is the verdict returned to the caller of ProcessTurn.
type TurnResult struct {
	ReplyText        string           `json:"reply_text"`
	ShouldDispatch   bool             `json:"should_dispatch"`
	EscalationLevel  string           `json:"escalation_level"`
	DispatchSummary  *DispatchSummary `json:"dispatch_summary,omitempty"`
	CrankDetected    bool             `json:"crank_detected"`
	EscalateToAdmin  bool             `json:"escalate_to_admin"`
	IncidentCode     string           `json:"incident_code,omitempty"`
	SeverityScore    float64          `json:"severity_score"`
	SeverityCategory string           `json:"severity_category,omitempty"`
}

// SessionSnapshot is a read-only copy of a caller session, used by
// dashboards and tests.
type SessionSnapshot struct {
	CallerID           string             `json:"caller_id"`
	ThreatScore        int                `json:"threat_score"`
	EscalationLevel    int                `json:"escalation_level"`
	MentionedKeywords  []string           `json:"mentioned_keywords,omitempty"`
	ActiveThreats      []string           `json:"active_threats,omitempty"`
	ConversationTurns  int                `json:"conversation_turns"`
	CriticalInfo       CriticalInfo       `json:"critical_info"`
	Escalation         EscalationState    `json:"escalation"`
	History            []ConversationTurn `json:"history,omitempty"`
	DispatchAuthorized bool               `json:"dispatch_authorized"`
	CreatedAt          time.Time          `json:"created_at"`
	LastUpdate         time.Time          `json:"last_update"`
}
