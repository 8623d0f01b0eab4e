package model

// ActionCategory classifies a candidate action for an event.
type ActionCategory string

// Action categories the reasoning tiers may propose.
const (
	ActionReply    ActionCategory = "reply"
	ActionForward  ActionCategory = "forward"
	ActionSchedule ActionCategory = "schedule"
	ActionDelegate ActionCategory = "delegate"
	ActionFile     ActionCategory = "file"
	ActionDefer    ActionCategory = "defer"
	ActionArchive  ActionCategory = "archive"
	ActionDelete   ActionCategory = "delete"
)

// Terminal reports whether the action is destructive/terminal for the event:
// once executed, the event leaves the working set and anything not yet
// captured from it is lost.
func (c ActionCategory) Terminal() bool {
	return c == ActionArchive || c == ActionDelete
}

// ActionOption is one candidate action for an event. Exactly one option per
// result may be recommended; the rest exist for transparency and must carry
// a rejection reason.
type ActionOption struct {
	Category        ActionCategory `json:"category"`
	Destination     string         `json:"destination,omitempty"`
	Confidence      float64        `json:"confidence"`
	Rationale       string         `json:"rationale,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	IsRecommended   bool           `json:"is_recommended"`
}

// EnrichmentKind distinguishes proposed notes from proposed tasks.
type EnrichmentKind string

// Enrichment kinds.
const (
	EnrichmentNote EnrichmentKind = "note"
	EnrichmentTask EnrichmentKind = "task"
)

// Override is a three-state manual override on an enrichment. It always
// takes precedence over threshold logic.
type Override string

// Override states.
const (
	OverrideUnset  Override = ""
	OverrideApply  Override = "apply"
	OverrideReject Override = "reject"
)

// Enrichment is a proposed note or task derived from an event. Required
// enrichments capture information that would be irrecoverably lost
// otherwise and are gated at a stricter threshold.
type Enrichment struct {
	Kind       EnrichmentKind `json:"kind"`
	Summary    string         `json:"summary"`
	Confidence float64        `json:"confidence"`
	Required   bool           `json:"required"`
	Override   Override       `json:"override,omitempty"`
}

// StepKind tags what a planned step executes.
type StepKind string

// Planned step kinds.
const (
	StepEnrichment StepKind = "apply_enrichment"
	StepAction     StepKind = "execute_action"
)

// PlannedStep is one auto-executable step of an action plan. Steps are
// ordered: required enrichments precede a terminal action; background steps
// never block it.
type PlannedStep struct {
	Kind       StepKind      `json:"kind"`
	Action     *ActionOption `json:"action,omitempty"`
	Enrichment *Enrichment   `json:"enrichment,omitempty"`
	Background bool          `json:"background,omitempty"`
}

// ReviewItem is a conclusion queued for human approval instead of
// auto-execution, with the reason it was held.
type ReviewItem struct {
	Reason     string        `json:"reason"`
	Action     *ActionOption `json:"action,omitempty"`
	Enrichment *Enrichment   `json:"enrichment,omitempty"`
}

// ActionPlan is the arbitration outcome for one MultiPassResult: what
// executes automatically, in order, and what is queued for review.
type ActionPlan struct {
	AnalysisID string         `json:"analysis_id"`
	EventID    string         `json:"event_id"`
	Steps      []PlannedStep  `json:"steps,omitempty"`
	Review     []ReviewItem   `json:"review,omitempty"`
	Rejected   []ActionOption `json:"rejected,omitempty"`
}
