package model

// Tier is a cost/capability level of reasoning available to a pass.
type Tier string

// Reasoning tiers, ordered by capability and cost.
const (
	TierFast     Tier = "fast-cheap"
	TierBalanced Tier = "balanced"
	TierExpert   Tier = "expert"
)

// tierRank orders tiers for comparison; higher means more capable.
var tierRank = map[Tier]int{
	TierFast:     0,
	TierBalanced: 1,
	TierExpert:   2,
}

// Rank returns the tier's capability rank (0 = cheapest). Unknown tiers
// rank below fast-cheap.
func (t Tier) Rank() int {
	r, ok := tierRank[t]
	if !ok {
		return -1
	}
	return r
}

// PassType tags what kind of reasoning a pass performs.
type PassType string

// Pass types. Blind is only ever the first pass.
const (
	PassBlind  PassType = "blind"
	PassRefine PassType = "refine"
	PassDeep   PassType = "deep"
	PassExpert PassType = "expert"
)

// StopReason records why the pass loop terminated.
type StopReason string

// Stop reasons. Exactly one is set on every MultiPassResult.
const (
	StopConfidenceSufficient StopReason = "confidence_sufficient"
	StopMaxPasses            StopReason = "max_passes_reached"
	StopNoChange             StopReason = "no_change_between_passes"
	StopInvokerFailure       StopReason = "invoker_failure"
	StopCancelled            StopReason = "cancelled"
)

// TokenUsage tracks token consumption across passes.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
}

// Total returns combined input and output tokens.
func (t TokenUsage) Total() int {
	return t.InputTokens + t.OutputTokens
}

// PassResult is the immutable record of one reasoning pass. Appended to the
// analysis's ordered pass history; never mutated afterward.
type PassResult struct {
	Number           int                `json:"number"`
	Type             PassType           `json:"type"`
	Tier             Tier               `json:"tier"`
	ConfidenceBefore float64            `json:"confidence_before"`
	ConfidenceAfter  float64            `json:"confidence_after"`
	Dimensions       map[string]float64 `json:"dimensions,omitempty"`
	DurationMs       int64              `json:"duration_ms"`
	Usage            TokenUsage         `json:"usage"`

	// OpenQuestions are doubts this pass raised for the next pass to resolve.
	OpenQuestions []string `json:"open_questions,omitempty"`

	Escalated       bool `json:"escalated"`
	ContextSearched bool `json:"context_searched"`
	ContextItems    int  `json:"context_items"`
}

// MultiPassResult is the terminal artifact of one analysis. Owned by the
// Analyze call that produced it and read-only afterward; re-analysis creates
// a brand-new result.
type MultiPassResult struct {
	AnalysisID string `json:"analysis_id"`
	EventID    string `json:"event_id"`

	Passes     []PassResult `json:"passes"`
	PassCount  int          `json:"pass_count"`
	FinalTier  Tier         `json:"final_tier"`
	TiersUsed  []Tier       `json:"tiers_used"`
	Escalated  bool         `json:"escalated"`
	StopReason StopReason   `json:"stop_reason"`
	HighStakes bool         `json:"high_stakes"`

	TotalUsage      TokenUsage `json:"total_usage"`
	TotalDurationMs int64      `json:"total_duration_ms"`

	// Final structured output, taken from the last successfully
	// completed pass.
	Actions []ActionOption `json:"actions,omitempty"`
	Notes   []Enrichment   `json:"notes,omitempty"`
	Tasks   []Enrichment   `json:"tasks,omitempty"`

	// Degraded is set when the loop ended on an invoker failure and the
	// output is the best effort so far rather than a converged answer.
	Degraded bool     `json:"degraded,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// UsedTier reports whether any pass ran at the given tier.
func (r *MultiPassResult) UsedTier(t Tier) bool {
	for _, p := range r.Passes {
		if p.Tier == t {
			return true
		}
	}
	return false
}

// Recommended returns the recommended action option, or nil if none is
// marked recommended.
func (r *MultiPassResult) Recommended() *ActionOption {
	for i := range r.Actions {
		if r.Actions[i].IsRecommended {
			return &r.Actions[i]
		}
	}
	return nil
}
