package model

// RawPassOutput is the structured output of one reasoning-tier invocation:
// per-dimension confidence scores plus candidate actions and enrichments.
type RawPassOutput struct {
	Dimensions    map[string]float64 `json:"dimensions"`
	Actions       []ActionOption     `json:"actions,omitempty"`
	Notes         []Enrichment       `json:"notes,omitempty"`
	Tasks         []Enrichment       `json:"tasks,omitempty"`
	OpenQuestions []string           `json:"open_questions,omitempty"`

	// Entities named in the output; feeds the next pass's context query.
	Entities []string `json:"entities,omitempty"`

	Usage TokenUsage `json:"usage"`
}

// ContextItem is one retrieved knowledge item with a relevance score.
type ContextItem struct {
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

// ContextBundle groups retrieved context by kind. May be empty; retrieval
// failures degrade to an empty bundle rather than erroring the analysis.
type ContextBundle struct {
	Notes          []ContextItem `json:"notes,omitempty"`
	CalendarItems  []ContextItem `json:"calendar_items,omitempty"`
	Tasks          []ContextItem `json:"tasks,omitempty"`
	Correspondence []ContextItem `json:"correspondence,omitempty"`
}

// Size returns the total number of items in the bundle.
func (b *ContextBundle) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Notes) + len(b.CalendarItems) + len(b.Tasks) + len(b.Correspondence)
}

// Empty reports whether the bundle holds no items.
func (b *ContextBundle) Empty() bool {
	return b.Size() == 0
}
