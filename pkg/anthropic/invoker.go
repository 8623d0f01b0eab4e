package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/johanlb/scapin-sub003/internal/invoker"
	"github.com/johanlb/scapin-sub003/internal/model"
)

// Models maps reasoning tiers to Claude model IDs.
type Models struct {
	Fast     string
	Balanced string
	Expert   string
}

// For returns the model ID for the given tier.
func (m Models) For(tier model.Tier) string {
	switch tier {
	case model.TierBalanced:
		return m.Balanced
	case model.TierExpert:
		return m.Expert
	default:
		return m.Fast
	}
}

// maxOutputTokens bounds pass output; a triage decision is small.
const maxOutputTokens = 4096

// Invoker implements the reasoning-tier collaborator against the Anthropic
// API.
type Invoker struct {
	client Client
	models Models
	system []SystemBlock
}

var _ invoker.Invoker = (*Invoker)(nil)

// NewInvoker builds an API-backed invoker with the given tier mapping.
func NewInvoker(client Client, models Models) *Invoker {
	return &Invoker{
		client: client,
		models: models,
		system: BuildCachedSystemBlocks(systemPrompt),
	}
}

// Invoke renders the pass prompt, calls the tier's model, and parses the
// structured JSON reply.
func (i *Invoker) Invoke(ctx context.Context, tier model.Tier, req invoker.PassRequest) (*model.RawPassOutput, error) {
	m := i.models.For(tier)
	if m == "" {
		return nil, eris.Errorf("anthropic: no model configured for tier %s", tier)
	}

	resp, err := i.client.CreateMessage(ctx, MessageRequest{
		Model:     m,
		MaxTokens: maxOutputTokens,
		System:    i.system,
		Messages:  []Message{{Role: "user", Content: buildUserPrompt(req)}},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "anthropic: %s pass %d", req.Type, req.PassNumber)
	}
	resp.Usage.LogCost(m, string(tier))

	out, err := parsePassOutput(extractText(resp))
	if err != nil {
		return nil, eris.Wrapf(err, "anthropic: %s pass %d", req.Type, req.PassNumber)
	}
	out.Usage = model.TokenUsage{
		InputTokens:  int(resp.Usage.InputTokens + resp.Usage.CacheCreationInputTokens + resp.Usage.CacheReadInputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	return out, nil
}

const systemPrompt = `You are the reasoning core of a personal triage system. You receive one
perceived event (an email, chat message, or calendar item) and must decide
what to do with it.

Respond with a single JSON object, no prose, with these keys:
- "dimensions": object mapping score names ("relevance", "completeness",
  "consistency") to values in [0,1] reflecting how confident you are in
  this pass's judgment.
- "actions": array of candidate actions, each with "category" (one of
  reply, forward, schedule, delegate, file, defer, archive, delete),
  "destination" (folder, person, or calendar as appropriate), "confidence"
  in [0,1], "rationale", "is_recommended" (exactly one action true), and
  "rejection_reason" (required for every non-recommended action).
- "notes": array of knowledge worth capturing, each with "summary",
  "confidence" in [0,1], and "required" (true when the information would
  be unrecoverably lost without capture).
- "tasks": array of follow-up tasks in the same shape as notes.
- "open_questions": array of doubts that more context could resolve.
- "entities": array of people, organizations, and projects mentioned.`

func buildUserPrompt(req invoker.PassRequest) string {
	var sb strings.Builder

	switch req.Type {
	case model.PassBlind:
		sb.WriteString("First look, no context retrieved yet. Judge the event on its own terms and list the entities and open questions a context search should target.\n\n")
	case model.PassRefine:
		sb.WriteString("Refinement pass. Reassess your previous judgment against the retrieved context below.\n\n")
	case model.PassDeep:
		sb.WriteString("Deep reasoning pass. Earlier passes could not reach a confident decision; reason carefully about the alternatives and resolve the open questions.\n\n")
	case model.PassExpert:
		sb.WriteString("Expert arbitration pass. This event is high-stakes or persistently ambiguous; your judgment is final. Weigh every alternative explicitly.\n\n")
	}

	fmt.Fprintf(&sb, "Event %s (%s)\nFrom: %s\n", req.Event.ID, req.Event.Source, req.Event.Sender)
	if len(req.Event.Participants) > 0 {
		fmt.Fprintf(&sb, "Participants: %s\n", strings.Join(req.Event.Participants, ", "))
	}
	fmt.Fprintf(&sb, "Subject: %s\nReceived: %s\n", req.Event.Subject, req.Event.ReceivedAt.Format("2006-01-02 15:04"))
	if req.Event.Amount != nil {
		fmt.Fprintf(&sb, "Amount mentioned: %.2f\n", *req.Event.Amount)
	}
	if req.Event.Deadline != nil {
		fmt.Fprintf(&sb, "Deadline mentioned: %s\n", req.Event.Deadline.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&sb, "\n%s\n", req.Event.Body)

	if req.Previous != nil {
		sb.WriteString("\n--- Your previous pass ---\n")
		if prev, err := json.Marshal(previousSummary(req.Previous)); err == nil {
			sb.Write(prev)
			sb.WriteByte('\n')
		}
	}
	if len(req.OpenQuestions) > 0 {
		sb.WriteString("\nOpen questions to resolve:\n")
		for _, q := range req.OpenQuestions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
	}
	writeContext(&sb, req.Context)

	return sb.String()
}

// previousSummary strips usage accounting from a prior output before
// echoing it back to the model.
func previousSummary(prev *model.RawPassOutput) map[string]any {
	return map[string]any{
		"dimensions": prev.Dimensions,
		"actions":    prev.Actions,
		"notes":      prev.Notes,
		"tasks":      prev.Tasks,
	}
}

func writeContext(sb *strings.Builder, bundle *model.ContextBundle) {
	if bundle == nil || bundle.Empty() {
		return
	}
	sb.WriteString("\n--- Retrieved context ---\n")
	section := func(name string, items []model.ContextItem) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(sb, "%s:\n", name)
		for _, it := range items {
			fmt.Fprintf(sb, "- %s: %s\n", it.Title, it.Snippet)
		}
	}
	section("Notes", bundle.Notes)
	section("Calendar", bundle.CalendarItems)
	section("Tasks", bundle.Tasks)
	section("Prior correspondence", bundle.Correspondence)
}
