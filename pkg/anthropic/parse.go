package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/johanlb/scapin-sub003/internal/model"
)

// passPayload mirrors the JSON shape the system prompt asks for.
type passPayload struct {
	Dimensions    map[string]float64  `json:"dimensions"`
	Actions       []actionPayload     `json:"actions"`
	Notes         []enrichmentPayload `json:"notes"`
	Tasks         []enrichmentPayload `json:"tasks"`
	OpenQuestions []string            `json:"open_questions"`
	Entities      []string            `json:"entities"`
}

type actionPayload struct {
	Category        string  `json:"category"`
	Destination     string  `json:"destination"`
	Confidence      float64 `json:"confidence"`
	Rationale       string  `json:"rationale"`
	RejectionReason string  `json:"rejection_reason"`
	IsRecommended   bool    `json:"is_recommended"`
}

type enrichmentPayload struct {
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
	Required   bool    `json:"required"`
}

// parsePassOutput decodes one model reply into a raw pass output. Fence
// stripping is forgiving; the JSON itself is not.
func parsePassOutput(text string) (*model.RawPassOutput, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("anthropic: empty model reply")
	}

	var payload passPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, eris.Wrap(err, "anthropic: parse pass output")
	}
	if len(payload.Dimensions) == 0 {
		return nil, eris.New("anthropic: pass output missing confidence dimensions")
	}

	out := &model.RawPassOutput{
		Dimensions:    payload.Dimensions,
		OpenQuestions: payload.OpenQuestions,
		Entities:      payload.Entities,
	}
	for _, a := range payload.Actions {
		out.Actions = append(out.Actions, model.ActionOption{
			Category:        model.ActionCategory(a.Category),
			Destination:     a.Destination,
			Confidence:      a.Confidence,
			Rationale:       a.Rationale,
			RejectionReason: a.RejectionReason,
			IsRecommended:   a.IsRecommended,
		})
	}
	out.Notes = toEnrichments(payload.Notes, model.EnrichmentNote)
	out.Tasks = toEnrichments(payload.Tasks, model.EnrichmentTask)
	return out, nil
}

func toEnrichments(payloads []enrichmentPayload, kind model.EnrichmentKind) []model.Enrichment {
	var out []model.Enrichment
	for _, p := range payloads {
		out = append(out, model.Enrichment{
			Kind:       kind,
			Summary:    p.Summary,
			Confidence: p.Confidence,
			Required:   p.Required,
		})
	}
	return out
}

// extractText concatenates all text content blocks.
func extractText(resp *MessageResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
