package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/johanlb/scapin-sub003/internal/model"
)

// PublishReview creates one page per review item in the review-queue
// database. Pages carry enough of the analysis for a human to decide
// without consulting the decision trail.
func PublishReview(ctx context.Context, c Client, dbID string, event model.PerceivedEvent, plan *model.ActionPlan) error {
	for i, item := range plan.Review {
		req := reviewPageRequest(dbID, event, plan, item)
		page, err := c.CreatePage(ctx, req)
		if err != nil {
			return eris.Wrapf(err, "notion: publish review item %d for analysis %s", i, plan.AnalysisID)
		}
		zap.L().Info("notion: review item published",
			zap.String("analysis_id", plan.AnalysisID),
			zap.String("event_id", event.ID),
			zap.String("reason", item.Reason),
			zap.String("page_id", page.ID.String()))
	}
	return nil
}

func reviewPageRequest(dbID string, event model.PerceivedEvent, plan *model.ActionPlan, item model.ReviewItem) *notionapi.PageCreateRequest {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: richText(pageTitle(event, item)),
		},
		"Reason": notionapi.RichTextProperty{
			RichText: richText(item.Reason),
		},
		"Event ID": notionapi.RichTextProperty{
			RichText: richText(event.ID),
		},
		"Analysis ID": notionapi.RichTextProperty{
			RichText: richText(plan.AnalysisID),
		},
		"Source": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(event.Source)},
		},
	}

	if item.Action != nil {
		props["Proposed Action"] = notionapi.RichTextProperty{
			RichText: richText(fmt.Sprintf("%s → %s", item.Action.Category, item.Action.Destination)),
		}
		props["Confidence"] = notionapi.NumberProperty{Number: item.Action.Confidence}
	}
	if item.Enrichment != nil {
		props["Proposed Action"] = notionapi.RichTextProperty{
			RichText: richText(fmt.Sprintf("%s: %s", item.Enrichment.Kind, item.Enrichment.Summary)),
		}
		props["Confidence"] = notionapi.NumberProperty{Number: item.Enrichment.Confidence}
	}

	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	}
}

func pageTitle(event model.PerceivedEvent, item model.ReviewItem) string {
	subject := event.Subject
	if subject == "" {
		subject = event.ID
	}
	if item.Action != nil {
		return fmt.Sprintf("%s (%s)", subject, item.Action.Category)
	}
	if item.Enrichment != nil {
		return fmt.Sprintf("%s (%s)", subject, item.Enrichment.Kind)
	}
	return subject
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}
