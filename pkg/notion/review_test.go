package notion

import (
	"context"
	"errors"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanlb/scapin-sub003/internal/model"
)

type fakePageCreator struct {
	reqs []*notionapi.PageCreateRequest
	err  error
}

func (f *fakePageCreator) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &notionapi.Page{ID: "page-1"}, nil
}

func reviewPlan() *model.ActionPlan {
	conf := 0.78
	return &model.ActionPlan{
		AnalysisID: "an-1",
		EventID:    "evt-1",
		Review: []model.ReviewItem{
			{
				Reason: "action confidence below auto-apply threshold",
				Action: &model.ActionOption{Category: model.ActionArchive, Destination: "done", Confidence: conf},
			},
			{
				Reason:     "required enrichment below confidence threshold",
				Enrichment: &model.Enrichment{Kind: model.EnrichmentNote, Summary: "invoice number", Confidence: 0.7, Required: true},
			},
		},
	}
}

func TestPublishReviewCreatesOnePagePerItem(t *testing.T) {
	c := &fakePageCreator{}
	ev := model.PerceivedEvent{ID: "evt-1", Source: model.SourceMail, Subject: "Invoice 42"}

	require.NoError(t, PublishReview(context.Background(), c, "db-1", ev, reviewPlan()))
	require.Len(t, c.reqs, 2)

	first := c.reqs[0]
	assert.Equal(t, notionapi.DatabaseID("db-1"), first.Parent.DatabaseID)
	title := first.Properties["Name"].(notionapi.TitleProperty)
	assert.Equal(t, "Invoice 42 (archive)", title.Title[0].Text.Content)
	action := first.Properties["Proposed Action"].(notionapi.RichTextProperty)
	assert.Equal(t, "archive → done", action.RichText[0].Text.Content)

	second := c.reqs[1]
	enrich := second.Properties["Proposed Action"].(notionapi.RichTextProperty)
	assert.Equal(t, "note: invoice number", enrich.RichText[0].Text.Content)
}

func TestPublishReviewPropagatesError(t *testing.T) {
	c := &fakePageCreator{err: errors.New("rate limited")}
	ev := model.PerceivedEvent{ID: "evt-1", Source: model.SourceMail}

	err := PublishReview(context.Background(), c, "db-1", ev, reviewPlan())
	require.Error(t, err)
	assert.Len(t, c.reqs, 1)
}

func TestPublishReviewEmptyPlanNoCalls(t *testing.T) {
	c := &fakePageCreator{}
	ev := model.PerceivedEvent{ID: "evt-1"}

	require.NoError(t, PublishReview(context.Background(), c, "db-1", ev, &model.ActionPlan{}))
	assert.Empty(t, c.reqs)
}
