// Package retrieval defines the context-retrieval collaborator interface
// and decorators for degradation and caching. The decision core issues
// queries; it never implements the semantic search itself.
package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/johanlb/scapin-sub003/internal/model"
)

// Retriever is the knowledge-retrieval collaborator: given entities and the
// event type, return relevant notes, calendar items, tasks, and prior
// correspondence.
type Retriever interface {
	Query(ctx context.Context, entities []string, source model.SourceType) (*model.ContextBundle, error)
}

// Empty is a Retriever that always returns an empty bundle. Used when no
// knowledge store is configured.
type Empty struct{}

func (Empty) Query(ctx context.Context, entities []string, source model.SourceType) (*model.ContextBundle, error) {
	return &model.ContextBundle{}, nil
}

// Degrading wraps a Retriever so that failures degrade to an empty context
// bundle: logged, never surfaced to the analysis.
type Degrading struct {
	inner Retriever
}

// NewDegrading builds the degrading wrapper.
func NewDegrading(inner Retriever) *Degrading {
	return &Degrading{inner: inner}
}

func (d *Degrading) Query(ctx context.Context, entities []string, source model.SourceType) (*model.ContextBundle, error) {
	bundle, err := d.inner.Query(ctx, entities, source)
	if err != nil {
		zap.L().Warn("retrieval: query failed, degrading to empty context",
			zap.Strings("entities", entities),
			zap.String("source", string(source)),
			zap.Error(err),
		)
		return &model.ContextBundle{}, nil
	}
	if bundle == nil {
		return &model.ContextBundle{}, nil
	}
	return bundle, nil
}
