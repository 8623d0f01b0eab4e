package retrieval

import (
	"context"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/johanlb/scapin-sub003/internal/model"
)

// Cached memoizes context bundles per (source, entity set) with an LRU.
// Successive passes of one analysis often query overlapping entity sets;
// concurrent analyses about the same people hit the same keys.
type Cached struct {
	inner Retriever
	lru   *lru.Cache[string, *model.ContextBundle]
}

// NewCached builds an LRU-caching decorator holding up to size bundles.
func NewCached(inner Retriever, size int) (*Cached, error) {
	c, err := lru.New[string, *model.ContextBundle](size)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: create cache")
	}
	return &Cached{inner: inner, lru: c}, nil
}

func (c *Cached) Query(ctx context.Context, entities []string, source model.SourceType) (*model.ContextBundle, error) {
	key := cacheKey(entities, source)
	if bundle, ok := c.lru.Get(key); ok {
		zap.L().Debug("retrieval: cache hit", zap.String("key", key))
		return bundle, nil
	}

	bundle, err := c.inner.Query(ctx, entities, source)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, bundle)
	return bundle, nil
}

// cacheKey is order-insensitive over entities.
func cacheKey(entities []string, source model.SourceType) string {
	sorted := make([]string, len(entities))
	copy(sorted, entities)
	sort.Strings(sorted)
	return string(source) + "|" + strings.Join(sorted, ",")
}
