package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pcstore/internal/metrics"
	"pcstore/internal/model"
)

// CatalogStore is the read side of the catalog the retriever needs
type CatalogStore interface {
	FindByFilter(ctx context.Context, f model.CatalogFilter, limit int) ([]model.Product, error)
	FindByCategoryName(ctx context.Context, pattern string, limit int) ([]model.Product, error)
	FindByName(ctx context.Context, pattern string, limit int) ([]model.Product, error)
	FindBySpecKeys(ctx context.Context, keys []string, limit int) ([]model.Product, error)
	ScanPrefix(ctx context.Context, n int) ([]model.Product, error)
}

// RetrieverOptions bound the work one Retrieve call may do
type RetrieverOptions struct {
	LookupTimeout time.Duration
	ScanCap       int // records read by the catalog scan rung
	Concurrency   int // filters retrieved at once
}

// CascadingRetriever runs each filter down a fixed ladder of broader lookups
// and stops at the first rung that returns anything
type CascadingRetriever struct {
	store   CatalogStore
	ranker  *Ranker
	metrics *metrics.Metrics
	opts    RetrieverOptions
}

// NewCascadingRetriever creates a new retriever
func NewCascadingRetriever(store CatalogStore, ranker *Ranker, m *metrics.Metrics, opts RetrieverOptions) *CascadingRetriever {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 3 * time.Second
	}
	if opts.ScanCap <= 0 {
		opts.ScanCap = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &CascadingRetriever{
		store:   store,
		ranker:  ranker,
		metrics: m,
		opts:    opts,
	}
}

type rung struct {
	strategy model.Strategy
	lookup   func(ctx context.Context) ([]model.Product, error)
}

// Retrieve runs every filter and pools the results in filter order, without
// duplicate products. limit applies to filters that carry no limit of their own.
// Lookup failures never surface: a failed rung counts as empty.
func (r *CascadingRetriever) Retrieve(ctx context.Context, filters []model.CatalogFilter, limit int) model.RetrievalResult {
	perFilter := make([][]model.ScoredProduct, len(filters))
	strategies := make([]model.Strategy, len(filters))

	if len(filters) == 1 {
		perFilter[0], strategies[0] = r.retrieveOne(ctx, filters[0], limit)
	} else {
		var g errgroup.Group
		g.SetLimit(r.opts.Concurrency)
		for i := range filters {
			g.Go(func() error {
				perFilter[i], strategies[i] = r.retrieveOne(ctx, filters[i], limit)
				return nil
			})
		}
		_ = g.Wait()
	}

	result := model.RetrievalResult{
		Products: []model.ScoredProduct{},
		Slots:    make([]model.SlotResult, 0, len(filters)),
	}
	seen := make(map[string]bool)
	for i, f := range filters {
		count := 0
		for _, p := range perFilter[i] {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			result.Products = append(result.Products, p)
			count++
		}
		result.Slots = append(result.Slots, model.SlotResult{
			Slot:     f.Slot,
			Strategy: strategies[i],
			Count:    count,
		})
	}

	return result
}

func (r *CascadingRetriever) retrieveOne(ctx context.Context, f model.CatalogFilter, limit int) ([]model.ScoredProduct, model.Strategy) {
	if f.Limit > 0 {
		limit = f.Limit
	}
	if limit <= 0 {
		limit = 10
	}

	logger := zerolog.Ctx(ctx).With().Str("slot", f.Slot).Logger()

	for _, step := range r.ladder(f, limit) {
		if ctx.Err() != nil {
			break
		}

		products, err := r.lookup(ctx, step.lookup)
		if err != nil {
			logger.Warn().Err(err).Str("strategy", string(step.strategy)).
				Msg("catalog lookup failed, trying next strategy")
			r.metrics.RecordLookupError(string(step.strategy))
			continue
		}
		if len(products) == 0 {
			continue
		}

		if len(products) > limit {
			products = products[:limit]
		}
		logger.Debug().Str("strategy", string(step.strategy)).Int("count", len(products)).Msg("slot retrieved")
		r.metrics.RecordSlotResult(string(step.strategy))
		return r.rank(products, f, step.strategy), step.strategy
	}

	logger.Info().Msg("no products found on any strategy")
	r.metrics.RecordSlotResult(string(model.StrategyNone))
	return nil, model.StrategyNone
}

// ladder lists the rungs in order. Rungs without the hints they need are
// left out rather than run with empty input.
func (r *CascadingRetriever) ladder(f model.CatalogFilter, limit int) []rung {
	rungs := []rung{{
		strategy: model.StrategyExact,
		lookup: func(ctx context.Context) ([]model.Product, error) {
			return r.store.FindByFilter(ctx, f, limit)
		},
	}}

	if kw := strings.TrimSpace(f.Ladder.Keyword); kw != "" {
		rungs = append(rungs,
			rung{
				strategy: model.StrategyCategoryName,
				lookup: func(ctx context.Context) ([]model.Product, error) {
					return r.store.FindByCategoryName(ctx, kw, limit)
				},
			},
			rung{
				strategy: model.StrategyProductName,
				lookup: func(ctx context.Context) ([]model.Product, error) {
					return r.store.FindByName(ctx, kw, limit)
				},
			},
		)
	}

	if len(f.Ladder.SpecKeys) > 0 {
		rungs = append(rungs, rung{
			strategy: model.StrategySpecification,
			lookup: func(ctx context.Context) ([]model.Product, error) {
				return r.store.FindBySpecKeys(ctx, f.Ladder.SpecKeys, limit)
			},
		})
	}

	if len(f.Ladder.Indicators) > 0 {
		rungs = append(rungs, rung{
			strategy: model.StrategyCatalogScan,
			lookup: func(ctx context.Context) ([]model.Product, error) {
				return r.scan(ctx, f.Ladder.Indicators, limit)
			},
		})
	}

	return rungs
}

func (r *CascadingRetriever) lookup(ctx context.Context, fn func(context.Context) ([]model.Product, error)) ([]model.Product, error) {
	lctx, cancel := context.WithTimeout(ctx, r.opts.LookupTimeout)
	defer cancel()
	return fn(lctx)
}

// scan reads a bounded prefix of the catalog and keeps records whose
// serialized form contains one of the indicators
func (r *CascadingRetriever) scan(ctx context.Context, indicators []string, limit int) ([]model.Product, error) {
	records, err := r.store.ScanPrefix(ctx, r.opts.ScanCap)
	if err != nil {
		return nil, err
	}

	lowered := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		if ind = strings.ToLower(strings.TrimSpace(ind)); ind != "" {
			lowered = append(lowered, ind)
		}
	}

	var out []model.Product
	for _, p := range records {
		data, err := json.Marshal(p)
		if err != nil {
			continue
		}
		text := strings.ToLower(string(data))
		for _, ind := range lowered {
			if strings.Contains(text, ind) {
				out = append(out, p)
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *CascadingRetriever) rank(products []model.Product, f model.CatalogFilter, strategy model.Strategy) []model.ScoredProduct {
	if r.ranker != nil {
		return r.ranker.RankResults(products, f, strategy)
	}
	out := make([]model.ScoredProduct, len(products))
	for i, p := range products {
		out[i] = model.ScoredProduct{Product: p, Slot: f.Slot}
	}
	return out
}
