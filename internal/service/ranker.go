package service

import (
	"sort"
	"strings"

	"pcstore/internal/model"
)

// Match reason constants
const (
	ReasonModelMatch    = "Model match"
	ReasonBrandMatch    = "Brand match"
	ReasonContextMatch  = "Fits usage context"
	ReasonPriceMatch    = "Price within budget"
	ReasonCategoryName  = "Category name match"
	ReasonProductName   = "Product name match"
	ReasonSpecification = "Category specifications present"
	ReasonCatalogScan   = "Catalog text match"
	ReasonGeneralMatch  = "General match"
)

var strategyReasons = map[model.Strategy]string{
	model.StrategyCategoryName:  ReasonCategoryName,
	model.StrategyProductName:   ReasonProductName,
	model.StrategySpecification: ReasonSpecification,
	model.StrategyCatalogScan:   ReasonCatalogScan,
}

// Ranker handles ranking and scoring of retrieved products
type Ranker struct {
	weightTerms float64
	weightBias  float64
	weightPrice float64
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightTerms, weightBias, weightPrice float64) *Ranker {
	return &Ranker{
		weightTerms: weightTerms,
		weightBias:  weightBias,
		weightPrice: weightPrice,
	}
}

// RankResults scores products retrieved for one filter. The sort is stable,
// so equal scores keep the catalog order and the result is deterministic.
func (r *Ranker) RankResults(
	products []model.Product,
	filter model.CatalogFilter,
	strategy model.Strategy,
) []model.ScoredProduct {
	results := make([]model.ScoredProduct, 0, len(products))

	for _, product := range products {
		termScore := r.calculateTermScore(product, filter.Terms)
		biasScore := r.calculateTermScore(product, filter.BiasTerms)
		priceScore := r.calculatePriceScore(product.Price, filter.PriceMax)

		results = append(results, model.ScoredProduct{
			Product: product,
			Slot:    filter.Slot,
			Score: (r.weightTerms * termScore) +
				(r.weightBias * biasScore) +
				(r.weightPrice * priceScore),
			MatchedReasons: r.generateMatchedReasons(product, filter, strategy, termScore, biasScore),
		})
	}

	// Sort by score descending
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// calculateTermScore is the share of terms the product matches, 0.5 when
// there is nothing to match against
func (r *Ranker) calculateTermScore(product model.Product, terms []model.MatchTerm) float64 {
	if len(terms) == 0 {
		return 0.5
	}
	hits := 0
	for _, t := range terms {
		if MatchesTerm(product, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// calculatePriceScore calculates how well the price matches user's budget
func (r *Ranker) calculatePriceScore(price float64, priceMax *float64) float64 {
	if priceMax == nil {
		return 1.0 // Full score if no price filter
	}
	if *priceMax <= 0 || price > *priceMax {
		return 0.0
	}

	// Closer to max is better: the user is willing to spend it
	score := price / *priceMax
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (r *Ranker) generateMatchedReasons(
	product model.Product,
	filter model.CatalogFilter,
	strategy model.Strategy,
	termScore float64,
	biasScore float64,
) []string {
	reasons := []string{}

	if len(filter.Terms) > 0 && termScore > 0 {
		reasons = append(reasons, ReasonModelMatch)
	}
	if filter.Brand != "" && strings.Contains(strings.ToLower(product.Brand), strings.ToLower(filter.Brand)) {
		reasons = append(reasons, ReasonBrandMatch)
	}
	if len(filter.BiasTerms) > 0 && biasScore > 0 {
		reasons = append(reasons, ReasonContextMatch)
	}
	if filter.PriceMax != nil && product.Price <= *filter.PriceMax {
		reasons = append(reasons, ReasonPriceMatch)
	}
	if reason, ok := strategyReasons[strategy]; ok {
		reasons = append(reasons, reason)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}
	return reasons
}

// MatchesTerm applies a MatchTerm to a product in memory, case-insensitively
func MatchesTerm(p model.Product, t model.MatchTerm) bool {
	pattern := strings.ToLower(strings.TrimSpace(t.Pattern))
	if pattern == "" {
		return false
	}

	switch t.Field {
	case model.FieldName:
		return strings.Contains(strings.ToLower(p.Name), pattern)
	case model.FieldDescription:
		return strings.Contains(strings.ToLower(p.Description), pattern)
	case model.FieldSpec:
		v, ok := specValue(p.Specifications, t.SpecKey)
		return ok && strings.Contains(strings.ToLower(v), pattern)
	default:
		if strings.Contains(strings.ToLower(p.Name), pattern) ||
			strings.Contains(strings.ToLower(p.Description), pattern) {
			return true
		}
		for _, v := range p.Specifications {
			if strings.Contains(strings.ToLower(v), pattern) {
				return true
			}
		}
		return false
	}
}

// specValue looks a key up ignoring case, spaces and hyphens
func specValue(specs model.Specifications, key string) (string, bool) {
	want := normalizeSpecKey(key)
	for k, v := range specs {
		if normalizeSpecKey(k) == want {
			return v, true
		}
	}
	return "", false
}

func normalizeSpecKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(k)
}
