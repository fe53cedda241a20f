package model

// TermField selects which product field a MatchTerm is tested against
type TermField string

const (
	// FieldText covers name, description and serialized specifications
	FieldText        TermField = "text"
	FieldName        TermField = "name"
	FieldDescription TermField = "description"
	// FieldSpec tests the specification value stored under SpecKey
	FieldSpec TermField = "spec"
)

// MatchTerm is a case-insensitive substring match. Pattern is literal text,
// the repository escapes it before use.
type MatchTerm struct {
	Field   TermField `json:"field"`
	SpecKey string    `json:"spec_key,omitempty"`
	Pattern string    `json:"pattern"`
}

// LadderHints drive the fallback rungs of the retriever for one filter
type LadderHints struct {
	// Keyword is a regex alternation matched against category and product names
	Keyword string `json:"keyword"`
	// SpecKeys are specification keys whose presence indicates the category
	SpecKeys []string `json:"spec_keys"`
	// Indicators are substrings searched in serialized products during the scan
	Indicators []string `json:"indicators"`
}

// CatalogFilter is a structured catalog predicate built per request.
// CategoryIDs, Brand and PriceMax are conjunctive. Terms form an OR block.
// BiasTerms join the OR block when Terms is not empty and otherwise only
// affect ordering.
type CatalogFilter struct {
	Slot        string      `json:"slot"`
	CategoryIDs []string    `json:"category_ids,omitempty"`
	Brand       string      `json:"brand,omitempty"`
	Terms       []MatchTerm `json:"terms,omitempty"`
	BiasTerms   []MatchTerm `json:"bias_terms,omitempty"`
	PriceMax    *float64    `json:"price_max,omitempty"`
	Limit       int         `json:"limit"`
	Ladder      LadderHints `json:"-"`
}

// Strategy names the fallback rung that produced a result
type Strategy string

const (
	StrategyExact         Strategy = "exact"
	StrategyCategoryName  Strategy = "category_name"
	StrategyProductName   Strategy = "product_name"
	StrategySpecification Strategy = "specification"
	StrategyCatalogScan   Strategy = "catalog_scan"
	StrategyNone          Strategy = "none"
)

// SlotResult is the outcome of one filter's ladder
type SlotResult struct {
	Slot     string   `json:"slot"`
	Strategy Strategy `json:"strategy"`
	Count    int      `json:"count"`
}

// RetrievalResult is the pooled output of the retriever
type RetrievalResult struct {
	Products []ScoredProduct `json:"products"`
	Slots    []SlotResult    `json:"slots"`
}

// Empty reports whether no rung produced anything
func (r RetrievalResult) Empty() bool {
	return len(r.Products) == 0
}

// PlainProducts returns the products in retrieved order
func (r RetrievalResult) PlainProducts() []Product {
	out := make([]Product, len(r.Products))
	for i, p := range r.Products {
		out[i] = p.Product
	}
	return out
}
