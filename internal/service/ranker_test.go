package service

import (
	"reflect"
	"testing"

	"pcstore/internal/model"
)

func TestRanker_RankResults(t *testing.T) {
	ranker := NewRanker(0.5, 0.3, 0.2)

	products := []model.Product{
		{ID: "p1", Name: "AMD Ryzen 5 7600", Price: 900, Description: "office friendly"},
		{ID: "p2", Name: "AMD Ryzen 7 7800X3D", Price: 1800, Description: "the best gaming CPU"},
		{ID: "p3", Name: "Intel Core i5-14400F", Price: 850},
	}
	filter := model.CatalogFilter{
		Slot:      "cpu",
		Terms:     []model.MatchTerm{{Field: model.FieldText, Pattern: "Ryzen 7"}, {Field: model.FieldText, Pattern: "Ryzen"}},
		BiasTerms: []model.MatchTerm{{Field: model.FieldDescription, Pattern: "gaming"}},
		PriceMax:  floatPtr(1875),
	}

	results := ranker.RankResults(products, filter, model.StrategyExact)

	var ids []string
	for _, r := range results {
		ids = append(ids, r.ID)
		if r.Slot != "cpu" {
			t.Errorf("product %s slot = %q", r.ID, r.Slot)
		}
	}
	if want := []string{"p2", "p1", "p3"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}

	top := results[0]
	for _, reason := range []string{ReasonModelMatch, ReasonContextMatch, ReasonPriceMatch} {
		if !containsString(top.MatchedReasons, reason) {
			t.Errorf("top reasons %v missing %q", top.MatchedReasons, reason)
		}
	}
}

func TestRanker_StableForTies(t *testing.T) {
	ranker := NewRanker(0.5, 0.3, 0.2)
	products := []model.Product{
		{ID: "a", Name: "Case A", Price: 300},
		{ID: "b", Name: "Case B", Price: 300},
		{ID: "c", Name: "Case C", Price: 300},
	}

	for i := 0; i < 5; i++ {
		results := ranker.RankResults(products, model.CatalogFilter{Slot: "case"}, model.StrategyCategoryName)
		if results[0].ID != "a" || results[1].ID != "b" || results[2].ID != "c" {
			t.Fatalf("tie order changed: %v", results)
		}
		if !reflect.DeepEqual(results[0].MatchedReasons, []string{ReasonCategoryName}) {
			t.Errorf("reasons = %v", results[0].MatchedReasons)
		}
	}
}

func TestRanker_CalculatePriceScore(t *testing.T) {
	ranker := NewRanker(0, 0, 1)

	tests := []struct {
		name     string
		price    float64
		priceMax *float64
		want     float64
	}{
		{name: "no ceiling", price: 500, want: 1},
		{name: "at ceiling", price: 1000, priceMax: floatPtr(1000), want: 1},
		{name: "half of ceiling", price: 500, priceMax: floatPtr(1000), want: 0.5},
		{name: "over ceiling", price: 1200, priceMax: floatPtr(1000), want: 0},
		{name: "zero ceiling", price: 10, priceMax: floatPtr(0), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ranker.calculatePriceScore(tt.price, tt.priceMax); got != tt.want {
				t.Errorf("calculatePriceScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesTerm(t *testing.T) {
	product := model.Product{
		Name:        "Logitech G Pro X",
		Description: "Tournament grade keyboard",
		Specifications: model.Specifications{
			"Purpose":     "Gaming",
			"Switch Type": "GX Blue",
		},
	}

	tests := []struct {
		name string
		term model.MatchTerm
		want bool
	}{
		{name: "text hits name", term: model.MatchTerm{Field: model.FieldText, Pattern: "g pro"}, want: true},
		{name: "text hits spec value", term: model.MatchTerm{Field: model.FieldText, Pattern: "gx blue"}, want: true},
		{name: "name only", term: model.MatchTerm{Field: model.FieldName, Pattern: "tournament"}, want: false},
		{name: "description", term: model.MatchTerm{Field: model.FieldDescription, Pattern: "tournament"}, want: true},
		{name: "spec key ignores case", term: model.MatchTerm{Field: model.FieldSpec, SpecKey: "purpose", Pattern: "gaming"}, want: true},
		{name: "spec key with spaces", term: model.MatchTerm{Field: model.FieldSpec, SpecKey: "switch_type", Pattern: "blue"}, want: true},
		{name: "missing spec key", term: model.MatchTerm{Field: model.FieldSpec, SpecKey: "dpi", Pattern: "gaming"}, want: false},
		{name: "empty pattern", term: model.MatchTerm{Field: model.FieldText, Pattern: " "}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesTerm(product, tt.term); got != tt.want {
				t.Errorf("MatchesTerm() = %v, want %v", got, tt.want)
			}
		})
	}
}
