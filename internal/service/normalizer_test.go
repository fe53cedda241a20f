package service

import (
	"math"
	"testing"

	"pcstore/internal/model"
)

func strOf(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func floatOf(p *float64) float64 {
	if p == nil {
		return -1
	}
	return *p
}

func TestPreferenceNormalizer_InvalidExtractorOutput(t *testing.T) {
	n := NewPreferenceNormalizer(nil)

	for _, raw := range []string{"", "not json at all", "[1,2,3]", "null", `{"CPU": "Ryzen`} {
		t.Run(raw, func(t *testing.T) {
			prefs := n.Normalize("I need a gaming PC with RTX 4090 and Ryzen 7. Budget 15000 PLN", raw)

			if prefs == nil {
				t.Fatal("Normalize() returned nil")
			}
			if got := strOf(prefs.ComponentType); got != "Full Build" {
				t.Errorf("ComponentType = %s, want Full Build", got)
			}
			if got := strOf(prefs.Context); got != "gaming" {
				t.Errorf("Context = %s, want gaming", got)
			}
			if got := floatOf(prefs.Budget); got != 15000 {
				t.Errorf("Budget = %v, want 15000", got)
			}
			if prefs.Brand != nil || prefs.Model != nil || len(prefs.Hints) != 0 {
				t.Errorf("expected template fields to stay empty, got %+v", prefs)
			}
		})
	}
}

func TestPreferenceNormalizer_MergesExtractorOutput(t *testing.T) {
	n := NewPreferenceNormalizer(NewIntentClassifier())

	raw := "```json\n" + `{
		"brand": "AMD",
		"CPU": "Ryzen 7",
		"gpu": "RTX 4090",
		"RAM": 32,
		"keyboard": null,
		"componentType": "GPU",
		"budget": "15 000 zł",
		"componentBudgets": {"GPU": 6000, "toaster": 10},
		"weather": "sunny"
	}` + "\n```"

	prefs := n.Normalize("I need a gaming PC with RTX 4090 and Ryzen 7", raw)

	if got := strOf(prefs.Brand); got != "AMD" {
		t.Errorf("Brand = %s, want AMD", got)
	}
	// the rescan wins over the extractor's componentType
	if got := strOf(prefs.ComponentType); got != "Full Build" {
		t.Errorf("ComponentType = %s, want Full Build", got)
	}
	if got := floatOf(prefs.Budget); got != 15000 {
		t.Errorf("Budget = %v, want 15000", got)
	}

	wantHints := map[model.Subtype]string{
		model.SubtypeCPU: "Ryzen 7",
		model.SubtypeGPU: "RTX 4090",
		model.SubtypeRAM: "32",
	}
	if len(prefs.Hints) != len(wantHints) {
		t.Errorf("Hints = %v, want %v", prefs.Hints, wantHints)
	}
	for slot, want := range wantHints {
		if got, _ := prefs.Hint(slot); got != want {
			t.Errorf("Hint(%s) = %q, want %q", slot, got, want)
		}
	}

	if b, ok := prefs.SlotBudget(model.SubtypeGPU); !ok || b != 6000 {
		t.Errorf("SlotBudget(gpu) = %v, %v, want 6000", b, ok)
	}
	if len(prefs.SlotBudgets) != 1 {
		t.Errorf("SlotBudgets = %v, want only gpu", prefs.SlotBudgets)
	}
}

func TestPreferenceNormalizer_Rescans(t *testing.T) {
	n := NewPreferenceNormalizer(nil)

	tests := []struct {
		name        string
		text        string
		raw         string
		wantType    string
		wantMonitor string
		wantContext string
		wantBudget  float64
	}{
		{
			name:        "monitor size and currency budget",
			text:        "27 inch monitor under 1500 PLN",
			wantType:    "Monitor",
			wantMonitor: `27"`,
			wantContext: "<nil>",
			wantBudget:  1500,
		},
		{
			name:        "text size beats extractor size",
			text:        `looking for a 27" display`,
			raw:         `{"monitor": "24\""}`,
			wantType:    "Monitor",
			wantMonitor: `27"`,
			wantContext: "<nil>",
			wantBudget:  -1,
		},
		{
			name:        "extractor context kept when text has none",
			text:        "a new processor",
			raw:         `{"context": "office"}`,
			wantType:    "cpu",
			wantMonitor: "<nil>",
			wantContext: "office",
			wantBudget:  -1,
		},
		{
			name:        "extractor budget beats rescan",
			text:        "gpu do 3000 zł",
			raw:         `{"budget": 2500}`,
			wantType:    "gpu",
			wantMonitor: "<nil>",
			wantContext: "<nil>",
			wantBudget:  2500,
		},
		{
			name:        "unparsable extractor budget falls back to text",
			text:        "klawiatura do 300 zł",
			raw:         `{"budget": "a lot"}`,
			wantType:    "keyboard",
			wantMonitor: "<nil>",
			wantContext: "<nil>",
			wantBudget:  300,
		},
		{
			name:        "polish monitor size",
			text:        "monitor 23,8 cala do gier",
			wantType:    "Monitor",
			wantMonitor: `23.8"`,
			wantContext: "gaming",
			wantBudget:  -1,
		},
		{
			name:        "model number is not a size",
			text:        "RTX 4090 in stock?",
			wantType:    "gpu",
			wantMonitor: "<nil>",
			wantContext: "<nil>",
			wantBudget:  -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := n.Normalize(tt.text, tt.raw)

			if got := strOf(prefs.ComponentType); got != tt.wantType {
				t.Errorf("ComponentType = %s, want %s", got, tt.wantType)
			}
			if got := strOf(prefs.Monitor); got != tt.wantMonitor {
				t.Errorf("Monitor = %s, want %s", got, tt.wantMonitor)
			}
			if got := strOf(prefs.Context); got != tt.wantContext {
				t.Errorf("Context = %s, want %s", got, tt.wantContext)
			}
			if got := floatOf(prefs.Budget); got != tt.wantBudget {
				t.Errorf("Budget = %v, want %v", got, tt.wantBudget)
			}
		})
	}
}

func TestCoerceBudget(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  float64 // -1 means nil
	}{
		{name: "number", value: float64(1500), want: 1500},
		{name: "int", value: 42, want: 42},
		{name: "currency string", value: "1500 PLN", want: 1500},
		{name: "spaced thousands", value: "1 499.99 zł", want: 1499.99},
		{name: "comma thousands", value: "15,000", want: 15000},
		{name: "zero is kept", value: "0", want: 0},
		{name: "words only", value: "a lot", want: -1},
		{name: "negative number", value: float64(-5), want: -1},
		{name: "not a number", value: math.NaN(), want: -1},
		{name: "infinite", value: math.Inf(1), want: -1},
		{name: "null", value: nil, want: -1},
		{name: "bool", value: true, want: -1},
		{name: "two dots", value: "1.500.00", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := floatOf(CoerceBudget(tt.value)); got != tt.want {
				t.Errorf("CoerceBudget(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestScanBudget(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{text: "do 3000 zł", want: 3000},
		{text: "budget: 2 500", want: 2500},
		{text: "under 1,500", want: 1500},
		{text: "za 1499,99 PLN", want: 1499.99},
		{text: "RTX 4090 please", want: -1},
		{text: "no numbers here", want: -1},
		{text: "Ryzen 5 3000 zł", want: 3000},
		{text: "RTX 4060 2500 PLN", want: 2500},
		{text: "monitor up to 27 inch", want: -1},
		{text: "max 144Hz, budget 1200", want: 1200},
		{text: "15 000 zł", want: 15000},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := floatOf(scanBudget(tt.text)); got != tt.want {
				t.Errorf("scanBudget(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
