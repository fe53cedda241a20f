package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"pcstore/internal/model"
	"pcstore/internal/utils"
)

// extractorSlots maps extractor keys (lowercased) to preference hint slots
var extractorSlots = map[string]model.Subtype{
	"cpu":         model.SubtypeCPU,
	"gpu":         model.SubtypeGPU,
	"ram":         model.SubtypeRAM,
	"motherboard": model.SubtypeMotherboard,
	"storage":     model.SubtypeStorage,
	"psu":         model.SubtypePSU,
	"case":        model.SubtypeCase,
	"cooling":     model.SubtypeCooling,
	"keyboard":    model.SubtypeKeyboard,
	"mouse":       model.SubtypeMouse,
	"headphones":  model.SubtypeHeadphones,
	"microphone":  model.SubtypeMicrophone,
	"webcam":      model.SubtypeWebcam,
	"speakers":    model.SubtypeSpeakers,
}

// amountPattern joins digit groups only across a single space or comma
// followed by exactly three digits, so "Ryzen 5 3000" stays two numbers
const amountPattern = `\d{1,3}(?:[ ,]\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?`

var (
	monitorSizeRe = regexp.MustCompile(`(?i)(?:^|[^\d.,])(\d{2}(?:[.,]\d)?)\s*(?:"|”|''|-?\s*inch|in\b|cal[aei]?\b)`)
	// No \b after the Polish currency forms, RE2 word boundaries are ASCII only
	currencyAmountRe = regexp.MustCompile(`(?i)(?:^|[^\d.,])(` + amountPattern + `)\s*(?:pln|zł|zl|złotych|zlotych)`)
	budgetWordRe     = regexp.MustCompile(`(?i)(?:budget|budżet|budzet|under|below|up to|max(?:imum)?|poniżej|ponizej|maksymalnie|\bdo)\s*:?\s*(` + amountPattern + `)\s*("|”|''|inch|in\b|cal|hz|ghz|mhz|gb|tb|mm|w\b)?`)
	nonNumericRe     = regexp.MustCompile(`[^0-9.]`)
	thousandsCommaRe = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// PreferenceNormalizer merges extractor output with deterministic rescans of
// the raw message. It never fails: bad extractor output counts as empty.
type PreferenceNormalizer struct {
	classifier *IntentClassifier
}

// NewPreferenceNormalizer creates a new preference normalizer
func NewPreferenceNormalizer(classifier *IntentClassifier) *PreferenceNormalizer {
	if classifier == nil {
		classifier = NewIntentClassifier()
	}
	return &PreferenceNormalizer{classifier: classifier}
}

// Normalize builds the preference set for text. raw is the extractor's
// unparsed reply and may be empty or garbage.
func (n *PreferenceNormalizer) Normalize(text, raw string) *model.Preferences {
	prefs := model.NewPreferences()

	if obj, err := utils.DecodeObject(raw); err == nil {
		n.overlay(prefs, obj)
	}

	n.rescan(prefs, text)
	return prefs
}

// overlay copies known keys from the extractor object, ignoring the rest
func (n *PreferenceNormalizer) overlay(prefs *model.Preferences, obj map[string]interface{}) {
	for key, value := range obj {
		lk := strings.ToLower(strings.TrimSpace(key))

		if slot, ok := extractorSlots[lk]; ok {
			if s, ok := stringValue(value); ok {
				prefs.Hints[slot] = s
			}
			continue
		}

		switch lk {
		case "brand":
			prefs.Brand = stringPtr(value)
		case "componenttype", "component_type":
			prefs.ComponentType = stringPtr(value)
		case "model":
			prefs.Model = stringPtr(value)
		case "context":
			prefs.Context = stringPtr(value)
		case "monitor":
			prefs.Monitor = stringPtr(value)
		case "budget":
			prefs.Budget = CoerceBudget(value)
		case "componentbudgets", "component_budgets":
			budgets, ok := value.(map[string]interface{})
			if !ok {
				continue
			}
			for k, v := range budgets {
				slot, ok := extractorSlots[strings.ToLower(strings.TrimSpace(k))]
				if !ok {
					continue
				}
				if b := CoerceBudget(v); b != nil {
					prefs.SlotBudgets[slot] = *b
				}
			}
		}
	}
}

// rescan applies exact-keyword findings on the raw text, which always win
func (n *PreferenceNormalizer) rescan(prefs *model.Preferences, text string) {
	intent := n.classifier.Classify(text)
	if label := intent.Label(); label != "" {
		prefs.ComponentType = &label
	}

	if usage := intent.Context; usage != model.ContextNone {
		s := string(usage)
		prefs.Context = &s
	}

	if m := monitorSizeRe.FindStringSubmatch(text); len(m) > 1 {
		size := strings.Replace(m[1], ",", ".", 1) + `"`
		prefs.Monitor = &size
	}

	if prefs.Budget == nil {
		prefs.Budget = scanBudget(text)
	}
}

// CoerceBudget converts an extractor budget value to PLN. Anything that does
// not parse to a finite non-negative number is absent, not zero.
func CoerceBudget(value interface{}) *float64 {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		cleaned := nonNumericRe.ReplaceAllString(v, "")
		if cleaned == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}

// scanBudget reads a budget from the message. A number after a budget word
// that carries a unit ("up to 27 inch", "max 144Hz") is not a price.
func scanBudget(text string) *float64 {
	for _, m := range currencyAmountRe.FindAllStringSubmatch(text, -1) {
		if b := CoerceBudget(normalizeAmount(m[1])); b != nil {
			return b
		}
	}
	for _, m := range budgetWordRe.FindAllStringSubmatch(text, -1) {
		if m[2] != "" {
			continue
		}
		if b := CoerceBudget(normalizeAmount(m[1])); b != nil {
			return b
		}
	}
	return nil
}

// normalizeAmount turns "15 000", "1,500" and "1499,99" into parseable text.
// A comma followed by exactly three digits is a thousands separator.
func normalizeAmount(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if thousandsCommaRe.MatchString(s) {
		return strings.ReplaceAll(s, ",", "")
	}
	return strings.ReplaceAll(s, ",", ".")
}

func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "null") {
			return "", false
		}
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return "", false
	default:
		return "", false
	}
}

func stringPtr(value interface{}) *string {
	s, ok := stringValue(value)
	if !ok {
		return nil
	}
	return &s
}
