package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pcstore/internal/model"
	"pcstore/internal/taxonomy"
	"pcstore/internal/utils"
)

// Taxonomy keys that are not slot names
const (
	keyComponents = "components"
	keyMonitors   = "monitors"

	keyMonitor32Plus  = "monitor_32_plus"
	keyMonitor27      = "monitor_27"
	keyMonitor24      = "monitor_24"
	keyMonitor21Minus = "monitor_21_minus"

	slotMonitor = "monitor"
)

// monitorTiers are checked in order. Bounds follow the catalog's display
// ranges: 27" covers 26.5"-28.4", 24" covers 23.5"-26.4".
var monitorTiers = []struct {
	key  string
	min  float64
	word string
}{
	{keyMonitor32Plus, 28.5, "larger"},
	{keyMonitor27, 26.5, ""},
	{keyMonitor24, 23.5, ""},
	{keyMonitor21Minus, 0, "smaller"},
}

var bareSizeRe = regexp.MustCompile(`^(\d{2}(?:[.,]\d)?)$`)

var allMonitorTiers = []string{keyMonitor32Plus, keyMonitor27, keyMonitor24, keyMonitor21Minus}

// buildBias widens CPU and GPU filters of a full build by usage context
var buildBias = map[model.UsageContext]map[model.Subtype][]string{
	model.ContextGaming: {
		model.SubtypeCPU: {"high performance", "gaming"},
		model.SubtypeGPU: {"gaming", "high performance"},
	},
	model.ContextStreaming: {
		model.SubtypeCPU: {"multi-core", "multi-thread"},
		model.SubtypeGPU: {"nvenc", "encoding"},
	},
}

// peripheralBias targets each peripheral's distinguishing field
var peripheralBias = map[model.Subtype]map[model.UsageContext][]model.MatchTerm{
	model.SubtypeKeyboard: {
		model.ContextGaming: {{Field: model.FieldSpec, SpecKey: "Purpose", Pattern: "gaming"}},
		model.ContextOffice: {{Field: model.FieldSpec, SpecKey: "Purpose", Pattern: "office"}},
	},
	model.SubtypeMouse: {
		model.ContextGaming: {{Field: model.FieldSpec, SpecKey: "Purpose", Pattern: "gaming"}},
		model.ContextOffice: {{Field: model.FieldSpec, SpecKey: "Purpose", Pattern: "office"}},
	},
	model.SubtypeMicrophone: {
		model.ContextStreaming: {{Field: model.FieldDescription, Pattern: "streaming"}},
		model.ContextGaming:    {{Field: model.FieldDescription, Pattern: "gaming"}},
	},
	model.SubtypeWebcam: {
		model.ContextStreaming: {{Field: model.FieldDescription, Pattern: "streaming"}},
		model.ContextOffice:    {{Field: model.FieldDescription, Pattern: "conference"}},
	},
	model.SubtypeHeadphones: {
		model.ContextGaming:    {{Field: model.FieldDescription, Pattern: "gaming"}},
		model.ContextStreaming: {{Field: model.FieldDescription, Pattern: "streaming"}},
	},
	model.SubtypeSpeakers: {
		model.ContextGaming: {{Field: model.FieldDescription, Pattern: "gaming"}},
	},
}

// ladders hold the fallback rung inputs per slot. Keyword is a regex
// alternation, the repository passes it to ~* as is.
var ladders = map[string]model.LadderHints{
	string(model.SubtypeCPU): {
		Keyword:    "processor|cpu|procesor",
		SpecKeys:   []string{"cores", "threads", "socket"},
		Indicators: []string{"processor", "cpu", "cores", "socket"},
	},
	string(model.SubtypeGPU): {
		Keyword:    "graphics|gpu|karta graficzna|karty graficzne|geforce|radeon",
		SpecKeys:   []string{"vram", "memory_size", "gpu_chip"},
		Indicators: []string{"graphics", "gpu", "vram", "geforce", "radeon"},
	},
	string(model.SubtypeRAM): {
		Keyword:    "ram|memory|pamięć|pamiec",
		SpecKeys:   []string{"capacity", "latency", "modules"},
		Indicators: []string{"ram", "ddr4", "ddr5", "memory"},
	},
	string(model.SubtypeMotherboard): {
		Keyword:    "motherboard|mainboard|płyt|plyt",
		SpecKeys:   []string{"chipset", "form_factor", "memory_slots"},
		Indicators: []string{"motherboard", "mainboard", "chipset"},
	},
	string(model.SubtypeStorage): {
		Keyword:    "ssd|hdd|storage|drive|dysk",
		SpecKeys:   []string{"capacity", "interface", "read_speed"},
		Indicators: []string{"ssd", "nvme", "hdd", "sata"},
	},
	string(model.SubtypePSU): {
		Keyword:    "power suppl|psu|zasilacz",
		SpecKeys:   []string{"wattage", "efficiency", "modular"},
		Indicators: []string{"power supply", "psu", "wattage", "80 plus"},
	},
	string(model.SubtypeCase): {
		Keyword:    "case|obudow|chassis",
		SpecKeys:   []string{"form_factor", "side_panel", "included_fans"},
		Indicators: []string{"case", "tower", "chassis"},
	},
	string(model.SubtypeCooling): {
		Keyword:    "cool|chłodz|chlodz|fan|aio",
		SpecKeys:   []string{"fan_size", "tdp", "noise_level"},
		Indicators: []string{"cooler", "cooling", "fan", "aio"},
	},
	string(model.SubtypeKeyboard): {
		Keyword:    "keyboard|klawiatur",
		SpecKeys:   []string{"switches", "layout"},
		Indicators: []string{"keyboard", "klawiatur"},
	},
	string(model.SubtypeMouse): {
		Keyword:    `mouse|\mmice\M|mysz`,
		SpecKeys:   []string{"dpi", "sensor"},
		Indicators: []string{"mouse", "mysz", `"dpi"`},
	},
	string(model.SubtypeHeadphones): {
		Keyword:    "headphone|headset|słuchawk|sluchawk|earbud",
		SpecKeys:   []string{"driver_size", "impedance"},
		Indicators: []string{"headphone", "headset", "słuchawk", "sluchawk", "earbud"},
	},
	string(model.SubtypeMicrophone): {
		Keyword:    "microphone|mikrofon",
		SpecKeys:   []string{"polar_pattern"},
		Indicators: []string{"microphone", "mikrofon", "polar_pattern"},
	},
	string(model.SubtypeWebcam): {
		Keyword:    "webcam|kamerk|kamera internetowa",
		SpecKeys:   []string{"fps", "field_of_view"},
		Indicators: []string{"webcam", "kamerk", "kamera internetowa"},
	},
	string(model.SubtypeSpeakers): {
		Keyword:    "speaker|głośnik|glosnik|soundbar",
		SpecKeys:   []string{"rms_power"},
		Indicators: []string{"speaker", "głośnik", "glosnik", "soundbar"},
	},
	keyComponents: {
		Keyword:    "component|komponent|podzesp",
		SpecKeys:   []string{"socket", "chipset", "capacity", "wattage"},
		Indicators: []string{"component", "processor", "graphics", "memory"},
	},
	slotMonitor: {
		Keyword:    "monitor",
		SpecKeys:   []string{"resolution", "refresh_rate", "panel"},
		Indicators: []string{"monitor", "display", "screen", "resolution", "refresh", "panel"},
	},
}

// QueryBuilder turns an intent and preferences into catalog filters
type QueryBuilder struct {
	tax          *taxonomy.Map
	defaultLimit int
	perSlotLimit int
}

// NewQueryBuilder checks that every taxonomy key the builder can reference
// exists. A missing key is a configuration error.
func NewQueryBuilder(tax *taxonomy.Map, defaultLimit, perSlotLimit int) (*QueryBuilder, error) {
	if tax == nil {
		return nil, fmt.Errorf("query builder: taxonomy is nil")
	}
	if defaultLimit <= 0 || perSlotLimit <= 0 {
		return nil, fmt.Errorf("query builder: limits must be positive (got %d, %d)", defaultLimit, perSlotLimit)
	}

	keys := []string{keyComponents, keyMonitors}
	keys = append(keys, allMonitorTiers...)
	for _, s := range model.ComponentSlots {
		keys = append(keys, string(s))
	}
	for _, s := range model.PeripheralSlots {
		keys = append(keys, string(s))
	}
	if err := tax.Require(keys...); err != nil {
		return nil, fmt.Errorf("query builder: %w", err)
	}

	return &QueryBuilder{
		tax:          tax,
		defaultLimit: defaultLimit,
		perSlotLimit: perSlotLimit,
	}, nil
}

// Build returns one filter, or one per slot for full builds and pooled
// peripheral searches. The result is never empty.
func (b *QueryBuilder) Build(intent model.Intent, prefs *model.Preferences) []model.CatalogFilter {
	if prefs == nil {
		prefs = model.NewPreferences()
	}

	switch intent.Kind {
	case model.IntentFullBuild:
		return b.buildFullBuild(intent, prefs)
	case model.IntentMonitor:
		return []model.CatalogFilter{b.buildMonitor(prefs)}
	case model.IntentPeripheral:
		return b.buildPeripheral(intent, prefs)
	default:
		return []model.CatalogFilter{b.buildComponent(intent, prefs)}
	}
}

func (b *QueryBuilder) buildComponent(intent model.Intent, prefs *model.Preferences) model.CatalogFilter {
	slot := intent.Subtype
	if slot == "" && prefs.ComponentType != nil {
		// the extractor may know the part even when no keyword matched
		if s, ok := extractorSlots[strings.ToLower(*prefs.ComponentType)]; ok && !s.IsPeripheral() {
			slot = s
		}
	}

	key := keyComponents
	if slot != "" {
		key = string(slot)
	}

	f := model.CatalogFilter{
		Slot:        key,
		CategoryIDs: b.categoryIDs(key),
		Brand:       stringOrEmpty(prefs.Brand),
		Limit:       b.defaultLimit,
		Ladder:      ladders[key],
		PriceMax:    slotPrice(prefs, slot, prefs.Budget),
	}

	if slot != "" {
		f.Terms = appendHintTerms(f.Terms, prefs, slot)
	}
	f.Terms = appendTextTerms(f.Terms, stringOrEmpty(prefs.Model))
	f.BiasTerms = textTerms(model.FieldDescription, buildBias[intent.Context][slot])
	return f
}

// buildFullBuild splits an overall budget evenly over the eight slots.
// This ignores that a GPU costs more than a case; a stated per-slot
// budget overrides the split for that slot.
func (b *QueryBuilder) buildFullBuild(intent model.Intent, prefs *model.Preferences) []model.CatalogFilter {
	var perSlot *float64
	if prefs.Budget != nil {
		share := *prefs.Budget / float64(len(model.ComponentSlots))
		perSlot = &share
	}

	filters := make([]model.CatalogFilter, 0, len(model.ComponentSlots))
	for _, slot := range model.ComponentSlots {
		key := string(slot)
		f := model.CatalogFilter{
			Slot:        key,
			CategoryIDs: b.categoryIDs(key),
			Limit:       b.perSlotLimit,
			Ladder:      ladders[key],
			PriceMax:    slotPrice(prefs, slot, perSlot),
		}
		f.Terms = appendHintTerms(f.Terms, prefs, slot)
		f.BiasTerms = textTerms(model.FieldDescription, buildBias[intent.Context][slot])
		filters = append(filters, f)
	}
	return filters
}

func (b *QueryBuilder) buildMonitor(prefs *model.Preferences) model.CatalogFilter {
	tiers := allMonitorTiers
	if prefs.Monitor != nil {
		if tier, ok := MonitorTier(*prefs.Monitor); ok {
			tiers = []string{tier}
		}
	}

	ids := make([]string, 0, len(tiers))
	for _, t := range tiers {
		ids = append(ids, b.categoryIDs(t)...)
	}

	f := model.CatalogFilter{
		Slot:        slotMonitor,
		CategoryIDs: ids,
		Brand:       stringOrEmpty(prefs.Brand),
		PriceMax:    prefs.Budget,
		Limit:       b.defaultLimit,
		Ladder:      ladders[slotMonitor],
	}
	f.Terms = appendTextTerms(f.Terms, stringOrEmpty(prefs.Model))
	return f
}

func (b *QueryBuilder) buildPeripheral(intent model.Intent, prefs *model.Preferences) []model.CatalogFilter {
	if intent.Subtype != "" {
		return []model.CatalogFilter{b.peripheralFilter(intent.Subtype, intent.Context, prefs, b.defaultLimit)}
	}

	var slots []model.Subtype
	switch {
	case len(intent.Mentioned) > 0:
		slots = intent.Mentioned
	case intent.Context == model.ContextStreaming:
		slots = []model.Subtype{model.SubtypeMicrophone, model.SubtypeWebcam}
	default:
		slots = model.PeripheralSlots
	}

	filters := make([]model.CatalogFilter, 0, len(slots))
	for _, slot := range slots {
		filters = append(filters, b.peripheralFilter(slot, intent.Context, prefs, b.perSlotLimit))
	}
	return filters
}

func (b *QueryBuilder) peripheralFilter(slot model.Subtype, usage model.UsageContext, prefs *model.Preferences, limit int) model.CatalogFilter {
	key := string(slot)
	f := model.CatalogFilter{
		Slot:        key,
		CategoryIDs: b.categoryIDs(key),
		Brand:       stringOrEmpty(prefs.Brand),
		PriceMax:    slotPrice(prefs, slot, prefs.Budget),
		Limit:       limit,
		Ladder:      ladders[key],
	}
	f.Terms = appendHintTerms(f.Terms, prefs, slot)
	f.Terms = appendTextTerms(f.Terms, stringOrEmpty(prefs.Model))
	f.BiasTerms = append(f.BiasTerms, peripheralBias[slot][usage]...)
	return f
}

// MonitorTier resolves a size description to a monitor tier key. Only an
// explicit size (27", 27 inch, a bare "27") or a tier word counts, so
// "1440p" or "240Hz" leave the tier open.
func MonitorTier(size string) (string, bool) {
	size = strings.ToLower(strings.TrimSpace(size))

	m := monitorSizeRe.FindStringSubmatch(size)
	if len(m) < 2 {
		m = bareSizeRe.FindStringSubmatch(size)
	}
	if len(m) > 1 {
		inches, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err == nil {
			for _, tier := range monitorTiers {
				if inches >= tier.min {
					return tier.key, true
				}
			}
		}
	}

	for _, tier := range monitorTiers {
		if tier.word != "" && utils.ContainsKeyword(size, tier.word) {
			return tier.key, true
		}
	}
	return "", false
}

func (b *QueryBuilder) categoryIDs(key string) []string {
	entry, ok := b.tax.Lookup(key)
	if !ok {
		// unreachable after NewQueryBuilder validated the keys
		return nil
	}
	return []string{entry.CategoryID}
}
