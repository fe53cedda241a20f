package service

import (
	"strings"

	"pcstore/internal/model"
	"pcstore/internal/utils"
)

// Keyword lists are matched at word starts, see utils.ContainsKeyword.
// English and Polish variants live side by side; Polish entries are stems.
var (
	fullBuildKeywords = []string{
		"computer", "komputer", "pc", "set", "zestaw", "build", "rig",
		"desktop", "konfiguracj", "workstation",
	}

	monitorKeywords = []string{"monitor", "display", "screen", "wyświetlacz", "wyswietlacz", "ekran"}

	genericPeripheralKeywords = []string{"peripheral", "peryferi", "accessor", "akcesori"}

	contextKeywords = []struct {
		context  model.UsageContext
		keywords []string
	}{
		{model.ContextGaming, []string{"gaming", "game", "gamer", "gra", "gier", "granie", "esport", "fps"}},
		{model.ContextStreaming, []string{"stream", "twitch", "youtube", "nagrywan", "transmisj", "obs"}},
		{model.ContextOffice, []string{"office", "biur", "work", "praca", "pracy", "business", "excel"}},
	}
)

// subtypeKeywords holds keywords for every slot. Scan order comes from
// model.PeripheralSlots and model.ComponentSlots, never from map iteration.
var subtypeKeywords = map[model.Subtype][]string{
	model.SubtypeKeyboard:   {"keyboard", "klawiatur"},
	model.SubtypeMouse:      {"mouse", "mice", "mysz"},
	model.SubtypeHeadphones: {"headphone", "headset", "słuchawk", "sluchawk", "earbud"},
	model.SubtypeMicrophone: {"microphone", "mic", "mikrofon"},
	model.SubtypeWebcam:     {"webcam", "web camera", "kamerk", "kamera internetowa"},
	model.SubtypeSpeakers:   {"speaker", "głośnik", "glosnik", "soundbar"},

	model.SubtypeCPU:         {"cpu", "processor", "procesor", "ryzen", "intel core", "i3", "i5", "i7", "i9"},
	model.SubtypeGPU:         {"gpu", "graphics card", "graphic card", "karta graficzna", "karty graficzn", "rtx", "gtx", "radeon", "geforce"},
	model.SubtypeRAM:         {"ram", "memory", "pamięć", "pamiec", "ddr4", "ddr5"},
	model.SubtypeMotherboard: {"motherboard", "mainboard", "mobo", "płyta główna", "płyty głównej", "plyta glowna"},
	model.SubtypeStorage:     {"ssd", "hdd", "nvme", "storage", "dysk", "drive", "m.2"},
	model.SubtypePSU:         {"psu", "power supply", "zasilacz"},
	model.SubtypeCase:        {"case", "obudow", "chassis", "tower"},
	model.SubtypeCooling:     {"cooling", "cooler", "chłodzen", "chlodzen", "aio", "wentylator", "fan", "radiator"},
}

// IntentClassifier assigns a message to one of the four intent kinds.
// It is pure and safe for concurrent use.
type IntentClassifier struct{}

// NewIntentClassifier creates a new intent classifier
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{}
}

// Classify applies the keyword rules in priority order, first match wins:
// full build, monitor, peripheral subtype, generic peripheral, component
// subtype, then a general component search.
func (c *IntentClassifier) Classify(text string) model.Intent {
	text = strings.TrimSpace(text)
	intent := model.Intent{
		Kind:    model.IntentComponent,
		Context: DetectContext(text),
	}

	if _, ok := utils.MatchAny(text, fullBuildKeywords); ok {
		intent.Kind = model.IntentFullBuild
		return intent
	}

	if _, ok := utils.MatchAny(text, monitorKeywords); ok {
		intent.Kind = model.IntentMonitor
		return intent
	}

	if mentioned := matchSubtypes(text, model.PeripheralSlots); len(mentioned) > 0 {
		intent.Kind = model.IntentPeripheral
		// Several peripheral types at once: search them all instead of
		// anchoring on whichever keyword came first
		if len(mentioned) > 1 {
			intent.Mentioned = mentioned
			return intent
		}
		intent.Subtype = mentioned[0]
		return intent
	}

	if _, ok := utils.MatchAny(text, genericPeripheralKeywords); ok {
		intent.Kind = model.IntentPeripheral
		return intent
	}

	for _, slot := range model.ComponentSlots {
		if _, ok := utils.MatchAny(text, subtypeKeywords[slot]); ok {
			intent.Subtype = slot
			return intent
		}
	}

	return intent
}

// DetectContext returns the first usage context whose keywords occur in text
func DetectContext(text string) model.UsageContext {
	for _, ck := range contextKeywords {
		if _, ok := utils.MatchAny(text, ck.keywords); ok {
			return ck.context
		}
	}
	return model.ContextNone
}

// DetectSubtype returns the first slot of candidates whose keywords occur in text
func DetectSubtype(text string, candidates []model.Subtype) (model.Subtype, bool) {
	for _, slot := range candidates {
		if _, ok := utils.MatchAny(text, subtypeKeywords[slot]); ok {
			return slot, true
		}
	}
	return "", false
}

func matchSubtypes(text string, slots []model.Subtype) []model.Subtype {
	var found []model.Subtype
	for _, slot := range slots {
		if _, ok := utils.MatchAny(text, subtypeKeywords[slot]); ok {
			found = append(found, slot)
		}
	}
	return found
}
