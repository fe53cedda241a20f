package model

// IntentKind is the classified purpose of a message
type IntentKind string

const (
	IntentFullBuild  IntentKind = "full_build"
	IntentMonitor    IntentKind = "monitor"
	IntentPeripheral IntentKind = "peripheral"
	IntentComponent  IntentKind = "component"
)

// UsageContext biases relevance, it never filters
type UsageContext string

const (
	ContextNone      UsageContext = ""
	ContextGaming    UsageContext = "gaming"
	ContextStreaming UsageContext = "streaming"
	ContextOffice    UsageContext = "office"
)

// Subtype names a component or peripheral slot. Values double as taxonomy keys.
type Subtype string

const (
	SubtypeCPU         Subtype = "cpu"
	SubtypeGPU         Subtype = "gpu"
	SubtypeRAM         Subtype = "ram"
	SubtypeMotherboard Subtype = "motherboard"
	SubtypeStorage     Subtype = "storage"
	SubtypePSU         Subtype = "psu"
	SubtypeCase        Subtype = "case"
	SubtypeCooling     Subtype = "cooling"

	SubtypeKeyboard   Subtype = "keyboard"
	SubtypeMouse      Subtype = "mouse"
	SubtypeHeadphones Subtype = "headphones"
	SubtypeMicrophone Subtype = "microphone"
	SubtypeWebcam     Subtype = "webcam"
	SubtypeSpeakers   Subtype = "speakers"
)

// ComponentSlots are the parts of a full build, in scan order
var ComponentSlots = []Subtype{
	SubtypeCPU,
	SubtypeGPU,
	SubtypeRAM,
	SubtypeMotherboard,
	SubtypeStorage,
	SubtypePSU,
	SubtypeCase,
	SubtypeCooling,
}

// PeripheralSlots are the peripheral types, in scan order
var PeripheralSlots = []Subtype{
	SubtypeKeyboard,
	SubtypeMouse,
	SubtypeHeadphones,
	SubtypeMicrophone,
	SubtypeWebcam,
	SubtypeSpeakers,
}

// IsPeripheral reports whether s is one of PeripheralSlots
func (s Subtype) IsPeripheral() bool {
	for _, p := range PeripheralSlots {
		if s == p {
			return true
		}
	}
	return false
}

// Intent is produced once per request by the classifier
type Intent struct {
	Kind    IntentKind   `json:"kind"`
	Subtype Subtype      `json:"subtype,omitempty"`
	Context UsageContext `json:"context,omitempty"`
	// Mentioned lists the peripheral types found when several were named at once
	Mentioned []Subtype `json:"mentioned,omitempty"`
}

// Label is a human readable component type used in logs and preferences
func (i Intent) Label() string {
	switch i.Kind {
	case IntentFullBuild:
		return "Full Build"
	case IntentMonitor:
		return "Monitor"
	case IntentPeripheral:
		if i.Subtype != "" {
			return string(i.Subtype)
		}
		return "Peripheral"
	default:
		if i.Subtype != "" {
			return string(i.Subtype)
		}
		return ""
	}
}
