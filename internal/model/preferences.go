package model

// Preferences is the best-effort record of what the user asked for.
// A nil pointer or a missing hint means unconstrained.
type Preferences struct {
	Brand         *string  `json:"brand"`
	ComponentType *string  `json:"componentType"`
	Model         *string  `json:"model"`
	Context       *string  `json:"context"`
	Monitor       *string  `json:"monitor"`
	Budget        *float64 `json:"budget"`

	// Hints holds free-text wishes per component or peripheral slot
	Hints map[Subtype]string `json:"hints,omitempty"`
	// SlotBudgets holds budgets the user stated for a single slot
	SlotBudgets map[Subtype]float64 `json:"componentBudgets,omitempty"`
}

// NewPreferences returns the all-null template
func NewPreferences() *Preferences {
	return &Preferences{
		Hints:       make(map[Subtype]string),
		SlotBudgets: make(map[Subtype]float64),
	}
}

// Hint returns the free-text wish for slot
func (p *Preferences) Hint(slot Subtype) (string, bool) {
	if p == nil || p.Hints == nil {
		return "", false
	}
	v, ok := p.Hints[slot]
	return v, ok && v != ""
}

// SlotBudget returns a budget stated for slot alone
func (p *Preferences) SlotBudget(slot Subtype) (float64, bool) {
	if p == nil || p.SlotBudgets == nil {
		return 0, false
	}
	v, ok := p.SlotBudgets[slot]
	return v, ok
}
