package state

// Wizard is the in-progress state of a multi-step form.
type Wizard struct {
	Step   int               `json:"step"`
	Values map[string]string `json:"values"`
}

// NewWizard returns a wizard positioned at its first step.
func NewWizard() Wizard {
	return Wizard{Step: 1, Values: map[string]string{}}
}

// Advance merges values and moves to the next step.
func (w *Wizard) Advance(values map[string]string) {
	if w.Values == nil {
		w.Values = map[string]string{}
	}
	for k, v := range values {
		w.Values[k] = v
	}
	w.Step++
}

// Back returns to the previous step, keeping the entered values.
func (w *Wizard) Back() {
	if w.Step > 1 {
		w.Step--
	}
}
