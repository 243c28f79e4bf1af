package proceedings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/state"
)

// WizardStore keeps the filing wizard of each user in client state.
type WizardStore = state.Store[state.Wizard]

// NewWizardStore builds the typed state store for filing wizards.
func NewWizardStore(manager *state.Manager) *WizardStore {
	return state.NewStore[state.Wizard](manager, "proceedings-wizard", state.NewWizard)
}

// wizardSteps lists the fields each filing step must collect, in order.
var wizardSteps = [][]string{
	{"applicant", "insuredId"},
	{"subject"},
	{"justification"},
}

// FilingSteps is the number of data-entry steps before a filing can be submitted.
func FilingSteps() int {
	return len(wizardSteps)
}

// Filing is a completed wizard turned into a draft proceeding.
type Filing struct {
	Status Status            `json:"status"`
	Values map[string]string `json:"values"`
}

// Filings drives the per-user filing wizard.
type Filings struct {
	store *WizardStore
}

// NewFilings wraps a wizard store.
func NewFilings(store *WizardStore) *Filings {
	return &Filings{store: store}
}

// Current returns the user's wizard.
func (f *Filings) Current(ctx context.Context, userID int64) (state.Wizard, error) {
	return f.store.Get(ctx, scope(userID))
}

// Advance checks the current step's fields and moves to the next step.
func (f *Filings) Advance(ctx context.Context, userID int64, values map[string]string) (state.Wizard, error) {
	return f.store.Update(ctx, scope(userID), func(w *state.Wizard) error {
		if w.Step < 1 {
			w.Step = 1
		}
		if w.Step > len(wizardSteps) {
			return fmt.Errorf("proceedings: wizard already complete: %w", httpx.ErrConflict)
		}
		for _, field := range wizardSteps[w.Step-1] {
			if strings.TrimSpace(values[field]) == "" {
				return fmt.Errorf("proceedings: step %d needs %q: %w", w.Step, field, httpx.ErrValidation)
			}
		}
		w.Advance(values)
		return nil
	})
}

// Back returns to the previous step.
func (f *Filings) Back(ctx context.Context, userID int64) (state.Wizard, error) {
	return f.store.Update(ctx, scope(userID), func(w *state.Wizard) error {
		w.Back()
		return nil
	})
}

// Submit turns a completed wizard into a draft filing and clears it.
func (f *Filings) Submit(ctx context.Context, userID int64) (Filing, error) {
	w, err := f.store.Get(ctx, scope(userID))
	if err != nil {
		return Filing{}, err
	}
	if w.Step <= len(wizardSteps) {
		return Filing{}, fmt.Errorf("proceedings: wizard at step %d of %d: %w", w.Step, len(wizardSteps), httpx.ErrValidation)
	}
	if err := f.store.Reset(ctx, scope(userID)); err != nil {
		return Filing{}, err
	}
	return Filing{Status: StatusDraft, Values: w.Values}, nil
}

// Cancel discards the user's wizard.
func (f *Filings) Cancel(ctx context.Context, userID int64) error {
	return f.store.Reset(ctx, scope(userID))
}

func scope(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
