package steps

import (
	"errors"
	"fmt"

	"privatize-quote/internal/quote"
)

var (
	ErrNoNextStep     = errors.New("steps: already at the last step")
	ErrNoPreviousStep = errors.New("steps: already at the first step")
	ErrNotAtContact   = errors.New("steps: quote can only be submitted from the contact step")
)

// Wizard is the state of one session: where the customer is and what they
// chose so far. It must not be shared between concurrent requests.
type Wizard struct {
	Current Step                  `json:"step"`
	Model   *quote.SelectionModel `json:"model"`
}

// NewWizard starts a session on the intro step for a variant.
func NewWizard(v quote.ServiceVariant) *Wizard {
	return &Wizard{Current: StepIntro, Model: quote.NewSelectionModel(v)}
}

// SwitchVariant discards the whole selection; nothing carries over between
// variants.
func (w *Wizard) SwitchVariant(v quote.ServiceVariant) {
	w.Model = quote.NewSelectionModel(v)
	w.Current = StepIntro
}

// Steps returns the wizard's step list.
func (w *Wizard) Steps() []Step {
	list, _ := For(w.Model.Variant)
	return list
}

// Next validates the current step and moves forward one slot.
func (s *Sequencer) Next(w *Wizard) (Step, error) {
	list, err := For(w.Model.Variant)
	if err != nil {
		return w.Current, quote.NewValidationError("service_variant", err.Error())
	}
	idx := indexOf(list, w.Current)
	if idx < 0 {
		return w.Current, fmt.Errorf("steps: current step %q is not part of the %s wizard", w.Current, w.Model.Variant)
	}
	if idx == len(list)-1 {
		return w.Current, ErrNoNextStep
	}
	if err := s.Validate(w.Current, w.Model); err != nil {
		return w.Current, err
	}
	w.Current = list[idx+1]
	return w.Current, nil
}

// Back moves one slot backward without validating anything. Landing on the
// intro step discards the selection.
func (s *Sequencer) Back(w *Wizard) (Step, error) {
	list, err := For(w.Model.Variant)
	if err != nil {
		return w.Current, quote.NewValidationError("service_variant", err.Error())
	}
	idx := indexOf(list, w.Current)
	if idx <= 0 {
		return w.Current, ErrNoPreviousStep
	}
	w.enter(list[idx-1])
	return w.Current, nil
}

// Goto jumps to target. Backward jumps are always allowed; forward jumps
// require every step before target to validate.
func (s *Sequencer) Goto(w *Wizard, target Step) error {
	list, err := For(w.Model.Variant)
	if err != nil {
		return quote.NewValidationError("service_variant", err.Error())
	}
	to := indexOf(list, target)
	if to < 0 {
		return quote.NewValidationError("step", fmt.Sprintf("%s is not part of the %s wizard", target, w.Model.Variant))
	}
	from := indexOf(list, w.Current)
	if to <= from {
		w.enter(target)
		return nil
	}
	for _, st := range list[:to] {
		if err := s.Validate(st, w.Model); err != nil {
			return err
		}
	}
	w.Current = target
	return nil
}

// Complete checks that the wizard is on the terminal step and that every
// step, contact included, validates. It is the gate before submission.
func (s *Sequencer) Complete(w *Wizard) error {
	if !w.Current.Terminal() {
		return ErrNotAtContact
	}
	for _, st := range w.Steps() {
		if err := s.Validate(st, w.Model); err != nil {
			return err
		}
	}
	return nil
}

func (w *Wizard) enter(st Step) {
	if st == StepIntro {
		w.Model = quote.NewSelectionModel(w.Model.Variant)
	}
	w.Current = st
}

func indexOf(list []Step, st Step) int {
	for i, s := range list {
		if s == st {
			return i
		}
	}
	return -1
}
