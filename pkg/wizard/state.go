package wizard

import (
	"time"

	"github.com/goliatone/go-formflow/pkg/formstate"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Intent names what a pending validation will resolve into.
type Intent string

const (
	IntentAdvance Intent = "advance"
	IntentSubmit  Intent = "submit"
	IntentField   Intent = "field"
)

// State is the complete, serialisable state of one wizard run. Values holds
// raw input; Accepted only grows when a step validates successfully.
type State struct {
	formstate.State

	Form      string       `json:"form"`
	Step      int          `json:"step"`
	Submitted bool         `json:"submitted"`
	Accepted  model.Record `json:"accepted,omitempty"`

	Pending      bool      `json:"pending"`
	PendingSince time.Time `json:"pendingSince,omitempty"`
	Intent       Intent    `json:"intent,omitempty"`
	Target       string    `json:"target,omitempty"`
	Token        uint64    `json:"token"`
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.State = s.State.Clone()
	if s.Accepted != nil {
		out.Accepted = s.Accepted.Clone()
	}
	return out
}

func (s *State) clearPending() {
	s.Pending = false
	s.PendingSince = time.Time{}
	s.Intent = ""
	s.Target = ""
}
