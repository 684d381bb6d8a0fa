package form

import "citydesk/pkg/domain"

// Mode tags the form state.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// State is either Create, with an empty draft, or Edit(originalID), with an
// immutable snapshot of the record being edited and a working draft.
type State struct {
	mode       Mode
	originalID int64
	snapshot   domain.City
	draft      domain.City
}

func newCreateState() State {
	return State{mode: ModeCreate, draft: domain.NewCity()}
}

func newEditState(city domain.City) State {
	return State{
		mode:       ModeEdit,
		originalID: city.ID,
		snapshot:   city.Clone(),
		draft:      city.Clone(),
	}
}

func (s State) clone() State {
	s.snapshot = s.snapshot.Clone()
	s.draft = s.draft.Clone()
	return s
}

// Mode reports whether the form creates or edits.
func (s State) Mode() Mode { return s.mode }

// OriginalID is the id of the city being edited; zero in Create mode.
func (s State) OriginalID() int64 { return s.originalID }

// Snapshot returns the record as it was when editing started.
func (s State) Snapshot() (domain.City, bool) {
	if s.mode != ModeEdit {
		return domain.City{}, false
	}
	return s.snapshot.Clone(), true
}

// Draft returns a copy of the working record.
func (s State) Draft() domain.City { return s.draft.Clone() }

// Dirty reports whether the draft differs from the edit snapshot, or from
// the empty record in Create mode.
func (s State) Dirty() bool {
	base := domain.NewCity()
	if s.mode == ModeEdit {
		base = s.snapshot
	}
	return !equalCity(base, s.draft)
}

func equalCity(a, b domain.City) bool {
	if a.ID != b.ID || a.Name != b.Name || len(a.Commerces) != len(b.Commerces) {
		return false
	}
	for i := range a.Commerces {
		if a.Commerces[i] != b.Commerces[i] {
			return false
		}
	}
	return true
}
