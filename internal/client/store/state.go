package store

import "github.com/dmitrijs2005/mindshift/internal/client/models"

// State is an immutable snapshot of the client state. Values returned by the
// store are deep copies; mutating them has no effect on the store.
type State struct {
	User     *models.UserProfile
	Settings models.UserSettings
	Goals    map[string]models.Goal
	Journal  map[string]models.JournalEntry

	// Transient fields; never persisted.
	Loading  bool
	Syncing  bool
	Revision uint64
}

// DefaultState is the state of a first run or a signed-out session.
func DefaultState() State {
	return State{
		Settings: models.DefaultSettings(),
		Goals:    map[string]models.Goal{},
		Journal:  map[string]models.JournalEntry{},
	}
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := s.User.Clone()
		out.User = &u
	}
	out.Settings = s.Settings.Clone()
	out.Goals = make(map[string]models.Goal, len(s.Goals))
	for id, g := range s.Goals {
		out.Goals[id] = g.Clone()
	}
	out.Journal = make(map[string]models.JournalEntry, len(s.Journal))
	for id, j := range s.Journal {
		out.Journal[id] = j.Clone()
	}
	return out
}

// Persisted is the subset of State written to durable local storage.
type Persisted struct {
	User     *models.UserProfile `json:"user"`
	Settings models.UserSettings `json:"settings"`
}

// PersistedSubset extracts the durable part of s.
func (s State) PersistedSubset() Persisted {
	c := s.clone()
	return Persisted{User: c.User, Settings: c.Settings}
}

// Patch names the parts of State to change. Nil members are left alone;
// User and Settings merge field by field (see models), Goals and Journal
// merge per record.
type Patch struct {
	User      *models.UserPatch
	ClearUser bool
	Settings  *models.SettingsPatch
	Goals     map[string]models.GoalPatch
	Journal   map[string]models.JournalPatch
	Loading   *bool
	Syncing   *bool
}

// IsEmpty reports whether p changes nothing.
func (p Patch) IsEmpty() bool {
	return p.User == nil && !p.ClearUser && p.Settings == nil &&
		len(p.Goals) == 0 && len(p.Journal) == 0 &&
		p.Loading == nil && p.Syncing == nil
}
