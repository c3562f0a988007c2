package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mindshift/internal/client/models"
	"github.com/dmitrijs2005/mindshift/internal/client/remote"
	"github.com/dmitrijs2005/mindshift/internal/client/remotesync"
	"github.com/dmitrijs2005/mindshift/internal/client/store"
)

// ErrUnknownDocument is returned for a remote document id no record maps to.
var ErrUnknownDocument = errors.New("unknown document")

// ApplyRemote returns the adapter callback that merges a received document
// into st with the same field-level rules as local updates. Applying the
// same document twice leaves the state as applying it once.
func ApplyRemote(st *store.Store) remotesync.ApplyFunc {
	return func(docID string, fields remote.Fields) error {
		p, err := PatchFromDocument(docID, fields)
		if err != nil {
			return err
		}
		if p.IsEmpty() {
			return nil
		}
		_, err = st.Set(p)
		return err
	}
}

// PatchFromDocument maps a remote document onto a store patch.
func PatchFromDocument(docID string, fields remote.Fields) (store.Patch, error) {
	collection, id := remote.ParseDocID(docID)

	switch {
	case docID == remote.DocProfile:
		var u models.UserPatch
		if err := remote.Decode(fields, &u); err != nil {
			return store.Patch{}, err
		}
		if u.IsEmpty() {
			return store.Patch{}, nil
		}
		return store.Patch{User: &u}, nil

	case docID == remote.DocSettings:
		var s models.SettingsPatch
		if err := remote.Decode(fields, &s); err != nil {
			return store.Patch{}, err
		}
		return store.Patch{Settings: &s}, nil

	case collection == remote.CollectionGoals && id != "":
		var g models.GoalPatch
		if err := remote.Decode(fields, &g); err != nil {
			return store.Patch{}, err
		}
		return store.Patch{Goals: map[string]models.GoalPatch{id: g}}, nil

	case collection == remote.CollectionJournal && id != "":
		var j models.JournalPatch
		if err := remote.Decode(fields, &j); err != nil {
			return store.Patch{}, err
		}
		return store.Patch{Journal: map[string]models.JournalPatch{id: j}}, nil
	}

	return store.Patch{}, fmt.Errorf("%w: %q", ErrUnknownDocument, docID)
}
