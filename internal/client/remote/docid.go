package remote

import "strings"

// Document ids of the singleton documents.
const (
	DocProfile  = "profile"
	DocSettings = "settings"
)

// Collection prefixes of per-record documents.
const (
	CollectionGoals   = "goals"
	CollectionJournal = "journal"
)

func GoalDoc(id string) string    { return CollectionGoals + "/" + id }
func JournalDoc(id string) string { return CollectionJournal + "/" + id }

// ParseDocID splits a record document id into collection and record id.
// Singleton ids come back with an empty record id.
func ParseDocID(docID string) (collection, id string) {
	collection, id, _ = strings.Cut(docID, "/")
	return collection, id
}
