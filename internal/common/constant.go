package common

// Keys of the local key-value table.
const (
	// StateSnapshotKey holds the persisted {user, settings} subset.
	StateSnapshotKey = "mindshift.state.v1"

	// SessionTokenKey holds the last issued identity token for silent sign-in.
	SessionTokenKey = "mindshift.session.token"
)
