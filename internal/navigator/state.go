package navigator

// State is the navigator's position in its lifecycle. Transitions only move
// forward (or sideways between the browsing states); Error and Done are
// terminal.
type State string

const (
	// StateIdle is the initial state before any session work.
	StateIdle State = "idle"
	// StateSessionLoading means the stored session is being restored.
	StateSessionLoading State = "session_loading"
	// StateSessionValidated means the session probe classified the identity
	// as authenticated.
	StateSessionValidated State = "session_validated"
	// StateOnProfile means the target profile page is loaded.
	StateOnProfile State = "on_profile"
	// StateOnActivityFeed means the profile's activity feed is loaded.
	StateOnActivityFeed State = "on_activity_feed"
	// StateOnPost means an individual post permalink is loaded.
	StateOnPost State = "on_post"
	// StateDone is the clean terminal state.
	StateDone State = "done"
	// StateError is the failed terminal state; Failure() carries the kind.
	StateError State = "error"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}
