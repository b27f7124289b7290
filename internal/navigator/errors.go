package navigator

import (
	"fmt"

	"github.com/jonathan/reaction-reach/internal/types"
)

// FatalError is an unrecoverable navigation failure. Once raised, the
// navigator is terminal and every subsequent call returns the same error.
type FatalError struct {
	Kind    types.ErrorKind
	Message string
	Cause   error
}

func (e *FatalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("navigation aborted (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("navigation aborted (%s): %s", e.Kind, e.Message)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// TransitionError reports a method call that is not legal from the current
// state. Unlike FatalError it does not poison the navigator.
type TransitionError struct {
	From State
	Op   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Op, e.From)
}
