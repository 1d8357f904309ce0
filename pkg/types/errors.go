package types

import "errors"

// Document access errors.
var (
	ErrNoState       = errors.New("workflow state document not found")
	ErrMalformed     = errors.New("malformed document")
	ErrNoRecord      = errors.New("analysis record not found")
	ErrConfigMissing = errors.New("configuration document not found")
)

// Transition errors.
var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrPhaseGap          = errors.New("phase would leave a gap in the canonical sequence")
	ErrUnknownPhase      = errors.New("unknown analysis phase")
	ErrArticlesUnchecked = errors.New("required articles have not been checked")
)

// Resolution and parsing errors.
var (
	ErrNotFound      = errors.New("item not found")
	ErrAmbiguous     = errors.New("input matches more than one item")
	ErrInvalidMarker = errors.New("invalid backlog marker")
	ErrInvalidLine   = errors.New("not a backlog index line")
	ErrEmptyInput    = errors.New("input must not be empty")
)
