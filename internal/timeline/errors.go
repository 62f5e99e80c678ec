package timeline

import (
	"errors"
	"fmt"
)

var (
	ErrNoAssets               = errors.New("timeline has no assets")
	ErrTransitionCount        = errors.New("transition count must be one less than asset count")
	ErrNonPositiveDuration    = errors.New("asset duration must be positive")
	ErrNegativeTransition     = errors.New("transition duration must not be negative")
	ErrOverlappingTransitions = errors.New("adjacent transition windows overlap")
	ErrMissingID              = errors.New("asset id is empty")
	ErrDuplicateID            = errors.New("asset id is not unique")
	ErrUnknownKind            = errors.New("unknown asset kind")
	ErrMissingSource          = errors.New("image and video assets need a source")
	ErrIndexOutOfRange        = errors.New("asset index out of range")
)

// ValidationError reports which entry of a malformed timeline was rejected
type ValidationError struct {
	Field string // "assets" or "transitions"
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid timeline: %v", e.Err)
	}
	return fmt.Sprintf("invalid timeline: %s[%d]: %v", e.Field, e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
