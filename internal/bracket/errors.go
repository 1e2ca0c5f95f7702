package bracket

import "errors"

var (
	ErrNotFound     = errors.New("match not found")
	ErrInvalidInput = errors.New("invalid bracket input")
	// The reported winner or loser does not belong to the match
	ErrInvalidResult     = errors.New("invalid match result")
	ErrMatchNotReady     = errors.New("match does not have both teams assigned")
	ErrMatchClosed       = errors.New("match is already completed")
	ErrInconsistentState = errors.New("inconsistent bracket state")
)
