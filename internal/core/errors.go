package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is the root of every validation failure. Callers reject
	// such input before it reaches the store.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorruptState means a persisted blob exists but is not a well-formed
	// sequence of records. The data is never repaired automatically.
	ErrCorruptState = errors.New("corrupt persisted state")

	// ErrIOFailure means the persistence adapter failed. It is retryable.
	ErrIOFailure = errors.New("persistence i/o failure")
)

var (
	ErrEmptyOwner      = fmt.Errorf("%w: empty owner", ErrInvalidInput)
	ErrInvalidDate     = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	ErrInvalidActivity = fmt.Errorf("%w: unknown activity", ErrInvalidInput)
	ErrNegativeLaps    = fmt.Errorf("%w: lap counts cannot be negative", ErrInvalidInput)
	ErrInvalidMonth    = fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidInput)
)
