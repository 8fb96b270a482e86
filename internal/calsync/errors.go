package calsync

import (
	"errors"
	"fmt"
)

var (
	// ErrSyncFailed matches every *SyncError.
	ErrSyncFailed     = errors.New("failed to sync")
	ErrAuth           = errors.New("authentication failed")
	ErrMalformed      = errors.New("malformed provider payload")
	ErrSyncInProgress = errors.New("a sync is already in progress")
)

type Stage string

const (
	StageAuth  Stage = "authenticate"
	StageFetch Stage = "fetch"
	StageMap   Stage = "map"
)

// SyncError reports the stage and provider a sync failed at. Callers that
// only need the user-facing condition test errors.Is(err, ErrSyncFailed).
type SyncError struct {
	Provider string
	Stage    Stage
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrSyncFailed, e.Provider, e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func (e *SyncError) Is(target error) bool {
	return target == ErrSyncFailed
}

// MalformedError wraps err so that it matches ErrMalformed.
func MalformedError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
