package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord      = errors.New("malformed game record")
	ErrCoordinateOutOfRange = errors.New("coordinate out of range")
	ErrEngineUnavailable    = errors.New("analysis engine unavailable")
	ErrEngineTimeout        = errors.New("analysis engine timed out")
	ErrProtocolViolation    = errors.New("analysis protocol violation")
	ErrIncompleteVerdict    = errors.New("incomplete verdict")
	// ErrEngineWarning marks a warning line that carries no analysis; the
	// answer for the same id follows on a later line.
	ErrEngineWarning  = errors.New("engine warning without analysis")
	ErrSessionFaulted = errors.New("engine session is faulted")
	ErrSessionClosed  = errors.New("engine session is closed")
	ErrRunNotFound    = errors.New("analysis run not found")
)

// PlyError reports the ply at which an analysis run stopped.
type PlyError struct {
	Ply int
	Err error
}

func (e *PlyError) Error() string {
	return fmt.Sprintf("ply %d: %v", e.Ply, e.Err)
}

func (e *PlyError) Unwrap() error { return e.Err }

// IsEngineFailure reports whether err came from the engine side rather than
// from the game record.
func IsEngineFailure(err error) bool {
	return errors.Is(err, ErrEngineUnavailable) ||
		errors.Is(err, ErrEngineTimeout) ||
		errors.Is(err, ErrProtocolViolation) ||
		errors.Is(err, ErrIncompleteVerdict) ||
		errors.Is(err, ErrSessionFaulted) ||
		errors.Is(err, ErrSessionClosed)
}
