package perimeter

import (
	"errors"
	"fmt"
)

var (
	ErrNotBound          = errors.New("perimeter is not bound")
	ErrNotOperator       = errors.New("caller is not an operator")
	ErrNotProtectedUser  = errors.New("caller is not the protected user")
	ErrWrongGuild        = errors.New("wrong guild")
	ErrWrongChannel      = errors.New("outside the control channel")
	ErrPanicLocked       = errors.New("panic lock is active")
	ErrSuspended         = errors.New("perimeter is suspended")
	ErrNotHome           = errors.New("player is not home")
	ErrNotInVoice        = errors.New("operator is not in a voice channel")
	ErrWrongVoiceChannel = errors.New("operator is not in the locked voice channel")
	ErrVoiceLockUnset    = errors.New("voice lock is not set")
	ErrNoSavedStation    = errors.New("no saved station to restore")
	ErrNoResults         = errors.New("no cached search results")
	ErrInvalidSelection  = errors.New("invalid selection")
	ErrBlocked           = errors.New("blocked by safety filter")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnknownCommand    = errors.New("unknown command")
)

// PlayerError reports that the external player rejected or failed a call.
type PlayerError struct {
	Op  string
	Err error
}

func (e *PlayerError) Error() string {
	return fmt.Sprintf("player %s failed: %v", e.Op, e.Err)
}

func (e *PlayerError) Unwrap() error {
	return e.Err
}
