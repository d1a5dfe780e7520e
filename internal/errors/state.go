//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import "fmt"

// StateError is a failure of the descriptor store, whichever backend holds
// it. A locked file store carries the lock holder so the user can tell a
// running watch apart from a stale lock.
type StateError struct {
	Base Error `json:"error"`

	LockPID  int    `json:"lockPid,omitempty"`
	LockFile string `json:"lockFile,omitempty"`
}

// NewStateError wraps a store read or write failure.
func NewStateError(message string, cause error) *StateError {
	return &StateError{
		Base: Error{
			Category: CategoryState,
			Code:     CodeStateError,
			Message:  message,
			Cause:    cause,
		},
	}
}

// NewLockError reports that another probekit process holds lockFile.
// lockPID is zero when the holder could not be read.
func NewLockError(lockFile string, lockPID int) *StateError {
	holder := "another probekit process"
	if lockPID > 0 {
		holder = fmt.Sprintf("probekit process %d", lockPID)
	}
	return &StateError{
		Base: Error{
			Category: CategoryState,
			Code:     CodeStateLocked,
			Message:  "descriptor store locked",
			Hint: fmt.Sprintf("The store is in use by %s, often 'probekit watch'.\n"+
				"Stop it, or remove %s if no such process is running.", holder, lockFile),
		},
		LockPID:  lockPID,
		LockFile: lockFile,
	}
}

// Locked reports whether the store could not be opened because of a lock.
func (e *StateError) Locked() bool {
	return e.Base.Code == CodeStateLocked
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying I/O or database error.
func (e *StateError) Unwrap() error {
	return e.Base.Cause
}

// Is matches on code only.
func (e *StateError) Is(target error) bool {
	t, ok := target.(*StateError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}
