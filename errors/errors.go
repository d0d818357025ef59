package errors

import "fmt"

var (
	ErrValidation     = fmt.Errorf("validation failed")
	ErrUsernameTaken  = fmt.Errorf("username already taken")
	ErrAuthFailure    = fmt.Errorf("authentication failed")
	ErrSyncFailure    = fmt.Errorf("synchronization failed")
	ErrNotFound       = fmt.Errorf("document not found")
	ErrAlreadyExists  = fmt.Errorf("document already exists")
	ErrNotSignedIn    = fmt.Errorf("no active session")
	ErrNoChatSelected = fmt.Errorf("%w: no chat selected", ErrValidation)
	ErrEmptyMessage   = fmt.Errorf("%w: empty message", ErrValidation)
)
