package domain

import "errors"

var (
	// ErrUserNotFound is returned by repositories when no user matches
	ErrUserNotFound = errors.New("user not found")

	// ErrCredentialNotFound is returned by credential lookups with no match
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrInviterRequired is returned when an invite URL is requested without
	// an inviter id to build it from
	ErrInviterRequired = errors.New("inviter ID is required to generate invite URL")

	// ErrInternal wraps failures of multi-step operations, e.g. the user
	// creation transaction during an invite batch
	ErrInternal = errors.New("internal server error")
)
