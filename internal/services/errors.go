package services

import "errors"

// Validation errors are surfaced to the UI before any I/O happens.
var (
	ErrSelfAdd         = errors.New("cannot add yourself as a friend")
	ErrDuplicateFriend = errors.New("already a friend")
	ErrMissingFields   = errors.New("friend must have an id and a username")
	ErrInvalidOrder    = errors.New("reorder must contain exactly the current friends")
	ErrCooldownActive  = errors.New("ping cooldown active")
	ErrProfileExists   = errors.New("profile already set up")
	ErrUnknownStyle    = errors.New("unknown avatar style")
)
