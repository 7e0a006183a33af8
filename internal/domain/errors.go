package domain

import "errors"

var (
	// ErrNoteNotFound is returned when the instance has no such note.
	ErrNoteNotFound = errors.New("note not found or deleted")

	// ErrFetchFailed is returned when the instance could not be reached
	// or answered with something other than the expected JSON.
	ErrFetchFailed = errors.New("failed to fetch from instance")

	// ErrInvalidHost is returned when the instance host is malformed.
	ErrInvalidHost = errors.New("invalid instance host")

	// ErrInvalidNoteID is returned when the note id is malformed.
	ErrInvalidNoteID = errors.New("invalid note id")

	// ErrInvalidURL is returned when a note URL cannot be parsed.
	ErrInvalidURL = errors.New("invalid note URL format")

	// ErrHostNotAllowed is returned when the instance is not in the allow list.
	ErrHostNotAllowed = errors.New("instance host not allowed")

	// ErrPrivateHost is returned for hosts on this machine or an internal
	// network.
	ErrPrivateHost = errors.New("instance host is not public")

	// ErrRateLimited is returned when rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)
