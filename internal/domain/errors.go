package domain

import "errors"

var (
	// ErrDuplicateContent is wrapped by publish endpoints when the platform rejects
	// a message because the exact text was already posted.
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrCorruptState marks a persisted ledger that exists but cannot be decoded.
	ErrCorruptState = errors.New("corrupt state document")

	// ErrEmptyThread is returned when a formatter yields no message parts.
	ErrEmptyThread = errors.New("thread has no parts")
)
