package memberrepo

import "errors"

var (
	// ErrNotFound indicates the requested member does not exist.
	ErrNotFound = errors.New("member not found")

	// ErrAlreadyExists indicates a member already exists with the provided ID.
	ErrAlreadyExists = errors.New("member already exists")

	// ErrBadgeTaken indicates another member already holds the badge ID.
	ErrBadgeTaken = errors.New("badge already assigned")
)
