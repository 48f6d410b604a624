package rotation

import "errors"

var (
	// ErrDefinitionNotFound is returned when an advance or read targets a
	// definition id that does not exist.
	ErrDefinitionNotFound = errors.New("rotation definition not found")

	// ErrEmptyRoster is a fatal configuration error: an active definition
	// must always carry a non-empty roster. No mutation is performed.
	ErrEmptyRoster = errors.New("rotation roster is empty")
)
