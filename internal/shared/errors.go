package shared

import "errors"

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("invalid input")
	// ErrReferenceNotFound indicates a foreign id that does not resolve,
	// or resolves to a soft-deleted entity.
	ErrReferenceNotFound = errors.New("referenced entity not found")
	// ErrDuplicateName indicates a uniqueness violation on a name field.
	ErrDuplicateName = errors.New("name already exists")
	// ErrAlreadyDeleted indicates a soft-deleted entity was operated on twice.
	ErrAlreadyDeleted = errors.New("entity already deleted")
)
