package apperr

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrUnrecognizedFormat = errors.New("unrecognized note format")
	ErrMissingEntry       = errors.New("required archive entry missing")
	ErrOldDocumentMissing = errors.New("old document not found")
)
