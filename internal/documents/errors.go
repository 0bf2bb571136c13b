package documents

import "errors"

var (
	ErrNotFound      = errors.New("document not found")
	ErrFileMissing   = errors.New("document file not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicateName = errors.New("document already exists")
	ErrStorage       = errors.New("storage error")
)
