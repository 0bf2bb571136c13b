package profiles

import "errors"

var (
	ErrNotFound     = errors.New("profile not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ErrLabelExists is a validation failure: errors.Is(ErrLabelExists, ErrInvalidInput) holds.
var ErrLabelExists = errLabelExists{}

type errLabelExists struct{}

func (errLabelExists) Error() string { return "profile with this label already exists" }

func (errLabelExists) Is(target error) bool { return target == ErrInvalidInput }
