package pharmacy

import "errors"

var (
	ErrProfileNotFound = errors.New("pharmacy profile not found")
	ErrProfileExists   = errors.New("pharmacy profile already exists")
)
