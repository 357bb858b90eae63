package prescription

import "errors"

var (
	ErrPrescriptionNotFound    = errors.New("prescription not found")
	ErrPrescriptionExists      = errors.New("a prescription already exists for this appointment")
	ErrInvalidStatus           = errors.New("invalid prescription status")
	ErrInvalidStatusTransition = errors.New("prescription status cannot move backwards")
)
