package models

import "github.com/pkg/errors"

// Error taxonomy shared by every layer. Wrap with errors.Wrap and test with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("storage group is full")
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrIntegrity        = errors.New("integrity violation")
)
