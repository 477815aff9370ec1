package repository

import "errors"

// Common repository errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrCreateFailed = errors.New("failed to create record")
	ErrUpdateFailed = errors.New("failed to update record")
	ErrDuplicateKey = errors.New("duplicate key violation")
	ErrConflict     = errors.New("concurrent update conflict")
)
