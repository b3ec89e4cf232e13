// Package apperr holds the sentinel errors shared by services and transports.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidModel  = errors.New("invalid model")
	ErrExportFailed  = errors.New("export failed")
)
