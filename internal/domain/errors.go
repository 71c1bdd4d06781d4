package domain

import "errors"

var (
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("resource conflict")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidEnvelope  = errors.New("invalid event envelope")
	ErrUnsupportedEvent = errors.New("unsupported event type")
	ErrDecryptionFailed = errors.New("credential decryption failed")
	ErrCursorRewind     = errors.New("cursor rewind rejected")
	ErrSyncInProgress   = errors.New("sync already in progress")
)
