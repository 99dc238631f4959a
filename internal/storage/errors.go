package storage

import "errors"

// Domain errors for the storage package.
var (
	// ErrUnsupportedDriver is returned by Open for an unknown storage.driver.
	ErrUnsupportedDriver = errors.New("storage: unsupported driver")

	// ErrInsertFailed is returned when a row cannot be added to a batch.
	ErrInsertFailed = errors.New("storage: insert failed")

	// ErrCommitFailed is returned when a batch cannot be committed.
	ErrCommitFailed = errors.New("storage: commit failed")

	// ErrBatchClosed is returned when a committed or rolled-back batch is reused.
	ErrBatchClosed = errors.New("storage: batch already closed")
)
