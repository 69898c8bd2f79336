package model

import "errors"

var (
	// ErrCycle is returned when a folder move would place a folder under itself.
	ErrCycle = errors.New("folder cannot be moved into itself or a descendant")
	// ErrFolderNotFound is returned when a move targets a folder that does not exist.
	ErrFolderNotFound = errors.New("target folder not found")
	// ErrPersist wraps failures of the underlying persister.
	ErrPersist = errors.New("persist store")
	// ErrNotFound is returned by Resolve when no item matches.
	ErrNotFound = errors.New("no bookmark or folder matches")
	// ErrAmbiguous is returned by Resolve when a prefix matches several items.
	ErrAmbiguous = errors.New("id prefix is ambiguous")
)
