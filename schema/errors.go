package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidPane indicates an invalid pane identifier.
	ErrInvalidPane = errors.New("invalid pane")
	// ErrPaneNotFound indicates a requested pane could not be found.
	ErrPaneNotFound = errors.New("pane not found")
	// ErrPaneExists indicates a pane with the same id already exists.
	ErrPaneExists = errors.New("pane already exists")
	// ErrPaneClosed indicates the pane no longer accepts operations.
	ErrPaneClosed = errors.New("pane closed")
	// ErrSectionNotFound indicates a toggle referenced an unknown section.
	ErrSectionNotFound = errors.New("section not found")
)
