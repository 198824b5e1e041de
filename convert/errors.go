// Package convert translates between scene graphs and documents and drives
// whole file conversions.
package convert

import (
	stderrors "errors"
)

// ErrSceneCreationFailed is returned when no scene could be allocated for
// an export. No document data has been copied at that point.
var ErrSceneCreationFailed = stderrors.New("scene creation failed")

// ErrUnresolvedReference marks a parent, mesh or material reference to an
// id missing from the document. It is logged and the link is dropped.
var ErrUnresolvedReference = stderrors.New("unresolved reference")

// LoadError carries the reason a file could not be parsed.
type LoadError struct {
	Description string
}

func (e *LoadError) Error() string { return e.Description }

type SaveError struct {
	Description string
}

func (e *SaveError) Error() string { return "Failed to save FBX: " + e.Description }
