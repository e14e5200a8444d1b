package index

import (
	"errors"

	"github.com/mvp-joe/dirindex/internal/roots"
)

var (
	// ErrInvalidPath is returned for relative or non-canonical query paths.
	// It is distinct from a path that is merely outside the project.
	ErrInvalidPath = roots.ErrInvalidPath

	// ErrAborted indicates a build was cancelled or lost its enumerator; the
	// partial result is discarded.
	ErrAborted = errors.New("snapshot build aborted")

	// ErrUnknownModule indicates a module id not present in the snapshot.
	ErrUnknownModule = errors.New("unknown module")

	// ErrStaleSnapshot indicates an attempt to publish a snapshot older than
	// the current one.
	ErrStaleSnapshot = errors.New("stale snapshot")

	// ErrAlreadyPublished indicates a snapshot was published twice.
	ErrAlreadyPublished = errors.New("snapshot already published")
)
