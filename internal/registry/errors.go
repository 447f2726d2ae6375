package registry

import "errors"

var (
	// ErrAlreadyPublished is returned by Publish when a path already has an
	// insight on record — publishing is a one-shot operation per spec §4.3.
	ErrAlreadyPublished = errors.New("registry: insight already published for path")
	// ErrNotFound is returned when a lookup path has no published insight.
	ErrNotFound = errors.New("registry: no insight for path")
)
