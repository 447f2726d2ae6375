package checkpoint

import "errors"

var (
	// ErrNotFound is returned when no checkpoint exists for a session.
	ErrNotFound = errors.New("checkpoint: not found")
	// ErrChecksumMismatch means the stored payload was altered or truncated
	// outside of Save — the checkpoint is untrustworthy for resume.
	ErrChecksumMismatch = errors.New("checkpoint: checksum mismatch")
	// ErrSchemaVersionMismatch means the checkpoint was written by a different
	// schema generation than this binary understands (spec §4.2 versioning).
	ErrSchemaVersionMismatch = errors.New("checkpoint: schema version mismatch")
)
