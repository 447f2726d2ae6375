package model

import "time"

// CheckpointSchemaVersion is the current on-disk/DB schema version for
// PipelineCheckpoint payloads. Bump whenever the artifact shapes change in a
// way that breaks old readers; checkpoint.Manager.Load rejects mismatches
// (spec §4.2).
const CheckpointSchemaVersion = 1

// PipelineCheckpoint is the durable, checksummed snapshot written after each
// phase boundary (spec §3, §4.2).
type PipelineCheckpoint struct {
	SchemaVersion     int
	SessionID         string
	Checksum          uint32
	FileList          []FileRecord
	LastCompletedPhase Phase

	// Per-phase artifacts; nil until that phase has committed one. Only
	// phases 1, 3, 4, 5, 5.5 have an artifact slot (spec §4.2).
	ProjectProfile         *ProjectProfile
	FileInsights           []FileInsight
	ProjectInsights        []ProjectInsight
	DomainInsights         []DomainInsight
	Blueprint              *DocumentationBlueprint

	Timestamp time.Time
}
