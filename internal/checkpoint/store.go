package checkpoint

import (
	"context"

	"github.com/doculoom/engine/internal/model"
)

// Store persists and retrieves raw checkpoints. Implementations do not
// compute or verify checksums — that is Manager's job, so Store can be
// swapped for a test fake without re-implementing the integrity logic.
type Store interface {
	Save(ctx context.Context, cp *model.PipelineCheckpoint) error
	Load(ctx context.Context, sessionID string) (*model.PipelineCheckpoint, error)
	Delete(ctx context.Context, sessionID string) error
}
