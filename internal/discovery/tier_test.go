package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doculoom/engine/internal/model"
)

func TestAssignTierEntryPointIsCore(t *testing.T) {
	f := model.DiscoveredFile{Path: "cmd/app/main.go"}
	assert.Equal(t, model.TierCore, AssignTier(f, nil, nil))
}

func TestAssignTierTopLevelExportIsCore(t *testing.T) {
	f := model.DiscoveredFile{Path: "pkg/api/router.go"}
	profile := &model.ProjectProfile{EntryPoints: []string{"pkg/api/router.go"}}
	assert.Equal(t, model.TierCore, AssignTier(f, profile, nil))
}

func TestAssignTierCoreSegmentIsImportant(t *testing.T) {
	f := model.DiscoveredFile{Path: "internal/core/engine.go"}
	assert.Equal(t, model.TierImportant, AssignTier(f, nil, nil))
}

func TestAssignTierCentralFileIsImportant(t *testing.T) {
	f := model.DiscoveredFile{Path: "internal/widgets/factory.go"}
	central := map[string]struct{}{"internal/widgets/factory.go": {}}
	assert.Equal(t, model.TierImportant, AssignTier(f, nil, central))
}

func TestAssignTierUtilSegmentIsLeaf(t *testing.T) {
	f := model.DiscoveredFile{Path: "pkg/util/strings.go"}
	assert.Equal(t, model.TierLeaf, AssignTier(f, nil, nil))
}

func TestAssignTierDefaultIsStandard(t *testing.T) {
	f := model.DiscoveredFile{Path: "pkg/widgets/widget.go"}
	assert.Equal(t, model.TierStandard, AssignTier(f, nil, nil))
}

func TestAssignTierEntryPointBeatsLeafSegment(t *testing.T) {
	f := model.DiscoveredFile{Path: "pkg/util/main.go"}
	assert.Equal(t, model.TierCore, AssignTier(f, nil, nil))
}
