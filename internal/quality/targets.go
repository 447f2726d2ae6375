// Package quality implements the Quality Controller (spec §4.7): a scalar
// overall score across five weighted dimensions, mode×scale targets and
// iteration caps, and the lowest-dimension refinement selection rule.
package quality

import "github.com/doculoom/engine/internal/model"

// targets is spec §4.7's (mode, scale) quality-target table.
var targets = map[model.Mode]map[model.Scale]float64{
	model.ModeFast: {
		model.ScaleSmall: 0.60, model.ScaleMedium: 0.60,
		model.ScaleLarge: 0.65, model.ScaleEnterprise: 0.65,
	},
	model.ModeStandard: {
		model.ScaleSmall: 0.75, model.ScaleMedium: 0.80,
		model.ScaleLarge: 0.85, model.ScaleEnterprise: 0.90,
	},
	model.ModeDeep: {
		model.ScaleSmall: 0.85, model.ScaleMedium: 0.90,
		model.ScaleLarge: 0.92, model.ScaleEnterprise: 0.95,
	},
}

// iterationCaps is spec §4.7's (mode, scale) refinement iteration cap table.
var iterationCaps = map[model.Mode]map[model.Scale]int{
	model.ModeFast: {
		model.ScaleSmall: 1, model.ScaleMedium: 2,
		model.ScaleLarge: 2, model.ScaleEnterprise: 2,
	},
	model.ModeStandard: {
		model.ScaleSmall: 3, model.ScaleMedium: 3,
		model.ScaleLarge: 4, model.ScaleEnterprise: 5,
	},
	model.ModeDeep: {
		model.ScaleSmall: 4, model.ScaleMedium: 5,
		model.ScaleLarge: 6, model.ScaleEnterprise: 8,
	},
}

// Target returns the refinement stop score for a (mode, scale) pair.
func Target(mode model.Mode, scale model.Scale) float64 {
	return targets[mode][scale]
}

// IterationCap returns the refinement iteration cap for a (mode, scale) pair.
func IterationCap(mode model.Mode, scale model.Scale) int {
	return iterationCaps[mode][scale]
}

// noProgressDelta is spec §4.7/§8's no-progress termination threshold: two
// consecutive turns improving the score by less than this stop refinement.
const noProgressDelta = 0.01
