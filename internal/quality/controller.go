package quality

import "github.com/doculoom/engine/internal/model"

// Verdict is one refinement-loop decision point: the score just computed,
// whether refinement should keep going, and (if so) which dimension the
// next refinement agent should target.
type Verdict struct {
	Score      Score
	Iteration  int
	Met        bool      // Score.Overall() >= target
	CapReached bool      // iteration >= cap
	NoProgress bool      // improvement over the previous turn was below noProgressDelta
	NextFocus  Dimension // only meaningful when continuing
	Continue   bool
}

// Controller drives spec §4.7's refinement loop: score, compare against the
// (mode, scale) target and iteration cap, and pick the next dimension to
// refine until the target is met, the cap is reached, or two consecutive
// turns fail to make meaningful progress.
type Controller struct {
	mode    model.Mode
	scale   model.Scale
	target  float64
	cap     int
	prev    float64
	hasPrev bool
}

// NewController builds a Controller for one generation's (mode, scale).
func NewController(mode model.Mode, scale model.Scale) *Controller {
	return &Controller{
		mode:   mode,
		scale:  scale,
		target: Target(mode, scale),
		cap:    IterationCap(mode, scale),
	}
}

// Evaluate scores one turn's files/insights and decides whether refinement
// should continue. iteration is 1-indexed (the turn just completed).
func (c *Controller) Evaluate(iteration int, files []model.FileRecord, insights []model.FileInsight, counter TokenCounter) Verdict {
	score := Compute(files, insights, counter)
	overall := score.Overall()

	v := Verdict{Score: score, Iteration: iteration}

	if overall >= c.target {
		v.Met = true
		c.prev, c.hasPrev = overall, true
		return v
	}

	if iteration >= c.cap {
		v.CapReached = true
		c.prev, c.hasPrev = overall, true
		return v
	}

	if c.hasPrev && overall-c.prev < noProgressDelta {
		v.NoProgress = true
		c.prev, c.hasPrev = overall, true
		return v
	}

	c.prev, c.hasPrev = overall, true
	v.Continue = true
	v.NextFocus = score.Lowest()
	return v
}
