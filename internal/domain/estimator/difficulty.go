package estimator

import (
	"math"

	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// DifficultyInput carries the signals the controller needs: the recent
// metric series plus the current cognitive-load reading.
type DifficultyInput struct {
	// Accuracy - full per-event accuracy series (the controller windows it).
	Accuracy []float64

	// ResponseTimeMs - full per-event response-time series.
	ResponseTimeMs []int64

	// CurrentLoad - the load level computed for this event.
	CurrentLoad shared.Score
}

// Difficulty is the adaptive difficulty controller: ability from rolling
// accuracy, a ZPD window around it, a trend-shifted target, and the
// load-reactive complexity/scaffolding optimizer. Stateless.
type Difficulty struct {
	policy DifficultyPolicy
}

// NewDifficulty creates the controller with the given policy row.
func NewDifficulty(policy DifficultyPolicy) *Difficulty {
	return &Difficulty{policy: policy}
}

// Recommend computes the full adaptive path for the next problem.
func (d *Difficulty) Recommend(in DifficultyInput) session.AdaptivePath {
	window := d.window(in.Accuracy)
	ability := d.ability(window)

	zpd := shared.Range{
		Lower: max(shared.MinDifficulty.Int(), ability-1),
		Upper: min(shared.MaxDifficulty.Int(), ability+2),
	}

	optimal := clampIntoRange(float64(ability+1), zpd)

	target := optimal
	rate := improvementRate(window)
	if rate > d.policy.ImprovementThreshold {
		target = clampIntoRange(optimal+d.policy.TargetShift, zpd)
	} else if rate < -d.policy.ImprovementThreshold {
		target = clampIntoRange(optimal-d.policy.TargetShift, zpd)
	}

	recommended := shared.Difficulty(int(math.Round(target)))
	if recommended.Int() < zpd.Lower {
		recommended = shared.Difficulty(zpd.Lower)
	}
	if recommended.Int() > zpd.Upper {
		recommended = shared.Difficulty(zpd.Upper)
	}
	recommended = recommended.Clamp()

	path := session.AdaptivePath{
		RecommendedDifficulty: recommended,
		TargetDifficulty:      target,
		ZPD:                   zpd,
		AdjustmentRate:        d.adjustmentRate(window, in.ResponseTimeMs),
	}
	d.optimizeComplexity(&path, in.CurrentLoad)
	return path
}

// window slices the last N accuracy points.
func (d *Difficulty) window(accuracy []float64) []float64 {
	n := d.policy.Window
	if n > 0 && len(accuracy) > n {
		return accuracy[len(accuracy)-n:]
	}
	return accuracy
}

// ability is round(10 * rolling average accuracy), floored at 1 so the ZPD
// stays on the difficulty scale even for an all-wrong window.
func (d *Difficulty) ability(window []float64) int {
	if len(window) == 0 {
		return 5 // neutral mid-scale prior before any evidence
	}
	sum := 0.0
	for _, a := range window {
		sum += a
	}
	ability := int(math.Round(10 * sum / float64(len(window))))
	if ability < 1 {
		ability = 1
	}
	if ability > 10 {
		ability = 10
	}
	return ability
}

// improvementRate is the mean of the window's second half minus the mean of
// its first half; zero when the window is too short to split.
func improvementRate(window []float64) float64 {
	if len(window) < 2 {
		return 0
	}
	mid := len(window) / 2
	firstMean := mean(window[:mid])
	lastMean := mean(window[len(window)-mid:])
	return lastMean - firstMean
}

// adjustmentRate bounds how fast difficulty may move per event:
// min(max, base + processingSpeedBonus + consistencyBonus).
func (d *Difficulty) adjustmentRate(window []float64, responseTimes []int64) float64 {
	rate := d.policy.BaseAdjustRate

	if n := len(responseTimes); n > 0 {
		if w := d.policy.Window; w > 0 && n > w {
			responseTimes = responseTimes[n-w:]
		}
		var sum int64
		for _, v := range responseTimes {
			sum += v
		}
		avg := float64(sum) / float64(len(responseTimes))
		if avg < d.policy.SpeedBonusFastMs {
			rate += d.policy.SpeedBonusFast
		} else if avg < d.policy.SpeedBonusMs {
			rate += d.policy.SpeedBonus
		}
	}

	if len(window) >= 2 && stddev(window) < d.policy.ConsistencyStdDev {
		rate += d.policy.ConsistencyBonus
	}

	return math.Min(d.policy.MaxAdjustRate, rate)
}

// optimizeComplexity reacts to the current load reading: overload pulls
// complexity down and support up, underload does the opposite.
func (d *Difficulty) optimizeComplexity(path *session.AdaptivePath, load shared.Score) {
	base := path.RecommendedDifficulty.Int()
	switch {
	case load.Int() > d.policy.HighLoad:
		path.Complexity = clampComplexity(base - 2)
		path.Scaffolding = shared.ScaffoldingMax
		path.Strategies = []string{"chunking", "visual_aids", "progressive_disclosure"}
	case load.Int() < d.policy.LowLoad:
		path.Complexity = clampComplexity(base + 1)
		path.Scaffolding = shared.ScaffoldingLow
		path.Strategies = []string{"compound_problems", "self_explanation_prompts"}
	default:
		path.Complexity = clampComplexity(base)
		path.Scaffolding = shared.ScaffoldingMid
		path.Strategies = []string{"metacognitive_prompts", "relational_linking"}
	}
}

// clampComplexity bounds complexity to the 1..10 scale.
func clampComplexity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// clampIntoRange forces a fractional difficulty into an integer range.
func clampIntoRange(v float64, r shared.Range) float64 {
	if v < float64(r.Lower) {
		return float64(r.Lower)
	}
	if v > float64(r.Upper) {
		return float64(r.Upper)
	}
	return v
}

// mean averages a non-empty slice.
func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// stddev is the population standard deviation.
func stddev(vals []float64) float64 {
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(vals)))
}
