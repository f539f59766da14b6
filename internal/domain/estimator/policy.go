// Package estimator implements the five learner-state estimators and the
// predictive projector. Every estimator is a stateless calculator: one
// instance is shared process-wide and all per-session data arrives through
// its inputs, so estimation is safe under any session interleaving.
package estimator

import (
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// LoadPolicy holds the cognitive-load formula constants.
type LoadPolicy struct {
	// TimeNormMs - response time that saturates the time factor at 1.
	TimeNormMs float64

	// AccuracyWeight - multiplier on (1 - accuracy).
	AccuracyWeight float64

	// HesitationWeight - load per hesitation signal.
	HesitationWeight float64

	// ErrorWeight - load per error signal.
	ErrorWeight float64

	// FatigueNormMs - session duration that would saturate fatigue at 1
	// before capping.
	FatigueNormMs float64

	// FatigueCap - upper bound on the fatigue factor.
	FatigueCap float64

	// Scale - factor sum to 0..100 scale.
	Scale float64

	// OptimalRange - the load band the controller steers toward.
	OptimalRange shared.Range

	// Overload thresholds.
	OverloadLevel    int     // load above this fires response_time_spike
	AccuracyCollapse float64 // accuracy below this fires accuracy_collapse
	HesitationLimit  int     // hesitations above this fire repeated_hesitation
	FatigueWindowMs  float64 // elapsed beyond this fires fatigue_window
}

// ComprehensionPolicy holds the depth-classifier constants.
type ComprehensionPolicy struct {
	// CorrectIncrement - bucket credit for a correct event.
	CorrectIncrement float64

	// SurfaceMaxLen - explanations at or below this length read as short.
	SurfaceMaxLen int

	// DeepMinLen - minimum explanation length for a deep classification.
	DeepMinLen int

	// Transfer formula weights: transfer = round(Scale * (DeepWeight*deep
	// + StrategicWeight*strategic + ConnectionWeight*connections)).
	TransferScale    float64
	DeepWeight       float64
	StrategicWeight  float64
	ConnectionWeight float64
}

// MetacognitionPolicy holds the assessor constants.
type MetacognitionPolicy struct {
	// StrategyWeight - score per distinct strategy used.
	StrategyWeight float64

	// AwarenessDivisor - mean explanation length divided by this.
	AwarenessDivisor float64

	// RegulationWindow - entries compared at each end of the history.
	RegulationWindow int
}

// MotivationWeights is one weighted-sum row: score = clamp(Base + sum of
// weight*counter, 0, 100). Positive counters for a dimension must carry
// non-negative weights so the monotonicity contract holds.
type MotivationWeights struct {
	Base           float64
	Extensions     float64
	HelpRequests   float64
	EasyChosen     float64
	MediumChosen   float64
	HardChosen     float64
	Positive       float64
	Negative       float64
	PersistenceMin float64
}

// MotivationPolicy holds one weight row per motivational dimension.
type MotivationPolicy struct {
	Intrinsic  MotivationWeights
	Extrinsic  MotivationWeights
	Confidence MotivationWeights
	Anxiety    MotivationWeights
	Flow       MotivationWeights
}

// DifficultyPolicy holds the adaptive-difficulty controller constants.
type DifficultyPolicy struct {
	// Window - rolling event window for the ability estimate.
	Window int

	// ImprovementThreshold - |rate| beyond which target shifts ±0.5.
	ImprovementThreshold float64

	// TargetShift - how far the target moves off optimal on a trend.
	TargetShift float64

	// BaseAdjustRate / MaxAdjustRate - adjustment-rate bounds.
	BaseAdjustRate float64
	MaxAdjustRate  float64

	// SpeedBonusFastMs / SpeedBonusMs - response-time cutoffs for the
	// processing-speed bonus.
	SpeedBonusFastMs float64
	SpeedBonusMs     float64
	SpeedBonusFast   float64
	SpeedBonus       float64

	// ConsistencyStdDev / ConsistencyBonus - accuracy-spread cutoff and
	// its bonus.
	ConsistencyStdDev float64
	ConsistencyBonus  float64

	// HighLoad / LowLoad - cognitive-load cutoffs for the complexity
	// optimizer.
	HighLoad int
	LowLoad  int
}

// TriggerPolicy holds the adaptation-loop trigger thresholds.
type TriggerPolicy struct {
	// Fatigue break: duration above BreakAfterMin AND accuracy below
	// BreakAccuracy.
	BreakAfterMin int
	BreakAccuracy float64

	// Frustration: session frustration signals above this count.
	FrustrationLimit int

	// Engagement floor for the gamify trigger.
	EngagementFloor int

	// Mastery: accuracy above MasteryAccuracy AND avg response below
	// MasteryResponseMs.
	MasteryAccuracy   float64
	MasteryResponseMs float64

	// TrendWindow - points averaged for trigger accuracy/response checks.
	TrendWindow int
}

// ProjectionPolicy holds the predictive-projector constants.
type ProjectionPolicy struct {
	// BaseMinutesPerTopic - mastery estimate before acceleration.
	BaseMinutesPerTopic float64

	// Efficiency bonus response-time cutoffs.
	EfficiencyFastMs float64
	EfficiencyMs     float64
	EfficiencyFast   float64
	Efficiency       float64

	// ConfidenceBand - fixed ± band on exam readiness.
	ConfidenceBand int

	// StrengthThreshold / RiskThreshold - metric cutoffs for the
	// strong/risk area lists.
	StrengthThreshold int
	RiskThreshold     int
}

// Policy is the complete tuning-constant table for the engine. The numeric
// values are heuristics, not physics: tests pin the defaults for regression
// and config may override them.
type Policy struct {
	Load          LoadPolicy
	Comprehension ComprehensionPolicy
	Metacognition MetacognitionPolicy
	Motivation    MotivationPolicy
	Difficulty    DifficultyPolicy
	Triggers      TriggerPolicy
	Projection    ProjectionPolicy
}

// DefaultPolicy returns today's tuning values.
func DefaultPolicy() Policy {
	return Policy{
		Load: LoadPolicy{
			TimeNormMs:       30000,
			AccuracyWeight:   1.5,
			HesitationWeight: 0.1,
			ErrorWeight:      0.15,
			FatigueNormMs:    3600000,
			FatigueCap:       0.3,
			Scale:            50,
			OptimalRange:     shared.Range{Lower: 30, Upper: 70},
			OverloadLevel:    80,
			AccuracyCollapse: 0.5,
			HesitationLimit:  3,
			FatigueWindowMs:  2700000,
		},
		Comprehension: ComprehensionPolicy{
			CorrectIncrement: 25,
			SurfaceMaxLen:    40,
			DeepMinLen:       120,
			TransferScale:    0.7,
			DeepWeight:       0.6,
			StrategicWeight:  0.3,
			ConnectionWeight: 10,
		},
		Metacognition: MetacognitionPolicy{
			StrategyWeight:   20,
			AwarenessDivisor: 2,
			RegulationWindow: 3,
		},
		Motivation: MotivationPolicy{
			Intrinsic: MotivationWeights{
				Base: 40, Extensions: 8, HardChosen: 6, PersistenceMin: 2,
			},
			Extrinsic: MotivationWeights{
				Base: 30, HelpRequests: 3, EasyChosen: 4, MediumChosen: 3,
			},
			Confidence: MotivationWeights{
				Base: 50, Positive: 6, HardChosen: 4, Negative: -5, HelpRequests: -2,
			},
			Anxiety: MotivationWeights{
				Base: 20, Negative: 8, EasyChosen: 5, HelpRequests: 2, Positive: -4,
			},
			Flow: MotivationWeights{
				Base: 30, Extensions: 7, MediumChosen: 5, PersistenceMin: 2, Negative: -3,
			},
		},
		Difficulty: DifficultyPolicy{
			Window:               5,
			ImprovementThreshold: 0.1,
			TargetShift:          0.5,
			BaseAdjustRate:       0.1,
			MaxAdjustRate:        0.3,
			SpeedBonusFastMs:     15000,
			SpeedBonusMs:         30000,
			SpeedBonusFast:       0.1,
			SpeedBonus:           0.05,
			ConsistencyStdDev:    0.15,
			ConsistencyBonus:     0.1,
			HighLoad:             80,
			LowLoad:              40,
		},
		Triggers: TriggerPolicy{
			BreakAfterMin:     45,
			BreakAccuracy:     0.6,
			FrustrationLimit:  3,
			EngagementFloor:   40,
			MasteryAccuracy:   0.9,
			MasteryResponseMs: 30000,
			TrendWindow:       5,
		},
		Projection: ProjectionPolicy{
			BaseMinutesPerTopic: 90,
			EfficiencyFastMs:    20000,
			EfficiencyMs:        30000,
			EfficiencyFast:      10,
			Efficiency:          5,
			ConfidenceBand:      8,
			StrengthThreshold:   70,
			RiskThreshold:       40,
		},
	}
}
