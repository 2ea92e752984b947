package intelligence

import "fmt"

// Stage is the learning stage of a country or campaign.
type Stage struct {
	Name string `json:"name"`
	Hint string `json:"hint"`
}

var (
	StageColdStart      = Stage{"Cold Start", "Fewer than 3 days of delivery; hold budgets steady until results settle"}
	StageEarlyLearning  = Stage{"Early Learning", "Under 5,000 in spend; expect volatile ROAS and avoid large moves"}
	StageEmergingSignal = Stage{"Emerging Signal", "A signal is forming; adjust budgets in small steps"}
	StageMature         = Stage{"Mature", "Enough history to act on the posterior with confidence"}
)

// LearningStage classifies by active days, then by spend.
func LearningStage(totalSpend float64, activeDays int) Stage {
	switch {
	case activeDays < 3:
		return StageColdStart
	case totalSpend < 5000:
		return StageEarlyLearning
	case totalSpend < 20000:
		return StageEmergingSignal
	default:
		return StageMature
	}
}

// Action is a budget recommendation.
type Action string

const (
	ActionScale Action = "Scale"
	ActionHold  Action = "Hold"
	ActionCut   Action = "Cut"
)

const (
	scaleRatio = 1.4
	holdRatio  = 0.8
	// ratioEpsilon absorbs float error at the thresholds: 2.4/3 is
	// 0.7999999999999999.
	ratioEpsilon = 1e-9
)

// Decide compares roas with target.
func Decide(roas *float64, target float64) (Action, string) {
	if roas == nil || *roas <= 0 || target <= 0 {
		return ActionCut, "No reliable return"
	}
	r := *roas / target
	switch {
	case r >= scaleRatio-ratioEpsilon:
		return ActionScale, fmt.Sprintf("ROAS %.2f beats target %.2f; increase budget", *roas, target)
	case r >= holdRatio-ratioEpsilon:
		return ActionHold, fmt.Sprintf("ROAS %.2f is close to target %.2f; keep budget", *roas, target)
	default:
		return ActionCut, fmt.Sprintf("ROAS %.2f is below target %.2f; reduce budget", *roas, target)
	}
}

// RoasCategory tags a ROAS independently of the target.
func RoasCategory(roas *float64) string {
	if roas == nil {
		return "loss"
	}
	switch v := *roas; {
	case v >= 5:
		return "elite"
	case v >= 3:
		return "strong"
	case v >= 2:
		return "ok"
	case v > 0:
		return "weak"
	default:
		return "loss"
	}
}
