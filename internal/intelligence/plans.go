package intelligence

// PlanningDefaults are echoed to the planner UI.
type PlanningDefaults struct {
	TargetRoas    float64 `json:"targetRoas"`
	MinDailySpend float64 `json:"minDailySpend"`
	MaxDailySpend float64 `json:"maxDailySpend"`
	HorizonDays   int     `json:"horizonDays"`
}

const (
	DefaultTargetRoas = 3.0
	MinDailySpend     = 100.0
	MaxDailySpend     = 20000.0
	HorizonDays       = 7
	// FallbackDailyBudget applies when CAC is unknown.
	FallbackDailyBudget = 2000.0
	// cacMultiplier buys roughly this many purchases per day.
	cacMultiplier = 8.0
)

// StartPlan is a forward budget plan for one country.
type StartPlan struct {
	Country              string     `json:"country"`
	RecommendedDaily     float64    `json:"recommendedDaily"`
	RecommendedTotal     float64    `json:"recommendedTotal"`
	ExpectedDailyRevenue *float64   `json:"expectedDailyRevenue"`
	ExpectedPurchases    *float64   `json:"expectedPurchases"`
	RevenueBand          *Band      `json:"revenueBand"`
	RoasPosterior        *float64   `json:"roasPosterior"`
	CacPosterior         *float64   `json:"cacPosterior"`
	Depth                Depth      `json:"depth"`
	Confidence           Confidence `json:"confidence"`
}

// BuildStartPlan sizes the daily budget from the CAC posterior and
// forecasts revenue from the ROAS posterior. Confidence follows the depth
// of the ROAS posterior.
func BuildStartPlan(country string, roas, cac Posterior) StartPlan {
	depth := DepthFor(roas.Weight)
	plan := StartPlan{
		Country:          country,
		RecommendedDaily: FallbackDailyBudget,
		RoasPosterior:    copyFloat(roas.Mean),
		CacPosterior:     copyFloat(cac.Mean),
		Depth:            depth,
		Confidence:       ConfidenceFor(depth),
	}

	if cac.Mean != nil && *cac.Mean > 0 {
		plan.RecommendedDaily = Clamp(MinDailySpend, MaxDailySpend, *cac.Mean*cacMultiplier)
		plan.ExpectedPurchases = ptr(plan.RecommendedDaily / *cac.Mean)
	}
	plan.RecommendedTotal = plan.RecommendedDaily * HorizonDays

	if roas.Mean != nil {
		rev := plan.RecommendedDaily * *roas.Mean
		plan.ExpectedDailyRevenue = &rev
		band := BandFor(rev, depth)
		plan.RevenueBand = &band
	}
	return plan
}
