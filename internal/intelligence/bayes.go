// Package intelligence blends a trailing prior with the caller's window
// into ROAS and CAC posteriors and turns them into Scale/Hold/Cut guidance
// and starter budget plans.
package intelligence

const (
	// DefaultPriorWeight is used when a country has no prior spend.
	DefaultPriorWeight = 10.0

	minPriorWeight = 5.0
	maxPriorWeight = 20.0
	minObsWeight   = 1.0
	maxObsWeight   = 30.0

	priorSpendPerSample = 1000.0
	obsSpendPerSample   = 500.0
)

// Band is a confidence interval around a mean.
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Posterior is a blended estimate. Weight is the effective sample size.
type Posterior struct {
	Mean   *float64 `json:"mean"`
	Weight float64  `json:"weight"`
	Band   *Band    `json:"band,omitempty"`
}

// Clamp bounds v to [lo, hi].
func Clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PriorWeight converts historical spend into pseudo-samples.
func PriorWeight(priorSpend float64, hasHistory bool) float64 {
	if !hasHistory {
		return DefaultPriorWeight
	}
	return Clamp(minPriorWeight, maxPriorWeight, priorSpend/priorSpendPerSample)
}

// ObsWeight converts observed spend into samples.
func ObsWeight(observedSpend float64) float64 {
	return Clamp(minObsWeight, maxObsWeight, observedSpend/obsSpendPerSample)
}

// Blend combines a prior and an observation. A missing or weightless side
// leaves the other unchanged; otherwise the mean is the weight-averaged
// convex combination and the weights add.
func Blend(priorMean *float64, priorWeight float64, obsMean *float64, obsWeight float64) Posterior {
	priorOK := priorMean != nil && priorWeight > 0
	obsOK := obsMean != nil && obsWeight > 0

	switch {
	case priorOK && obsOK:
		mean := (*priorMean*priorWeight + *obsMean*obsWeight) / (priorWeight + obsWeight)
		return Posterior{Mean: &mean, Weight: priorWeight + obsWeight}
	case priorOK:
		return Posterior{Mean: copyFloat(priorMean), Weight: priorWeight}
	case obsOK:
		return Posterior{Mean: copyFloat(obsMean), Weight: obsWeight}
	case priorMean != nil:
		return Posterior{Mean: copyFloat(priorMean)}
	default:
		return Posterior{Mean: copyFloat(obsMean)}
	}
}

// WithBand attaches a band sized by the posterior's depth.
func (p Posterior) WithBand() Posterior {
	if p.Mean != nil {
		b := BandFor(*p.Mean, DepthFor(p.Weight))
		p.Band = &b
	}
	return p
}

// Depth is a coarse label over posterior weight.
type Depth string

const (
	DepthThin     Depth = "thin"
	DepthModerate Depth = "moderate"
	DepthStrong   Depth = "strong"
	DepthDeep     Depth = "deep"
)

// DepthFor classifies a posterior weight.
func DepthFor(weight float64) Depth {
	switch {
	case weight < 5:
		return DepthThin
	case weight < 20:
		return DepthModerate
	case weight < 50:
		return DepthStrong
	default:
		return DepthDeep
	}
}

// Confidence labels a plan by depth.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// ConfidenceFor maps deep to High and moderate to Medium. Everything else,
// strong included, is Low.
func ConfidenceFor(d Depth) Confidence {
	switch d {
	case DepthDeep:
		return ConfidenceHigh
	case DepthModerate:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// BandWidth is the relative half-width of the band for a depth.
func BandWidth(d Depth) float64 {
	switch ConfidenceFor(d) {
	case ConfidenceHigh:
		return 0.25
	case ConfidenceMedium:
		return 0.30
	default:
		return 0.50
	}
}

// BandFor returns [m - m*w, m + m*w].
func BandFor(mean float64, d Depth) Band {
	w := BandWidth(d)
	return Band{Low: mean - mean*w, High: mean + mean*w}
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptr(v float64) *float64 { return &v }

// ratio returns num/den, or nil when den is not positive.
func ratio(num, den float64) *float64 {
	if den <= 0 {
		return nil
	}
	return ptr(num / den)
}
