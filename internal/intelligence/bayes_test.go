package intelligence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeights(t *testing.T) {
	assert.Equal(t, 10.0, PriorWeight(10000, true))
	assert.Equal(t, 5.0, PriorWeight(100, true))
	assert.Equal(t, 20.0, PriorWeight(1e6, true))
	assert.Equal(t, DefaultPriorWeight, PriorWeight(0, false))

	assert.Equal(t, 30.0, ObsWeight(15000))
	assert.Equal(t, 1.0, ObsWeight(0))
	assert.Equal(t, 4.0, ObsWeight(2000))
}

func TestBlendIdentity(t *testing.T) {
	prior, obs := ptr(2.0), ptr(4.0)

	p := Blend(prior, 10, obs, 0)
	require.NotNil(t, p.Mean)
	assert.Equal(t, 2.0, *p.Mean, "no observation weight keeps the prior")
	assert.Equal(t, 10.0, p.Weight)

	p = Blend(prior, 0, obs, 30)
	assert.Equal(t, 4.0, *p.Mean, "no prior weight keeps the observation")
	assert.Equal(t, 30.0, p.Weight)

	p = Blend(prior, 10, obs, 30)
	assert.InDelta(t, 3.5, *p.Mean, 1e-9)
	assert.Equal(t, 40.0, p.Weight)
	assert.True(t, *p.Mean >= 2 && *p.Mean <= 4)

	p = Blend(nil, 10, obs, 30)
	assert.Equal(t, 4.0, *p.Mean)
	p = Blend(prior, 10, nil, 30)
	assert.Equal(t, 2.0, *p.Mean)
	assert.Nil(t, Blend(nil, 10, nil, 30).Mean)
}

func TestBlendDoesNotAlias(t *testing.T) {
	prior := ptr(2.0)
	p := Blend(prior, 10, nil, 0)
	*p.Mean = 9
	assert.Equal(t, 2.0, *prior)
}

func TestDepthAndConfidence(t *testing.T) {
	cases := []struct {
		weight float64
		depth  Depth
		conf   Confidence
		width  float64
	}{
		{0, DepthThin, ConfidenceLow, 0.50},
		{4.9, DepthThin, ConfidenceLow, 0.50},
		{5, DepthModerate, ConfidenceMedium, 0.30},
		{20, DepthStrong, ConfidenceLow, 0.50},
		{50, DepthDeep, ConfidenceHigh, 0.25},
	}
	for _, tc := range cases {
		d := DepthFor(tc.weight)
		assert.Equal(t, tc.depth, d, "weight %v", tc.weight)
		assert.Equal(t, tc.conf, ConfidenceFor(d))
		assert.Equal(t, tc.width, BandWidth(d))
	}
	assert.Equal(t, Band{Low: 1.5, High: 4.5}, BandFor(3, DepthThin))
}

func TestWithBand(t *testing.T) {
	p := Posterior{Mean: ptr(2), Weight: 60}.WithBand()
	require.NotNil(t, p.Band)
	assert.Equal(t, Band{Low: 1.5, High: 2.5}, *p.Band)
	assert.Nil(t, Posterior{}.WithBand().Band)
}
