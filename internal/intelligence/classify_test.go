package intelligence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideBoundaries(t *testing.T) {
	cases := []struct {
		roas   *float64
		action Action
	}{
		{ptr(4.20), ActionScale},
		{ptr(4.5), ActionScale},
		{ptr(2.40), ActionHold},
		{ptr(2.5), ActionHold},
		{ptr(2.39), ActionCut},
		{ptr(1.0), ActionCut},
		{ptr(0), ActionCut},
		{ptr(-1), ActionCut},
		{nil, ActionCut},
	}
	for _, tc := range cases {
		got, _ := Decide(tc.roas, 3.0)
		assert.Equal(t, tc.action, got, "roas %v", tc.roas)
	}
}

func TestDecideRationale(t *testing.T) {
	_, why := Decide(nil, 3)
	assert.Equal(t, "No reliable return", why)
	_, why = Decide(ptr(4.5), 3)
	assert.Equal(t, "ROAS 4.50 beats target 3.00; increase budget", why)
	_, why = Decide(ptr(2.4), 3)
	assert.Contains(t, why, "2.40")
}

func TestLearningStage(t *testing.T) {
	assert.Equal(t, StageColdStart, LearningStage(1e6, 2))
	assert.Equal(t, StageEarlyLearning, LearningStage(4999, 3))
	assert.Equal(t, StageEmergingSignal, LearningStage(5000, 10))
	assert.Equal(t, StageMature, LearningStage(20000, 10))
	assert.NotEmpty(t, StageMature.Hint)
}

func TestRoasCategory(t *testing.T) {
	assert.Equal(t, "elite", RoasCategory(ptr(5)))
	assert.Equal(t, "strong", RoasCategory(ptr(3)))
	assert.Equal(t, "ok", RoasCategory(ptr(2)))
	assert.Equal(t, "weak", RoasCategory(ptr(0.1)))
	assert.Equal(t, "loss", RoasCategory(ptr(0)))
	assert.Equal(t, "loss", RoasCategory(nil))
}
