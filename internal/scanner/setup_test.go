package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duskline/biasengine/internal/domain"
)

func TestRiskRewardFor_GoldenTouchMaxLongUsesNamedProfile(t *testing.T) {
	rr, _ := riskRewardFor(domain.SignalGoldenTouch, domain.ZoneMaxLong)
	assert.Equal(t, 1.5, rr.StopMult)
	assert.Equal(t, 3.0, rr.TargetMult)
}

func TestRiskRewardFor_UnknownCombinationUsesDefault(t *testing.T) {
	rr, profile := riskRewardFor(domain.SignalGoldenTouch, domain.ZoneWaterfall)
	assert.Equal(t, defaultStopMult, rr.StopMult)
	assert.Equal(t, defaultTargetMult, rr.TargetMult)
	assert.Equal(t, "default", profile)
}

func TestSmartStop_PrefersZoneAnchorWhenRiskValidates(t *testing.T) {
	smas := map[string]float64{"SMA20": 99, "SMA50": 95, "SMA120": 90}
	stop, anchor := smartStop(domain.DirectionLong, domain.ZoneMaxLong, 100, 2.0, 1.5, smas)
	assert.Equal(t, "SMA20", anchor)
	assert.InDelta(t, 98.5, stop, 1e-9)
}

func TestSmartStop_FallsBackToATRWhenNoAnchorValidates(t *testing.T) {
	smas := map[string]float64{"SMA20": 50, "SMA50": 40, "SMA120": 30}
	stop, anchor := smartStop(domain.DirectionLong, domain.ZoneMaxLong, 100, 2.0, 1.5, smas)
	assert.Equal(t, "atr_fallback", anchor)
	assert.InDelta(t, 97.0, stop, 1e-9)
}

func TestTarget2_ProjectsInDirectionOfTravel(t *testing.T) {
	assert.InDelta(t, 106.0, target2(domain.DirectionLong, 100, 2.0, 3.0), 1e-9)
	assert.InDelta(t, 94.0, target2(domain.DirectionShort, 100, 2.0, 3.0), 1e-9)
}

func TestTarget1_CollapsesToT2WhenWithinRiskFraction(t *testing.T) {
	t1, anchor := target1(domain.DirectionLong, 100, 100.5, 99, nil)
	assert.Equal(t, 100.5, t1)
	assert.Equal(t, "T1 skipped (insufficient R:R)", anchor)
}

func TestTarget1_UsesHalfRiskWhenNoCloserSMA(t *testing.T) {
	t1, anchor := target1(domain.DirectionLong, 100, 106, 97, nil)
	assert.Equal(t, "half_risk", anchor)
	assert.InDelta(t, 103.0, t1, 1e-9)
}

func TestEntryWindow_GoldenTouchBandsAroundSMA20(t *testing.T) {
	w := entryWindow(domain.SignalGoldenTouch, domain.DirectionLong, 100, 2.0, 98, 95)
	assert.Equal(t, 98.0, w.Low)
	assert.InDelta(t, 99.5, w.High, 1e-9)
}
