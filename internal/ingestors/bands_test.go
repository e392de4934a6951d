package ingestors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVixRegimeBand_MatchesVerbatimCutoffs(t *testing.T) {
	cases := []struct {
		vix  float64
		want float64
	}{
		{40, -0.9}, {32, -0.7}, {27, -0.5}, {22, -0.3}, {19, -0.1}, {15, 0.2}, {13, 0.4}, {10, 0.3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, vixRegimeBand(c.vix), "vix=%v", c.vix)
	}
}

func TestSPY200SMADistanceBand_MatchesVerbatimCutoffs(t *testing.T) {
	cases := []struct {
		pct  float64
		want float64
	}{
		{20, 0.4}, {12, 0.5}, {7, 0.6}, {4, 0.4}, {1, 0.15}, {-1, -0.15}, {-4, -0.4}, {-8, -0.6}, {-12, -0.5}, {-20, -0.4},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, spy200SMADistanceBand(c.pct), "pct=%v", c.pct)
	}
}

func TestYieldCurveBand_MatchesVerbatimCutoffs(t *testing.T) {
	cases := []struct {
		spread float64
		want   float64
	}{
		{2.0, 0.7}, {1.2, 0.5}, {0.7, 0.3}, {0.1, 0.1}, {-0.1, -0.2}, {-0.4, -0.4}, {-0.8, -0.6}, {-2.0, -0.8},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, yieldCurveBand(c.spread), "spread=%v", c.spread)
	}
}

func TestGenericPctBand_SymmetricAroundZero(t *testing.T) {
	assert.Equal(t, 0.0, genericPctBand(0))
	assert.Equal(t, 0.6, genericPctBand(15))
	assert.Equal(t, -0.6, genericPctBand(-15))
}
