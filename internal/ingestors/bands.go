package ingestors

// vixRegimeBand implements bias_filters/vix_regime.py's level cutoffs
// verbatim.
func vixRegimeBand(vix float64) float64 {
	switch {
	case vix > 35:
		return -0.9
	case vix > 30:
		return -0.7
	case vix > 25:
		return -0.5
	case vix > 20:
		return -0.3
	case vix > 18:
		return -0.1
	case vix > 14:
		return 0.2
	case vix > 12:
		return 0.4
	default:
		return 0.3
	}
}

// spy200SMADistanceBand implements bias_filters/spy_200sma_distance.py's
// percent-deviation cutoffs verbatim. pct is (price-sma200)/sma200*100.
func spy200SMADistanceBand(pct float64) float64 {
	switch {
	case pct > 15:
		return 0.4
	case pct > 10:
		return 0.5
	case pct > 5:
		return 0.6
	case pct > 3:
		return 0.4
	case pct > 0:
		return 0.15
	case pct > -3:
		return -0.15
	case pct > -5:
		return -0.4
	case pct > -10:
		return -0.6
	case pct > -15:
		return -0.5
	default:
		return -0.4
	}
}

// yieldCurveBand implements bias_filters/yield_curve.py's spread cutoffs
// verbatim. spread is the 10y-2y spread in percentage points.
func yieldCurveBand(spread float64) float64 {
	switch {
	case spread > 1.5:
		return 0.7
	case spread > 1.0:
		return 0.5
	case spread > 0.5:
		return 0.3
	case spread > 0.0:
		return 0.1
	case spread > -0.25:
		return -0.2
	case spread > -0.5:
		return -0.4
	case spread > -1.0:
		return -0.6
	default:
		return -0.8
	}
}

// claimsLevelBand implements bias_filters/initial_claims.py's _score_claims
// level cutoffs verbatim. avg4w is the 4-week average initial jobless
// claims level in raw units (hundreds of thousands), not a percent change.
func claimsLevelBand(avg4w float64) float64 {
	switch {
	case avg4w < 200_000:
		return 0.6
	case avg4w < 220_000:
		return 0.4
	case avg4w < 250_000:
		return 0.2
	case avg4w < 280_000:
		return 0.0
	case avg4w < 300_000:
		return -0.2
	case avg4w < 350_000:
		return -0.5
	case avg4w < 400_000:
		return -0.7
	default:
		return -0.9
	}
}

// mfgEmploymentYoYBand implements bias_filters/ism_manufacturing.py's
// _score_mfg_employment cutoffs verbatim. yoyPct is manufacturing
// employment's year-over-year percent change, not its raw level.
func mfgEmploymentYoYBand(yoyPct float64) float64 {
	switch {
	case yoyPct >= 3.0:
		return 0.7
	case yoyPct >= 1.5:
		return 0.5
	case yoyPct >= 0.5:
		return 0.3
	case yoyPct >= 0.0:
		return 0.1
	case yoyPct >= -0.5:
		return -0.1
	case yoyPct >= -1.5:
		return -0.3
	case yoyPct >= -3.0:
		return -0.5
	case yoyPct >= -5.0:
		return -0.7
	default:
		return -0.9
	}
}

// excessCAPEBand implements pivot/collectors/factor_excess_cape.py's ECY
// cutoffs verbatim. ecy is the excess CAPE yield in percentage points
// (earnings yield minus the 10-year Treasury yield).
func excessCAPEBand(ecy float64) float64 {
	switch {
	case ecy >= 3.0:
		return 0.6
	case ecy >= 2.0:
		return 0.3
	case ecy >= 1.0:
		return 0.0
	case ecy >= 0.0:
		return -0.4
	default:
		return -0.8
	}
}

// genericPctBand scores a generic percent-deviation or level reading into
// a 7-tier table of the same kind as the verbatim tables above, for factors whose
// exact per-decile cutoffs were not present in the filtered original
// source. Symmetric around zero, saturating at +/-0.6.
func genericPctBand(pct float64) float64 {
	switch {
	case pct > 10:
		return 0.6
	case pct > 5:
		return 0.4
	case pct > 2:
		return 0.2
	case pct > -2:
		return 0.0
	case pct > -5:
		return -0.2
	case pct > -10:
		return -0.4
	default:
		return -0.6
	}
}

// ratioBand scores a ratio (e.g. cyclical/defensive, risk-on/risk-off) that
// oscillates around 1.0 into the generic banding by converting it to a
// percent deviation from parity first.
func ratioBand(ratio float64) float64 {
	return genericPctBand((ratio - 1.0) * 100)
}
