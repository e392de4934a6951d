package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_ObserveComputeDuration(t *testing.T) {
	r := Default()
	before := testutil.CollectAndCount(compositeComputeDuration)
	r.ObserveComputeDuration(50*time.Millisecond, "ok")
	after := testutil.CollectAndCount(compositeComputeDuration)
	assert.Greater(t, after, 0)
	assert.GreaterOrEqual(t, after, before)
}

func TestRecorder_SetBiasNumeric(t *testing.T) {
	r := Default()
	r.SetBiasNumeric(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(compositeBiasNumeric))
}

func TestRecorder_SetConfidence_ResetsPriorLevel(t *testing.T) {
	r := Default()
	r.SetConfidence("HIGH")
	assert.Equal(t, 1.0, testutil.ToFloat64(compositeConfidence.WithLabelValues("HIGH")))

	r.SetConfidence("LOW")
	assert.Equal(t, 1.0, testutil.ToFloat64(compositeConfidence.WithLabelValues("LOW")))
	assert.Equal(t, 0, testutil.CollectAndCount(compositeConfidence)-1)
}

func TestRecorder_SetActive(t *testing.T) {
	r := Default()
	r.SetActive(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(breakerActive))
	r.SetActive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(breakerActive))
}

func TestRecorder_RecordIngestorRun(t *testing.T) {
	r := Default()
	r.RecordIngestorRun("spy_trend", "ok", 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(ingestorRuns.WithLabelValues("spy_trend", "ok")))
}

func TestRecorder_RecordDispatch(t *testing.T) {
	r := Default()
	before := testutil.ToFloat64(dispatcherDispatched)
	r.RecordDispatch(true)
	assert.Equal(t, before+1, testutil.ToFloat64(dispatcherDispatched))

	beforeSuppressed := testutil.ToFloat64(dispatcherSuppressed)
	r.RecordDispatch(false)
	assert.Equal(t, beforeSuppressed+1, testutil.ToFloat64(dispatcherSuppressed))
}

func TestRecorder_RecordScan(t *testing.T) {
	r := Default()
	before := testutil.ToFloat64(scannerSignals.WithLabelValues("ema_reclaim"))
	r.RecordScan(5*time.Millisecond, map[string]int{"ema_reclaim": 2})
	assert.Equal(t, before+2, testutil.ToFloat64(scannerSignals.WithLabelValues("ema_reclaim")))
}
