package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskline/biasengine/internal/domain/indicators"
)

type stubFetcher struct {
	bars []indicators.PriceBar
	err  error
}

func (s *stubFetcher) FetchDaily(ctx context.Context, symbol string, lookbackDays int) ([]indicators.PriceBar, error) {
	return s.bars, s.err
}

func TestResilientFetcher_PassesThroughOnSuccess(t *testing.T) {
	stub := &stubFetcher{bars: []indicators.PriceBar{{Close: 100}}}
	rf := NewResilientFetcher(stub, "test", 100, 10, time.Second)

	bars, err := rf.FetchDaily(context.Background(), "SPY", 30)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Nil(t, rf.LastError())
}

func TestResilientFetcher_TripsAfterConsecutiveFailures(t *testing.T) {
	stub := &stubFetcher{err: errors.New("provider down")}
	rf := NewResilientFetcher(stub, "test-trip", 1000, 100, time.Minute)

	for i := 0; i < 5; i++ {
		_, err := rf.FetchDaily(context.Background(), "SPY", 30)
		require.Error(t, err)
	}

	_, err := rf.FetchDaily(context.Background(), "SPY", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marketdata: fetch")
}
