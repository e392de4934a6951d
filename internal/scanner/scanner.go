// Package scanner implements the zone/signal scanner (C7): per ticker, it
// builds an indicator panel, classifies the trend zone, evaluates the six
// signal-type rules, scores confluence across whatever fires, and enriches
// survivors with sector-wind and composite-bias conviction.
package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/marketdata"
	"github.com/duskline/biasengine/internal/persistence"
)

const (
	defaultLookbackDays = 400
	defaultCooldown     = 30 * time.Minute
)

// BiasProvider is the narrow read surface the scanner needs from the
// composite engine for bias-alignment enrichment; satisfied by
// *composite.Engine.
type BiasProvider interface {
	Cached() (*domain.CompositeResult, bool)
}

// MetricsRecorder is the narrow instrumentation surface the scanner reports
// scan duration and emitted signal counts to; satisfied by
// *internal/metrics.Recorder.
type MetricsRecorder interface {
	RecordScan(d time.Duration, signalCounts map[string]int)
}

// Scanner runs the zone/signal scan across the active watchlist.
type Scanner struct {
	fetcher      marketdata.Fetcher
	watchlist    persistence.WatchlistRepo
	signals      persistence.SignalsRepo
	bias         BiasProvider
	cooldown     time.Duration
	lookbackDays int
	metrics      MetricsRecorder
}

// New builds a scanner; cooldown <= 0 uses the default 30-minute per
// (ticker, signal_type) dedup window.
func New(fetcher marketdata.Fetcher, watchlist persistence.WatchlistRepo, signals persistence.SignalsRepo, bias BiasProvider, cooldown time.Duration) *Scanner {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Scanner{
		fetcher: fetcher, watchlist: watchlist, signals: signals, bias: bias,
		cooldown: cooldown, lookbackDays: defaultLookbackDays,
	}
}

// SetMetrics installs an instrumentation recorder; nil disables it.
func (s *Scanner) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// ScanAll scans every active watchlist ticker, logging and skipping any
// ticker whose fetch or panel build fails rather than aborting the batch.
func (s *Scanner) ScanAll(ctx context.Context) ([]domain.Signal, error) {
	start := time.Now()
	tickers, err := s.watchlist.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var all []domain.Signal
	for _, t := range tickers {
		sigs, err := s.ScanTicker(ctx, t)
		if err != nil {
			log.Warn().Err(err).Str("symbol", t.Symbol).Msg("scan failed for ticker")
			continue
		}
		all = append(all, sigs...)
	}
	if s.metrics != nil {
		counts := make(map[string]int, len(all))
		for _, sig := range all {
			counts[string(sig.SignalType)]++
		}
		s.metrics.RecordScan(time.Since(start), counts)
	}
	return all, nil
}

// ScanTicker runs the full per-ticker pipeline: fetch, classify, evaluate
// rules, score confluence, dedup against cooldown, and enrich survivors.
func (s *Scanner) ScanTicker(ctx context.Context, ticker domain.WatchlistTicker) ([]domain.Signal, error) {
	bars, err := s.fetcher.FetchDaily(ctx, ticker.Symbol, s.lookbackDays)
	if err != nil {
		return nil, err
	}
	p, err := buildPanel(bars)
	if err != nil {
		return nil, err
	}
	prevPanel, prevErr := buildPanel(bars[:len(bars)-1])
	zone := classifyZone(p)
	prevZone := domain.ZoneUnknown
	if prevErr == nil {
		prevZone = classifyZone(prevPanel)
	}

	var raw []domain.Signal
	for _, rule := range rules {
		if sig, ok := rule(ticker.Symbol, bars, p, zone, prevZone); ok {
			raw = append(raw, sig)
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}

	scored := scoreConfluence(raw)

	var out []domain.Signal
	for _, sig := range scored {
		dup, err := s.isDuplicate(ctx, sig)
		if err != nil {
			log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("cooldown check failed, emitting anyway")
		} else if dup {
			continue
		}
		s.enrich(ctx, &sig, ticker)
		out = append(out, sig)
	}
	return out, nil
}

func (s *Scanner) isDuplicate(ctx context.Context, sig domain.Signal) (bool, error) {
	last, err := s.signals.LastEmitted(ctx, sig.Symbol, sig.SignalType)
	if err != nil {
		return false, err
	}
	if last == nil {
		return false, nil
	}
	return time.Since(last.EmittedAt) < s.cooldown, nil
}

func (s *Scanner) enrich(ctx context.Context, sig *domain.Signal, ticker domain.WatchlistTicker) {
	wind := domain.WindUnknown
	if ticker.SectorETF != "" {
		if sectorBars, err := s.fetcher.FetchDaily(ctx, ticker.SectorETF, s.lookbackDays); err == nil {
			if sectorPanel, err := buildPanel(sectorBars); err == nil {
				wind = sectorWindFor(sig.Direction, classifyZone(sectorPanel))
			}
		}
	}

	biasLevel := domain.BiasNeutral
	if result, ok := s.bias.Cached(); ok && result != nil {
		biasLevel = result.BiasLevel
	}
	alignment := biasAlignmentFor(sig.Direction, biasLevel)
	sig.ConvictionMult = convictionMult(wind, alignment)
}
