package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duskline/biasengine/internal/breaker"
	"github.com/duskline/biasengine/internal/broadcast"
	"github.com/duskline/biasengine/internal/calendar"
	"github.com/duskline/biasengine/internal/committee"
	"github.com/duskline/biasengine/internal/composite"
	"github.com/duskline/biasengine/internal/config"
	"github.com/duskline/biasengine/internal/dispatcher"
	"github.com/duskline/biasengine/internal/domain/indicators"
	"github.com/duskline/biasengine/internal/factorstore"
	"github.com/duskline/biasengine/internal/ingestors"
	"github.com/duskline/biasengine/internal/kvstore"
	steplog "github.com/duskline/biasengine/internal/log"
	"github.com/duskline/biasengine/internal/marketdata"
	"github.com/duskline/biasengine/internal/metrics"
	"github.com/duskline/biasengine/internal/persistence"
	"github.com/duskline/biasengine/internal/persistence/db"
	"github.com/duskline/biasengine/internal/scanner"
	"github.com/duskline/biasengine/internal/scheduler"
)

// unconfiguredFetcher is the null-object marketdata.Fetcher installed when
// no real OHLCV provider is wired in. Price-derived ingestors return its
// error, so no new reading is stored for them that cycle, and the scanner
// logs and skips each ticker, same as any other provider outage - fetching
// real bars is a boundary concern left to the deployer.
type unconfiguredFetcher struct{}

func (unconfiguredFetcher) FetchDaily(ctx context.Context, symbol string, lookbackDays int) ([]indicators.PriceBar, error) {
	return nil, errNoProvider
}

// unconfiguredFredFetcher is the equivalent null object for FRED series.
type unconfiguredFredFetcher struct{}

func (unconfiguredFredFetcher) FetchSeries(ctx context.Context, seriesID string, lookback int) ([]ingestors.FredObservation, error) {
	return nil, errNoProvider
}

var errNoProvider = providerError("no market data provider configured")

type providerError string

func (e providerError) Error() string { return string(e) }

// app holds every wired component cmd/biasengine's subcommands operate on.
type app struct {
	cfg       *config.Config
	kv        kvstore.Store
	dbManager *db.Manager
	repos     *persistence.Repository

	factorStore *factorstore.Store
	breakerMgr  *breaker.Manager
	composite   *composite.Engine
	scanner     *scanner.Scanner
	dispatcher  *dispatcher.Dispatcher
	hub         *broadcast.Hub
	assembler   *committee.Assembler
	scheduler   *scheduler.Scheduler

	fetcher marketdata.Fetcher
}

// buildApp wires every in-scope component (C1-C12) from cfg. priceFetcher
// and fred are accepted as injection points rather than constructed here:
// a concrete OHLCV/FRED client is a boundary collaborator (see DESIGN.md),
// so passing nil installs a null object that reports every fetch as
// "no provider configured" and lets every consumer's own staleness and
// fallback handling take over, rather than leaving the binary unable to
// start at all.
func buildApp(cfg *config.Config, priceFetcher marketdata.Fetcher, fred ingestors.FredFetcher) (*app, error) {
	if priceFetcher == nil {
		log.Warn().Msg("no market data provider configured; price-derived factors will stay stale until one is wired")
		priceFetcher = unconfiguredFetcher{}
	}
	if fred == nil {
		log.Warn().Msg("no FRED provider configured; macro factors will stay stale until one is wired")
		fred = unconfiguredFredFetcher{}
	}
	resilient := marketdata.NewResilientFetcher(priceFetcher, "marketdata", 5, 10, 30*time.Second)

	steps := steplog.NewStepLogger(appName, []string{
		"connect_store", "connect_postgres", "restore_breaker", "wire_engine", "wire_ingestors", "wire_scheduler",
	})

	steps.StartStep("connect_store")
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		steps.Fail(err.Error())
		return nil, err
	}
	kv := kvstore.NewAuto(cfg.Store.RedisAddr)
	steps.CompleteStep()

	steps.StartStep("connect_postgres")
	dbManager, err := db.NewManager(cfg.Store.PostgresDSN, cfg.Store.MaxOpenConns, 5*time.Second)
	if err != nil {
		steps.Fail(err.Error())
		return nil, err
	}
	repos := dbManager.Repository()
	steps.CompleteStep()

	rec := metrics.Default()
	hub := broadcast.NewHub(200)

	steps.StartStep("restore_breaker")
	breakerMgr := breaker.NewManager(kv, hub)
	breakerMgr.SetMetrics(rec)
	if err := breakerMgr.Restore(context.Background()); err != nil {
		log.Warn().Err(err).Msg("circuit breaker: failed to restore persisted state, starting clear")
	}
	steps.CompleteStep()

	steps.StartStep("wire_engine")
	normalized := config.NormalizeFactorWeights(cfg.Factors)
	store := factorstore.New(kv, repos.FactorReadings, cfg.Store.DefaultTTL(), normalized)

	verify := composite.NewMarketVerifier(resilient)

	engine := composite.New(kv, store, normalized, breakerMgr, verify, repos.CompositeHist, repos.HealthAlerts, hub)
	engine.SetMetrics(rec)

	scan := scanner.New(resilient, repos.Watchlist, repos.Signals, engine, 30*time.Minute)
	scan.SetMetrics(rec)

	var earnings calendar.EarningsLookup
	cal := calendar.NewCalendar(loc, earnings, map[string]string{})

	assembler := committee.New(engine, repos.Signals, repos.Portfolio, repos.SignalOutcomes, repos.HealthAlerts, cal)

	disp := dispatcher.New(repos.Signals, engine, hub, cal, assembler, 15*time.Minute)
	disp.SetMetrics(rec)
	steps.CompleteStep()

	steps.StartStep("wire_ingestors")
	intraday := ingestors.BuildIntraday(resilient, kv)
	intraday.SetMetrics(rec)
	swingMacro := ingestors.BuildSwingMacro(resilient, fred, kv, store, cfg)
	swingMacro.SetMetrics(rec)
	steps.CompleteStep()

	steps.StartStep("wire_scheduler")
	sched, err := scheduler.New(scheduler.Deps{
		Loc:               loc,
		IntradayFactors:   intraday,
		SwingMacroFactors: swingMacro,
		FactorStore:       store,
		Composite:         engine,
		Scanner:           scan,
		Dispatcher:        disp,
		Signals:           repos.Signals,
		Outcomes:          repos.SignalOutcomes,
		Fetcher:           resilient,
		Health:            dbManager,
		Alerts:            repos.HealthAlerts,
		Broadcaster:       hub,
		Cadence:           cfg.Scheduler,
	})
	if err != nil {
		steps.Fail(err.Error())
		return nil, err
	}
	steps.CompleteStep()
	steps.Finish()

	return &app{
		cfg:         cfg,
		kv:          kv,
		dbManager:   dbManager,
		repos:       repos,
		factorStore: store,
		breakerMgr:  breakerMgr,
		composite:   engine,
		scanner:     scan,
		dispatcher:  disp,
		hub:         hub,
		assembler:   assembler,
		scheduler:   sched,
		fetcher:     resilient,
	}, nil
}
