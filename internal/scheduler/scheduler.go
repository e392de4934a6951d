// Package scheduler implements the cadenced driver set (C9): independent
// cooperative tasks, each a goroutine plus time.Ticker, that pull the
// ingest/compute/scan/track/heartbeat cycle forward without a central
// work queue. A missed tick never queues - the next tick simply runs
// fresh against whatever state exists then.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Gate decides, given the current time and the start of this driver's last
// run (successful or not), whether this tick should actually execute. A
// nil Gate always runs.
type Gate func(now, lastRun time.Time) bool

// Driver is one cadenced unit of work.
type Driver struct {
	Name     string
	Interval time.Duration
	Gate     Gate
	Run      func(ctx context.Context) error
}

// TaskStatus is the observable state of one driver, read by the `schedule
// list`/`schedule status` CLI surface.
type TaskStatus struct {
	Name        string
	Interval    time.Duration
	LastRun     time.Time
	LastOK      bool
	LastErr     string
	LastLatency time.Duration
	RunCount    int
	SkipCount   int
}

// Scheduler runs a fixed set of Drivers concurrently until its context is
// cancelled.
type Scheduler struct {
	drivers []Driver

	mu     sync.Mutex
	status map[string]*TaskStatus
}

// NewScheduler builds a Scheduler directly over an explicit driver slice,
// used by tests that want full control over each Driver's Gate/Run
// without going through Deps-based wiring.
func NewScheduler(drivers []Driver) *Scheduler {
	status := make(map[string]*TaskStatus, len(drivers))
	for _, d := range drivers {
		status[d.Name] = &TaskStatus{Name: d.Name, Interval: d.Interval}
	}
	return &Scheduler{drivers: drivers, status: status}
}

// Start launches every driver on its own ticker and blocks until ctx is
// cancelled. Each driver's ticks are independent - a slow or failing
// driver never delays another.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, d := range s.drivers {
		wg.Add(1)
		go func(d Driver) {
			defer wg.Done()
			s.runLoop(ctx, d)
		}(d)
	}
	wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, d Driver) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	log.Info().Str("driver", d.Name).Dur("interval", d.Interval).Msg("scheduler: driver started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("driver", d.Name).Msg("scheduler: driver stopped")
			return
		case now := <-ticker.C:
			s.tick(ctx, d, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, d Driver, now time.Time) {
	s.mu.Lock()
	last := s.status[d.Name].LastRun
	s.mu.Unlock()

	if d.Gate != nil && !d.Gate(now, last) {
		s.mu.Lock()
		s.status[d.Name].SkipCount++
		s.mu.Unlock()
		return
	}

	_ = s.execute(ctx, d)
}

// execute runs a driver once immediately, recording its outcome. Used by
// both the ticker loop and RunNow's on-demand trigger.
func (s *Scheduler) execute(ctx context.Context, d Driver) error {
	start := time.Now()
	err := d.Run(ctx)
	latency := time.Since(start)

	s.mu.Lock()
	st := s.status[d.Name]
	st.LastRun = start
	st.LastLatency = latency
	st.RunCount++
	st.LastOK = err == nil
	if err != nil {
		st.LastErr = err.Error()
	} else {
		st.LastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("driver", d.Name).Dur("latency", latency).Msg("scheduler: driver run failed")
		return err
	}
	log.Debug().Str("driver", d.Name).Dur("latency", latency).Msg("scheduler: driver run completed")
	return nil
}

// RunNow executes the named driver immediately, bypassing its Gate - the
// `schedule run <name>` CLI path. Returns false if no driver has that name.
func (s *Scheduler) RunNow(ctx context.Context, name string) (bool, error) {
	for _, d := range s.drivers {
		if d.Name != name {
			continue
		}
		return true, s.execute(ctx, d)
	}
	return false, nil
}

// Status returns a snapshot of the named driver's observability state.
func (s *Scheduler) Status(name string) (TaskStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[name]
	if !ok {
		return TaskStatus{}, false
	}
	return *st, true
}

// Statuses returns a snapshot of every driver's observability state, in
// the order the drivers were registered.
func (s *Scheduler) Statuses() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStatus, 0, len(s.drivers))
	for _, d := range s.drivers {
		out = append(out, *s.status[d.Name])
	}
	return out
}
