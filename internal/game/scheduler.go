package game

import (
	"context"
	"sync"
	"time"
)

// Simulation is the part of the engine the scheduler drives
type Simulation interface {
	Advance()
	SpawnWaveAttempt() bool
	Speed() time.Duration
}

// SchedulerConfig configures the two timing loops
type SchedulerConfig struct {
	// WaveSpawnInterval is the fixed cadence of spawn attempts (default 1s)
	WaveSpawnInterval time.Duration
	// OnTick receives the wall time spent in each Advance call
	OnTick func(d time.Duration)
}

// Scheduler drives a Simulation from two independent loops: a tick loop
// whose period follows the engine's current speed, and a wave loop on a
// fixed wall-clock interval. Spawn attempts never scale with game speed.
type Scheduler struct {
	sim    Simulation
	config SchedulerConfig

	mu      sync.Mutex
	current *schedulerRun // nil while stopped
}

// schedulerRun is one Start..Stop lifetime of the loops
type schedulerRun struct {
	cancel context.CancelFunc
	done   chan struct{} // closed once both loops have exited
}

// NewScheduler creates a stopped scheduler for sim
func NewScheduler(sim Simulation, cfg SchedulerConfig) *Scheduler {
	if cfg.WaveSpawnInterval <= 0 {
		cfg.WaveSpawnInterval = time.Second
	}
	return &Scheduler{sim: sim, config: cfg}
}

// Start launches both loops. They run until ctx is done or Stop is called;
// either way the scheduler can be started again afterwards.
// Starting a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	run := &schedulerRun{cancel: cancel, done: make(chan struct{})}
	s.current = run

	var wg sync.WaitGroup
	wg.Add(2)
	go s.tickLoop(ctx, &wg)
	go s.waveLoop(ctx, &wg)

	go func() {
		wg.Wait()
		cancel()
		s.mu.Lock()
		if s.current == run {
			s.current = nil
		}
		s.mu.Unlock()
		close(run.done)
	}()
}

// Stop cancels both loops and waits for them to exit. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	run := s.current
	s.current = nil
	s.mu.Unlock()

	if run == nil {
		return
	}
	run.cancel()
	<-run.done
}

// Running reports whether the loops are active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// tickLoop re-arms its timer after every tick so a speed change applies
// from the next interval on
func (s *Scheduler) tickLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	timer := time.NewTimer(s.sim.Speed())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			start := time.Now()
			s.sim.Advance()
			if s.config.OnTick != nil {
				s.config.OnTick(time.Since(start))
			}
			timer.Reset(s.sim.Speed())
		}
	}
}

func (s *Scheduler) waveLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(s.config.WaveSpawnInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sim.SpawnWaveAttempt()
		}
	}
}
