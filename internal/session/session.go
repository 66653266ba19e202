// Package session hosts many independent games in one process.
// Each session owns an engine and the scheduler that drives it; sessions
// share nothing but the event log.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"synergy/internal/game"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("session limit reached")
	ErrUnknownAction   = errors.New("unknown action")
	ErrManagerStopped  = errors.New("session manager stopped")
)

// Action is a player input
type Action string

const (
	ActionLeft    Action = "left"
	ActionRight   Action = "right"
	ActionRestart Action = "restart"
)

// ParseAction validates a raw action name
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionLeft, ActionRight, ActionRestart:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Session is one running game
type Session struct {
	ID        string
	CreatedAt time.Time

	engine    *game.Engine
	scheduler *game.Scheduler
	lastInput atomic.Int64 // unix nano
}

// Engine returns the simulation of this session
func (s *Session) Engine() *game.Engine {
	return s.engine
}

// Snapshot returns the latest published state
func (s *Session) Snapshot() *game.GameSnapshot {
	return s.engine.Snapshot()
}

// Apply feeds an input to the engine. Turns after game over are
// accepted and ignored by the engine.
func (s *Session) Apply(a Action) error {
	switch a {
	case ActionLeft:
		s.engine.TurnLeft()
	case ActionRight:
		s.engine.TurnRight()
	case ActionRestart:
		s.engine.Restart()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, string(a))
	}
	s.touch()
	return nil
}

// LastActive returns the time of the last input, or creation
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastInput.Load())
}

func (s *Session) touch() {
	s.lastInput.Store(time.Now().UnixNano())
}

// Summary is the listing view of a session
type Summary struct {
	ID        string    `json:"id"`
	Score     int       `json:"score"`
	Length    int       `json:"length"`
	GameOver  bool      `json:"gameOver"`
	CreatedAt time.Time `json:"createdAt"`
}

// Hooks observe session activity. Any of them may be nil.
type Hooks struct {
	OnTick     func(d time.Duration)
	OnCollect  func(sessionID string, score int)
	OnLifeLost func(sessionID string, livesLeft int)
	OnGameOver func(sessionID string, reason game.GameOverReason, score int)
	OnCount    func(active int)
}

// Config configures a Manager
type Config struct {
	MaxSessions  int
	IdleTimeout  time.Duration // 0 disables reaping
	ReapInterval time.Duration
	Tuning       game.Tuning
	EventLog     *game.EventLog
	Hooks        Hooks
}

// Manager owns every live session
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	config   Config

	ctx      context.Context
	cancel   context.CancelFunc
	reaperWg sync.WaitGroup
	stopOnce sync.Once
}

// NewManager creates a manager. Sessions start their schedulers on
// Create; the idle reaper starts with Start.
func NewManager(cfg Config) *Manager {
	if cfg.Tuning.GridSize == 0 {
		cfg.Tuning = game.DefaultTuning()
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions: make(map[string]*Session),
		config:   cfg,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the idle reaper
func (m *Manager) Start() {
	if m.config.IdleTimeout <= 0 {
		return
	}
	m.reaperWg.Add(1)
	go m.reapLoop()
}

// Create starts a new session
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return nil, ErrManagerStopped
	}
	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		m.mu.Unlock()
		return nil, ErrSessionLimit
	}

	id := uuid.NewString()
	engine := game.NewEngine(game.EngineConfig{
		Tuning:    m.config.Tuning,
		SessionID: id,
		EventLog:  m.config.EventLog,
	})
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		engine:    engine,
		scheduler: game.NewScheduler(engine, game.SchedulerConfig{
			WaveSpawnInterval: m.config.Tuning.WaveSpawnInterval,
			OnTick:            m.config.Hooks.OnTick,
		}),
	}
	s.touch()
	m.wireCallbacks(s)
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	s.scheduler.Start(m.ctx)
	m.reportCount(count)
	log.Printf("🎮 Session %s created (%d active)", id, count)
	return s, nil
}

func (m *Manager) wireCallbacks(s *Session) {
	h := m.config.Hooks
	var onCollect, onLifeLost func(int)
	var onGameOver func(game.GameOverReason, int)
	if h.OnCollect != nil {
		onCollect = func(score int) { h.OnCollect(s.ID, score) }
	}
	if h.OnLifeLost != nil {
		onLifeLost = func(lives int) { h.OnLifeLost(s.ID, lives) }
	}
	if h.OnGameOver != nil {
		onGameOver = func(r game.GameOverReason, score int) { h.OnGameOver(s.ID, r, score) }
	}
	s.engine.SetCallbacks(onCollect, onLifeLost, onGameOver)
}

// Get returns a session by ID
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove stops a session and forgets it
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	m.shutdown(s)
	m.reportCount(count)
	return nil
}

func (m *Manager) shutdown(s *Session) {
	s.scheduler.Stop()
	m.config.EventLog.ForgetSession(s.ID)
}

// List returns every session, oldest first
func (m *Manager) List() []Summary {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.sessions))
	for _, s := range m.sessions {
		snap := s.Snapshot()
		out = append(out, Summary{
			ID:        s.ID,
			Score:     snap.Score,
			Length:    snap.Length,
			GameOver:  snap.GameOver,
			CreatedAt: s.CreatedAt,
		})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StopAll stops the reaper and every session. Safe to call more than once.
func (m *Manager) StopAll() {
	m.stopOnce.Do(func() {
		m.cancel()
		m.reaperWg.Wait()

		m.mu.Lock()
		sessions := m.sessions
		m.sessions = make(map[string]*Session)
		m.mu.Unlock()

		for _, s := range sessions {
			m.shutdown(s)
		}
		m.reportCount(0)
		log.Printf("🛑 Stopped %d sessions", len(sessions))
	})
}

func (m *Manager) reapLoop() {
	defer m.reaperWg.Done()

	ticker := time.NewTicker(m.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.reapIdle(time.Now().Add(-m.config.IdleTimeout))
		}
	}
}

// reapIdle removes sessions with no input since cutoff
func (m *Manager) reapIdle(cutoff time.Time) int {
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, s := range idle {
		m.shutdown(s)
		log.Printf("🧹 Session %s reaped after inactivity", s.ID)
	}
	if len(idle) > 0 {
		m.reportCount(count)
	}
	return len(idle)
}

func (m *Manager) reportCount(n int) {
	if m.config.Hooks.OnCount != nil {
		m.config.Hooks.OnCount(n)
	}
}
