package game

import (
	"log"
	"math/rand"
	"sync"
	"time"
)

// maxSpawnAttempts bounds random orb placement before falling back to a scan
const maxSpawnAttempts = 256

// EngineConfig configures a single game session
type EngineConfig struct {
	Tuning    Tuning    // Zero value means DefaultTuning
	Seed      int64     // RNG seed; 0 picks one from the clock
	SessionID string    // Tags events and log lines
	EventLog  *EventLog // Optional shared audit log
}

// Engine is the simulation of one game session.
// Every exported method is atomic with respect to the others; readers use
// Snapshot and never observe a half-applied tick.
type Engine struct {
	mu sync.Mutex

	tuning    Tuning
	sessionID string

	snake       []Position
	direction   Position
	collectible Position
	waves       []Wave
	waveScratch []Wave // Double buffer for staged wave progress

	lives                 int
	invulnerabilityFrames int
	score                 int
	speed                 int // ms per tick
	gameOver              bool
	reason                GameOverReason
	justCollected         bool
	tickCount             uint64

	rng     *rand.Rand
	rngSeed int64

	eventLog  *EventLog
	snapshots *SnapshotPublisher

	// Event callbacks, run on their own goroutine
	onCollect  func(score int)
	onLifeLost func(livesLeft int)
	onGameOver func(reason GameOverReason, score int)
}

// NewEngine creates an engine already in its initial state
func NewEngine(cfg EngineConfig) *Engine {
	tuning := cfg.Tuning
	if tuning.GridSize == 0 {
		tuning = DefaultTuning()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		tuning:      tuning,
		sessionID:   cfg.SessionID,
		snake:       make([]Position, 0, 64),
		waves:       make([]Wave, 0, tuning.MaxWaves),
		waveScratch: make([]Wave, 0, tuning.MaxWaves),
		rng:         rand.New(rand.NewSource(seed)),
		rngSeed:     seed,
		eventLog:    cfg.EventLog,
		snapshots:   NewSnapshotPublisher(),
	}

	e.mu.Lock()
	e.restart()
	e.mu.Unlock()
	return e
}

// SetCallbacks sets event callbacks; any of them may be nil
func (e *Engine) SetCallbacks(onCollect func(int), onLifeLost func(int), onGameOver func(GameOverReason, int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCollect = onCollect
	e.onLifeLost = onLifeLost
	e.onGameOver = onGameOver
}

// Advance runs one simulation tick. It does nothing once the game is over.
func (e *Engine) Advance() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameOver {
		return
	}

	// Stage everything; a terminal tick commits nothing but the game-over flag.
	// Immunity is decided by the frames held when the tick starts.
	wasInvulnerable := e.invulnerabilityFrames > 0
	invulnerable := e.invulnerabilityFrames
	if invulnerable > 0 {
		invulnerable--
	}

	force := CombinedForce(e.waves)
	e.waveScratch = advanceWaves(e.waveScratch, e.waves, e.tuning.WaveProgressStep)

	// Heading stays axis-aligned; only the position feels the waves
	head := e.snake[0].Add(e.direction).Add(force)

	if e.hitsWall(head) {
		e.endGame(ReasonWall, head)
		return
	}

	lives := e.lives
	lostLife := false
	if !wasInvulnerable && e.hitsBody(head) {
		if lives <= 1 {
			e.endGame(ReasonSelf, head)
			return
		}
		lives--
		invulnerable = e.tuning.InvulnerabilityFrames
		lostLife = true
	}

	e.invulnerabilityFrames = invulnerable
	e.lives = lives
	e.justCollected = false
	e.waves, e.waveScratch = e.waveScratch, e.waves
	e.tickCount++

	if lostLife {
		log.Printf("💔 [%s] self collision, %d lives left", e.sessionID, e.lives)
		e.eventLog.EmitSimple(EventTypeLifeLost, e.tickCount, e.sessionID,
			LifeLostPayload{LivesLeft: e.lives, Head: head})
		if e.onLifeLost != nil {
			go e.onLifeLost(e.lives)
		}
	}

	if head.Near(e.collectible, e.tuning.CollectThreshold) {
		e.grow(head)
	} else {
		e.move(head)
	}

	e.publish()
}

// move translates the snake: new head in, tail out
func (e *Engine) move(head Position) {
	copy(e.snake[1:], e.snake[:len(e.snake)-1])
	e.snake[0] = head
}

// grow consumes the orb at head
func (e *Engine) grow(head Position) {
	e.snake = append(e.snake, Position{})
	copy(e.snake[1:], e.snake[:len(e.snake)-1])
	e.snake[0] = head

	e.score += e.tuning.CollectAward
	e.speed = max(e.tuning.MinSpeed, e.speed-e.tuning.SpeedDecrement)
	e.justCollected = true
	e.spawnCollectible()

	e.eventLog.EmitSimple(EventTypeCollect, e.tickCount, e.sessionID,
		CollectPayload{Score: e.score, Length: len(e.snake), Speed: e.speed, NewOrb: e.collectible})
	if e.onCollect != nil {
		go e.onCollect(e.score)
	}
}

// endGame ends the session. The one-tick collect pulse never survives into
// the game-over state.
func (e *Engine) endGame(reason GameOverReason, head Position) {
	e.gameOver = true
	e.reason = reason
	e.justCollected = false

	log.Printf("💀 [%s] game over (%s) at (%.2f, %.2f), score %d, length %d",
		e.sessionID, reason, head.X, head.Y, e.score, len(e.snake))
	e.eventLog.EmitSimple(EventTypeGameOver, e.tickCount, e.sessionID,
		GameOverPayload{Reason: reason.String(), Score: e.score, Length: len(e.snake), Head: head})
	if e.onGameOver != nil {
		go e.onGameOver(reason, e.score)
	}

	e.publish()
}

// hitsWall reports whether p lies outside the playable band
func (e *Engine) hitsWall(p Position) bool {
	m := e.tuning.WallMargin()
	g := float64(e.tuning.GridSize)
	return p.X < m || p.X > g-m || p.Y < m || p.Y > g-m
}

// hitsBody checks p against every segment except the head
func (e *Engine) hitsBody(p Position) bool {
	for _, seg := range e.snake[1:] {
		if p.Near(seg, e.tuning.CollisionThreshold) {
			return true
		}
	}
	return false
}

func (e *Engine) nearWall(p Position) bool {
	d := e.tuning.DangerZone
	g := float64(e.tuning.GridSize)
	return p.X < d || p.X > g-d || p.Y < d || p.Y > g-d
}

// TurnLeft rotates the heading 90 degrees left. Ignored after game over.
func (e *Engine) TurnLeft() {
	e.turn("left", RotateLeft)
}

// TurnRight rotates the heading 90 degrees right. Ignored after game over.
func (e *Engine) TurnRight() {
	e.turn("right", RotateRight)
}

func (e *Engine) turn(name string, rotate func(Position) Position) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameOver {
		return
	}
	e.direction = rotate(e.direction)
	e.eventLog.EmitSimple(EventTypeTurn, e.tickCount, e.sessionID,
		TurnPayload{Turn: name, Direction: e.direction})
	e.publish()
}

// SpawnWaveAttempt rolls for a new wave. Returns true if one was created.
// A failed roll, a full wave set or a finished game are silent no-ops.
func (e *Engine) SpawnWaveAttempt() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameOver || len(e.waves) >= e.tuning.MaxWaves {
		return false
	}
	if e.rng.Float64() >= e.tuning.WaveSpawnChance {
		return false
	}

	edge := Edge(e.rng.Intn(4))
	offset := float64(e.rng.Intn(e.tuning.GridSize))
	wave := NewWave(edge, offset, e.tuning.GridSize, e.tuning.WaveForce)
	e.waves = append(e.waves, wave)

	log.Printf("🌊 [%s] wave from %s edge (%d active)", e.sessionID, edge, len(e.waves))
	e.eventLog.EmitSimple(EventTypeWaveSpawn, e.tickCount, e.sessionID,
		WaveSpawnPayload{Edge: edge.String(), Origin: wave.Origin, Active: len(e.waves)})

	e.publish()
	return true
}

// Restart returns the session to its initial state. Valid at any time.
func (e *Engine) Restart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restart()
}

func (e *Engine) restart() {
	e.snake = append(e.snake[:0], e.tuning.Center())
	e.direction = DirRight
	e.lives = e.tuning.InitialLives
	e.speed = e.tuning.InitialSpeed
	e.waves = e.waves[:0]
	e.score = 0
	e.gameOver = false
	e.reason = ReasonNone
	e.invulnerabilityFrames = 0
	e.justCollected = false
	e.tickCount = 0
	e.spawnCollectible()

	e.eventLog.EmitSimple(EventTypeRestart, 0, e.sessionID,
		RestartPayload{Head: e.snake[0], Orb: e.collectible, Lives: e.lives, Speed: e.speed})

	e.publish()
}

// spawnCollectible moves the orb to a free cell inside the spawn margin.
// Random picks are bounded; after that a row-major scan takes the first free
// cell. With no free cell at all the orb stays put and false is returned.
func (e *Engine) spawnCollectible() bool {
	margin := e.tuning.SpawnMargin
	span := e.tuning.GridSize - 2*margin

	for i := 0; i < maxSpawnAttempts; i++ {
		c := Position{
			X: float64(e.rng.Intn(span) + margin),
			Y: float64(e.rng.Intn(span) + margin),
		}
		if e.orbCellFree(c) {
			e.collectible = c
			return true
		}
	}

	for y := margin; y < margin+span; y++ {
		for x := margin; x < margin+span; x++ {
			c := Position{X: float64(x), Y: float64(y)}
			if e.orbCellFree(c) {
				e.collectible = c
				return true
			}
		}
	}

	log.Printf("⚠️ [%s] no free cell for orb, snake length %d", e.sessionID, len(e.snake))
	return false
}

func (e *Engine) orbCellFree(c Position) bool {
	if e.hitsWall(c) {
		return false
	}
	for _, seg := range e.snake {
		if c.Near(seg, 1) {
			return false
		}
	}
	return true
}

// publish copies the current state into a fresh snapshot
func (e *Engine) publish() {
	snap := &GameSnapshot{
		Tick:          e.tickCount,
		GridSize:      e.tuning.GridSize,
		Snake:         append([]Position(nil), e.snake...),
		Direction:     e.direction,
		Collectible:   e.collectible,
		Waves:         make([]WaveSnapshot, 0, len(e.waves)),
		Score:         e.score,
		Length:        len(e.snake),
		Lives:         e.lives,
		MaxLives:      e.tuning.InitialLives,
		Speed:         e.speed,
		GameOver:      e.gameOver,
		Reason:        e.reason,
		Invulnerable:  e.invulnerabilityFrames > 0,
		JustCollected: e.justCollected,
		NearWall:      e.nearWall(e.snake[0]),
	}
	for _, w := range e.waves {
		snap.Waves = append(snap.Waves, WaveSnapshot{
			Origin:    w.Origin,
			Direction: w.Direction,
			Strength:  w.Strength,
			Progress:  w.Progress,
			Intensity: w.Intensity(),
		})
	}
	e.snapshots.Publish(snap)
}

// Snapshot returns the latest published state. Never nil.
func (e *Engine) Snapshot() *GameSnapshot {
	return e.snapshots.Latest()
}

// Speed returns the current tick interval
func (e *Engine) Speed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.speed) * time.Millisecond
}

// IsGameOver reports whether the game has ended
func (e *Engine) IsGameOver() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gameOver
}

// Tuning returns the constants this engine runs with
func (e *Engine) Tuning() Tuning {
	return e.tuning
}

// SessionID returns the session tag given at construction
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Seed returns the RNG seed, for reproducing a session
func (e *Engine) Seed() int64 {
	return e.rngSeed
}
