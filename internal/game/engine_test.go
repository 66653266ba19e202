package game

import (
	"math"
	"testing"
	"time"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(EngineConfig{Seed: 42, SessionID: "test"})
}

// place puts the snake and orb where a test needs them
func place(e *Engine, snake []Position, dir Position, orb Position) {
	e.snake = append(e.snake[:0], snake...)
	e.direction = dir
	e.collectible = orb
}

func samePos(a, b Position) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func assertInitialState(t *testing.T, snap *GameSnapshot) {
	t.Helper()
	if len(snap.Snake) != 1 || snap.Snake[0] != (Position{X: 12, Y: 12}) {
		t.Errorf("Expected snake [{12 12}], got %v", snap.Snake)
	}
	if snap.Direction != DirRight {
		t.Errorf("Expected direction {1 0}, got %v", snap.Direction)
	}
	if snap.Lives != 3 {
		t.Errorf("Expected 3 lives, got %d", snap.Lives)
	}
	if snap.Score != 0 {
		t.Errorf("Expected score 0, got %d", snap.Score)
	}
	if snap.Speed != 400 {
		t.Errorf("Expected speed 400, got %d", snap.Speed)
	}
	if len(snap.Waves) != 0 {
		t.Errorf("Expected no waves, got %d", len(snap.Waves))
	}
	if snap.GameOver || snap.Invulnerable || snap.JustCollected {
		t.Errorf("Expected flags cleared, got gameOver=%v invulnerable=%v justCollected=%v",
			snap.GameOver, snap.Invulnerable, snap.JustCollected)
	}
	if snap.Reason != ReasonNone {
		t.Errorf("Expected no game over reason, got %s", snap.Reason)
	}
}

// TestNewEngineInitialState verifies a fresh engine starts in the canonical state
func TestNewEngineInitialState(t *testing.T) {
	e := newTestEngine(t)
	assertInitialState(t, e.Snapshot())

	if got := e.Speed(); got != 400*time.Millisecond {
		t.Errorf("Expected 400ms tick, got %v", got)
	}
	if e.IsGameOver() {
		t.Error("Fresh engine should not be over")
	}
}

// TestRestartFromAnyState verifies Restart always yields the canonical state
func TestRestartFromAnyState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *Engine)
	}{
		{"fresh", func(e *Engine) {}},
		{"after game over", func(e *Engine) {
			e.gameOver = true
			e.reason = ReasonWall
			e.score = 700
		}},
		{"mid game", func(e *Engine) {
			place(e, []Position{{X: 5, Y: 5}, {X: 4, Y: 5}, {X: 3, Y: 5}}, DirUp, Position{X: 9, Y: 9})
			e.lives = 1
			e.speed = 150
			e.invulnerabilityFrames = 7
			e.justCollected = true
			e.waves = append(e.waves, NewWave(EdgeTop, 4, 24, 0.15))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			tt.setup(e)

			e.Restart()
			assertInitialState(t, e.Snapshot())

			// Twice in a row changes nothing
			e.Restart()
			assertInitialState(t, e.Snapshot())
		})
	}
}

// TestAdvancePlainMove verifies a move translates the snake without growth
func TestAdvancePlainMove(t *testing.T) {
	e := newTestEngine(t)
	place(e, []Position{{X: 12, Y: 12}}, DirRight, Position{X: 3, Y: 3})

	e.Advance()

	snap := e.Snapshot()
	if snap.Head() != (Position{X: 13, Y: 12}) {
		t.Errorf("Expected head (13,12), got %v", snap.Head())
	}
	if snap.Length != 1 {
		t.Errorf("Expected length 1, got %d", snap.Length)
	}
	if snap.Score != 0 {
		t.Errorf("Expected score 0, got %d", snap.Score)
	}
	if snap.Tick != 1 {
		t.Errorf("Expected tick 1, got %d", snap.Tick)
	}
}

// TestAdvanceKeepsLength verifies longer snakes shift every segment by one
func TestAdvanceKeepsLength(t *testing.T) {
	e := newTestEngine(t)
	place(e, []Position{{X: 12, Y: 12}, {X: 11, Y: 12}, {X: 10, Y: 12}}, DirRight, Position{X: 3, Y: 3})

	for i := 0; i < 5; i++ {
		e.Advance()
	}

	snap := e.Snapshot()
	want := []Position{{X: 17, Y: 12}, {X: 16, Y: 12}, {X: 15, Y: 12}}
	if len(snap.Snake) != len(want) {
		t.Fatalf("Expected length %d, got %d", len(want), len(snap.Snake))
	}
	for i := range want {
		if snap.Snake[i] != want[i] {
			t.Errorf("Segment %d: expected %v, got %v", i, want[i], snap.Snake[i])
		}
	}
}

// TestAdvanceCollect verifies scoring, growth, speed-up and orb respawn
func TestAdvanceCollect(t *testing.T) {
	e := newTestEngine(t)
	place(e, []Position{{X: 12, Y: 12}}, DirRight, Position{X: 13, Y: 12})

	e.Advance()

	snap := e.Snapshot()
	if snap.Score != 100 {
		t.Errorf("Expected score 100, got %d", snap.Score)
	}
	if snap.Length != 2 {
		t.Errorf("Expected length 2, got %d", snap.Length)
	}
	if snap.Speed != 395 {
		t.Errorf("Expected speed 395, got %d", snap.Speed)
	}
	if !snap.JustCollected {
		t.Error("Expected justCollected after pickup")
	}
	if snap.Snake[0] != (Position{X: 13, Y: 12}) || snap.Snake[1] != (Position{X: 12, Y: 12}) {
		t.Errorf("Expected snake [(13,12) (12,12)], got %v", snap.Snake)
	}
	assertValidOrb(t, e.Tuning(), snap)

	// The pulse lasts exactly one tick
	e.collectible = Position{X: 3, Y: 3}
	e.Advance()
	if e.Snapshot().JustCollected {
		t.Error("justCollected should clear on the next tick")
	}
}

func assertValidOrb(t *testing.T, tuning Tuning, snap *GameSnapshot) {
	t.Helper()
	orb := snap.Collectible
	lo := float64(tuning.SpawnMargin)
	hi := float64(tuning.GridSize - tuning.SpawnMargin)
	if orb.X < lo || orb.X >= hi || orb.Y < lo || orb.Y >= hi {
		t.Errorf("Orb %v outside spawn region [%v,%v)", orb, lo, hi)
	}
	for _, seg := range snap.Snake {
		if orb.Near(seg, 1) {
			t.Errorf("Orb %v overlaps segment %v", orb, seg)
		}
	}
}

// TestCollectSpeedFloor verifies the speed never drops under the minimum
func TestCollectSpeedFloor(t *testing.T) {
	tests := []struct {
		name  string
		speed int
		want  int
	}{
		{"normal decrement", 300, 295},
		{"clamped to floor", 152, 150},
		{"already at floor", 150, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			place(e, []Position{{X: 12, Y: 12}}, DirRight, Position{X: 13, Y: 12})
			e.speed = tt.speed

			e.Advance()

			if got := e.Snapshot().Speed; got != tt.want {
				t.Errorf("Expected speed %d, got %d", tt.want, got)
			}
		})
	}
}

// TestWallCollisionEndsGame verifies a wall hit is terminal and touches nothing else
func TestWallCollisionEndsGame(t *testing.T) {
	e := newTestEngine(t)
	place(e, []Position{{X: 0.9, Y: 12}, {X: 1.9, Y: 12}}, DirLeft, Position{X: 10, Y: 10})
	e.invulnerabilityFrames = 5
	e.waves = append(e.waves, Wave{Direction: DirDown, Strength: 0.15, Progress: 0.3})
	e.publish()
	before := e.Snapshot()

	e.Advance()

	snap := e.Snapshot()
	if !snap.GameOver {
		t.Fatal("Expected game over after wall hit")
	}
	if snap.Reason != ReasonWall {
		t.Errorf("Expected reason wall, got %s", snap.Reason)
	}
	if snap.Lives != before.Lives {
		t.Errorf("Wall hit must not consume lives: %d -> %d", before.Lives, snap.Lives)
	}
	if snap.Head() != before.Head() || snap.Length != before.Length {
		t.Errorf("Snake moved on a wall hit: %v -> %v", before.Snake, snap.Snake)
	}
	if snap.Score != before.Score || snap.Speed != before.Speed || snap.Tick != before.Tick {
		t.Error("Score, speed and tick must be unchanged on a wall hit")
	}
	if e.invulnerabilityFrames != 5 {
		t.Errorf("Invulnerability should stay 5, got %d", e.invulnerabilityFrames)
	}
	if len(snap.Waves) != 1 || snap.Waves[0].Progress != 0.3 {
		t.Errorf("Waves should be untouched, got %+v", snap.Waves)
	}
}

// TestWallBuffer verifies the exact edges of the playable band
func TestWallBuffer(t *testing.T) {
	tests := []struct {
		name string
		head Position
		dir  Position
		over bool
	}{
		{"inside left band", Position{X: 1.7, Y: 12}, DirLeft, false},    // lands on 0.7
		{"outside left band", Position{X: 1.5, Y: 12}, DirLeft, true},    // lands on 0.5
		{"inside right band", Position{X: 22.3, Y: 12}, DirRight, false}, // lands on 23.3
		{"outside right band", Position{X: 22.5, Y: 12}, DirRight, true}, // lands on 23.5
		{"outside top band", Position{X: 12, Y: 0.9}, DirUp, true},
		{"outside bottom band", Position{X: 12, Y: 22.9}, DirDown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			place(e, []Position{tt.head}, tt.dir, Position{X: 12, Y: 3})
			e.Advance()
			if got := e.IsGameOver(); got != tt.over {
				t.Errorf("Expected gameOver=%v, got %v", tt.over, got)
			}
		})
	}
}

// selfHitSnake is heading right into its own second segment
func selfHitSnake() []Position {
	return []Position{{X: 12, Y: 12}, {X: 13, Y: 12}, {X: 14, Y: 12}}
}

// TestSelfCollisionCostsLife verifies damage, invulnerability and continued movement
func TestSelfCollisionCostsLife(t *testing.T) {
	e := newTestEngine(t)
	place(e, selfHitSnake(), DirRight, Position{X: 3, Y: 3})

	e.Advance()

	snap := e.Snapshot()
	if snap.GameOver {
		t.Fatal("Self collision with spare lives must not end the game")
	}
	if snap.Lives != 2 {
		t.Errorf("Expected 2 lives, got %d", snap.Lives)
	}
	if !snap.Invulnerable || e.invulnerabilityFrames != 15 {
		t.Errorf("Expected 15 invulnerability frames, got %d", e.invulnerabilityFrames)
	}
	if snap.Head() != (Position{X: 13, Y: 12}) {
		t.Errorf("Head should still move, got %v", snap.Head())
	}
	if snap.Length != 3 {
		t.Errorf("Expected length 3, got %d", snap.Length)
	}
}

// TestSelfCollisionAtLastLife verifies the final life is never spent
func TestSelfCollisionAtLastLife(t *testing.T) {
	e := newTestEngine(t)
	place(e, selfHitSnake(), DirRight, Position{X: 3, Y: 3})
	e.lives = 1

	e.Advance()

	snap := e.Snapshot()
	if !snap.GameOver {
		t.Fatal("Expected game over at last life")
	}
	if snap.Reason != ReasonSelf {
		t.Errorf("Expected reason self, got %s", snap.Reason)
	}
	if snap.Lives != 1 {
		t.Errorf("Lives should remain 1, got %d", snap.Lives)
	}
	if snap.Head() != (Position{X: 12, Y: 12}) {
		t.Errorf("Snake should not move on a fatal tick, got %v", snap.Head())
	}
}

// TestInvulnerabilityIsAbsolute verifies no damage while frames remain
func TestInvulnerabilityIsAbsolute(t *testing.T) {
	tests := []struct {
		name   string
		frames int
		lives  int
	}{
		{"last frame, last life", 1, 1},
		{"last frame, spare lives", 1, 3},
		{"mid window, last life", 5, 1},
		{"mid window, two lives", 5, 2},
		{"mid window, spare lives", 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			place(e, selfHitSnake(), DirRight, Position{X: 3, Y: 3})
			e.lives = tt.lives
			e.invulnerabilityFrames = tt.frames

			e.Advance()

			if e.IsGameOver() {
				t.Error("Invulnerable snake must not die")
			}
			if e.lives != tt.lives {
				t.Errorf("Invulnerable snake lost a life: %d -> %d", tt.lives, e.lives)
			}
			if e.invulnerabilityFrames != tt.frames-1 {
				t.Errorf("Expected %d frames left, got %d", tt.frames-1, e.invulnerabilityFrames)
			}
		})
	}
}

// TestDamageGrantsFullImmunityWindow verifies a hit protects exactly the
// next InvulnerabilityFrames ticks
func TestDamageGrantsFullImmunityWindow(t *testing.T) {
	e := newTestEngine(t)
	orb := Position{X: 3, Y: 3}
	window := e.tuning.InvulnerabilityFrames

	place(e, selfHitSnake(), DirRight, orb)
	e.Advance()
	if e.lives != 2 || e.invulnerabilityFrames != window {
		t.Fatalf("Expected first hit to leave 2 lives and %d frames, got %d lives %d frames",
			window, e.lives, e.invulnerabilityFrames)
	}

	// Re-seat the snake each tick so every step is a self hit far from the walls
	for i := 1; i <= window; i++ {
		place(e, selfHitSnake(), DirRight, orb)
		e.Advance()
		if e.lives != 2 || e.IsGameOver() {
			t.Fatalf("Tick %d of the window took damage: lives %d, gameOver %v", i, e.lives, e.IsGameOver())
		}
	}

	place(e, selfHitSnake(), DirRight, orb)
	e.Advance()
	if e.lives != 1 {
		t.Errorf("Expected the hit after the window to cost a life, got %d lives", e.lives)
	}
}

// TestGameOverClearsCollectPulse verifies a crash right after a pickup
// does not report justCollected
func TestGameOverClearsCollectPulse(t *testing.T) {
	e := newTestEngine(t)
	place(e, []Position{{X: 22, Y: 12}}, DirRight, Position{X: 23, Y: 12})

	e.Advance()
	if !e.Snapshot().JustCollected {
		t.Fatal("Expected a pickup on the first tick")
	}

	e.Advance()
	snap := e.Snapshot()
	if !snap.GameOver || snap.Reason != ReasonWall {
		t.Fatalf("Expected a wall hit, got gameOver=%v reason=%s", snap.GameOver, snap.Reason)
	}
	if snap.JustCollected {
		t.Error("Game-over snapshot still reports justCollected")
	}
}

// TestInvulnerabilityCountsDown verifies the counter reaches zero and stops
func TestInvulnerabilityCountsDown(t *testing.T) {
	e := newTestEngine(t)
	place(e, []Position{{X: 4, Y: 12}}, DirRight, Position{X: 3, Y: 3})
	e.invulnerabilityFrames = 3

	for i := 0; i < 5; i++ {
		e.Advance()
	}

	if e.invulnerabilityFrames != 0 {
		t.Errorf("Expected 0 frames, got %d", e.invulnerabilityFrames)
	}
	if e.Snapshot().Invulnerable {
		t.Error("Snapshot should not report invulnerable")
	}
}

// TestAdvanceAfterGameOverIsNoop verifies the terminal state absorbs ticks and turns
func TestAdvanceAfterGameOverIsNoop(t *testing.T) {
	e := newTestEngine(t)
	place(e, []Position{{X: 0.9, Y: 12}}, DirLeft, Position{X: 10, Y: 10})
	e.Advance()
	if !e.IsGameOver() {
		t.Fatal("Setup should end the game")
	}
	before := e.Snapshot()

	e.Advance()
	e.TurnLeft()
	e.TurnRight()
	if e.SpawnWaveAttempt() {
		t.Error("No waves should spawn after game over")
	}

	after := e.Snapshot()
	if after.Sequence != before.Sequence {
		t.Errorf("Nothing should be published after game over (seq %d -> %d)", before.Sequence, after.Sequence)
	}
	if after.Direction != before.Direction {
		t.Errorf("Turns must be ignored after game over: %v -> %v", before.Direction, after.Direction)
	}
}

// TestTurns verifies rotation algebra
func TestTurns(t *testing.T) {
	e := newTestEngine(t)

	e.TurnLeft()
	if got := e.Snapshot().Direction; got != DirUp {
		t.Errorf("Left from right should face up, got %v", got)
	}
	e.TurnRight()
	e.TurnRight()
	if got := e.Snapshot().Direction; got != DirDown {
		t.Errorf("Expected down, got %v", got)
	}
	e.TurnLeft()

	// Two left then two right is the identity
	e.TurnLeft()
	e.TurnLeft()
	e.TurnRight()
	e.TurnRight()
	if got := e.Snapshot().Direction; got != DirRight {
		t.Errorf("Expected right, got %v", got)
	}

	// Four lefts is the identity
	for i := 0; i < 4; i++ {
		e.TurnLeft()
	}
	if got := e.Snapshot().Direction; got != DirRight {
		t.Errorf("Expected right after four lefts, got %v", got)
	}
}

// TestWaveForceDisplacesHead verifies the head takes the summed force
// while the stored heading stays axis-aligned
func TestWaveForceDisplacesHead(t *testing.T) {
	e := newTestEngine(t)
	place(e, []Position{{X: 12, Y: 12}}, DirRight, Position{X: 3, Y: 3})
	e.waves = append(e.waves,
		Wave{Direction: DirDown, Strength: 0.15, Progress: 0.5},
		Wave{Direction: DirLeft, Strength: 0.15, Progress: 0.5},
	)

	e.Advance()

	snap := e.Snapshot()
	want := Position{X: 12.85, Y: 12.15}
	if !samePos(snap.Head(), want) {
		t.Errorf("Expected head %v, got %v", want, snap.Head())
	}
	if snap.Direction != DirRight {
		t.Errorf("Heading must not change, got %v", snap.Direction)
	}
	if len(snap.Waves) != 2 || math.Abs(snap.Waves[0].Progress-0.52) > 1e-9 {
		t.Errorf("Expected two waves at progress 0.52, got %+v", snap.Waves)
	}
}

// TestWavesExpireInsideEngine verifies a finished wave leaves the active set
func TestWavesExpireInsideEngine(t *testing.T) {
	e := newTestEngine(t)
	place(e, []Position{{X: 3, Y: 12}}, DirRight, Position{X: 3, Y: 3})
	e.waves = append(e.waves, Wave{Direction: DirUp, Strength: 0.15, Progress: 0.97})

	e.Advance()
	if n := len(e.Snapshot().Waves); n != 1 {
		t.Fatalf("Expected wave alive at 0.99, got %d waves", n)
	}
	e.Advance()
	if n := len(e.Snapshot().Waves); n != 0 {
		t.Errorf("Expected wave removed at 1.0, got %d waves", n)
	}
}

// TestSpawnWaveAttempt verifies the probability gate and the population cap
func TestSpawnWaveAttempt(t *testing.T) {
	tuning := DefaultTuning()
	tuning.WaveSpawnChance = 1
	e := NewEngine(EngineConfig{Tuning: tuning, Seed: 7})

	if !e.SpawnWaveAttempt() || !e.SpawnWaveAttempt() {
		t.Fatal("Certain spawns should succeed below the cap")
	}
	if e.SpawnWaveAttempt() {
		t.Error("Third wave should be rejected by the cap")
	}

	for _, w := range e.Snapshot().Waves {
		if w.Progress != 0 || w.Strength != 0.15 {
			t.Errorf("New wave should start at progress 0 with strength 0.15, got %+v", w)
		}
		inside := w.Origin.Add(w.Direction)
		if inside.X < -1e-9 || inside.X > 24 || inside.Y < -1e-9 || inside.Y > 24 {
			t.Errorf("Wave %+v does not point into the grid", w)
		}
	}

	tuning.WaveSpawnChance = 0
	never := NewEngine(EngineConfig{Tuning: tuning, Seed: 7})
	for i := 0; i < 100; i++ {
		if never.SpawnWaveAttempt() {
			t.Fatal("Zero chance must never spawn")
		}
	}
}

// TestSpawnWaveRate verifies the default gate fires roughly 3% of the time
func TestSpawnWaveRate(t *testing.T) {
	e := newTestEngine(t)
	spawned := 0
	for i := 0; i < 10000; i++ {
		if e.SpawnWaveAttempt() {
			spawned++
			e.waves = e.waves[:0]
		}
	}
	if spawned < 200 || spawned > 400 {
		t.Errorf("Expected about 300 spawns in 10000 attempts, got %d", spawned)
	}
}

// TestSpawnCollectibleAvoidsSnake verifies placement over many respawns
func TestSpawnCollectibleAvoidsSnake(t *testing.T) {
	e := newTestEngine(t)
	body := make([]Position, 0, 40)
	for x := 2; x < 22; x++ {
		body = append(body, Position{X: float64(x), Y: 10}, Position{X: float64(x), Y: 14})
	}
	place(e, body, DirRight, Position{})

	for i := 0; i < 200; i++ {
		if !e.spawnCollectible() {
			t.Fatal("Spawn should succeed with free cells left")
		}
		e.publish()
		assertValidOrb(t, e.Tuning(), e.Snapshot())
	}
}

// TestSpawnCollectibleFallbackScan verifies termination on a nearly full board
func TestSpawnCollectibleFallbackScan(t *testing.T) {
	e := newTestEngine(t)
	free := Position{X: 10, Y: 10}
	body := make([]Position, 0, 400)
	for y := 2; y < 22; y++ {
		for x := 2; x < 22; x++ {
			p := Position{X: float64(x), Y: float64(y)}
			if p != free {
				body = append(body, p)
			}
		}
	}
	place(e, body, DirRight, Position{})

	if !e.spawnCollectible() {
		t.Fatal("Expected the last free cell to be found")
	}
	if e.collectible != free {
		t.Errorf("Expected orb at %v, got %v", free, e.collectible)
	}

	// Board completely full: orb stays where it was
	e.snake = append(e.snake, free)
	e.collectible = Position{X: 30, Y: 30}
	if e.spawnCollectible() {
		t.Error("Spawn should report failure on a full board")
	}
	if e.collectible != (Position{X: 30, Y: 30}) {
		t.Errorf("Orb should not move on failure, got %v", e.collectible)
	}
}

// TestNearWallFlag verifies the danger zone indicator
func TestNearWallFlag(t *testing.T) {
	e := newTestEngine(t)
	if e.Snapshot().NearWall {
		t.Error("Center start should not be near a wall")
	}

	place(e, []Position{{X: 2.5, Y: 12}}, DirLeft, Position{X: 12, Y: 3})
	e.Advance()
	if !e.Snapshot().NearWall {
		t.Error("Head at x=1.5 should be near the wall")
	}
}

// TestSnapshotsAreImmutable verifies readers keep a consistent view
func TestSnapshotsAreImmutable(t *testing.T) {
	e := newTestEngine(t)
	place(e, []Position{{X: 12, Y: 12}, {X: 11, Y: 12}}, DirRight, Position{X: 3, Y: 3})
	e.publish()

	old := e.Snapshot()
	oldHead := old.Head()

	e.Advance()
	e.Advance()

	if old.Head() != oldHead {
		t.Errorf("Old snapshot changed: %v -> %v", oldHead, old.Head())
	}
	if e.Snapshot().Sequence <= old.Sequence {
		t.Error("Sequence should increase with every publish")
	}
}

// TestCallbacks verifies callbacks fire for collect, life lost and game over
func TestCallbacks(t *testing.T) {
	e := newTestEngine(t)
	collected := make(chan int, 1)
	lost := make(chan int, 1)
	over := make(chan GameOverReason, 1)
	e.SetCallbacks(
		func(score int) { collected <- score },
		func(lives int) { lost <- lives },
		func(reason GameOverReason, score int) { over <- reason },
	)

	place(e, []Position{{X: 12, Y: 12}}, DirRight, Position{X: 13, Y: 12})
	e.Advance()
	select {
	case score := <-collected:
		if score != 100 {
			t.Errorf("Expected score 100, got %d", score)
		}
	case <-time.After(time.Second):
		t.Fatal("OnCollect not called")
	}

	place(e, selfHitSnake(), DirRight, Position{X: 3, Y: 3})
	e.invulnerabilityFrames = 0
	e.Advance()
	select {
	case lives := <-lost:
		if lives != 2 {
			t.Errorf("Expected 2 lives left, got %d", lives)
		}
	case <-time.After(time.Second):
		t.Fatal("OnLifeLost not called")
	}

	place(e, []Position{{X: 0.9, Y: 12}}, DirLeft, Position{X: 10, Y: 10})
	e.Advance()
	select {
	case reason := <-over:
		if reason != ReasonWall {
			t.Errorf("Expected wall, got %s", reason)
		}
	case <-time.After(time.Second):
		t.Fatal("OnGameOver not called")
	}
}

// TestDeterministicSeed verifies equal seeds replay equal games
func TestDeterministicSeed(t *testing.T) {
	tuning := DefaultTuning()
	tuning.WaveSpawnChance = 0.5
	a := NewEngine(EngineConfig{Tuning: tuning, Seed: 99})
	b := NewEngine(EngineConfig{Tuning: tuning, Seed: 99})

	for i := 0; i < 8; i++ {
		a.SpawnWaveAttempt()
		b.SpawnWaveAttempt()
		a.Advance()
		b.Advance()
	}

	sa, sb := a.Snapshot(), b.Snapshot()
	if sa.Collectible != sb.Collectible || len(sa.Waves) != len(sb.Waves) || !samePos(sa.Head(), sb.Head()) {
		t.Errorf("Same seed diverged: %+v vs %+v", sa, sb)
	}
}
