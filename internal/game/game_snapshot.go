package game

import (
	"sync/atomic"
	"time"
)

// GameOverReason says which terminal outcome ended a game
type GameOverReason uint8

const (
	ReasonNone GameOverReason = iota
	ReasonWall
	ReasonSelf
)

// String returns the reason name used in JSON and logs
func (r GameOverReason) String() string {
	switch r {
	case ReasonWall:
		return "wall"
	case ReasonSelf:
		return "self"
	default:
		return "none"
	}
}

// MarshalText lets the reason appear as a string in JSON
func (r GameOverReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a reason name; unknown names decode as ReasonNone
func (r *GameOverReason) UnmarshalText(text []byte) error {
	switch string(text) {
	case "wall":
		*r = ReasonWall
	case "self":
		*r = ReasonSelf
	default:
		*r = ReasonNone
	}
	return nil
}

// WaveSnapshot is an immutable wave for rendering
type WaveSnapshot struct {
	Origin    Position `json:"origin"`
	Direction Position `json:"direction"`
	Strength  float64  `json:"strength"`
	Progress  float64  `json:"progress"`
	Intensity float64  `json:"intensity"` // sin(progress*pi), drives the visual pulse
}

// GameSnapshot is a complete immutable game state for rendering.
// Every slice is owned by the snapshot; nothing aliases engine state.
type GameSnapshot struct {
	Sequence  uint64    `json:"sequence"`  // Monotonic per engine
	Timestamp time.Time `json:"timestamp"` // When the snapshot was published
	Tick      uint64    `json:"tick"`      // Completed ticks since restart

	GridSize    int            `json:"gridSize"`
	Snake       []Position     `json:"snake"`
	Direction   Position       `json:"direction"`
	Collectible Position       `json:"collectible"`
	Waves       []WaveSnapshot `json:"waves"`

	Score    int `json:"score"`
	Length   int `json:"length"` // Shown to players as "energy"
	Lives    int `json:"lives"`
	MaxLives int `json:"maxLives"`
	Speed    int `json:"speed"` // Current tick interval in ms

	GameOver      bool           `json:"gameOver"`
	Reason        GameOverReason `json:"reason"`
	Invulnerable  bool           `json:"invulnerable"`
	JustCollected bool           `json:"justCollected"`
	NearWall      bool           `json:"nearWall"`
}

// Head returns the first snake segment
func (s *GameSnapshot) Head() Position {
	if len(s.Snake) == 0 {
		return Position{}
	}
	return s.Snake[0]
}

// SnapshotPublisher hands finished snapshots from the writer to any number
// of readers. Readers never block the tick and always see a complete state.
type SnapshotPublisher struct {
	current  atomic.Pointer[GameSnapshot]
	sequence atomic.Uint64
}

// NewSnapshotPublisher creates an empty publisher
func NewSnapshotPublisher() *SnapshotPublisher {
	return &SnapshotPublisher{}
}

// Publish stamps snap with the next sequence number and makes it current.
// snap must not be modified afterwards.
func (p *SnapshotPublisher) Publish(snap *GameSnapshot) {
	snap.Sequence = p.sequence.Add(1)
	snap.Timestamp = time.Now()
	p.current.Store(snap)
}

// Latest returns the most recent snapshot, or nil before the first Publish
func (p *SnapshotPublisher) Latest() *GameSnapshot {
	return p.current.Load()
}
