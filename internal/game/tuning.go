package game

import (
	"errors"
	"fmt"
	"time"
)

// Tuning holds every gameplay constant of a session.
// Zero values are never valid; start from DefaultTuning.
type Tuning struct {
	GridSize int `yaml:"gridSize"` // Board is GridSize x GridSize grid units

	InitialSpeed   int `yaml:"initialSpeed"`   // Tick interval at restart (ms)
	MinSpeed       int `yaml:"minSpeed"`       // Floor for the tick interval (ms)
	SpeedDecrement int `yaml:"speedDecrement"` // Interval reduction per collect (ms)

	WaveForce         float64       `yaml:"waveForce"`         // Peak displacement per tick of a single wave
	WaveSpawnChance   float64       `yaml:"waveSpawnChance"`   // Probability per spawn attempt
	MaxWaves          int           `yaml:"maxWaves"`          // Active wave cap
	WaveProgressStep  float64       `yaml:"waveProgressStep"`  // Progress added per tick
	WaveSpawnInterval time.Duration `yaml:"waveSpawnInterval"` // Spawn attempt cadence, independent of speed

	CollisionThreshold float64 `yaml:"collisionThreshold"` // Per-axis distance for head/body contact
	CollectThreshold   float64 `yaml:"collectThreshold"`   // Per-axis distance for head/orb contact

	InitialLives          int `yaml:"initialLives"`
	InvulnerabilityFrames int `yaml:"invulnerabilityFrames"` // Ticks of immunity after losing a life

	WallBuffer   float64 `yaml:"wallBuffer"`
	BorderOffset float64 `yaml:"borderOffset"`
	DangerZone   float64 `yaml:"dangerZone"` // Distance from an edge that flags NearWall

	CollectAward int `yaml:"collectAward"`
	SpawnMargin  int `yaml:"spawnMargin"` // Orbs spawn at least this far from every edge
}

// DefaultTuning returns the stock game constants.
func DefaultTuning() Tuning {
	return Tuning{
		GridSize: 24,

		InitialSpeed:   400,
		MinSpeed:       150,
		SpeedDecrement: 5,

		WaveForce:         0.15,
		WaveSpawnChance:   0.03,
		MaxWaves:          2,
		WaveProgressStep:  0.02,
		WaveSpawnInterval: time.Second,

		CollisionThreshold: 0.8,
		CollectThreshold:   0.8,

		InitialLives:          3,
		InvulnerabilityFrames: 15,

		WallBuffer:   0.4,
		BorderOffset: 0.2,
		DangerZone:   2.0,

		CollectAward: 100,
		SpawnMargin:  2,
	}
}

// WallMargin is the distance from each edge at which the head hits the wall.
func (t Tuning) WallMargin() float64 {
	return t.WallBuffer + t.BorderOffset
}

// Center returns the starting cell for the snake head.
func (t Tuning) Center() Position {
	c := float64(t.GridSize / 2)
	return Position{X: c, Y: c}
}

// Validate reports the first nonsensical value.
func (t Tuning) Validate() error {
	switch {
	case t.GridSize <= 2*t.SpawnMargin:
		return fmt.Errorf("grid size %d leaves no room inside spawn margin %d", t.GridSize, t.SpawnMargin)
	case t.SpawnMargin < 0:
		return errors.New("spawn margin must not be negative")
	case t.InitialSpeed <= 0 || t.MinSpeed <= 0:
		return errors.New("speeds must be positive")
	case t.MinSpeed > t.InitialSpeed:
		return fmt.Errorf("min speed %dms exceeds initial speed %dms", t.MinSpeed, t.InitialSpeed)
	case t.SpeedDecrement < 0:
		return errors.New("speed decrement must not be negative")
	case t.WaveSpawnChance < 0 || t.WaveSpawnChance > 1:
		return fmt.Errorf("wave spawn chance %.3f outside [0,1]", t.WaveSpawnChance)
	case t.MaxWaves < 0:
		return errors.New("max waves must not be negative")
	case t.WaveProgressStep <= 0:
		return errors.New("wave progress step must be positive")
	case t.WaveSpawnInterval <= 0:
		return errors.New("wave spawn interval must be positive")
	case t.CollisionThreshold <= 0 || t.CollectThreshold <= 0:
		return errors.New("collision thresholds must be positive")
	case t.InitialLives < 1:
		return errors.New("at least one life is required")
	case t.InvulnerabilityFrames < 0:
		return errors.New("invulnerability frames must not be negative")
	case t.WallMargin() < 0 || 2*t.WallMargin() >= float64(t.GridSize):
		return fmt.Errorf("wall margin %.2f does not fit grid %d", t.WallMargin(), t.GridSize)
	}
	return nil
}
