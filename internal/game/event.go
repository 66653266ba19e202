package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeRestart
	EventTypeTurn
	EventTypeCollect
	EventTypeLifeLost
	EventTypeGameOver
	EventTypeWaveSpawn
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8     `json:"version"`   // Schema version
	Type      EventType `json:"type"`      // Event type
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic sequence
	TickNum   uint64    `json:"tickNum"`   // Game tick this occurred in
	SessionID string    `json:"sessionId"` // Source session (for rate limiting)
	Payload   []byte    `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeRestart:
		return "restart"
	case EventTypeTurn:
		return "turn"
	case EventTypeCollect:
		return "collect"
	case EventTypeLifeLost:
		return "life_lost"
	case EventTypeGameOver:
		return "game_over"
	case EventTypeWaveSpawn:
		return "wave_spawn"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// RestartPayload records the seed state a fresh game starts from
type RestartPayload struct {
	Head  Position `json:"head"`
	Orb   Position `json:"orb"`
	Lives int      `json:"lives"`
	Speed int      `json:"speed"`
}

// TurnPayload records a heading change
type TurnPayload struct {
	Turn      string   `json:"turn"` // "left" or "right"
	Direction Position `json:"direction"`
}

// CollectPayload records an orb pickup
type CollectPayload struct {
	Score  int      `json:"score"`
	Length int      `json:"length"`
	Speed  int      `json:"speed"`
	NewOrb Position `json:"newOrb"`
}

// LifeLostPayload records a non-fatal self collision
type LifeLostPayload struct {
	LivesLeft int      `json:"livesLeft"`
	Head      Position `json:"head"`
}

// GameOverPayload records how a game ended
type GameOverPayload struct {
	Reason string   `json:"reason"`
	Score  int      `json:"score"`
	Length int      `json:"length"`
	Head   Position `json:"head"`
}

// WaveSpawnPayload records a new force field
type WaveSpawnPayload struct {
	Edge   string   `json:"edge"`
	Origin Position `json:"origin"`
	Active int      `json:"active"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, sessionID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		SessionID: sessionID,
		Payload:   EncodePayload(payload),
	}
}
