package game

import "math"

const progressEpsilon = 1e-9

// Position is a point in grid units. Coordinates are fractional because
// waves displace the head by less than a cell.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Scale returns p multiplied by k on both axes.
func (p Position) Scale(k float64) Position {
	return Position{X: p.X * k, Y: p.Y * k}
}

// Near reports whether both axis distances between p and o are below threshold.
func (p Position) Near(o Position, threshold float64) bool {
	return math.Abs(p.X-o.X) < threshold && math.Abs(p.Y-o.Y) < threshold
}

// Headings
var (
	DirRight = Position{X: 1, Y: 0}
	DirLeft  = Position{X: -1, Y: 0}
	DirDown  = Position{X: 0, Y: 1}
	DirUp    = Position{X: 0, Y: -1}
)

// RotateLeft turns a heading 90 degrees counter-clockwise on screen.
func RotateLeft(d Position) Position {
	return Position{X: d.Y, Y: -d.X}
}

// RotateRight turns a heading 90 degrees clockwise on screen.
func RotateRight(d Position) Position {
	return Position{X: -d.Y, Y: d.X}
}

// Edge identifies the side of the board a wave enters from.
type Edge uint8

const (
	EdgeTop Edge = iota
	EdgeRight
	EdgeBottom
	EdgeLeft
)

// String returns the edge name
func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeRight:
		return "right"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Wave is a transient force field sweeping the board from one edge.
type Wave struct {
	Origin    Position `json:"origin"`
	Direction Position `json:"direction"` // Unit inward normal of the entry edge
	Strength  float64  `json:"strength"`
	Progress  float64  `json:"progress"` // 0 at spawn, removed at 1
}

// NewWave builds a wave entering from edge at offset along it.
// The origin sits one unit outside the board.
func NewWave(edge Edge, offset float64, gridSize int, strength float64) Wave {
	g := float64(gridSize)
	w := Wave{Strength: strength}
	switch edge {
	case EdgeTop:
		w.Origin = Position{X: offset, Y: -1}
		w.Direction = DirDown
	case EdgeRight:
		w.Origin = Position{X: g, Y: offset}
		w.Direction = DirLeft
	case EdgeBottom:
		w.Origin = Position{X: offset, Y: g}
		w.Direction = DirUp
	default:
		w.Origin = Position{X: -1, Y: offset}
		w.Direction = DirRight
	}
	return w
}

// Intensity is the pulse envelope sin(progress*pi): 0 at both ends, 1 at the midpoint.
func (w Wave) Intensity() float64 {
	if w.Progress <= 0 || w.Progress >= 1 {
		return 0
	}
	return math.Sin(w.Progress * math.Pi)
}

// Force is the displacement this wave applies to the head this tick.
func (w Wave) Force() Position {
	return w.Direction.Scale(w.Strength * w.Intensity())
}

// CombinedForce sums the forces of all waves component-wise.
func CombinedForce(waves []Wave) Position {
	var total Position
	for _, w := range waves {
		total = total.Add(w.Force())
	}
	return total
}

// advanceWaves adds step to every wave's progress and drops finished ones.
// Survivors are appended to dst[:0], so dst may alias src.
func advanceWaves(dst, src []Wave, step float64) []Wave {
	dst = dst[:0]
	for _, w := range src {
		w.Progress += step
		// Fifty steps of 0.02 must land on 1 despite float drift
		if w.Progress < 1-progressEpsilon {
			dst = append(dst, w)
		}
	}
	return dst
}
