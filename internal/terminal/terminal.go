// Package terminal plays a single session in a text terminal.
package terminal

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"synergy/internal/game"

	"github.com/gdamore/tcell/v2"
)

// FrameInterval is the redraw cadence, independent of the simulation tick
const FrameInterval = 33 * time.Millisecond

// Each grid unit is two columns wide so the board looks square
const cellWidth = 2

var (
	styleDefault = tcell.StyleDefault
	styleBorder  = tcell.StyleDefault.Foreground(tcell.ColorDarkOrange)
	styleDanger  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleOrb     = tcell.StyleDefault.Foreground(tcell.NewRGBColor(249, 115, 22)).Bold(true)
	styleBody    = tcell.StyleDefault.Foreground(tcell.NewRGBColor(74, 222, 128))
	styleStatus  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleOver    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)

	headNormal       = tcell.StyleDefault.Foreground(tcell.NewRGBColor(249, 115, 22)).Bold(true)
	headCollected    = tcell.StyleDefault.Foreground(tcell.NewRGBColor(74, 222, 128)).Bold(true)
	headInvulnerable = tcell.StyleDefault.Foreground(tcell.NewRGBColor(239, 68, 68)).Bold(true)
)

const (
	runeHead = '◉'
	runeBody = '█'
	runeOrb  = '●'
	runeWave = '░'
)

// Controls is the part of the engine the frontend drives
type Controls interface {
	TurnLeft()
	TurnRight()
	Restart()
	Snapshot() *game.GameSnapshot
}

// Frontend draws snapshots onto a screen and maps keys to engine calls
type Frontend struct {
	screen tcell.Screen
	engine Controls
}

// NewFrontend binds a screen to an engine. The screen must be initialized.
func NewFrontend(screen tcell.Screen, engine Controls) *Frontend {
	return &Frontend{screen: screen, engine: engine}
}

// Run plays until the player quits or ctx is done. It starts the scheduler
// and stops it before returning. The caller owns screen.Init and screen.Fini.
func Run(ctx context.Context, screen tcell.Screen, engine *game.Engine, scheduler *game.Scheduler) error {
	f := NewFrontend(screen, engine)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	events := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return // screen finalized
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	f.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if f.HandleKey(ev) {
					return nil
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			f.Draw()
		}
	}
}

// HandleKey applies one key press. Returns true when the player quits.
func (f *Frontend) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyLeft:
		f.engine.TurnLeft()
	case tcell.KeyRight:
		f.engine.TurnRight()
	case tcell.KeyEnter:
		f.restartIfOver()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true
		case 'a', 'A':
			f.engine.TurnLeft()
		case 'd', 'D':
			f.engine.TurnRight()
		case 'r', 'R':
			f.restartIfOver()
		}
	}
	return false
}

func (f *Frontend) restartIfOver() {
	if f.engine.Snapshot().GameOver {
		f.engine.Restart()
	}
}

// Draw renders the latest snapshot
func (f *Frontend) Draw() {
	snap := f.engine.Snapshot()
	f.screen.Clear()

	f.drawBorder(snap)
	f.drawWaves(snap)
	f.drawCell(snap.Collectible, snap.GridSize, runeOrb, styleOrb)
	for i := len(snap.Snake) - 1; i > 0; i-- {
		f.drawCell(snap.Snake[i], snap.GridSize, runeBody, styleBody)
	}
	f.drawCell(snap.Head(), snap.GridSize, runeHead, headStyle(snap))
	f.drawStatus(snap)

	f.screen.Show()
}

// CellAt maps a grid position to the screen column and row of its cell
func CellAt(p game.Position, gridSize int) (int, int) {
	gx := clamp(int(math.Round(p.X)), 0, gridSize-1)
	gy := clamp(int(math.Round(p.Y)), 0, gridSize-1)
	return 1 + gx*cellWidth, 1 + gy
}

func (f *Frontend) drawCell(p game.Position, gridSize int, r rune, style tcell.Style) {
	x, y := CellAt(p, gridSize)
	for i := 0; i < cellWidth; i++ {
		f.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (f *Frontend) drawBorder(snap *game.GameSnapshot) {
	style := styleBorder
	if snap.NearWall || snap.GameOver {
		style = styleDanger
	}
	right := 1 + snap.GridSize*cellWidth
	bottom := 1 + snap.GridSize

	for x := 1; x < right; x++ {
		f.screen.SetContent(x, 0, '─', nil, style)
		f.screen.SetContent(x, bottom, '─', nil, style)
	}
	for y := 1; y < bottom; y++ {
		f.screen.SetContent(0, y, '│', nil, style)
		f.screen.SetContent(right, y, '│', nil, style)
	}
	f.screen.SetContent(0, 0, '┌', nil, style)
	f.screen.SetContent(right, 0, '┐', nil, style)
	f.screen.SetContent(0, bottom, '└', nil, style)
	f.screen.SetContent(right, bottom, '┘', nil, style)
}

// drawWaves shades the row or column a wave front has reached
func (f *Frontend) drawWaves(snap *game.GameSnapshot) {
	g := snap.GridSize
	for _, w := range snap.Waves {
		level := int32(40 + 120*w.Intensity)
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(level/2, level, level+60))

		front := clamp(int(w.Progress*float64(g)), 0, g-1)
		switch {
		case w.Direction.Y > 0:
			f.fillRow(front, g, style)
		case w.Direction.Y < 0:
			f.fillRow(g-1-front, g, style)
		case w.Direction.X > 0:
			f.fillColumn(front, g, style)
		default:
			f.fillColumn(g-1-front, g, style)
		}
	}
}

func (f *Frontend) fillRow(row, g int, style tcell.Style) {
	for gx := 0; gx < g; gx++ {
		f.drawCell(game.Position{X: float64(gx), Y: float64(row)}, g, runeWave, style)
	}
}

func (f *Frontend) fillColumn(col, g int, style tcell.Style) {
	for gy := 0; gy < g; gy++ {
		f.drawCell(game.Position{X: float64(col), Y: float64(gy)}, g, runeWave, style)
	}
}

func (f *Frontend) drawStatus(snap *game.GameSnapshot) {
	y := snap.GridSize + 2
	f.drawText(0, y, StatusLine(snap), styleStatus)

	if snap.GameOver {
		msg := fmt.Sprintf("GAME OVER (%s)  score %d  r: restart  q: quit", snap.Reason, snap.Score)
		f.drawText(0, y+1, msg, styleOver)
	} else {
		f.drawText(0, y+1, "←/a →/d turn   q quit", styleDefault)
	}
}

// StatusLine summarizes score, energy and lives
func StatusLine(snap *game.GameSnapshot) string {
	hearts := strings.Repeat("♥", snap.Lives) + strings.Repeat("♡", max(0, snap.MaxLives-snap.Lives))
	line := fmt.Sprintf("Score %d  Energy %d  %s", snap.Score, snap.Length, hearts)
	if snap.Invulnerable {
		line += "  shielded"
	}
	if snap.NearWall && !snap.GameOver {
		line += "  WALL!"
	}
	return line
}

func (f *Frontend) drawText(x, y int, text string, style tcell.Style) {
	for _, r := range text {
		f.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func headStyle(snap *game.GameSnapshot) tcell.Style {
	switch {
	case snap.Invulnerable:
		return headInvulnerable
	case snap.JustCollected:
		return headCollected
	default:
		return headNormal
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
