// Package render draws game snapshots into images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"synergy/internal/game"

	"github.com/fogleman/gg"
)

// Palette
var (
	colorBackground = parseHexColor("#1a1a1a")
	colorGrid       = color.NRGBA{255, 255, 255, 13}
	colorBorder     = color.NRGBA{249, 115, 22, 200}
	colorOrb        = parseHexColor("#f97316")
	colorOrbCore    = color.NRGBA{255, 255, 255, 77}
	colorBody       = color.NRGBA{74, 222, 128, 255}
	colorWave       = color.NRGBA{147, 197, 253, 255}

	headInvulnerable = parseHexColor("#ef4444")
	headCollected    = parseHexColor("#4ade80")
	headNormal       = parseHexColor("#f97316")
)

// Renderer turns snapshots into square board images of GridSize*CellSize pixels
type Renderer struct {
	cellSize int
}

// NewRenderer creates a renderer. Cell sizes below 4 are raised to 4.
func NewRenderer(cellSize int) *Renderer {
	if cellSize < 4 {
		cellSize = 4
	}
	return &Renderer{cellSize: cellSize}
}

// CellSize returns pixels per grid unit
func (r *Renderer) CellSize() int {
	return r.cellSize
}

// Render draws snap into a new image
func (r *Renderer) Render(snap *game.GameSnapshot) image.Image {
	size := snap.GridSize * r.cellSize
	dc := gg.NewContext(size, size)

	r.drawBackground(dc, size)
	r.drawGrid(dc, snap.GridSize, size)
	r.drawWaves(dc, snap, size)
	r.drawCollectible(dc, snap.Collectible)
	r.drawSnake(dc, snap)
	r.drawBorder(dc, snap, size)

	return dc.Image()
}

// EncodePNG renders snap and writes it to w as PNG
func (r *Renderer) EncodePNG(w io.Writer, snap *game.GameSnapshot) error {
	if err := png.Encode(w, r.Render(snap)); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}

// center maps a grid position to the pixel center of its cell
func (r *Renderer) center(p game.Position) (float64, float64) {
	cs := float64(r.cellSize)
	return p.X*cs + cs/2, p.Y*cs + cs/2
}

func (r *Renderer) drawBackground(dc *gg.Context, size int) {
	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()
}

func (r *Renderer) drawGrid(dc *gg.Context, gridSize, size int) {
	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	for i := 0; i <= gridSize; i++ {
		v := float64(i * r.cellSize)
		dc.DrawLine(v, 0, v, float64(size))
		dc.DrawLine(0, v, float64(size), v)
	}
	dc.Stroke()
}

// drawWaves paints each wave as a band sweeping away from its entry edge.
// Alpha follows the pulse so a wave fades in and out.
func (r *Renderer) drawWaves(dc *gg.Context, snap *game.GameSnapshot, size int) {
	band := float64(r.cellSize) * 2
	full := float64(size)

	for _, w := range snap.Waves {
		c := colorWave
		c.A = uint8(w.Intensity * 90)
		dc.SetColor(c)

		travel := w.Progress * full
		switch {
		case w.Direction.Y > 0: // from the top
			dc.DrawRectangle(0, travel-band/2, full, band)
		case w.Direction.Y < 0:
			dc.DrawRectangle(0, full-travel-band/2, full, band)
		case w.Direction.X > 0: // from the left
			dc.DrawRectangle(travel-band/2, 0, band, full)
		default:
			dc.DrawRectangle(full-travel-band/2, 0, band, full)
		}
		dc.Fill()
	}
}

func (r *Renderer) drawCollectible(dc *gg.Context, orb game.Position) {
	x, y := r.center(orb)
	radius := float64(r.cellSize) * 0.4

	glow := gg.NewRadialGradient(x, y, 0, x, y, radius*2)
	glow.AddColorStop(0, color.NRGBA{249, 115, 22, 204})
	glow.AddColorStop(0.5, color.NRGBA{249, 115, 22, 77})
	glow.AddColorStop(1, color.NRGBA{249, 115, 22, 0})
	dc.SetFillStyle(glow)
	dc.DrawCircle(x, y, radius*2)
	dc.Fill()

	dc.SetColor(colorOrb)
	dc.DrawCircle(x, y, radius)
	dc.Fill()

	dc.SetColor(colorOrbCore)
	dc.DrawCircle(x-radius/3, y-radius/3, radius/3)
	dc.Fill()
}

// drawSnake draws the tail first so the head ends on top
func (r *Renderer) drawSnake(dc *gg.Context, snap *game.GameSnapshot) {
	n := len(snap.Snake)
	cs := float64(r.cellSize)

	for i := n - 1; i >= 0; i-- {
		x, y := r.center(snap.Snake[i])
		if i == 0 {
			dc.SetColor(headColor(snap))
			dc.DrawCircle(x, y, cs*0.45)
			dc.Fill()
			continue
		}

		// Body fades toward the tail
		c := colorBody
		c.A = uint8(255 * (1 - float64(i)/float64(n+1)))
		dc.SetColor(c)
		dc.DrawRoundedRectangle(x-cs*0.4, y-cs*0.4, cs*0.8, cs*0.8, cs*0.2)
		dc.Fill()
	}
}

func headColor(snap *game.GameSnapshot) color.Color {
	switch {
	case snap.Invulnerable:
		return headInvulnerable
	case snap.JustCollected:
		return headCollected
	default:
		return headNormal
	}
}

// drawBorder turns red while the head is in the danger zone
func (r *Renderer) drawBorder(dc *gg.Context, snap *game.GameSnapshot, size int) {
	var c color.Color = colorBorder
	if snap.NearWall || snap.GameOver {
		c = headInvulnerable
	}
	dc.SetColor(c)
	dc.SetLineWidth(float64(r.cellSize) / 5)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Stroke()
}

func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}

	var r, g, b uint8
	fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{r, g, b, 255}
}
