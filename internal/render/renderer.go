package render

import (
	"image/color"
	"io"
	"math"

	"swarm-sim/internal/sim"

	"github.com/fogleman/gg"
)

// Config sets the output dimensions and the world window the renderer
// projects onto them.
type Config struct {
	Width  int
	Height int

	// World window, planar coordinates. The renderer maps
	// [MinX, MaxX] x [MinZ, MaxZ] onto the full image.
	MinX float64
	MaxX float64
	MinZ float64
	MaxZ float64
}

// DefaultConfig returns a 1280x720 view over a 400x225 world window
// centered on the origin.
func DefaultConfig() Config {
	return Config{
		Width:  1280,
		Height: 720,
		MinX:   -200,
		MaxX:   200,
		MinZ:   -112.5,
		MaxZ:   112.5,
	}
}

// Renderer draws a top-down debug frame of the world state. It is used
// by the /api/frame.png endpoint for visual inspection, not by the
// simulation itself.
type Renderer struct {
	cfg Config
	dc  *gg.Context
}

// NewRenderer creates a renderer with a reusable drawing context.
func NewRenderer(cfg Config) *Renderer {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg = DefaultConfig()
	}
	return &Renderer{
		cfg: cfg,
		dc:  gg.NewContext(cfg.Width, cfg.Height),
	}
}

// toScreen projects planar world coordinates into image space.
func (r *Renderer) toScreen(x, z float64) (float64, float64) {
	sx := (x - r.cfg.MinX) / (r.cfg.MaxX - r.cfg.MinX) * float64(r.cfg.Width)
	sy := (z - r.cfg.MinZ) / (r.cfg.MaxZ - r.cfg.MinZ) * float64(r.cfg.Height)
	return sx, sy
}

// worldScale returns image pixels per world unit on the X axis.
func (r *Renderer) worldScale() float64 {
	return float64(r.cfg.Width) / (r.cfg.MaxX - r.cfg.MinX)
}

// RenderPNG draws the state and encodes it as PNG to w.
func (r *Renderer) RenderPNG(state sim.WorldState, w io.Writer) error {
	dc := r.dc

	r.drawBackground(dc)
	r.drawTerritories(dc, state.Territories)
	r.drawWorkers(dc, state.Workers)
	r.drawDefenders(dc, state.Defenders)
	r.drawParasites(dc, state.Parasites)

	return dc.EncodePNG(w)
}

func (r *Renderer) drawBackground(dc *gg.Context) {
	dc.SetColor(color.RGBA{12, 12, 28, 255})
	dc.DrawRectangle(0, 0, float64(r.cfg.Width), float64(r.cfg.Height))
	dc.Fill()

	dc.SetColor(color.RGBA{30, 30, 45, 255})
	dc.SetLineWidth(1)
	gridSize := 25.0 * r.worldScale()
	for x := 0.0; x < float64(r.cfg.Width); x += gridSize {
		dc.DrawLine(x, 0, x, float64(r.cfg.Height))
		dc.Stroke()
	}
	for y := 0.0; y < float64(r.cfg.Height); y += gridSize {
		dc.DrawLine(0, y, float64(r.cfg.Width), y)
		dc.Stroke()
	}
}

func (r *Renderer) drawTerritories(dc *gg.Context, territories []sim.Territory) {
	for _, t := range territories {
		cx, cy := r.toScreen(t.Center.X, t.Center.Z)
		radius := t.Radius * r.worldScale()

		switch t.Status {
		case sim.StatusQueenOwned:
			dc.SetColor(color.RGBA{120, 30, 140, 50})
		case sim.StatusLiberated:
			dc.SetColor(color.RGBA{40, 140, 60, 50})
		default:
			dc.SetColor(color.RGBA{140, 120, 30, 50})
		}
		dc.DrawCircle(cx, cy, radius)
		dc.Fill()

		dc.SetColor(color.RGBA{200, 200, 220, 120})
		dc.SetLineWidth(1.5)
		dc.DrawCircle(cx, cy, radius)
		dc.Stroke()
	}
}

func (r *Renderer) drawWorkers(dc *gg.Context, workers []sim.Worker) {
	for _, w := range workers {
		x, y := r.toScreen(w.Pos.X, w.Pos.Z)

		body := color.RGBA{80, 160, 255, 255}
		if w.Fleeing {
			body = color.RGBA{80, 100, 160, 255}
		}
		dc.SetColor(body)
		dc.DrawCircle(x, y, 4)
		dc.Fill()

		// Energy ring.
		if w.Capacity > 0 {
			frac := w.Reserve / w.Capacity
			dc.SetColor(color.RGBA{200, 230, 255, 200})
			dc.SetLineWidth(1.5)
			dc.DrawArc(x, y, 6, -math.Pi/2, -math.Pi/2+2*math.Pi*frac)
			dc.Stroke()
		}
	}
}

func (r *Renderer) drawDefenders(dc *gg.Context, defenders []sim.Defender) {
	for _, d := range defenders {
		if d.HP <= 0 {
			continue
		}
		x, y := r.toScreen(d.Pos.X, d.Pos.Z)

		dc.SetColor(color.RGBA{90, 200, 120, 255})
		dc.DrawRectangle(x-4, y-4, 8, 8)
		dc.Fill()

		r.drawHealthBar(dc, x, y-9, float64(d.HP)/float64(d.MaxHP))
	}
}

func (r *Renderer) drawParasites(dc *gg.Context, parasites []sim.ParasiteView) {
	for _, p := range parasites {
		if p.Fidelity == "hidden" {
			continue
		}
		x, y := r.toScreen(p.X, p.Z)

		body := color.RGBA{220, 60, 60, 255}
		radius := 5.0
		if p.Variant == "tactical" {
			body = color.RGBA{255, 140, 40, 255}
			radius = 6.5
		}
		dc.SetColor(body)
		dc.DrawCircle(x, y, radius)
		dc.Fill()

		if p.Fidelity == "minimal" {
			continue
		}

		dc.SetColor(color.White)
		dc.SetLineWidth(1)
		dc.DrawCircle(x, y, radius)
		dc.Stroke()

		if p.MaxHP > 0 {
			r.drawHealthBar(dc, x, y-radius-5, float64(p.HP)/float64(p.MaxHP))
		}

		// Feeding indicator at full fidelity.
		if p.Fidelity == "full" && p.State == "feeding" {
			dc.SetColor(color.RGBA{255, 240, 80, 220})
			dc.DrawCircle(x, y, radius+3)
			dc.Stroke()
		}
	}
}

func (r *Renderer) drawHealthBar(dc *gg.Context, x, y, frac float64) {
	if frac < 0 {
		frac = 0
	}
	width := 14.0
	height := 3.0

	dc.SetColor(color.RGBA{51, 51, 51, 255})
	dc.DrawRectangle(x-width/2, y, width, height)
	dc.Fill()

	switch {
	case frac > 0.5:
		dc.SetColor(color.RGBA{83, 255, 69, 255})
	case frac > 0.25:
		dc.SetColor(color.RGBA{255, 149, 0, 255})
	default:
		dc.SetColor(color.RGBA{255, 62, 62, 255})
	}
	dc.DrawRectangle(x-width/2, y, width*frac, height)
	dc.Fill()
}
