// Command rinedemo drives the rine render loop on the headless platform:
// a gg scene is drawn by the application each frame, a HUD is layered on
// top, and the last presented frame is written as PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
	"github.com/jaquobia/rine"
	"github.com/jaquobia/rine/headless"
	"github.com/jaquobia/rine/overlay"
	"github.com/jaquobia/rine/overlay/hud"
)

func main() {
	var (
		width    = flag.Int("width", 640, "window width in pixels")
		height   = flag.Int("height", 400, "window height in pixels")
		frames   = flag.Int("frames", 60, "number of frames to render")
		scale    = flag.Float64("scale", 1, "window scale factor")
		output   = flag.String("output", "rinedemo.png", "PNG file for the last frame")
		vsync    = flag.Bool("vsync", true, "request a vsync present mode")
		logLevel = flag.String("log", "", "log level (debug, info, warn, error); empty reads RINE_LOG")
	)
	flag.Parse()

	if err := run(*width, *height, *frames, *scale, *output, *vsync, *logLevel); err != nil {
		log.Printf("rinedemo: %v", err)
		os.Exit(1)
	}
}

func run(width, height, frames int, scale float64, output string, vsync bool, logLevel string) error {
	if width <= 0 || height <= 0 || frames <= 0 {
		return fmt.Errorf("width, height and frames must be positive")
	}

	cfg, err := rine.ConfigFromEnv()
	if err != nil {
		return err
	}
	if logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("-log: %w", err)
		}
		cfg.LogEnabled = true
	}
	if cfg.VSync == nil {
		cfg.VSync = &vsync
	}
	if l := cfg.NewLogger(os.Stderr); l != nil {
		rine.SetLogger(l)
	}

	p := headless.New(headless.Options{ScaleFactor: scale})
	for i := 0; i < frames; i++ {
		if i == frames/2 {
			// Halfway through, shrink the window to exercise reconfiguration.
			p.PushResize(uint32(width)*3/4, uint32(height)*3/4)
		}
		p.PushBatch(rine.RedrawRequestedEvent{})
	}
	p.Push(rine.CloseRequestedEvent{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	desc := &demo{width: uint32(width), height: uint32(height)}
	err = rine.Run(ctx, p, desc,
		rine.WithConfig(cfg),
		rine.WithOverlay(func(*rine.SurfaceContext) (rine.Overlay, error) {
			return overlay.New[*hud.Context](hud.New(), headless.NewOverlayRenderer()), nil
		}),
		rine.WithExitHook(func(s rine.FrameStats) {
			rine.Logger().Info("rinedemo: loop finished",
				slog.Uint64("presented", s.Presented),
				slog.Uint64("dropped", s.Dropped))
		}),
	)
	if err != nil {
		return err
	}

	last := p.Surface().LastFrame()
	if last == nil {
		return fmt.Errorf("no frame was presented")
	}
	if err := gg.NewContextForImage(last).SavePNG(output); err != nil {
		return fmt.Errorf("save %s: %w", output, err)
	}
	log.Printf("rinedemo: %d frames, last saved to %s (%dx%d)", desc.app.frame, output, last.Bounds().Dx(), last.Bounds().Dy())
	return nil
}

// demo is the application descriptor.
type demo struct {
	width, height uint32
	app           *scene
}

func (d *demo) ConfigureWindow(cfg rine.WindowConfig) rine.WindowConfig {
	return cfg.WithTitle("rinedemo").WithSize(d.width, d.height)
}

func (d *demo) Create(sc *rine.SurfaceContext) (rine.Application, error) {
	size := sc.Size()
	d.app = &scene{sc: sc, dc: gg.NewContext(int(size.Width), int(size.Height)), spin: true}
	return d.app, nil
}

// scene draws rotating circles with gg and exposes a few controls in the
// HUD.
type scene struct {
	rine.BaseApplication

	sc    *rine.SurfaceContext
	dc    *gg.Context
	frame int
	spin  bool
}

func (s *scene) Resize(size rine.Size, _ *rine.SurfaceContext) {
	if err := s.dc.Resize(int(size.Width), int(size.Height)); err != nil {
		rine.Logger().Warn("rinedemo: resize canvas", "error", err)
	}
}

func (s *scene) Draw(_ *rine.SurfaceContext, enc rine.CommandEncoder, view rine.TextureView) {
	s.frame++
	s.paint()

	pass, err := enc.BeginRenderPass(&rine.RenderPassDescriptor{
		Label: "rinedemo scene",
		ColorAttachments: []rine.ColorAttachment{{
			View: view, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{A: 1},
		}},
	})
	if err != nil {
		rine.Logger().Warn("rinedemo: begin pass", "error", err)
		return
	}
	if hp, ok := pass.(*headless.RenderPass); ok {
		if err := hp.DrawImage(s.dc.Image(), image.Point{}); err != nil {
			rine.Logger().Warn("rinedemo: draw scene", "error", err)
		}
	}
	if err := pass.End(); err != nil {
		rine.Logger().Warn("rinedemo: end pass", "error", err)
	}
}

func (s *scene) paint() {
	dc := s.dc
	w, h := float64(dc.Width()), float64(dc.Height())

	steps := 32
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps)
		dc.SetRGB(0.1+t*0.3, 0.15+t*0.2, 0.3+t*0.2)
		dc.DrawRectangle(0, h*t, w, h/float64(steps)+1)
		_ = dc.Fill()
	}

	angle := 0.0
	if s.spin {
		angle = float64(s.frame) * 2 * math.Pi / 120
	}
	cx, cy := w/2, h/2
	r := math.Min(w, h) / 4
	colors := [][3]float64{{1, 0.3, 0.3}, {0.3, 1, 0.3}, {0.3, 0.3, 1}}
	for i, c := range colors {
		a := angle + float64(i)*2*math.Pi/3
		dc.SetRGBA(c[0], c[1], c[2], 0.8)
		dc.DrawCircle(cx+math.Cos(a)*r/2, cy+math.Sin(a)*r/2, r/2)
		_ = dc.Fill()
	}
}

func (s *scene) DrawOverlay(ctx *hud.Context) {
	ctx.Window("rinedemo", 8, 8, 160, func(p *hud.Panel) {
		p.Labelf("frame %d", s.frame)
		p.Labelf("%dx%d", s.sc.Size().Width, s.sc.Size().Height)
		p.Separator()
		p.Checkbox("spin", &s.spin)
		vs := s.sc.VSync()
		if p.Checkbox("vsync", &vs) {
			s.sc.SetVSync(vs)
		}
	})
}

func (s *scene) Close() error { return s.dc.Close() }
