package headless

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/jaquobia/rine"
)

// ErrNotConfigured is returned by AcquireTexture before Configure.
var ErrNotConfigured = errors.New("headless: surface not configured")

// Surface is a software swapchain. Every acquired texture is a fresh,
// transparent *image.RGBA of the configured size.
type Surface struct {
	window *Window
	format gputypes.TextureFormat

	configs   []rine.SurfaceConfiguration
	failures  []error
	acquired  int
	presented int
	discarded int
	last      *image.RGBA
	current   *Texture
}

var _ rine.Surface = (*Surface)(nil)

func (s *Surface) PreferredFormat(rine.Adapter) gputypes.TextureFormat { return s.format }

// Configure records cfg; later acquisitions use its size.
func (s *Surface) Configure(device rine.Device, cfg rine.SurfaceConfiguration) error {
	if _, ok := device.(*Device); !ok {
		return fmt.Errorf("headless: configure with foreign device %T", device)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("headless: configure %dx%d: zero extent", cfg.Width, cfg.Height)
	}
	s.configs = append(s.configs, cfg)
	return nil
}

// FailNextAcquire scripts the outcome of the next acquisitions. Each err is
// returned once, in order, before acquisitions succeed again.
func (s *Surface) FailNextAcquire(errs ...error) {
	s.failures = append(s.failures, errs...)
}

func (s *Surface) AcquireTexture() (rine.SurfaceTexture, error) {
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return nil, err
	}
	if len(s.configs) == 0 {
		return nil, ErrNotConfigured
	}
	if s.current != nil {
		return nil, errors.New("headless: texture already acquired")
	}
	cfg := s.configs[len(s.configs)-1]
	s.acquired++
	s.current = &Texture{
		surface: s,
		img:     image.NewRGBA(image.Rect(0, 0, int(cfg.Width), int(cfg.Height))),
	}
	return s.current, nil
}

// Config returns the last applied configuration.
func (s *Surface) Config() (rine.SurfaceConfiguration, bool) {
	if len(s.configs) == 0 {
		return rine.SurfaceConfiguration{}, false
	}
	return s.configs[len(s.configs)-1], true
}

// Configurations lists every applied configuration in order.
func (s *Surface) Configurations() []rine.SurfaceConfiguration { return s.configs }

func (s *Surface) Acquired() int  { return s.acquired }
func (s *Surface) Presented() int { return s.presented }
func (s *Surface) Discarded() int { return s.discarded }

// LastFrame is the most recently presented image, or nil.
func (s *Surface) LastFrame() *image.RGBA { return s.last }

// Texture is an acquired surface image.
type Texture struct {
	surface *Surface
	img     *image.RGBA
	done    bool
}

// Image is the backing pixels.
func (t *Texture) Image() *image.RGBA { return t.img }

func (t *Texture) CreateView() (rine.TextureView, error) {
	return &TextureView{tex: t}, nil
}

func (t *Texture) Present() error {
	if t.done {
		return errors.New("headless: texture already returned")
	}
	t.done = true
	t.surface.current = nil
	t.surface.presented++
	t.surface.last = t.img
	return nil
}

func (t *Texture) Discard() {
	if t.done {
		return
	}
	t.done = true
	t.surface.current = nil
	t.surface.discarded++
}

// TextureView targets a Texture in a render pass.
type TextureView struct {
	tex *Texture
}

// Image is the pixels behind the view.
func (v *TextureView) Image() *image.RGBA { return v.tex.img }
