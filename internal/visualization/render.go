// Package visualization presents the overlay in a borderless, transparent,
// always-on-top ebiten window that lets mouse input through.
package visualization

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"ant-crawler/internal/surface"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Options configure the overlay window.
type Options struct {
	Width  int
	Height int
	Title  string
	// Debug draws frame rate and Status in the top-left corner.
	Debug  bool
	Status func() string
	Logger *slog.Logger
}

// Renderer implements surface.Surface and draws it from the ebiten game loop.
// Adding the overlay is acknowledged on the next frame, the way a window
// manager reports a view once it is laid out.
type Renderer struct {
	projector Projector
	debug     bool
	status    func() string
	title     string
	log       *slog.Logger
	closing   func() bool
	window    func(surface.Flags)
	closed    atomic.Bool

	mu       sync.Mutex
	listener surface.Listener
	width    int
	height   int
	pending  bool
	attached bool
	params   surface.Params
	source   image.Image
	image    *ebiten.Image
	dirty    bool
}

// NewRenderer creates a renderer for a window of the given size.
func NewRenderer(projector Projector, opts Options) *Renderer {
	if projector == nil {
		projector = NewAffineProjector()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Title == "" {
		opts.Title = "ant-crawler"
	}
	return &Renderer{
		projector: projector,
		debug:     opts.Debug,
		status:    opts.Status,
		title:     opts.Title,
		log:       opts.Logger.With("component", "renderer"),
		closing:   ebiten.IsWindowBeingClosed,
		window:    applyWindowFlags,
		width:     opts.Width,
		height:    opts.Height,
	}
}

// SetListener registers the receiver of attach events.
func (r *Renderer) SetListener(l surface.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = l
}

// Add schedules the overlay for the next frame.
func (r *Renderer) Add(frame surface.Frame, p surface.Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending || r.attached {
		return surface.ErrAlreadyAdded
	}
	r.pending = true
	r.apply(frame, p)
	return nil
}

// Update replaces the layout and, if it changed, the sprite.
func (r *Renderer) Update(frame surface.Frame, p surface.Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pending && !r.attached {
		return surface.ErrNotAttached
	}
	r.apply(frame, p)
	return nil
}

// Remove takes the overlay off screen without a detach notification.
func (r *Renderer) Remove() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pending && !r.attached {
		return surface.ErrNotAttached
	}
	r.pending = false
	r.attached = false
	r.source = nil
	r.dirty = true
	return nil
}

// Attached reports whether the overlay is being drawn.
func (r *Renderer) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attached
}

// Bounds returns the window size.
func (r *Renderer) Bounds() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// apply must be called with r.mu held.
func (r *Renderer) apply(frame surface.Frame, p surface.Params) {
	r.params = p
	if frame.Sprite != nil && frame.Sprite != r.source {
		r.source = frame.Sprite
		r.dirty = true
	}
}

// game adapts Renderer to ebiten.Game; its Update is the per-frame step.
type game struct {
	*Renderer
}

func (g game) Update() error {
	return g.step()
}

// step delivers pending attach events and handles the window being closed.
func (r *Renderer) step() error {
	r.mu.Lock()
	l := r.listener
	if r.closed.Load() || r.closing() {
		was := r.attached || r.pending
		r.attached, r.pending = false, false
		r.mu.Unlock()
		r.log.Info("Overlay window closed")
		if was && l != nil {
			l.OnDetached()
		}
		return ebiten.Termination
	}
	attach := r.pending
	if attach {
		r.pending = false
		r.attached = true
	}
	flags := r.params.Flags
	r.mu.Unlock()

	if attach {
		r.window(flags)
		if l != nil {
			l.OnAttached()
		}
	}
	return nil
}

// Close ends the game loop on its next frame.
func (r *Renderer) Close() {
	r.closed.Store(true)
}

func applyWindowFlags(f surface.Flags) {
	ebiten.SetWindowFloating(f.Has(surface.FlagAlwaysOnTop))
	ebiten.SetWindowMousePassthrough(f.Has(surface.FlagNotTouchable))
}

// Draw paints the sprite at its layout.
func (r *Renderer) Draw(screen *ebiten.Image) {
	screen.Clear()

	r.mu.Lock()
	if r.dirty {
		if r.image != nil {
			r.image.Deallocate()
			r.image = nil
		}
		if r.source != nil {
			r.image = ebiten.NewImageFromImage(r.source)
		}
		r.dirty = false
	}
	img, p, attached := r.image, r.params, r.attached
	r.mu.Unlock()

	if attached && img != nil {
		op := &ebiten.DrawImageOptions{}
		op.GeoM = r.projector.Project(p, img.Bounds().Size())
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(img, op)
	}
	if r.debug {
		r.drawDebugInfo(screen, p)
	}
}

func (r *Renderer) drawDebugInfo(screen *ebiten.Image, p surface.Params) {
	msg := fmt.Sprintf("FPS: %.1f, TPS: %.1f\n", ebiten.ActualFPS(), ebiten.ActualTPS())
	msg += fmt.Sprintf("Layout: %s\n", p)
	if r.status != nil {
		msg += r.status()
	}
	ebitenutil.DebugPrint(screen, msg)
}

// Layout follows the window size and reports changes to the listener.
func (r *Renderer) Layout(outsideWidth, outsideHeight int) (int, int) {
	r.mu.Lock()
	changed := outsideWidth != r.width || outsideHeight != r.height
	r.width, r.height = outsideWidth, outsideHeight
	l := r.listener
	r.mu.Unlock()

	if changed && l != nil {
		l.OnResized(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}

// Run opens the overlay window and blocks until it is closed. It must be
// called from the main goroutine.
func (r *Renderer) Run() error {
	w, h := r.Bounds()
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowPosition(0, 0)
	ebiten.SetWindowTitle(r.title)
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowFloating(true)
	ebiten.SetWindowMousePassthrough(true)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)

	r.log.Info("Opening overlay window", "width", w, "height", h)
	return ebiten.RunGameWithOptions(game{r}, &ebiten.RunGameOptions{
		ScreenTransparent: true,
		InitUnfocused:     true,
		SkipTaskbar:       true,
	})
}
