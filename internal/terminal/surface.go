// Package terminal presents the ant as a heading arrow inside a terminal.
// Pixel coordinates are mapped to cells of a fixed size so the motion
// simulator can keep working in pixels.
package terminal

import (
	"context"
	"image"
	"log/slog"
	"math"
	"sync"

	"ant-crawler/internal/surface"

	"github.com/gdamore/tcell/v2"
)

// arrows indexed by rotation in 45° steps, 0° being up.
var arrows = [8]rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}

var defaultAntColor = tcell.NewRGBColor(150, 75, 0)

// Surface draws the overlay on a tcell screen.
type Surface struct {
	screen tcell.Screen
	cellW  int
	cellH  int
	log    *slog.Logger

	mu       sync.Mutex
	listener surface.Listener
	attached bool
	cell     image.Point
	style    tcell.Style
	sprite   image.Image
}

// New wraps an initialised screen. Each cell stands for cellW x cellH pixels.
func New(screen tcell.Screen, cellW, cellH int, logger *slog.Logger) *Surface {
	if cellW < 1 {
		cellW = 1
	}
	if cellH < 1 {
		cellH = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{
		screen: screen,
		cellW:  cellW,
		cellH:  cellH,
		log:    logger.With("component", "terminal_surface"),
		style:  tcell.StyleDefault.Foreground(defaultAntColor),
	}
}

// SetListener registers the receiver of attach events.
func (s *Surface) SetListener(l surface.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Add draws the ant and reports the attachment right away.
func (s *Surface) Add(frame surface.Frame, p surface.Params) error {
	s.mu.Lock()
	if s.attached {
		s.mu.Unlock()
		return surface.ErrAlreadyAdded
	}
	s.attached = true
	s.draw(frame, p)
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.OnAttached()
	}
	return nil
}

// Update moves the arrow to the cell under the sprite's center.
func (s *Surface) Update(frame surface.Frame, p surface.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return surface.ErrNotAttached
	}
	s.draw(frame, p)
	return nil
}

// Remove erases the arrow.
func (s *Surface) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return surface.ErrNotAttached
	}
	s.screen.SetContent(s.cell.X, s.cell.Y, ' ', nil, tcell.StyleDefault)
	s.screen.Show()
	s.attached = false
	return nil
}

// Attached reports whether the arrow is on screen.
func (s *Surface) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// Bounds returns the terminal size in pixels.
func (s *Surface) Bounds() (int, int) {
	w, h := s.screen.Size()
	return w * s.cellW, h * s.cellH
}

// Run forwards resize events and returns when the user quits (Esc, q, Ctrl-C)
// or ctx is cancelled. Quitting counts as the platform detaching the overlay.
func (s *Surface) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.screen.PostEvent(tcell.NewEventInterrupt(nil))
		case <-done:
		}
	}()

	for {
		ev := s.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return ctx.Err()
			}
		case *tcell.EventResize:
			s.screen.Sync()
			w, h := s.Bounds()
			s.log.Debug("Terminal resized", "width", w, "height", h)
			if l := s.currentListener(); l != nil {
				l.OnResized(w, h)
			}
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				s.detach()
				return nil
			}
		}
	}
}

func (s *Surface) detach() {
	s.mu.Lock()
	was := s.attached
	s.attached = false
	l := s.listener
	s.mu.Unlock()
	if was && l != nil {
		l.OnDetached()
	}
}

func (s *Surface) currentListener() surface.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// draw must be called with s.mu held.
func (s *Surface) draw(frame surface.Frame, p surface.Params) {
	if frame.Sprite != nil && frame.Sprite != s.sprite {
		s.sprite = frame.Sprite
		s.style = tcell.StyleDefault.Foreground(spriteColor(frame.Sprite))
	}
	next := image.Point{
		X: (p.X + p.Width/2) / s.cellW,
		Y: (p.Y + p.Height/2) / s.cellH,
	}
	if next != s.cell {
		s.screen.SetContent(s.cell.X, s.cell.Y, ' ', nil, tcell.StyleDefault)
		s.cell = next
	}
	s.screen.SetContent(s.cell.X, s.cell.Y, Arrow(p.Rotation), nil, s.style)
	s.screen.Show()
}

// Arrow returns the glyph closest to a rotation in degrees (0 = up, clockwise).
func Arrow(rotation float64) rune {
	i := int(math.Round(rotation/45)) % len(arrows)
	if i < 0 {
		i += len(arrows)
	}
	return arrows[i]
}

// spriteColor averages the opaque pixels of the sprite.
func spriteColor(img image.Image) tcell.Color {
	var r, g, b, n uint64
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			cr, cg, cb, ca := img.At(x, y).RGBA()
			if ca < 0x8000 {
				continue
			}
			// un-premultiply
			r += uint64(cr) * 0xffff / uint64(ca)
			g += uint64(cg) * 0xffff / uint64(ca)
			b += uint64(cb) * 0xffff / uint64(ca)
			n++
		}
	}
	if n == 0 {
		return defaultAntColor
	}
	return tcell.NewRGBColor(int32(r/n>>8), int32(g/n>>8), int32(b/n>>8))
}
