// Package surface defines the contract between the overlay controller and a
// platform presentation layer that draws the sprite above other windows.
package surface

import (
	"errors"
	"fmt"
	"image"
)

// Flags describe how the overlay behaves towards input and stacking.
type Flags uint32

const (
	FlagNotFocusable Flags = 1 << iota
	FlagNotTouchable
	FlagLayoutInScreen
	FlagAlwaysOnTop
)

// OverlayFlags is the set every ant overlay uses: never steals focus or input, always on top.
const OverlayFlags = FlagNotFocusable | FlagNotTouchable | FlagLayoutInScreen | FlagAlwaysOnTop

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Format is the pixel format requested for the surface.
type Format int

const (
	FormatOpaque Format = iota
	FormatTranslucent
)

// Gravity anchors X/Y of the layout.
type Gravity int

const (
	GravityTopStart Gravity = iota
	GravityCenter
)

// Params is the layout descriptor handed to a surface.
type Params struct {
	X, Y          int
	Width, Height int
	Rotation      float64 // degrees, clockwise
	Flags         Flags
	Format        Format
	Gravity       Gravity
}

// NewOverlayParams returns a translucent, non-interactive, always-on-top layout
// of a square sprite placed at (x, y).
func NewOverlayParams(size, x, y int) Params {
	return Params{
		X:       x,
		Y:       y,
		Width:   size,
		Height:  size,
		Flags:   OverlayFlags,
		Format:  FormatTranslucent,
		Gravity: GravityTopStart,
	}
}

// String representation for logging
func (p Params) String() string {
	return fmt.Sprintf("Params[%dx%d at (%d,%d) rot %.1f]", p.Width, p.Height, p.X, p.Y, p.Rotation)
}

// Frame is the visual content of the overlay: the sprite already scaled to the layout size.
type Frame struct {
	Sprite image.Image
}

// Listener receives attach state changes reported by the platform.
// Implementations are called from the surface's own goroutine.
type Listener interface {
	OnAttached()
	OnDetached()
	OnResized(width, height int)
}

// Surface is a system-level always-on-top layer.
// Add, Update and Remove can each fail independently of the others.
type Surface interface {
	// SetListener registers the receiver of attach/detach/resize events.
	SetListener(l Listener)
	// Add asks the platform to present the frame. Attachment may be reported later.
	Add(frame Frame, params Params) error
	// Update moves, rotates or resizes an attached overlay.
	Update(frame Frame, params Params) error
	// Remove takes the overlay off screen.
	Remove() error
	// Attached reports whether the overlay is currently part of the window hierarchy.
	Attached() bool
	// Bounds returns the screen size in pixels.
	Bounds() (width, height int)
}

var (
	// ErrNotAttached is returned by Update and Remove when there is nothing on screen.
	ErrNotAttached = errors.New("surface not attached")
	// ErrAlreadyAdded is returned by Add when the overlay is already presented.
	ErrAlreadyAdded = errors.New("surface already added")
)
