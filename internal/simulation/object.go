package simulation

import (
	"fmt"
	"time"

	"ant-crawler/internal/common"
)

// Bounds is the size of the area the sprite may wander in, in pixels.
type Bounds struct {
	Width  int
	Height int
}

// String representation for logging
func (b Bounds) String() string {
	return fmt.Sprintf("%dx%d", b.Width, b.Height)
}

// TickConfig carries the live settings the simulator reads on every tick.
// The controller may replace it between ticks; the simulator never caches it.
type TickConfig struct {
	BaseSpeed  float64 // pixels per second
	SpriteSize int     // pixels, square
}

// Pose is what a tick emits for the surface.
type Pose struct {
	Position common.Vector
	Rotation float64 // degrees, sprite "up" is its forward axis
}

// Outcome describes which branch a tick took.
type Outcome struct {
	Moved        bool
	Bounced      bool
	Paused       bool // tick skipped because of an active pause
	PauseStarted bool
	Distance     float64
}

// State is the mutable motion state of one sprite.
// Only Simulator.Tick writes to it.
type State struct {
	Position        common.Vector
	Heading         common.Vector
	SpeedMultiplier float64
	EffectiveSpeed  float64
	SpeedHoldTicks  int
	Paused          bool
	PauseUntil      time.Time
	Rotation        float64
	Ticks           uint64
}

// NewState places a sprite horizontally centered, inset pixels below the top edge,
// facing up. The speed hold counter starts at zero so the first moving tick rolls a multiplier.
func NewState(bounds Bounds, spriteSize int, inset float64) *State {
	heading := common.Vector{X: 0, Y: -1}
	return &State{
		Position: common.Vector{
			X: float64(bounds.Width/2 - spriteSize/2),
			Y: inset,
		},
		Heading:         heading,
		SpeedMultiplier: 1,
		Rotation:        common.Degrees(common.Angle(heading)) + 90,
	}
}

// Pose returns the current position and orientation.
func (s *State) Pose() Pose {
	return Pose{Position: s.Position, Rotation: s.Rotation}
}

// String representation for logging
func (s *State) String() string {
	return fmt.Sprintf("State Pos: %s Heading: %s Speed: %.2f Paused: %t Ticks: %d",
		common.Format(s.Position), common.Format(s.Heading), s.EffectiveSpeed, s.Paused, s.Ticks)
}
