package simulation

import (
	"fmt"
	"time"

	"ant-crawler/internal/common"
)

// Simulator advances a State one fixed tick at a time.
// It performs no I/O; the random source is its only dependency.
type Simulator struct {
	params Params
	rng    Rand
}

// NewSimulator creates a simulator with the given tunables and random source.
func NewSimulator(params Params, rng Rand) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid motion params: %w", err)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	return &Simulator{params: params, rng: rng}, nil
}

// Params returns the tunables the simulator was built with.
func (s *Simulator) Params() Params {
	return s.params
}

// TickInterval is the fixed cadence the caller must reschedule at.
func (s *Simulator) TickInterval() time.Duration {
	return s.params.TickInterval
}

// Tick advances st by one tick and returns the pose to present.
// The caller must schedule the next tick whatever the outcome, early returns included.
func (s *Simulator) Tick(st *State, cfg TickConfig, bounds Bounds, now time.Time) (Pose, Outcome) {
	var out Outcome
	st.Ticks++

	// --- Pause ---
	if st.Paused {
		if now.Before(st.PauseUntil) {
			out.Paused = true
			return st.Pose(), out
		}
		st.Paused = false
	}

	// --- Frozen ---
	// Zero speed keeps the loop alive so the speed can be raised again live.
	if cfg.BaseSpeed <= 0 {
		return st.Pose(), out
	}

	// --- Speed variation ---
	if st.SpeedHoldTicks <= 0 {
		st.SpeedMultiplier = uniform(s.rng, s.params.SpeedMultiplierMin, s.params.SpeedMultiplierMax)
		st.SpeedHoldTicks = uniformInt(s.rng, s.params.SpeedHoldMin, s.params.SpeedHoldMax)
	} else {
		st.SpeedHoldTicks--
	}
	st.EffectiveSpeed = cfg.BaseSpeed * st.SpeedMultiplier

	// --- Wander ---
	if s.rng.Float64() < s.params.WanderFrequency {
		st.Heading = common.Rotate(st.Heading, symmetric(s.rng, s.params.WanderStrength))
	}

	// --- Displacement ---
	distance := st.EffectiveSpeed * s.params.TickInterval.Seconds()
	st.Position = common.Advance(st.Position, st.Heading, distance)
	out.Moved = true
	out.Distance = distance

	// --- Boundary reflection ---
	out.Bounced = s.reflect(st, cfg.SpriteSize, bounds)
	if out.Bounced {
		st.Heading = common.Rotate(st.Heading, symmetric(s.rng, s.params.BounceJitter))
	}

	st.Rotation = common.Degrees(common.Angle(st.Heading)) + 90

	// --- Pause trigger ---
	if !st.Paused && s.rng.Float64() < s.params.PauseChance {
		pause := uniformInt(s.rng, int(s.params.PauseMin.Milliseconds()), int(s.params.PauseMax.Milliseconds()))
		st.Paused = true
		st.PauseUntil = now.Add(time.Duration(pause) * time.Millisecond)
		out.PauseStarted = true
	}

	return st.Pose(), out
}

// reflect clamps the position into bounds and mirrors the heading component of every
// axis that crossed an edge. A sprite larger than the screen pins that axis at 0.
func (s *Simulator) reflect(st *State, spriteSize int, bounds Bounds) bool {
	maxX := float64(bounds.Width - spriteSize)
	if maxX < 0 {
		maxX = 0
	}
	maxY := float64(bounds.Height - spriteSize)
	if maxY < 0 {
		maxY = 0
	}

	bounced := false
	if st.Position.X < 0 {
		st.Position.X = 0
		st.Heading.X = -st.Heading.X
		bounced = true
	} else if st.Position.X > maxX {
		st.Position.X = maxX
		st.Heading.X = -st.Heading.X
		bounced = true
	}
	if st.Position.Y < 0 {
		st.Position.Y = 0
		st.Heading.Y = -st.Heading.Y
		bounced = true
	} else if st.Position.Y > maxY {
		st.Position.Y = maxY
		st.Heading.Y = -st.Heading.Y
		bounced = true
	}
	return bounced
}
