package simulation

import (
	"errors"
	"fmt"
	"time"
)

// Params holds the behavior tunables of the wandering motion.
type Params struct {
	TickInterval time.Duration

	WanderFrequency float64 // probability per tick of a heading perturbation
	WanderStrength  float64 // max perturbation, radians

	SpeedMultiplierMin float64
	SpeedMultiplierMax float64
	SpeedHoldMin       int // ticks, inclusive
	SpeedHoldMax       int // ticks, inclusive

	BounceJitter float64 // max extra heading offset after a bounce, radians

	PauseChance float64 // probability per tick of starting a pause
	PauseMin    time.Duration
	PauseMax    time.Duration
}

// DefaultParams returns the stock ant behavior (~60 Hz).
func DefaultParams() Params {
	return Params{
		TickInterval:       16 * time.Millisecond,
		WanderFrequency:    0.1,
		WanderStrength:     0.5,
		SpeedMultiplierMin: 0.7,
		SpeedMultiplierMax: 1.3,
		SpeedHoldMin:       30,
		SpeedHoldMax:       119,
		BounceJitter:       0.75,
		PauseChance:        0.005,
		PauseMin:           500 * time.Millisecond,
		PauseMax:           3000 * time.Millisecond,
	}
}

// Validate checks that the tunables describe a usable motion.
func (p Params) Validate() error {
	var errs []error
	if p.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", p.TickInterval))
	}
	if p.WanderFrequency < 0 || p.WanderFrequency > 1 {
		errs = append(errs, fmt.Errorf("wander frequency must be in [0,1], got %g", p.WanderFrequency))
	}
	if p.PauseChance < 0 || p.PauseChance > 1 {
		errs = append(errs, fmt.Errorf("pause chance must be in [0,1], got %g", p.PauseChance))
	}
	if p.SpeedMultiplierMin < 0 || p.SpeedMultiplierMax < p.SpeedMultiplierMin {
		errs = append(errs, fmt.Errorf("invalid speed multiplier range [%g,%g]", p.SpeedMultiplierMin, p.SpeedMultiplierMax))
	}
	if p.SpeedHoldMin < 0 || p.SpeedHoldMax < p.SpeedHoldMin {
		errs = append(errs, fmt.Errorf("invalid speed hold range [%d,%d]", p.SpeedHoldMin, p.SpeedHoldMax))
	}
	if p.PauseMin < 0 || p.PauseMax < p.PauseMin {
		errs = append(errs, fmt.Errorf("invalid pause range [%s,%s]", p.PauseMin, p.PauseMax))
	}
	return errors.Join(errs...)
}
