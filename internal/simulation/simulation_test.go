package simulation

import (
	"math"
	"testing"
	"time"

	"ant-crawler/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func steadyParams() Params {
	p := DefaultParams()
	p.WanderFrequency = 0
	p.PauseChance = 0
	return p
}

func newTestSimulator(t *testing.T, p Params, seed uint64) *Simulator {
	t.Helper()
	sim, err := NewSimulator(p, NewRand(seed))
	require.NoError(t, err)
	return sim
}

func TestTickMovesByEffectiveSpeedAlongHeading(t *testing.T) {
	sim := newTestSimulator(t, steadyParams(), 1)
	bounds := Bounds{Width: 1080, Height: 1920}
	cfg := TickConfig{BaseSpeed: 120, SpriteSize: 40}

	st := NewState(bounds, cfg.SpriteSize, 900)
	st.Heading = common.FromAngle(0.3)

	for i := 0; i < 50; i++ {
		before := st.Position
		heading := st.Heading
		_, out := sim.Tick(st, cfg, bounds, epoch.Add(time.Duration(i)*sim.TickInterval()))
		require.True(t, out.Moved)
		require.False(t, out.Bounced)

		moved := common.Distance(before, st.Position)
		assert.InDelta(t, st.EffectiveSpeed*sim.TickInterval().Seconds(), moved, tolerance)
		assert.InDelta(t, st.EffectiveSpeed*sim.TickInterval().Seconds(), out.Distance, tolerance)

		dir := common.Vector{X: (st.Position.X - before.X) / moved, Y: (st.Position.Y - before.Y) / moved}
		assert.InDelta(t, heading.X, dir.X, 1e-6)
		assert.InDelta(t, heading.Y, dir.Y, 1e-6)
	}
}

func TestEffectiveSpeedStaysInMultiplierRange(t *testing.T) {
	p := steadyParams()
	sim := newTestSimulator(t, p, 7)
	bounds := Bounds{Width: 800, Height: 600}
	cfg := TickConfig{BaseSpeed: 50, SpriteSize: 25}
	st := NewState(bounds, cfg.SpriteSize, 100)

	for i := 0; i < 2000; i++ {
		sim.Tick(st, cfg, bounds, epoch)
		assert.GreaterOrEqual(t, st.EffectiveSpeed, cfg.BaseSpeed*p.SpeedMultiplierMin)
		assert.LessOrEqual(t, st.EffectiveSpeed, cfg.BaseSpeed*p.SpeedMultiplierMax)
		assert.GreaterOrEqual(t, st.SpeedHoldTicks, 0)
		assert.LessOrEqual(t, st.SpeedHoldTicks, p.SpeedHoldMax)
	}
}

func TestPositionNeverLeavesBounds(t *testing.T) {
	p := DefaultParams()
	p.WanderFrequency = 0.5
	p.WanderStrength = 1.5
	p.PauseChance = 0.01

	cases := []struct {
		name   string
		bounds Bounds
		cfg    TickConfig
	}{
		{"phone", Bounds{Width: 1080, Height: 1920}, TickConfig{BaseSpeed: 400, SpriteSize: 50}},
		{"tiny", Bounds{Width: 120, Height: 90}, TickConfig{BaseSpeed: 900, SpriteSize: 30}},
		{"exact fit", Bounds{Width: 60, Height: 200}, TickConfig{BaseSpeed: 300, SpriteSize: 60}},
	}

	for _, tc := range cases {
		for seed := uint64(0); seed < 20; seed++ {
			sim := newTestSimulator(t, p, seed)
			st := NewState(tc.bounds, tc.cfg.SpriteSize, 10)
			now := epoch
			for i := 0; i < 3000; i++ {
				now = now.Add(p.TickInterval)
				sim.Tick(st, tc.cfg, tc.bounds, now)
				maxX := float64(tc.bounds.Width - tc.cfg.SpriteSize)
				maxY := float64(tc.bounds.Height - tc.cfg.SpriteSize)
				if st.Position.X < 0 || st.Position.X > maxX || st.Position.Y < 0 || st.Position.Y > maxY {
					t.Fatalf("%s seed %d tick %d: position %s outside [0,%g]x[0,%g]",
						tc.name, seed, i, common.Format(st.Position), maxX, maxY)
				}
			}
		}
	}
}

func TestHeadingStaysUnitLength(t *testing.T) {
	p := DefaultParams()
	p.WanderFrequency = 1
	sim := newTestSimulator(t, p, 42)
	bounds := Bounds{Width: 200, Height: 200}
	cfg := TickConfig{BaseSpeed: 500, SpriteSize: 20}
	st := NewState(bounds, cfg.SpriteSize, 50)

	now := epoch
	for i := 0; i < 5000; i++ {
		now = now.Add(p.TickInterval)
		sim.Tick(st, cfg, bounds, now)
		require.InDelta(t, 1.0, common.Length(st.Heading), 1e-9, "tick %d", i)
	}
}

func TestZeroSpeedFreezesButKeepsTicking(t *testing.T) {
	sim := newTestSimulator(t, DefaultParams(), 3)
	bounds := Bounds{Width: 1080, Height: 1920}
	cfg := TickConfig{BaseSpeed: 0, SpriteSize: 50}
	st := NewState(bounds, cfg.SpriteSize, 100)
	st.Heading = common.FromAngle(1.1)

	pos, heading, hold := st.Position, st.Heading, st.SpeedHoldTicks
	for i := 1; i <= 500; i++ {
		_, out := sim.Tick(st, cfg, bounds, epoch.Add(time.Duration(i)*sim.TickInterval()))
		assert.False(t, out.Moved)
		assert.Equal(t, uint64(i), st.Ticks)
	}
	assert.Equal(t, pos, st.Position)
	assert.Equal(t, heading, st.Heading)
	assert.Equal(t, hold, st.SpeedHoldTicks)

	// Raising the speed live resumes motion on the next tick.
	cfg.BaseSpeed = 60
	_, out := sim.Tick(st, cfg, bounds, epoch.Add(time.Hour))
	assert.True(t, out.Moved)
	assert.NotEqual(t, pos, st.Position)
}

func TestPauseSkipsMotionUntilDeadline(t *testing.T) {
	p := steadyParams()
	p.PauseChance = 1
	sim := newTestSimulator(t, p, 9)
	bounds := Bounds{Width: 1080, Height: 1920}
	cfg := TickConfig{BaseSpeed: 50, SpriteSize: 50}
	st := NewState(bounds, cfg.SpriteSize, 500)

	_, out := sim.Tick(st, cfg, bounds, epoch)
	require.True(t, out.PauseStarted)
	require.True(t, st.Paused)
	wait := st.PauseUntil.Sub(epoch)
	assert.GreaterOrEqual(t, wait, p.PauseMin)
	assert.LessOrEqual(t, wait, p.PauseMax)

	frozen := st.Position
	hold := st.SpeedHoldTicks
	for now := epoch.Add(p.TickInterval); now.Before(st.PauseUntil); now = now.Add(p.TickInterval) {
		_, out := sim.Tick(st, cfg, bounds, now)
		require.True(t, out.Paused)
		require.Equal(t, frozen, st.Position)
		require.Equal(t, hold, st.SpeedHoldTicks)
	}

	_, out = sim.Tick(st, cfg, bounds, st.PauseUntil)
	assert.False(t, out.Paused)
	assert.True(t, out.Moved)
	assert.NotEqual(t, frozen, st.Position)
}

func TestBounceOffTopScenario(t *testing.T) {
	// 50px sprite at 50px/s on a 1080x1920 screen, heading straight up:
	// within 1000 ticks (16s) it must hit the top and head back down.
	sim := newTestSimulator(t, steadyParams(), 2024)
	bounds := Bounds{Width: 1080, Height: 1920}
	cfg := TickConfig{BaseSpeed: 50, SpriteSize: 50}
	st := NewState(bounds, cfg.SpriteSize, 100)
	require.Equal(t, common.Vector{X: 0, Y: -1}, st.Heading)

	hitTop := false
	now := epoch
	for i := 0; i < 1000; i++ {
		now = now.Add(sim.TickInterval())
		_, out := sim.Tick(st, cfg, bounds, now)
		if out.Bounced && st.Position.Y == 0 {
			hitTop = true
			assert.Greater(t, st.Heading.Y, 0.0)
		}
	}

	assert.True(t, hitTop, "sprite never reached the top edge")
	assert.Greater(t, st.Heading.Y, 0.0)
}

func TestBounceJitterIsBounded(t *testing.T) {
	p := steadyParams()
	for seed := uint64(0); seed < 50; seed++ {
		sim := newTestSimulator(t, p, seed)
		bounds := Bounds{Width: 1000, Height: 1000}
		cfg := TickConfig{BaseSpeed: 100, SpriteSize: 10}
		st := NewState(bounds, cfg.SpriteSize, 0.5)

		_, out := sim.Tick(st, cfg, bounds, epoch)
		require.True(t, out.Bounced)
		// Mirrored heading is straight down; jitter turns it at most BounceJitter away.
		deviation := math.Abs(common.Angle(st.Heading) - math.Pi/2)
		assert.LessOrEqual(t, deviation, p.BounceJitter+tolerance)
	}
}

func TestOversizedSpriteDoesNotPanic(t *testing.T) {
	sim := newTestSimulator(t, DefaultParams(), 5)
	bounds := Bounds{Width: 100, Height: 80}
	cfg := TickConfig{BaseSpeed: 200, SpriteSize: 150}
	st := NewState(bounds, cfg.SpriteSize, 0)

	assert.NotPanics(t, func() {
		for i := 0; i < 500; i++ {
			sim.Tick(st, cfg, bounds, epoch.Add(time.Duration(i)*time.Second))
		}
	})
	assert.Equal(t, 0.0, st.Position.X)
	assert.Equal(t, 0.0, st.Position.Y)
}

func TestSameSeedSameMotion(t *testing.T) {
	bounds := Bounds{Width: 640, Height: 480}
	cfg := TickConfig{BaseSpeed: 80, SpriteSize: 25}

	run := func() []Pose {
		sim := newTestSimulator(t, DefaultParams(), 77)
		st := NewState(bounds, cfg.SpriteSize, 100)
		poses := make([]Pose, 0, 300)
		now := epoch
		for i := 0; i < 300; i++ {
			now = now.Add(sim.TickInterval())
			pose, _ := sim.Tick(st, cfg, bounds, now)
			poses = append(poses, pose)
		}
		return poses
	}

	assert.Equal(t, run(), run())
}

func TestRotationFollowsHeading(t *testing.T) {
	sim := newTestSimulator(t, steadyParams(), 11)
	bounds := Bounds{Width: 1000, Height: 1000}
	cfg := TickConfig{BaseSpeed: 10, SpriteSize: 10}

	tests := []struct {
		heading common.Vector
		want    float64
	}{
		{common.Vector{X: 0, Y: -1}, 0},
		{common.Vector{X: 1, Y: 0}, 90},
		{common.Vector{X: 0, Y: 1}, 180},
		{common.Vector{X: -1, Y: 0}, 270},
	}
	for _, tt := range tests {
		st := NewState(bounds, cfg.SpriteSize, 500)
		st.Heading = tt.heading
		pose, _ := sim.Tick(st, cfg, bounds, epoch)
		assert.InDelta(t, tt.want, pose.Rotation, 1e-9)
	}
}

func TestNewSimulatorRejectsBadParams(t *testing.T) {
	p := DefaultParams()
	p.TickInterval = 0
	p.WanderFrequency = 2
	_, err := NewSimulator(p, NewRand(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick interval")
	assert.Contains(t, err.Error(), "wander frequency")

	_, err = NewSimulator(DefaultParams(), nil)
	assert.Error(t, err)
}
