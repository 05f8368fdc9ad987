package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"ant-crawler/internal/simulation"
	"ant-crawler/internal/sprite"
	"ant-crawler/internal/surface"
	"ant-crawler/internal/telemetry"

	"github.com/google/uuid"
)

// Phase is the lifecycle state of the overlay.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseAttached
	PhaseDetached
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseAttached:
		return "attached"
	case PhaseDetached:
		return "detached"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var (
	// ErrMissingSprite is returned when a start has no usable image.
	ErrMissingSprite = errors.New("start requires a decodable sprite image")
	// ErrSurfaceAdd is returned when the platform refuses to present the overlay.
	ErrSurfaceAdd = errors.New("failed to add overlay surface")
)

// statsWindow is the number of moving ticks the speed statistics average over (~2s).
const statsWindow = 120

// Host is told whether the process must be kept alive for the animation.
type Host interface {
	KeepAlive(active bool)
}

// NopHost ignores keep-alive signals.
type NopHost struct{}

// KeepAlive does nothing.
func (NopHost) KeepAlive(bool) {}

// Settings are the defaults applied when a run starts without explicit values.
type Settings struct {
	SpriteSize int
	BaseSpeed  float64
	// MaxSpriteSize bounds the size a host may request.
	MaxSpriteSize int
}

// DefaultMaxSpriteSize applies when Settings.MaxSpriteSize is unset.
const DefaultMaxSpriteSize = 512

// Config is the live configuration of a run.
type Config struct {
	SpriteSize int
	BaseSpeed  float64
	Sprite     *sprite.Cache
}

// StartRequest carries the arguments of a start command.
type StartRequest struct {
	Size  *float64
	Speed *float64
	Image []byte
	// Fresh requests a new sprite from Image; otherwise the current one is kept.
	Fresh bool
}

// Snapshot is a read-only view of the controller for diagnostics.
type Snapshot struct {
	Phase      Phase
	RunID      string
	SpriteSize int
	BaseSpeed  float64
	Pose       simulation.Pose
	Ticks      uint64
	Stats      telemetry.Summary
}

// Options configure a Controller.
type Options struct {
	Surface    surface.Surface
	Looper     *Looper
	Params     simulation.Params
	Rand       simulation.Rand
	Host       Host
	Logger     *slog.Logger
	Defaults   Settings
	SpawnInset float64
	// StatsEvery logs a motion summary every this many ticks; 0 disables it.
	StatsEvery int
}

// Controller owns the overlay lifecycle and drives the simulator's tick loop.
// All methods must run on the controller's Looper.
type Controller struct {
	surface  surface.Surface
	looper   *Looper
	sim      *simulation.Simulator
	host     Host
	base     *slog.Logger
	log      *slog.Logger // base plus the current run id
	defaults Settings
	inset    float64
	every    int

	phase     Phase
	runID     string
	cfg       *Config
	layout    *surface.Params
	added     bool
	keepAlive bool
	bounds    simulation.Bounds
	state     *simulation.State
	tickTask  *Task
	stats     *telemetry.Recorder
}

// NewController wires a controller to its surface and looper.
func NewController(opts Options) (*Controller, error) {
	if opts.Surface == nil {
		return nil, fmt.Errorf("surface is required")
	}
	if opts.Looper == nil {
		return nil, fmt.Errorf("looper is required")
	}
	if opts.Rand == nil {
		opts.Rand = simulation.NewTimeSeededRand()
	}
	sim, err := simulation.NewSimulator(opts.Params, opts.Rand)
	if err != nil {
		return nil, err
	}
	if opts.Host == nil {
		opts.Host = NopHost{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Defaults.MaxSpriteSize <= 0 {
		opts.Defaults.MaxSpriteSize = DefaultMaxSpriteSize
	}
	if opts.Defaults.SpriteSize <= 0 {
		opts.Defaults.SpriteSize = 25
	}
	opts.Defaults.SpriteSize = min(opts.Defaults.SpriteSize, opts.Defaults.MaxSpriteSize)

	c := &Controller{
		surface:  opts.Surface,
		looper:   opts.Looper,
		sim:      sim,
		host:     opts.Host,
		base:     opts.Logger.With("component", "overlay"),
		defaults: opts.Defaults,
		inset:    opts.SpawnInset,
		every:    opts.StatsEvery,
		phase:    PhaseIdle,
		stats:    telemetry.NewRecorder(statsWindow),
	}
	c.log = c.base
	opts.Surface.SetListener(&loopListener{looper: opts.Looper, c: c})
	return c, nil
}

// Phase returns the current lifecycle state.
func (c *Controller) Phase() Phase {
	return c.phase
}

// IsActive reports whether the overlay is starting or on screen.
func (c *Controller) IsActive() bool {
	return c.phase == PhaseStarting || c.phase == PhaseAttached
}

// Config returns a copy of the live configuration, or nil before the first start.
func (c *Controller) Config() *Config {
	if c.cfg == nil {
		return nil
	}
	cfg := *c.cfg
	return &cfg
}

// State returns the simulation state of the current attachment, or nil.
func (c *Controller) State() *simulation.State {
	return c.state
}

// Snapshot returns a diagnostic view of the controller.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{Phase: c.phase, RunID: c.runID, Stats: c.stats.Summary()}
	if c.cfg != nil {
		s.SpriteSize = c.cfg.SpriteSize
		s.BaseSpeed = c.cfg.BaseSpeed
	}
	if c.state != nil {
		s.Pose = c.state.Pose()
		s.Ticks = c.state.Ticks
	}
	return s
}

// Start applies a start command and asks the surface to present the overlay.
// A fresh start without a decodable image, or a surface that refuses the overlay,
// tears the run down and leaves the controller idle.
func (c *Controller) Start(req StartRequest) error {
	var img *sprite.Cache
	if req.Fresh {
		decoded, err := sprite.Decode(req.Image)
		if err != nil {
			c.log.Error("FATAL: start without a valid sprite image", "bytes", len(req.Image), "error", err)
			c.release(PhaseIdle)
			return fmt.Errorf("%w: %w", ErrMissingSprite, err)
		}
		img = sprite.NewCache(decoded)
		c.log.Debug("Sprite decoded", "width", decoded.Bounds().Dx(), "height", decoded.Bounds().Dy())
	} else if c.cfg == nil || c.cfg.Sprite == nil {
		c.log.Error("FATAL: start without a sprite image on record")
		c.release(PhaseIdle)
		return ErrMissingSprite
	}

	if c.cfg == nil {
		c.cfg = &Config{SpriteSize: c.defaults.SpriteSize, BaseSpeed: c.defaults.BaseSpeed}
	}
	if img != nil {
		if c.cfg.Sprite != nil {
			c.cfg.Sprite.Release()
		}
		c.cfg.Sprite = img
	}
	c.applySettings(req.Size, req.Speed)

	switch c.phase {
	case PhaseIdle, PhaseStopped, PhaseDetached:
		if c.phase != PhaseDetached {
			c.runID = uuid.NewString()[:8]
			c.log = c.base.With("run", c.runID)
			c.stats.Reset()
		}
		c.phase = PhaseStarting
	}
	c.log.Info("Overlay start", "phase", c.phase, "size", c.cfg.SpriteSize, "speed", c.cfg.BaseSpeed, "fresh", req.Fresh)

	if err := c.setupSurface(); err != nil {
		return err
	}

	if !c.keepAlive {
		c.host.KeepAlive(true)
		c.keepAlive = true
	}
	return nil
}

// Update changes size and/or speed of a running overlay without touching its motion state.
// It is a no-op unless the overlay is starting or attached.
func (c *Controller) Update(size, speed *float64) {
	if !c.IsActive() {
		c.log.Debug("Update ignored, overlay not running", "phase", c.phase)
		return
	}
	if c.applySettings(size, speed) && c.added {
		if err := c.surface.Update(c.frame(), *c.layout); err != nil {
			c.log.Warn("Layout update after resize failed", "error", err)
		}
	}
	c.log.Info("Overlay settings updated", "size", c.cfg.SpriteSize, "speed", c.cfg.BaseSpeed)
}

// Stop ends the run from any state. Calling it again is a no-op.
func (c *Controller) Stop() {
	if c.phase == PhaseStopped {
		c.log.Debug("Stop ignored, already stopped")
		return
	}
	c.release(PhaseStopped)
}

// OnAttached handles the platform reporting the overlay on screen.
func (c *Controller) OnAttached() {
	if c.phase != PhaseStarting && c.phase != PhaseDetached {
		c.log.Debug("Attach event ignored", "phase", c.phase)
		return
	}
	if !c.added || c.cfg == nil {
		c.log.Warn("Attach event without a pending overlay", "phase", c.phase)
		return
	}

	c.bounds = c.surfaceBounds()
	c.state = simulation.NewState(c.bounds, c.cfg.SpriteSize, c.inset)
	c.layout.X = int(math.Round(c.state.Position.X))
	c.layout.Y = int(math.Round(c.state.Position.Y))
	c.phase = PhaseAttached
	c.log.Info("Overlay attached", "bounds", c.bounds, "spawn", c.layout)

	c.startTicking()
}

// OnDetached handles the overlay leaving the window hierarchy.
func (c *Controller) OnDetached() {
	if c.phase != PhaseAttached && c.phase != PhaseStarting {
		c.log.Debug("Detach event ignored", "phase", c.phase)
		return
	}
	c.detach()
}

// OnResized updates the wander area; the next tick reflects against it.
func (c *Controller) OnResized(width, height int) {
	c.bounds = simulation.Bounds{Width: width, Height: height}
	c.log.Debug("Screen resized", "bounds", c.bounds)
}

func (c *Controller) applySettings(size, speed *float64) (sizeChanged bool) {
	if speed != nil {
		if math.IsNaN(*speed) || math.IsInf(*speed, 0) {
			c.log.Warn("Ignoring invalid speed", "speed", *speed)
		} else {
			c.cfg.BaseSpeed = *speed
		}
	}
	if size != nil {
		switch v := *size; {
		case math.IsNaN(v) || v < 1:
			c.log.Warn("Ignoring invalid sprite size", "size", v)
		case v >= float64(c.defaults.MaxSpriteSize+1):
			c.log.Warn("Ignoring oversized sprite size", "size", v, "max", c.defaults.MaxSpriteSize)
		default:
			if n := int(v); n != c.cfg.SpriteSize {
				c.cfg.SpriteSize = n
				sizeChanged = true
			}
		}
	}
	if sizeChanged && c.layout != nil {
		c.layout.Width = c.cfg.SpriteSize
		c.layout.Height = c.cfg.SpriteSize
	}
	return sizeChanged
}

func (c *Controller) setupSurface() error {
	if c.layout == nil {
		b := c.surfaceBounds()
		p := surface.NewOverlayParams(c.cfg.SpriteSize, b.Width/2-c.cfg.SpriteSize/2, int(c.inset))
		c.layout = &p
	}
	resized := c.layout.Width != c.cfg.SpriteSize || c.layout.Height != c.cfg.SpriteSize
	c.layout.Width = c.cfg.SpriteSize
	c.layout.Height = c.cfg.SpriteSize

	if !c.added {
		if err := c.surface.Add(c.frame(), *c.layout); err != nil {
			c.log.Error("FATAL: surface add failed", "error", err)
			c.release(PhaseIdle)
			return fmt.Errorf("%w: %w", ErrSurfaceAdd, err)
		}
		c.added = true
		c.log.Debug("Surface add requested", "layout", c.layout)
		return nil
	}
	if resized {
		if err := c.surface.Update(c.frame(), *c.layout); err != nil {
			c.log.Warn("Layout update failed", "error", err)
		}
	}
	return nil
}

func (c *Controller) startTicking() {
	c.looper.Remove(c.tickTask)
	c.tickTask = c.looper.Post(c.tick)
}

func (c *Controller) tick() {
	c.tickTask = nil
	if c.phase != PhaseAttached || c.state == nil {
		return
	}

	cfg := simulation.TickConfig{BaseSpeed: c.cfg.BaseSpeed, SpriteSize: c.cfg.SpriteSize}
	pose, out := c.sim.Tick(c.state, cfg, c.bounds, c.looper.Clock().Now())
	c.stats.Observe(out, c.state.EffectiveSpeed)

	if !out.Paused {
		c.layout.X = int(math.Round(pose.Position.X))
		c.layout.Y = int(math.Round(pose.Position.Y))
		c.layout.Rotation = pose.Rotation
		if err := c.surface.Update(c.frame(), *c.layout); err != nil {
			if !c.surface.Attached() {
				c.log.Warn("Surface gone during tick, stopping motion", "error", err)
				c.detach()
				return
			}
			c.log.Debug("Surface update failed, retrying next tick", "error", err)
		}
	}
	if out.PauseStarted {
		c.log.Debug("Ant paused", "until", c.state.PauseUntil)
	}
	if c.every > 0 && c.state.Ticks%uint64(c.every) == 0 {
		c.log.Debug("Motion stats", "summary", c.stats.Summary())
	}

	c.tickTask = c.looper.PostDelayed(c.tick, c.sim.TickInterval())
}

func (c *Controller) detach() {
	c.looper.Remove(c.tickTask)
	c.tickTask = nil
	c.state = nil
	c.added = false
	c.phase = PhaseDetached
	c.log.Info("Overlay detached, motion stopped")
}

// release cancels the tick, removes the surface and drops the run's resources.
func (c *Controller) release(next Phase) {
	c.looper.Remove(c.tickTask)
	c.tickTask = nil

	if c.added || c.surface.Attached() {
		if err := c.surface.Remove(); err != nil {
			c.log.Error("Failed to remove overlay surface", "error", err)
		}
	}
	c.added = false
	c.state = nil
	c.layout = nil
	if c.cfg != nil && c.cfg.Sprite != nil {
		c.cfg.Sprite.Release()
	}
	c.cfg = nil

	// a fatal start always tells the host to shut down, even before keep-alive was taken
	if c.keepAlive || next == PhaseIdle {
		c.host.KeepAlive(false)
		c.keepAlive = false
	}
	if c.phase != PhaseIdle || next != PhaseIdle {
		c.log.Info("Overlay released", "from", c.phase, "to", next, "stats", c.stats.Summary())
	}
	c.phase = next
}

func (c *Controller) frame() surface.Frame {
	if c.cfg == nil || c.cfg.Sprite == nil {
		return surface.Frame{}
	}
	return surface.Frame{Sprite: c.cfg.Sprite.At(c.cfg.SpriteSize)}
}

func (c *Controller) surfaceBounds() simulation.Bounds {
	w, h := c.surface.Bounds()
	return simulation.Bounds{Width: w, Height: h}
}

// loopListener moves surface events onto the controller's looper.
type loopListener struct {
	looper *Looper
	c      *Controller
}

func (l *loopListener) OnAttached() {
	l.looper.Post(l.c.OnAttached)
}

func (l *loopListener) OnDetached() {
	l.looper.Post(l.c.OnDetached)
}

func (l *loopListener) OnResized(width, height int) {
	l.looper.Post(func() { l.c.OnResized(width, height) })
}
