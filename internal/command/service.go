// Package command implements the operations a host uses to drive the overlay.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"ant-crawler/internal/overlay"
	"ant-crawler/internal/telemetry"
)

// StartArgs are the arguments of startOverlay.
type StartArgs struct {
	SpriteSize *float64 `json:"ant_size"`
	Speed      *float64 `json:"ant_speed"`
	Image      []byte   `json:"ant_image"`
}

// UpdateArgs are the arguments of updateAntSettings.
type UpdateArgs struct {
	Size  *float64 `json:"size"`
	Speed *float64 `json:"speed"`
}

// Call is one named command with raw JSON arguments.
type Call struct {
	Method string
	Args   json.RawMessage
}

// Status is the overlay state reported to clients.
type Status struct {
	Active     bool              `json:"active"`
	Phase      string            `json:"phase"`
	RunID      string            `json:"run_id,omitempty"`
	KeepAlive  bool              `json:"keep_alive"`
	SpriteSize int               `json:"sprite_size,omitempty"`
	Speed      float64           `json:"speed,omitempty"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	Rotation   float64           `json:"rotation"`
	Ticks      uint64            `json:"ticks"`
	Stats      telemetry.Summary `json:"stats"`
}

// Service runs commands on the controller's looper.
type Service struct {
	looper     *overlay.Looper
	controller *overlay.Controller
	perms      Permissions
	host       *ProcessHost
	log        *slog.Logger
}

// NewService creates a command service. perms defaults to AlwaysGranted.
func NewService(looper *overlay.Looper, controller *overlay.Controller, perms Permissions, host *ProcessHost, logger *slog.Logger) *Service {
	if perms == nil {
		perms = AlwaysGranted{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		looper:     looper,
		controller: controller,
		perms:      perms,
		host:       host,
		log:        logger.With("component", "command"),
	}
}

// CheckOverlayPermission reports whether the overlay may be shown.
func (s *Service) CheckOverlayPermission(ctx context.Context) (bool, error) {
	return s.perms.Granted(ctx), nil
}

// RequestOverlayPermission opens the permission settings.
func (s *Service) RequestOverlayPermission(ctx context.Context) error {
	if err := s.perms.Request(ctx); err != nil {
		s.log.Warn("Permission request failed", "error", err)
		return newError(CodeActivityStartFailed, err)
	}
	return nil
}

// StartOverlay starts the overlay with a new sprite.
func (s *Service) StartOverlay(ctx context.Context, args StartArgs) error {
	return s.start(ctx, overlay.StartRequest{Size: args.SpriteSize, Speed: args.Speed, Image: args.Image, Fresh: true})
}

// ResumeOverlay starts the overlay again with the sprite of the current run,
// for instance after the platform detached it.
func (s *Service) ResumeOverlay(ctx context.Context) error {
	return s.start(ctx, overlay.StartRequest{})
}

func (s *Service) start(ctx context.Context, req overlay.StartRequest) error {
	var startErr error
	if err := s.looper.Call(ctx, func() { startErr = s.controller.Start(req) }); err != nil {
		return newError(CodeUnavailable, err)
	}
	if startErr != nil {
		return newError(CodeStartFailed, startErr)
	}
	return nil
}

// UpdateSettings changes size and speed of a running overlay. It does nothing
// when the overlay is not running.
func (s *Service) UpdateSettings(ctx context.Context, args UpdateArgs) error {
	err := s.looper.Call(ctx, func() {
		if !s.controller.IsActive() {
			s.log.Debug("Settings update dropped, overlay not running")
			return
		}
		s.controller.Update(args.Size, args.Speed)
	})
	if err != nil {
		return newError(CodeUnavailable, err)
	}
	return nil
}

// StopOverlay stops the overlay. Stopping twice is fine.
func (s *Service) StopOverlay(ctx context.Context) error {
	if err := s.looper.Call(ctx, s.controller.Stop); err != nil {
		return newError(CodeUnavailable, err)
	}
	return nil
}

// IsOverlayActive reports whether the overlay is starting or on screen.
func (s *Service) IsOverlayActive(ctx context.Context) (bool, error) {
	var active bool
	if err := s.looper.Call(ctx, func() { active = s.controller.IsActive() }); err != nil {
		return false, newError(CodeUnavailable, err)
	}
	return active, nil
}

// Status returns a snapshot of the overlay.
func (s *Service) Status(ctx context.Context) (Status, error) {
	var snap overlay.Snapshot
	var active bool
	err := s.looper.Call(ctx, func() {
		snap = s.controller.Snapshot()
		active = s.controller.IsActive()
	})
	if err != nil {
		return Status{}, newError(CodeUnavailable, err)
	}
	st := Status{
		Active:     active,
		Phase:      snap.Phase.String(),
		RunID:      snap.RunID,
		SpriteSize: snap.SpriteSize,
		Speed:      snap.BaseSpeed,
		X:          snap.Pose.Position.X,
		Y:          snap.Pose.Position.Y,
		Rotation:   snap.Pose.Rotation,
		Ticks:      snap.Ticks,
		Stats:      snap.Stats,
	}
	if s.host != nil {
		st.KeepAlive = s.host.Active()
	}
	return st, nil
}

// Dispatch routes a named call. Unknown methods return a NOT_IMPLEMENTED error.
func (s *Service) Dispatch(ctx context.Context, call Call) (any, error) {
	switch call.Method {
	case "checkOverlayPermission":
		return s.CheckOverlayPermission(ctx)
	case "requestOverlayPermission":
		return nil, s.RequestOverlayPermission(ctx)
	case "startOverlay":
		var args StartArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return nil, err
		}
		return nil, s.StartOverlay(ctx, args)
	case "resumeOverlay":
		return nil, s.ResumeOverlay(ctx)
	case "updateAntSettings", "updateSettings":
		var args UpdateArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return nil, err
		}
		return nil, s.UpdateSettings(ctx, args)
	case "stopOverlay":
		return nil, s.StopOverlay(ctx)
	case "isOverlayActive":
		return s.IsOverlayActive(ctx)
	case "getStatus":
		return s.Status(ctx)
	default:
		return nil, &Error{Code: CodeNotImplemented, Message: fmt.Sprintf("unknown method %q", call.Method)}
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newError(CodeBadArgs, err)
	}
	return nil
}

// ProcessHost records whether the overlay holds the process in the foreground.
type ProcessHost struct {
	log    *slog.Logger
	active atomic.Bool
}

// NewProcessHost creates a host reporting to logger.
func NewProcessHost(logger *slog.Logger) *ProcessHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessHost{log: logger.With("component", "host")}
}

// KeepAlive implements overlay.Host.
func (h *ProcessHost) KeepAlive(active bool) {
	if h.active.Swap(active) == active {
		return
	}
	if active {
		h.log.Info("Overlay running in foreground")
	} else {
		h.log.Info("Overlay left foreground")
	}
}

// Active reports the last keep-alive signal.
func (h *ProcessHost) Active() bool {
	return h.active.Load()
}
