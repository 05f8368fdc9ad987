package command

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync/atomic"
)

// Permissions decides whether the overlay may be drawn over other windows.
type Permissions interface {
	Granted(ctx context.Context) bool
	// Request sends the user to wherever the permission is granted. It returns
	// once the request is on its way, not when the user decides.
	Request(ctx context.Context) error
}

// AlwaysGranted is used on desktops where any window may float on top.
type AlwaysGranted struct{}

// Granted reports true.
func (AlwaysGranted) Granted(context.Context) bool { return true }

// Request does nothing.
func (AlwaysGranted) Request(context.Context) error { return nil }

// Launcher opens an external settings command and treats the permission as
// granted once that command was launched successfully.
type Launcher struct {
	Command []string

	start   func(ctx context.Context, name string, args ...string) error
	granted atomic.Bool
}

// NewLauncher creates a launcher for the given command line.
func NewLauncher(command []string) *Launcher {
	return &Launcher{Command: command, start: startProcess}
}

// Granted reports whether the settings command was opened.
func (l *Launcher) Granted(context.Context) bool {
	return l.granted.Load()
}

// Request starts the settings command without waiting for it.
func (l *Launcher) Request(ctx context.Context) error {
	if len(l.Command) == 0 {
		return errors.New("no permission settings command configured")
	}
	if err := l.start(ctx, l.Command[0], l.Command[1:]...); err != nil {
		return fmt.Errorf("failed to open permission settings: %w", err)
	}
	l.granted.Store(true)
	return nil
}

func startProcess(_ context.Context, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
