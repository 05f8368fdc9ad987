package telemetry

import (
	"fmt"

	"ant-crawler/internal/simulation"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the motion of one overlay run.
type Summary struct {
	Ticks       int     `json:"ticks"`
	Moves       int     `json:"moves"`
	Bounces     int     `json:"bounces"`
	Pauses      int     `json:"pauses"`
	Distance    float64 `json:"distance"`   // pixels travelled
	MeanSpeed   float64 `json:"mean_speed"` // pixels per second over the sample window
	StdDevSpeed float64 `json:"stddev_speed"`
}

// String representation for logging
func (s Summary) String() string {
	return fmt.Sprintf("ticks=%d moves=%d bounces=%d pauses=%d distance=%.1fpx speed=%.2f±%.2fpx/s",
		s.Ticks, s.Moves, s.Bounces, s.Pauses, s.Distance, s.MeanSpeed, s.StdDevSpeed)
}

// Recorder accumulates tick outcomes. Speeds are kept in a ring of the last window samples.
type Recorder struct {
	window int
	speeds []float64
	next   int
	sum    Summary
}

// NewRecorder creates a recorder averaging speed over the last window moving ticks.
func NewRecorder(window int) *Recorder {
	if window < 1 {
		window = 1
	}
	return &Recorder{window: window, speeds: make([]float64, 0, window)}
}

// Observe records one tick.
func (r *Recorder) Observe(out simulation.Outcome, effectiveSpeed float64) {
	r.sum.Ticks++
	if out.Bounced {
		r.sum.Bounces++
	}
	if out.PauseStarted {
		r.sum.Pauses++
	}
	if !out.Moved {
		return
	}
	r.sum.Moves++
	r.sum.Distance += out.Distance
	if len(r.speeds) < r.window {
		r.speeds = append(r.speeds, effectiveSpeed)
		return
	}
	r.speeds[r.next] = effectiveSpeed
	r.next = (r.next + 1) % r.window
}

// Summary returns the totals so far and the speed statistics of the current window.
func (r *Recorder) Summary() Summary {
	s := r.sum
	switch len(r.speeds) {
	case 0:
	case 1:
		s.MeanSpeed = r.speeds[0]
	default:
		s.MeanSpeed, s.StdDevSpeed = stat.MeanStdDev(r.speeds, nil)
	}
	return s
}

// Reset clears all samples.
func (r *Recorder) Reset() {
	r.speeds = r.speeds[:0]
	r.next = 0
	r.sum = Summary{}
}
