package common

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vector is a point or direction on the screen plane, in pixels.
// X grows to the right and Y grows downwards.
type Vector = r2.Vec

// FromAngle returns the unit vector pointing at the given angle (radians).
// Headings are always rebuilt this way, never by accumulating deltas,
// so their length stays 1 whatever perturbations were applied before.
func FromAngle(angle float64) Vector {
	return Vector{X: math.Cos(angle), Y: math.Sin(angle)}
}

// Angle returns the direction of v in radians, in (-π, π].
func Angle(v Vector) float64 {
	return math.Atan2(v.Y, v.X)
}

// Rotate turns the direction of v by delta radians and returns the result as a unit vector.
func Rotate(v Vector, delta float64) Vector {
	return FromAngle(Angle(v) + delta)
}

// Advance moves p along dir by distance.
func Advance(p, dir Vector, distance float64) Vector {
	return r2.Add(p, r2.Scale(distance, dir))
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Vector) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// Length returns the magnitude of v.
func Length(v Vector) float64 {
	return r2.Norm(v)
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Format returns a compact representation of v for logging.
func Format(v Vector) string {
	return fmt.Sprintf("[%.3f, %.3f]", v.X, v.Y)
}
