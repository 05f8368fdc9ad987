package visualization

import (
	"image"
	"math"

	"ant-crawler/internal/surface"

	"github.com/hajimehoshi/ebiten/v2"
	"gonum.org/v1/gonum/mat"
)

// Projector maps a sprite of the given source size onto the screen rectangle
// described by the overlay layout.
type Projector interface {
	Project(p surface.Params, src image.Point) ebiten.GeoM
}

// AffineProjector scales the sprite to the layout size and rotates it about
// the layout center. The transform is composed as homogeneous 3x3 matrices.
type AffineProjector struct{}

// NewAffineProjector creates the default projector.
func NewAffineProjector() *AffineProjector {
	return &AffineProjector{}
}

// Matrix returns the homogeneous transform for the layout.
func (AffineProjector) Matrix(p surface.Params, src image.Point) *mat.Dense {
	sx, sy := 1.0, 1.0
	if src.X > 0 {
		sx = float64(p.Width) / float64(src.X)
	}
	if src.Y > 0 {
		sy = float64(p.Height) / float64(src.Y)
	}
	hw, hh := float64(p.Width)/2, float64(p.Height)/2
	theta := p.Rotation * math.Pi / 180
	sin, cos := math.Sincos(theta)

	scale := mat.NewDense(3, 3, []float64{
		sx, 0, 0,
		0, sy, 0,
		0, 0, 1,
	})
	toOrigin := translation(-hw, -hh)
	// Screen y grows downwards so a positive angle turns clockwise.
	rotate := mat.NewDense(3, 3, []float64{
		cos, -sin, 0,
		sin, cos, 0,
		0, 0, 1,
	})
	toLayout := translation(float64(p.X)+hw, float64(p.Y)+hh)

	var m mat.Dense
	m.Mul(toOrigin, scale)
	m.Mul(rotate, &m)
	m.Mul(toLayout, &m)
	return &m
}

// Project converts Matrix into an ebiten geometry matrix.
func (a AffineProjector) Project(p surface.Params, src image.Point) ebiten.GeoM {
	m := a.Matrix(p, src)
	var g ebiten.GeoM
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			g.SetElement(i, j, m.At(i, j))
		}
	}
	return g
}

// Apply transforms a point with a homogeneous matrix.
func Apply(m mat.Matrix, x, y float64) (float64, float64) {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{x, y, 1}))
	return out.AtVec(0), out.AtVec(1)
}

func translation(dx, dy float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, dx,
		0, 1, dy,
		0, 0, 1,
	})
}
