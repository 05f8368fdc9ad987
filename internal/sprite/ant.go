package sprite

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/vector"
)

// antColor is the fill of the built-in sprite.
var antColor = color.NRGBA{R: 60, G: 30, B: 10, A: 255}

// bezier constant for approximating a quarter ellipse
const kappa = 0.5522847

// Ant rasterizes the built-in ant facing up on a size x size canvas.
func Ant(size int) *image.NRGBA {
	if size < 8 {
		size = 8
	}
	s := float32(size)
	z := vector.NewRasterizer(size, size)

	cx := s / 2
	// abdomen, thorax, head from bottom to top
	ellipse(z, cx, s*0.72, s*0.16, s*0.22)
	ellipse(z, cx, s*0.44, s*0.09, s*0.11)
	ellipse(z, cx, s*0.24, s*0.10, s*0.09)

	w := s * 0.03
	for _, side := range []float32{-1, 1} {
		// three legs per side from the thorax
		for i, angle := range []float64{-35, 5, 40} {
			y := s * (0.40 + 0.04*float32(i))
			rad := angle * math.Pi / 180
			dx := float32(math.Cos(rad)) * s * 0.3
			dy := float32(math.Sin(rad)) * s * 0.3
			line(z, cx, y, cx+side*dx, y+dy, w)
		}
		// antennae
		line(z, cx+side*s*0.03, s*0.17, cx+side*s*0.18, s*0.04, w)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	z.Draw(dst, dst.Bounds(), image.NewUniform(antColor), image.Point{})
	return dst
}

// AntPNG returns the built-in ant encoded as PNG, ready to be sent as a start image.
func AntPNG(size int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Ant(size)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ellipse(z *vector.Rasterizer, cx, cy, rx, ry float32) {
	ox, oy := rx*kappa, ry*kappa
	z.MoveTo(cx, cy-ry)
	z.CubeTo(cx+ox, cy-ry, cx+rx, cy-oy, cx+rx, cy)
	z.CubeTo(cx+rx, cy+oy, cx+ox, cy+ry, cx, cy+ry)
	z.CubeTo(cx-ox, cy+ry, cx-rx, cy+oy, cx-rx, cy)
	z.CubeTo(cx-rx, cy-oy, cx-ox, cy-ry, cx, cy-ry)
	z.ClosePath()
}

// line adds a stroke of width w as a closed quad.
func line(z *vector.Rasterizer, x0, y0, x1, y1, w float32) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	nx, ny := -dy/l*w/2, dx/l*w/2
	z.MoveTo(x0+nx, y0+ny)
	z.LineTo(x1+nx, y1+ny)
	z.LineTo(x1-nx, y1-ny)
	z.LineTo(x0-nx, y0-ny)
	z.ClosePath()
}
