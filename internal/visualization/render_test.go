package visualization

import (
	"image"
	"io"
	"log/slog"
	"testing"

	"ant-crawler/internal/surface"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	events []string
	sizes  [][2]int
}

func (l *recordingListener) OnAttached() { l.events = append(l.events, "attached") }
func (l *recordingListener) OnDetached() { l.events = append(l.events, "detached") }
func (l *recordingListener) OnResized(width, height int) {
	l.events = append(l.events, "resized")
	l.sizes = append(l.sizes, [2]int{width, height})
}

func newTestRenderer(closing *bool) (*Renderer, *recordingListener) {
	r := NewRenderer(nil, Options{
		Width:  800,
		Height: 600,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	r.closing = func() bool { return *closing }
	r.window = func(surface.Flags) {}
	l := &recordingListener{}
	r.SetListener(l)
	return r, l
}

func TestRendererAttachesOnNextUpdate(t *testing.T) {
	closing := false
	r, l := newTestRenderer(&closing)
	sprite := image.NewNRGBA(image.Rect(0, 0, 25, 25))

	require.NoError(t, r.Add(surface.Frame{Sprite: sprite}, surface.NewOverlayParams(25, 10, 10)))
	assert.False(t, r.Attached())
	assert.Empty(t, l.events)
	assert.ErrorIs(t, r.Add(surface.Frame{}, surface.NewOverlayParams(25, 0, 0)), surface.ErrAlreadyAdded)

	// updates before the attach are accepted
	require.NoError(t, r.Update(surface.Frame{}, surface.NewOverlayParams(25, 20, 20)))

	require.NoError(t, r.step())
	assert.True(t, r.Attached())
	assert.Equal(t, []string{"attached"}, l.events)

	require.NoError(t, r.step())
	assert.Equal(t, []string{"attached"}, l.events)
	assert.Equal(t, 20, r.params.X)
}

func TestRendererRemove(t *testing.T) {
	closing := false
	r, l := newTestRenderer(&closing)

	assert.ErrorIs(t, r.Remove(), surface.ErrNotAttached)
	assert.ErrorIs(t, r.Update(surface.Frame{}, surface.Params{}), surface.ErrNotAttached)

	require.NoError(t, r.Add(surface.Frame{}, surface.NewOverlayParams(25, 0, 0)))
	require.NoError(t, r.Remove())
	require.NoError(t, r.step())
	assert.False(t, r.Attached())
	assert.Empty(t, l.events)
}

func TestRendererWindowClose(t *testing.T) {
	closing := false
	r, l := newTestRenderer(&closing)
	require.NoError(t, r.Add(surface.Frame{}, surface.NewOverlayParams(25, 0, 0)))
	require.NoError(t, r.step())

	closing = true
	assert.ErrorIs(t, r.step(), ebiten.Termination)
	assert.False(t, r.Attached())
	assert.Equal(t, []string{"attached", "detached"}, l.events)
}

func TestRendererCloseTerminates(t *testing.T) {
	closing := false
	r, l := newTestRenderer(&closing)
	var flags []surface.Flags
	r.window = func(f surface.Flags) { flags = append(flags, f) }

	require.NoError(t, r.Add(surface.Frame{}, surface.NewOverlayParams(25, 0, 0)))
	require.NoError(t, r.step())
	assert.Equal(t, []surface.Flags{surface.OverlayFlags}, flags)

	r.Close()
	assert.ErrorIs(t, r.step(), ebiten.Termination)
	assert.Equal(t, []string{"attached", "detached"}, l.events)
}

func TestRendererLayoutReportsResize(t *testing.T) {
	closing := false
	r, l := newTestRenderer(&closing)

	w, h := r.Layout(800, 600)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	assert.Empty(t, l.events)

	r.Layout(1024, 768)
	assert.Equal(t, [][2]int{{1024, 768}}, l.sizes)
	w, h = r.Bounds()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)
}

func TestAffineProjector(t *testing.T) {
	p := NewAffineProjector()

	tests := []struct {
		name     string
		params   surface.Params
		src      image.Point
		corner   [2]float64 // source point
		expected [2]float64
	}{
		{
			name:     "scale and translate",
			params:   surface.Params{X: 100, Y: 50, Width: 20, Height: 20},
			src:      image.Pt(10, 10),
			corner:   [2]float64{10, 10},
			expected: [2]float64{120, 70},
		},
		{
			name:     "quarter turn clockwise",
			params:   surface.Params{X: 0, Y: 0, Width: 10, Height: 10, Rotation: 90},
			src:      image.Pt(10, 10),
			corner:   [2]float64{0, 0},
			expected: [2]float64{10, 0},
		},
		{
			name:     "half turn",
			params:   surface.Params{X: 0, Y: 0, Width: 10, Height: 10, Rotation: 180},
			src:      image.Pt(10, 10),
			corner:   [2]float64{0, 0},
			expected: [2]float64{10, 10},
		},
		{
			name:     "center is fixed",
			params:   surface.Params{X: 40, Y: 40, Width: 20, Height: 20, Rotation: 37},
			src:      image.Pt(100, 100),
			corner:   [2]float64{50, 50},
			expected: [2]float64{50, 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := Apply(p.Matrix(tt.params, tt.src), tt.corner[0], tt.corner[1])
			assert.InDelta(t, tt.expected[0], x, 1e-9)
			assert.InDelta(t, tt.expected[1], y, 1e-9)

			g := p.Project(tt.params, tt.src)
			gx, gy := g.Apply(tt.corner[0], tt.corner[1])
			assert.InDelta(t, tt.expected[0], gx, 1e-4)
			assert.InDelta(t, tt.expected[1], gy, 1e-4)
		})
	}
}
