// Package sprite decodes the ant image supplied by the host and keeps scaled copies of it.
package sprite

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"
)

// ErrEmpty is returned for missing image bytes or an image without pixels.
var ErrEmpty = errors.New("sprite image is empty")

// Decode turns encoded image bytes into a pixel buffer.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode sprite (%d bytes): %w", len(data), err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%s sprite: %w", format, ErrEmpty)
	}
	return img, nil
}

// MaxSize is the largest edge Scale produces.
const MaxSize = 4096

// Scale resizes img to a size x size square, preserving transparency.
// size is clamped to [1, MaxSize].
func Scale(img image.Image, size int) *image.NRGBA {
	size = max(1, min(size, MaxSize))
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// Cache holds a decoded sprite and its scaled variants.
// The source image never changes; a new sprite means a new Cache.
type Cache struct {
	source image.Image

	mu     sync.Mutex
	scaled map[int]*image.NRGBA
}

// NewCache wraps a decoded sprite.
func NewCache(src image.Image) *Cache {
	return &Cache{source: src, scaled: make(map[int]*image.NRGBA)}
}

// Source returns the decoded image as supplied.
func (c *Cache) Source() image.Image {
	return c.source
}

// At returns the sprite scaled to size, computing it on first use.
// size is clamped like Scale.
func (c *Cache) At(size int) image.Image {
	size = max(1, min(size, MaxSize))
	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.scaled[size]; ok {
		return img
	}
	img := Scale(c.source, size)
	c.scaled[size] = img
	return img
}

// Release drops every scaled copy.
func (c *Cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.scaled)
}
