// Package images caches decoded raster files for repeated drawing.
package images

import (
	"fmt"
	"os"
	"sync"
	"time"

	"drawpanel/pkg/codec"
	"drawpanel/pkg/logx"
	"drawpanel/pkg/pixel"
)

type entry struct {
	img     *pixel.Buffer
	modTime time.Time
	size    int64
}

// Cache holds decoded images keyed by path. An entry is reloaded when the
// file's modification time or size changes. Returned buffers are shared
// and must not be modified.
type Cache struct {
	mu    sync.RWMutex
	cache map[string]entry
	loads int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{cache: make(map[string]entry)}
}

// Load returns the decoded image at path.
func (c *Cache) Load(path string) (*pixel.Buffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", codec.ErrImageLoad, err)
	}

	c.mu.RLock()
	e, ok := c.cache[path]
	c.mu.RUnlock()
	if ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.img, nil
	}

	img, err := codec.Load(path)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[path] = entry{img: img, modTime: info.ModTime(), size: info.Size()}
	c.loads++
	c.mu.Unlock()
	logx.Logger().Debug("image cached", "path", path, "width", img.Width(), "height", img.Height())
	return img, nil
}

// Loads counts decodes performed, cache misses included.
func (c *Cache) Loads() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loads
}

// Dimensions returns the width and height of the image at path.
func (c *Cache) Dimensions(path string) (width, height int, err error) {
	img, err := c.Load(path)
	if err != nil {
		return 0, 0, err
	}
	return img.Width(), img.Height(), nil
}
