package scene

import (
	"github.com/chewxy/math32"
	"github.com/sasha-s/go-deadlock"
)

// Heightmap is a square grid of terrain heights with one sample per meter.
type Heightmap struct {
	mutex   deadlock.RWMutex
	size    int
	heights []float32
}

func NewHeightmap(size int, height float32) *Heightmap {
	if size < 1 {
		size = 1
	}

	h := &Heightmap{
		size:    size,
		heights: make([]float32, size*size),
	}
	h.Fill(height)
	return h
}

func (h *Heightmap) Size() int {
	return h.size
}

func (h *Heightmap) Fill(height float32) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for i := range h.heights {
		h.heights[i] = height
	}
}

// Set changes a single sample. Out of range coordinates are ignored.
func (h *Heightmap) Set(x, y int, height float32) {
	if x < 0 || y < 0 || x >= h.size || y >= h.size {
		return
	}

	h.mutex.Lock()
	h.heights[y*h.size+x] = height
	h.mutex.Unlock()
}

// At samples the cell containing (x, y), or 0 if the point is outside the
// grid or not finite.
func (h *Heightmap) At(x, y float32) float32 {
	if !finite(x) || !finite(y) {
		return 0
	}

	col := int(math32.Floor(x))
	row := int(math32.Floor(y))
	if col < 0 || row < 0 || col >= h.size || row >= h.size {
		return 0
	}

	h.mutex.RLock()
	height := h.heights[row*h.size+col]
	h.mutex.RUnlock()

	if !finite(height) {
		return 0
	}
	return height
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
