//go:build !(linux || darwin || freebsd)

package vec

import (
	"fmt"
	"math"
)

// MmapMemory falls back to heap blocks where anonymous mappings are unavailable.
type MmapMemory struct{}

// NewMmapMemory returns a heap-backed stand-in on this platform.
func NewMmapMemory() *MmapMemory {
	return &MmapMemory{}
}

// Alloc implements Memory. size must be positive.
func (m *MmapMemory) Alloc(size uintptr) ([]byte, error) {
	if size == 0 || size > math.MaxInt {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}
	return make([]byte, size), nil
}

// Free implements Memory.
func (m *MmapMemory) Free([]byte) {}
