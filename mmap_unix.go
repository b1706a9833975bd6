//go:build linux || darwin || freebsd

package vec

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// MmapMemory maps every block as private anonymous memory.
// Blocks are page aligned, zeroed by the kernel, and invisible to the GC.
// Free unmaps the block immediately; the zero value is ready to use.
type MmapMemory struct{}

// NewMmapMemory returns an anonymous-mapping Memory.
func NewMmapMemory() *MmapMemory {
	return &MmapMemory{}
}

// Alloc implements Memory. size must be positive.
func (m *MmapMemory) Alloc(size uintptr) ([]byte, error) {
	if size == 0 || size > math.MaxInt {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}
	b, err := unix.Mmap(
		-1, 0,
		int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return b, nil
}

// Free implements Memory, unmapping b. It panics if the kernel refuses.
func (m *MmapMemory) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	if err := unix.Munmap(b[:cap(b)]); err != nil {
		panic(err)
	}
}
