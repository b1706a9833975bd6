package vec

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"
)

// Memory is a source of raw byte blocks for vector storage.
// Alloc must return a block of exactly size bytes aligned to at least the
// platform word; Free receives the same slice Alloc returned.
type Memory interface {
	Alloc(size uintptr) ([]byte, error)
	Free(m []byte)
}

// HeapMemory hands out plain Go byte slices. Free is a no-op, the GC reclaims blocks.
type HeapMemory struct{}

// Alloc implements Memory.
func (HeapMemory) Alloc(size uintptr) ([]byte, error) {
	if size > math.MaxInt {
		return nil, fmt.Errorf("heap: %d bytes exceeds addressable size", size)
	}
	return make([]byte, size), nil
}

// Free implements Memory.
func (HeapMemory) Free([]byte) {}

// Sizeof returns the in-memory size of T.
func Sizeof[T any]() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}

// storage is one backing block of a vector: the typed elements plus, when the
// block came from a Memory, the raw bytes that must be handed back to it.
type storage[T any] struct {
	elems []T
	raw   []byte
}

// allocStorage returns zeroed storage for n elements.
func allocStorage[T any](mem Memory, n int) (storage[T], error) {
	size := Sizeof[T]()
	if size != 0 && uintptr(n) > math.MaxInt/size {
		return storage[T]{}, &AllocError{Size: math.MaxUint, cause: fmt.Errorf("%d elements of %d bytes overflow", n, size)}
	}

	// zero sized elements and the default configuration stay on the typed heap
	if mem == nil || size == 0 {
		return storage[T]{elems: make([]T, n)}, nil
	}

	bytes := size * uintptr(n)
	raw, err := mem.Alloc(bytes)
	if err != nil {
		return storage[T]{}, &AllocError{Size: bytes, cause: err}
	}
	if uintptr(len(raw)) < bytes {
		mem.Free(raw)
		return storage[T]{}, &AllocError{Size: bytes, cause: fmt.Errorf("short block: got %d bytes", len(raw))}
	}

	ptr := unsafe.Pointer(unsafe.SliceData(raw))
	if uintptr(ptr)%alignof[T]() != 0 {
		mem.Free(raw)
		return storage[T]{}, &AllocError{Size: bytes, cause: fmt.Errorf("block %p not aligned for %d", ptr, alignof[T]())}
	}

	elems := unsafe.Slice((*T)(ptr), n)
	// pooled memory may come back dirty
	clear(elems)
	return storage[T]{elems: elems, raw: raw}, nil
}

func (s storage[T]) release(mem Memory) {
	if s.raw != nil && mem != nil {
		mem.Free(s.raw)
	}
}

func alignof[T any]() uintptr {
	var zero T
	return unsafe.Alignof(zero)
}

// hasPointers reports whether values of t carry references the GC must see.
// Such values cannot live in memory the GC does not scan.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// Ptr, Slice, String, Map, Chan, Func, Interface, UnsafePointer
		return true
	}
}
