// Package vec provides Vector, a contiguous growable array whose capacity
// follows a fixed growth policy: it doubles from MinCapacity up to
// DoublingLimit, then grows by LinearStep, and walks back down the same
// sequence when the length drops. Capacity therefore depends only on the
// length, never on the history that produced it (Reserve aside).
//
// Storage comes from the Go heap by default, or from any Memory (Arena,
// MmapMemory, MetricsMemory) for element types that hold no pointers.
package vec

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"unsafe"

	"go.uber.org/zap"
)

// maxLength keeps the linear growth arithmetic clear of int overflow.
const maxLength = math.MaxInt - LinearStep

// Vector is a contiguous, resizable sequence of T.
//
// Mutating methods may relocate the storage: slices from Data and pointers
// from Front, Back are only valid until the next mutation.
// A Vector is not safe for concurrent use.
type Vector[T any] struct {
	memory    Memory
	logger    *zap.Logger
	equatable func(a, b T) bool
	store     storage[T]
	length    int
}

// New creates a vector of length elements, each set to fill.
// Capacity is the smallest growth step holding length, never below MinCapacity.
func New[T any](length int, fill T, ops ...Option) *Vector[T] {
	checkLength(length)

	opts := newOptions(ops)
	if opts.memory != nil {
		if t := reflect.TypeOf((*T)(nil)).Elem(); hasPointers(t) {
			panic(&TypeError{Type: t})
		}
	}

	v := &Vector[T]{
		memory:    opts.memory,
		logger:    opts.logger,
		equatable: defaultEqual[T],
	}
	v.store = v.alloc(capacityFor(length))
	v.length = length
	fillSlice(v.store.elems[:length], fill)
	return v
}

// Equatable sets a custom equality comparison function used by Index and LastIndex.
func (v *Vector[T]) Equatable(equatable func(a, b T) bool) *Vector[T] {
	v.equatable = equatable
	return v
}

// Len returns the current number of elements in the vector.
func (v *Vector[T]) Len() int {
	v.live()
	return v.length
}

// Cap returns the current capacity of the vector.
func (v *Vector[T]) Cap() int {
	v.live()
	return len(v.store.elems)
}

// At retrieves the element at the specified index.
func (v *Vector[T]) At(index int) T {
	v.live()
	return v.store.elems[:v.length][index]
}

// Set overwrites the element at the specified index.
func (v *Vector[T]) Set(index int, value T) {
	v.live()
	v.store.elems[:v.length][index] = value
}

// Data returns the live elements as a slice sharing the vector's storage.
func (v *Vector[T]) Data() []T {
	v.live()
	return v.store.elems[:v.length:v.length]
}

// Front returns the first element, or nil if the vector is empty.
func (v *Vector[T]) Front() *T {
	v.live()
	if v.length == 0 {
		return nil
	}
	return &v.store.elems[0]
}

// Back returns the last element, or nil if the vector is empty.
func (v *Vector[T]) Back() *T {
	v.live()
	if v.length == 0 {
		return nil
	}
	return &v.store.elems[v.length-1]
}

// Resize changes the length to n.
//
// Growing fills the new slots [Len, n) with fill. Shrinking keeps the
// surviving elements as they are and never writes fill.
func (v *Vector[T]) Resize(n int, fill T) *Vector[T] {
	v.live()
	checkLength(n)

	old := v.length
	v.reshape(n)
	if n > old {
		fillSlice(v.store.elems[old:n], fill)
	}
	return v
}

// Assign replaces the contents with count copies of value.
// Unlike Resize, every element in [0, count) is overwritten.
func (v *Vector[T]) Assign(count int, value T) *Vector[T] {
	v.live()
	checkLength(count)

	v.reshape(count)
	fillSlice(v.store.elems[:count], value)
	return v
}

// Clear removes all elements and drops capacity back to MinCapacity.
// The storage is always replaced by a fresh zeroed block.
func (v *Vector[T]) Clear() *Vector[T] {
	v.live()
	v.relocate(MinCapacity, 0)
	v.length = 0
	return v
}

// ShrinkToFit settles capacity on the growth step for the current length.
func (v *Vector[T]) ShrinkToFit() *Vector[T] {
	v.live()
	v.reshape(v.length)
	return v
}

// Reserve ensures capacity for at least n elements without changing the length.
// Requests the current capacity already covers are ignored, so Reserve never
// shrinks. The headroom lasts until the next operation that changes the length.
func (v *Vector[T]) Reserve(n int) *Vector[T] {
	v.live()
	if n <= len(v.store.elems) {
		return v
	}
	v.relocate(v.targetCapacity(n), v.length)
	return v
}

// Insert places value at pos, shifting [pos, Len) one slot right.
// A pos outside [0, Len] yields a *BoundsError and leaves the vector untouched.
func (v *Vector[T]) Insert(pos int, value T) error {
	v.live()
	if pos < 0 || pos > v.length {
		return v.boundsError("insert", pos)
	}

	old := v.length
	v.reshape(old + 1)
	elems := v.store.elems
	copy(elems[pos+1:old+1], elems[pos:old])
	elems[pos] = value
	return nil
}

// InsertRange splices values in at pos, shifting [pos, Len) right by len(values).
// values may alias the vector's own storage.
func (v *Vector[T]) InsertRange(pos int, values ...T) error {
	v.live()
	if pos < 0 || pos > v.length {
		return v.boundsError("insert range", pos)
	}
	if len(values) == 0 {
		return nil
	}
	if len(values) > maxLength-v.length {
		panic(&AllocError{Size: math.MaxUint, cause: fmt.Errorf("length %d + %d exceeds limit", v.length, len(values))})
	}

	// relocation would release the block values points into, and the shift would clobber it
	if overlaps(v.store.elems, values) {
		values = slices.Clone(values)
	}

	old, k := v.length, len(values)
	v.reshape(old + k)
	elems := v.store.elems
	copy(elems[pos+k:old+k], elems[pos:old])
	copy(elems[pos:pos+k], values)
	return nil
}

// PushBack adds value at the end of the vector.
func (v *Vector[T]) PushBack(value T) *Vector[T] {
	v.live()
	// inserting at the current length cannot be out of bounds
	_ = v.Insert(v.length, value)
	return v
}

// Append adds values at the end of the vector.
func (v *Vector[T]) Append(values ...T) *Vector[T] {
	v.live()
	_ = v.InsertRange(v.length, values...)
	return v
}

// PopBack removes the last element and shrinks capacity to fit.
// It returns ErrEmptyContainer if there is nothing to remove.
func (v *Vector[T]) PopBack() error {
	v.live()
	if v.length == 0 {
		v.logger.Warn("pop from empty vector", zap.Error(ErrEmptyContainer))
		return ErrEmptyContainer
	}
	v.reshape(v.length - 1)
	return nil
}

// RemoveAt removes the element at pos, shifting the tail one slot left,
// and shrinks capacity the way PopBack does.
func (v *Vector[T]) RemoveAt(pos int) error {
	v.live()
	if pos < 0 || pos >= v.length {
		return v.boundsError("remove", pos)
	}

	elems := v.store.elems
	copy(elems[pos:v.length-1], elems[pos+1:v.length])
	v.reshape(v.length - 1)
	return nil
}

// Index finds the first occurrence of an element.
// Index of first match, or -1 if not found
func (v *Vector[T]) Index(value T) int {
	v.live()
	for i := 0; i < v.length; i++ {
		if v.equatable(v.store.elems[i], value) {
			return i
		}
	}
	return -1
}

// LastIndex finds the last occurrence of an element.
// Index of last match, or -1 if not found
func (v *Vector[T]) LastIndex(value T) int {
	v.live()
	for i := v.length - 1; i >= 0; i-- {
		if v.equatable(v.store.elems[i], value) {
			return i
		}
	}
	return -1
}

// Free hands the storage back to its Memory. Any later call on v panics with ErrInvalidVector.
func (v *Vector[T]) Free() {
	v.live()
	v.store.release(v.memory)
	v.store = storage[T]{}
	v.length = 0
}

func (v *Vector[T]) live() {
	if v == nil || v.store.elems == nil {
		panic(ErrInvalidVector)
	}
}

// targetCapacity is the capacity a vector currently at Cap settles on for length n.
func (v *Vector[T]) targetCapacity(n int) int {
	if n > maxLength {
		panic(&AllocError{Size: math.MaxUint, cause: fmt.Errorf("length %d exceeds limit", n)})
	}
	capacity := len(v.store.elems)
	if n > capacity {
		return growCapacity(capacity, n)
	}
	return shrinkCapacity(capacity, n)
}

// reshape sets the length to n, moving capacity along the growth sequence.
// Elements in [0, min(Len, n)) are kept; slots past n are zeroed.
func (v *Vector[T]) reshape(n int) {
	if capacity := v.targetCapacity(n); capacity != len(v.store.elems) {
		v.relocate(capacity, min(v.length, n))
	} else if n < v.length {
		clear(v.store.elems[n:v.length])
	}
	v.length = n
}

// relocate moves the first keep elements into a fresh block of capacity elements.
func (v *Vector[T]) relocate(capacity, keep int) {
	old := v.store
	next := v.alloc(capacity)
	copy(next.elems, old.elems[:keep])
	old.release(v.memory)
	v.store = next

	if ce := v.logger.Check(zap.DebugLevel, "vector relocated"); ce != nil {
		ce.Write(
			zap.Int("from", len(old.elems)),
			zap.Int("to", capacity),
			zap.Int("kept", keep),
		)
	}
}

func (v *Vector[T]) alloc(capacity int) storage[T] {
	s, err := allocStorage[T](v.memory, capacity)
	if err != nil {
		v.logger.Error("vector allocation failed", zap.Int("capacity", capacity), zap.Error(err))
		panic(err)
	}
	return s
}

func (v *Vector[T]) boundsError(op string, pos int) error {
	err := &BoundsError{Op: op, Position: pos, Length: v.length}
	v.logger.Warn("vector position out of bounds", zap.Error(err))
	return err
}

func checkLength(n int) {
	if n < 0 {
		panic(fmt.Sprintf("vec: negative length %d", n))
	}
	if n > maxLength {
		panic(&AllocError{Size: math.MaxUint, cause: fmt.Errorf("length %d exceeds limit", n)})
	}
}

func fillSlice[T any](s []T, value T) {
	for i := range s {
		s[i] = value
	}
}

// overlaps reports whether b points into the backing array of a.
func overlaps[T any](a, b []T) bool {
	size := Sizeof[T]()
	if size == 0 || cap(a) == 0 || len(b) == 0 {
		return false
	}
	aStart := uintptr(unsafe.Pointer(unsafe.SliceData(a)))
	aEnd := aStart + uintptr(cap(a))*size
	bStart := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	bEnd := bStart + uintptr(len(b))*size
	return bStart < aEnd && aStart < bEnd
}

func defaultEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}
