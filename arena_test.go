package vec

import (
	"errors"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingMemory struct{}

var errNoMemory = errors.New("no memory")

func (failingMemory) Alloc(uintptr) ([]byte, error) { return nil, errNoMemory }
func (failingMemory) Free([]byte)                   {}

func TestArenaMalloc(t *testing.T) {
	ar := NewArena()
	ptr, err := ar.Malloc(8)
	require.NoError(t, err)
	ar.Release(ptr)

	ptr, err = ar.Malloc(128)
	require.NoError(t, err)
	ar.Release(ptr)

	ptr1, err := ar.Malloc(80)
	require.NoError(t, err)
	ptr2, err := ar.Malloc(60)
	require.NoError(t, err)
	assert.NotEqual(t, ptr1, ptr2)
	ar.Release(ptr1)
	ar.Release(ptr2)

	size := []uintptr{16, 32, 64, 128, 256, 512, 1024, 2048, 4098, 9012, 10240}

	for i := 0; i < 10000; i++ {
		ptr, err := ar.Malloc(size[i%len(size)])
		require.NoError(t, err)
		ar.Release(ptr)
	}
}

func TestArenaAlignment(t *testing.T) {
	ar := NewArena()
	defer ar.Reset()

	for _, sz := range []uintptr{1, 3, 7, 9, 100, 2000} {
		b, err := ar.Alloc(sz)
		require.NoError(t, err)
		assert.Len(t, b, int(sz))
		assert.Zero(t, uintptr(unsafe.Pointer(unsafe.SliceData(b)))%__align)
	}
}

func TestArenaChunkHeader(t *testing.T) {
	ar := NewArena()
	defer ar.Reset()

	b, err := ar.Alloc(64)
	require.NoError(t, err)

	// the word before the block records the chunk it was carved from
	header := *(*uintptr)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(b)), -int(__align)))
	assert.Equal(t, ar.current.base(), header)

	// dedicated blocks start right after the header at the base of their own chunk
	big, err := ar.Alloc(4096)
	require.NoError(t, err)
	start := unsafe.Add(unsafe.Pointer(unsafe.SliceData(big)), -int(__align))
	chunk, ok := ar.chunkBlocks[*(*uintptr)(start)]
	require.True(t, ok)
	assert.Equal(t, chunk.ptr, start)

	ar.Free(big)
	ar.Free(b)
	assert.Empty(t, ar.chunkBlocks)
	assert.Zero(t, ar.current.ref)
}

func TestArenaRecycle(t *testing.T) {
	ar := NewArena(WithChunkSize(1024), WithPoolSize(4))
	defer ar.Reset()

	// oversized blocks get a dedicated chunk which returns to the free list
	big, err := ar.Alloc(4096)
	require.NoError(t, err)
	assert.Len(t, ar.chunkBlocks, 1)

	ar.Free(big)
	assert.Empty(t, ar.chunkBlocks)
	assert.Len(t, ar.freelist, 1)

	again, err := ar.Alloc(4000)
	require.NoError(t, err)
	assert.Empty(t, ar.freelist)
	assert.Equal(t, unsafe.SliceData(big), unsafe.SliceData(again))
	ar.Free(again)
}

func TestArenaForeignPointer(t *testing.T) {
	ar := NewArena()
	defer ar.Reset()

	_, err := ar.Alloc(8)
	require.NoError(t, err)

	foreign := make([]byte, 16)
	assert.Panics(t, func() { ar.Free(foreign[8:]) })
	assert.Panics(t, func() { ar.Malloc(0) })
}

func TestArenaAllocationFailure(t *testing.T) {
	ar := NewArena(WithArenaMemory(failingMemory{}))
	_, err := ar.Alloc(8)
	assert.ErrorIs(t, err, ErrAllocationFailed)
	assert.ErrorIs(t, err, errNoMemory)
}

func TestArenaReset(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := NewMetricsMemory(HeapMemory{}, nil, nil, nil, nil)
	ar := NewArena(WithArenaMemory(metrics), WithArenaLogger(zap.New(core)))

	_, err := ar.Alloc(100)
	require.NoError(t, err)
	_, err = ar.Alloc(5000)
	require.NoError(t, err)
	assert.Equal(t, int64(2), metrics.InuseObjects())
	assert.Equal(t, 2, logs.FilterMessage("arena chunk allocated").Len())

	ar.Reset()
	assert.Equal(t, int64(0), metrics.InuseObjects())
	assert.Equal(t, int64(0), metrics.InuseBytes())
	assert.Equal(t, 1, logs.FilterMessage("arena reset").Len())

	// usable again after reset
	b, err := ar.Alloc(100)
	require.NoError(t, err)
	ar.Free(b)
}

func TestArenaConcurrent(t *testing.T) {
	ar := NewArena(WithEnableLock(true))
	defer ar.Reset()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			vec := New[int64](0, 0, WithMemory(ar))
			for i := 0; i < 2000; i++ {
				vec.PushBack(int64(g*10000 + i))
			}
			for i := 0; i < 2000; i++ {
				if vec.At(i) != int64(g*10000+i) {
					t.Errorf("goroutine %d: slot %d = %d", g, i, vec.At(i))
					return
				}
			}
			vec.Free()
		}(g)
	}
	wg.Wait()
}

func TestArenaVector(t *testing.T) {
	ar := NewArena(WithChunkSize(4096))
	defer ar.Reset()

	vec := New[point](0, point{}, WithMemory(ar))
	for i := int32(0); i < 3000; i++ {
		vec.PushBack(point{i, -i})
	}
	assert.Equal(t, 3072, vec.Cap())
	for i := int32(0); i < 3000; i++ {
		assert.Equal(t, point{i, -i}, vec.At(int(i)))
	}

	require.NoError(t, vec.InsertRange(10, vec.Data()[:20]...))
	assert.Equal(t, point{0, 0}, vec.At(10))
	assert.Equal(t, point{10, -10}, vec.At(30))

	vec.Clear()
	assert.Equal(t, 16, vec.Cap())
	vec.Free()
}

func TestArenaRejectsPointerTypes(t *testing.T) {
	ar := NewArena()
	defer ar.Reset()

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	}()
	New[player](0, player{}, WithMemory(ar))
}

func TestVectorAllocationFailure(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrAllocationFailed)
		assert.ErrorIs(t, err, errNoMemory)

		var ae *AllocError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, uintptr(16*8), ae.Size)
	}()
	New[int64](0, 0, WithMemory(failingMemory{}))
}

func BenchmarkArenaMallocFree(b *testing.B) {
	ar := NewArena()

	size := []uintptr{16, 32, 64, 128, 256, 512, 1024, 2048, 4098, 9012, 10240}

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ptr, err := ar.Malloc(size[i%len(size)])
		if err != nil {
			b.Fatal(err)
		}
		ar.Release(ptr)
	}
}

func BenchmarkArenaVector_PushBack(b *testing.B) {
	ar := NewArena(WithChunkSize(64 * 1024))
	defer ar.Reset()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		vec := New[int](0, 0, WithMemory(ar))
		for j := 0; j < 4096; j++ {
			vec.PushBack(j)
		}
		vec.Free()
	}
}
