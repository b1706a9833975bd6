package vec

import (
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wrnlb666/vec/internal"
)

const __align = unsafe.Sizeof(uintptr(0))

// chunkBlock represents a contiguous memory block managed by the Arena.
type chunkBlock struct {
	ptr unsafe.Pointer
	len int
	cap int
	ref int64
	mem []byte
}

// arenaOptions holds configuration settings for the Arena allocator
type arenaOptions struct {
	chunkSize uintptr
	poolSize  int
	locker    sync.Locker
	memory    Memory
	logger    *zap.Logger
}

// ArenaOption defines a function type for configuring Arena parameters
type ArenaOption func(*arenaOptions)

// WithChunkSize sets the base allocation size for memory chunks.
// Larger values reduce allocation frequency but may increase waste.
// Minimum size is automatically aligned to system pointer size.
func WithChunkSize(chunkSize uintptr) ArenaOption {
	return func(o *arenaOptions) {
		o.chunkSize = chunkSize
	}
}

// WithPoolSize configures the maximum number of reusable chunks retained in the free list.
// Higher values improve reuse at the cost of increased memory retention.
func WithPoolSize(poolSize int) ArenaOption {
	return func(o *arenaOptions) {
		o.poolSize = poolSize
	}
}

// WithEnableLock enables thread-safe operation using a spinlock.
// Required when the Arena backs vectors owned by different goroutines.
func WithEnableLock(enableLock bool) ArenaOption {
	return func(o *arenaOptions) {
		if enableLock {
			o.locker = new(internal.SpinLock)
		} else {
			o.locker = nopLocker{}
		}
	}
}

// WithArenaMemory specifies where the Arena obtains its chunks.
// Allows integration with alternative memory sources (e.g., MmapMemory, MetricsMemory).
// Default: HeapMemory.
func WithArenaMemory(memory Memory) ArenaOption {
	return func(o *arenaOptions) {
		o.memory = memory
	}
}

// WithArenaLogger sets the logger for chunk lifecycle events. Default: zap.NewNop().
func WithArenaLogger(logger *zap.Logger) ArenaOption {
	return func(o *arenaOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Arena is a Memory that carves blocks out of larger chunks and recycles
// chunks once every block in them has been freed.
//
// Each block is preceded by one machine word holding the address of its
// chunk, so Free recovers the chunk by stepping back from the block.
type Arena struct {
	locker      sync.Locker
	memory      Memory
	logger      *zap.Logger
	chunkSize   uintptr
	minHoleSize uintptr
	poolSize    int
	chunkBlocks map[uintptr]*chunkBlock
	current     *chunkBlock
	freelist    []*chunkBlock
}

var _ Memory = (*Arena)(nil)

// NewArena creates a new Arena instance with customizable options.
// The first chunk is obtained on the first allocation.
func NewArena(ops ...ArenaOption) *Arena {
	var opts = arenaOptions{
		chunkSize: 1024,
		poolSize:  64,
		locker:    nopLocker{},
		memory:    HeapMemory{},
		logger:    zap.NewNop(),
	}
	for _, op := range ops {
		op(&opts)
	}

	ar := &Arena{}
	ar.locker = opts.locker
	ar.memory = opts.memory
	ar.logger = opts.logger
	ar.chunkSize = fixSize(max(512, opts.chunkSize+__align))
	ar.minHoleSize = fixSize(max(256, ar.chunkSize/5))
	ar.poolSize = opts.poolSize
	ar.chunkBlocks = make(map[uintptr]*chunkBlock, 8)
	return ar
}

// Alloc implements Memory.
func (ar *Arena) Alloc(size uintptr) ([]byte, error) {
	ptr, err := ar.Malloc(size)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

// Free implements Memory. m must come from Alloc on this Arena.
func (ar *Arena) Free(m []byte) {
	if cap(m) == 0 {
		return
	}
	ar.Release(unsafe.Pointer(unsafe.SliceData(m)))
}

// Reset returns every chunk to the underlying Memory and empties the Arena.
// Existing blocks become invalid after this operation.
func (ar *Arena) Reset() {
	ar.locker.Lock()
	defer ar.locker.Unlock()

	var released int
	for _, block := range ar.chunkBlocks {
		ar.memory.Free(block.mem)
		released++
	}
	for _, block := range ar.freelist {
		ar.memory.Free(block.mem)
		released++
	}
	if ar.current != nil {
		ar.memory.Free(ar.current.mem)
		released++
	}

	ar.chunkBlocks = make(map[uintptr]*chunkBlock)
	ar.freelist = nil
	ar.current = nil
	ar.logger.Debug("arena reset", zap.Int("chunks", released))
}

// Release frees a block previously returned by Malloc.
// The pointer must belong to this Arena.
func (ar *Arena) Release(ptr unsafe.Pointer) {
	ar.locker.Lock()
	defer ar.locker.Unlock()

	if !ar.isManaged(uintptr(ptr)) {
		panic("ptr must be managed by arena")
	}

	ptr = unsafe.Add(ptr, -int(__align)) // 后退一个指针大小
	chunkPtr := *(*uintptr)(ptr)         // 获取存储的源地址
	block := ar.current
	if block == nil || block.base() != chunkPtr {
		var ok bool
		if block, ok = ar.chunkBlocks[chunkPtr]; !ok {
			panic(fmt.Errorf("pointer not malloc from Arena: %p", ptr))
		}
	}

	// 判断是否还有引用
	if block.ref--; block.ref <= 0 {
		block.len = 0
		block.ref = 0
		if ar.current != block {
			delete(ar.chunkBlocks, chunkPtr)
			ar.recycle(block)
		}
	}
}

// Malloc allocates a memory block of the given size. Returned pointer is aligned.
// Panics if size is zero.
func (ar *Arena) Malloc(sz uintptr) (unsafe.Pointer, error) {
	if sz == 0 {
		panic("malloc size must be positive")
	}

	ar.locker.Lock()
	defer ar.locker.Unlock()

	if ar.current == nil {
		chunk, err := ar.malloc(ar.chunkSize)
		if err != nil {
			return nil, err
		}
		ar.current = chunk
	}

	// 计算可用长度
	availableBytes := uintptr(ar.current.cap - ar.current.len)
	// 计算实际需要申请的长度
	requiredBytes := fixSize(sz + __align)

	// Oversized requests get a dedicated block, and so do requests that miss
	// a current chunk whose remaining space is still worth keeping.
	if requiredBytes > ar.chunkSize || (availableBytes < requiredBytes && availableBytes >= ar.minHoleSize) {
		block, err := ar.malloc(requiredBytes)
		if err != nil {
			return nil, err
		}
		block.len = int(requiredBytes)
		block.ref = 1
		*(*uintptr)(block.ptr) = block.base()
		ar.chunkBlocks[block.base()] = block
		return unsafe.Add(block.ptr, __align), nil
	}

	if availableBytes < requiredBytes {
		// the tail of current is wasted, at most minHoleSize bytes
		chunk, err := ar.malloc(ar.chunkSize)
		if err != nil {
			return nil, err
		}
		if ar.current.ref == 0 {
			ar.recycle(ar.current)
		} else {
			ar.chunkBlocks[ar.current.base()] = ar.current
		}
		ar.current = chunk
	}

	offset := ar.current.len
	// mark alloc
	ar.current.len += int(requiredBytes)
	ar.current.ref++

	ptr := unsafe.Add(ar.current.ptr, offset)
	*(*uintptr)(ptr) = ar.current.base()
	return unsafe.Add(ptr, __align), nil
}

// malloc 内存分配
func (ar *Arena) malloc(sz uintptr) (*chunkBlock, error) {
	// 优先复用内存
	if len(ar.freelist) > 0 {
		if chunk := ar.selectChunk(sz); nil != chunk {
			return chunk, nil
		}
	}

	m, err := ar.memory.Alloc(sz)
	if err != nil {
		return nil, fmt.Errorf("%w: arena chunk of %d bytes: %w", ErrAllocationFailed, sz, err)
	}
	if uintptr(len(m)) < sz {
		return nil, fmt.Errorf("%w: arena chunk of %d bytes: got %d", ErrAllocationFailed, sz, len(m))
	}

	if ce := ar.logger.Check(zap.DebugLevel, "arena chunk allocated"); ce != nil {
		ce.Write(zap.Uintptr("size", sz), zap.Int("pooled", len(ar.freelist)))
	}

	return &chunkBlock{ptr: unsafe.Pointer(unsafe.SliceData(m)), cap: int(sz), ref: 0, mem: m}, nil
}

// recycle parks an unreferenced chunk on the free list or hands it back to memory.
func (ar *Arena) recycle(block *chunkBlock) {
	// 追加到可用列表
	if len(ar.freelist) < ar.poolSize {
		ar.freelist = append(ar.freelist, block)
		return
	}

	// 释放内存
	ar.memory.Free(block.mem)
	// 丢弃的块，清理底层数组指针
	block.cap = 0
	block.ptr = nil
	block.mem = nil
}

func (ar *Arena) selectChunk(sz uintptr) *chunkBlock {

	// 选择最佳大小的块
	// freelist 通常不会设置太大，这里直接遍历查找
	var selected *chunkBlock
	var idx = -1
	for i, block := range ar.freelist {
		if block.cap >= int(sz) && (nil == selected || block.cap < selected.cap) {
			selected = block
			idx = i
		}
	}

	// 没有选中任何可用块
	if -1 == idx || nil == selected {
		return nil
	}

	// fast-remove
	var lastIdx = len(ar.freelist) - 1
	ar.freelist[idx], ar.freelist[lastIdx] = ar.freelist[lastIdx], ar.freelist[idx]
	ar.freelist[lastIdx] = nil
	ar.freelist = ar.freelist[:lastIdx]
	return selected
}

// isManaged must be called with the lock held.
func (ar *Arena) isManaged(ptr uintptr) bool {
	if ar.current != nil && ar.current.contains(ptr) {
		return true
	}

	for _, chunk := range ar.chunkBlocks {
		if chunk.contains(ptr) {
			return true
		}
	}
	return false
}

// base is the chunk address used as map key and header word.
func (b *chunkBlock) base() uintptr {
	return uintptr(b.ptr)
}

func (b *chunkBlock) contains(ptr uintptr) bool {
	return b.base() <= ptr && ptr < b.base()+uintptr(b.cap)
}

func fixSize(sz uintptr) uintptr {
	return (sz + __align - 1) &^ (__align - 1)
}

type nopLocker struct{}

func (n nopLocker) Lock() {
}

func (n nopLocker) Unlock() {
}
