package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wrnlb666/vec"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Heap vectors
	nums := vec.New[int](0, 0, vec.WithLogger(logger))
	nums.PushBack(1).PushBack(2).PushBack(3)
	fmt.Println("print nums:", nums.Data(), "cap:", nums.Cap())

	if err := nums.Insert(10, 9); err != nil {
		fmt.Println("insert rejected:", err)
	}

	// Arena vectors backed by anonymous mappings, with allocator metrics
	reg := prometheus.NewRegistry()
	allocBytes, inuseBytes, allocObjects, inuseObjects, err := vec.NewMemoryCollectors("example", reg)
	if err != nil {
		panic(err)
	}
	mem := vec.NewMetricsMemory(vec.NewMmapMemory(), allocBytes, inuseBytes, allocObjects, inuseObjects)
	ar := vec.NewArena(vec.WithArenaMemory(mem), vec.WithArenaLogger(logger))
	defer ar.Reset()

	samples := vec.New[float64](2000, 0.5, vec.WithMemory(ar))
	fmt.Println("print samples:", samples.Len(), "cap:", samples.Cap())
	samples.Assign(10, 1.5)
	fmt.Println("print samples:", samples.Data(), "cap:", samples.Cap())
	fmt.Println("inuse bytes:", mem.InuseBytes())
	samples.Free()
}
