package vec

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsMemory wraps a Memory and reports its traffic to prometheus.
// Any of the collectors may be nil.
type MetricsMemory struct {
	upstream Memory

	allocateBytesCounter   prometheus.Counter
	inuseBytesGauge        prometheus.Gauge
	allocateObjectsCounter prometheus.Counter
	inuseObjectsGauge      prometheus.Gauge

	inuseBytes   atomic.Int64
	inuseObjects atomic.Int64
}

var _ Memory = new(MetricsMemory)

// NewMetricsMemory wraps upstream, HeapMemory when nil, reporting to the given collectors.
func NewMetricsMemory(
	upstream Memory,
	allocateBytesCounter prometheus.Counter,
	inuseBytesGauge prometheus.Gauge,
	allocateObjectsCounter prometheus.Counter,
	inuseObjectsGauge prometheus.Gauge,
) *MetricsMemory {
	if upstream == nil {
		upstream = HeapMemory{}
	}
	return &MetricsMemory{
		upstream:               upstream,
		allocateBytesCounter:   allocateBytesCounter,
		inuseBytesGauge:        inuseBytesGauge,
		allocateObjectsCounter: allocateObjectsCounter,
		inuseObjectsGauge:      inuseObjectsGauge,
	}
}

// NewMemoryCollectors builds the four collectors under namespace and registers them with reg.
func NewMemoryCollectors(namespace string, reg prometheus.Registerer) (
	allocateBytes prometheus.Counter,
	inuseBytes prometheus.Gauge,
	allocateObjects prometheus.Counter,
	inuseObjects prometheus.Gauge,
	err error,
) {
	allocateBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "memory",
		Name:      "allocate_bytes_total",
		Help:      "Bytes handed out for vector storage.",
	})
	inuseBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "memory",
		Name:      "inuse_bytes",
		Help:      "Bytes currently held by vector storage.",
	})
	allocateObjects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "memory",
		Name:      "allocate_objects_total",
		Help:      "Blocks handed out for vector storage.",
	})
	inuseObjects = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "memory",
		Name:      "inuse_objects",
		Help:      "Blocks currently held by vector storage.",
	})

	if reg != nil {
		for _, c := range []prometheus.Collector{allocateBytes, inuseBytes, allocateObjects, inuseObjects} {
			if err = reg.Register(c); err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}
	return
}

// Alloc implements Memory.
func (m *MetricsMemory) Alloc(size uintptr) ([]byte, error) {
	b, err := m.upstream.Alloc(size)
	if err != nil {
		return nil, err
	}

	m.inuseBytes.Add(int64(len(b)))
	m.inuseObjects.Add(1)
	if m.allocateBytesCounter != nil {
		m.allocateBytesCounter.Add(float64(len(b)))
	}
	if m.allocateObjectsCounter != nil {
		m.allocateObjectsCounter.Inc()
	}
	m.publish()
	return b, nil
}

// Free implements Memory.
func (m *MetricsMemory) Free(b []byte) {
	m.upstream.Free(b)
	m.inuseBytes.Add(-int64(len(b)))
	m.inuseObjects.Add(-1)
	m.publish()
}

// InuseBytes returns the bytes currently allocated and not yet freed.
func (m *MetricsMemory) InuseBytes() int64 {
	return m.inuseBytes.Load()
}

// InuseObjects returns the number of live blocks.
func (m *MetricsMemory) InuseObjects() int64 {
	return m.inuseObjects.Load()
}

func (m *MetricsMemory) publish() {
	if m.inuseBytesGauge != nil {
		m.inuseBytesGauge.Set(float64(m.inuseBytes.Load()))
	}
	if m.inuseObjectsGauge != nil {
		m.inuseObjectsGauge.Set(float64(m.inuseObjects.Load()))
	}
}
