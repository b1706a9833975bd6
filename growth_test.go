package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrowCapacity(t *testing.T) {
	cases := []struct {
		capacity, n, want int
	}{
		{0, 0, 16},
		{16, 1, 16},
		{16, 16, 16},
		{16, 17, 32},
		{16, 1000, 1024},
		{16, 1024, 1024},
		{16, 1025, 1536},
		{16, 2000, 2048},
		{1024, 1025, 1536},
		{1536, 1537, 2048},
		{2048, 10000, 10240},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, growCapacity(c.capacity, c.n), "grow(%d, %d)", c.capacity, c.n)
	}
}

func TestShrinkCapacity(t *testing.T) {
	cases := []struct {
		capacity, n, want int
	}{
		{16, 0, 16},
		{32, 16, 16},
		{32, 17, 32},
		{1024, 3, 16},
		{1024, 600, 1024},
		{1536, 1024, 1024},
		{1536, 1025, 1536},
		{2048, 1100, 1536},
		{4096, 700, 1024},
		{10240, 100, 128},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, shrinkCapacity(c.capacity, c.n), "shrink(%d, %d)", c.capacity, c.n)
	}
}

func TestCapacityFor(t *testing.T) {
	prev := 0
	for n := 0; n <= 6000; n++ {
		c := capacityFor(n)
		assert.GreaterOrEqual(t, c, max(n, MinCapacity))
		assert.GreaterOrEqual(t, c, prev)

		// growing and shrinking land on the same step from any other step
		for _, from := range []int{16, 512, 1024, 1536, 8192} {
			var got int
			if n > from {
				got = growCapacity(from, n)
			} else {
				got = shrinkCapacity(from, n)
			}
			if got != c {
				t.Fatalf("length %d from capacity %d: got %d, want %d", n, from, got, c)
			}
		}
		prev = c
	}
}
