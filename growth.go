package vec

const (
	// MinCapacity is the smallest capacity a live vector ever holds.
	MinCapacity = 16
	// DoublingLimit is the capacity up to which growth doubles.
	DoublingLimit = 1024
	// LinearStep is the fixed increment used once capacity reaches DoublingLimit.
	LinearStep = 512
)

// growCapacity returns the first capacity reachable from capacity that can hold n elements.
// Below DoublingLimit capacity doubles, from DoublingLimit on it grows by LinearStep.
func growCapacity(capacity, n int) int {
	capacity = max(capacity, MinCapacity)
	for capacity < n && capacity < DoublingLimit {
		capacity *= 2
	}
	if capacity < n {
		// linear region, computed in one step so huge requests don't loop
		steps := (n - capacity + LinearStep - 1) / LinearStep
		capacity += steps * LinearStep
	}
	return capacity
}

// shrinkCapacity walks capacity back down the growth sequence while it still holds n elements.
func shrinkCapacity(capacity, n int) int {
	n = max(n, MinCapacity)
	for capacity > DoublingLimit && capacity-LinearStep >= n {
		capacity -= LinearStep
	}
	for capacity <= DoublingLimit && capacity/2 >= n {
		capacity /= 2
	}
	return capacity
}

// capacityFor returns the capacity a vector of length n settles on.
func capacityFor(n int) int {
	return growCapacity(MinCapacity, n)
}
