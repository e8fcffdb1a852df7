package seqloq

import "time"

// TestArrayLen is the number of elements in a TestArray.
const TestArrayLen = 4

// TestArray is the payload the contention harness stresses locks with.
// Writers keep all elements equal; a reader that sees unequal elements has
// observed a torn state.
type TestArray [TestArrayLen]uint64

// Check reads the first element and compares the remaining elements to it,
// sleeping delay before each comparison to widen the race window. It
// returns the number of mismatched elements; 0 means the array was
// observed in a consistent state.
func (a *TestArray) Check(delay time.Duration) int {
	v := a[0]
	mismatches := 0
	for i := 1; i < len(a); i++ {
		time.Sleep(delay)
		if a[i] != v {
			mismatches++
		}
	}
	return mismatches
}

// Frob increments every element in order, sleeping delay after each store.
// Between the first and last store the array is in a torn state.
func (a *TestArray) Frob(delay time.Duration) {
	for i := range a {
		a[i]++
		time.Sleep(delay)
	}
}
