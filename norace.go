//go:build !race

package seqloq

// RaceEnabled is true if the binary was built with the race detector.
const RaceEnabled = false
