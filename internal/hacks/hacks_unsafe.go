// Package hacks holds the one runtime linkname the module needs.
package hacks

import (
	"unsafe"
)

// Memmove copies n bytes from from to to without race-detector
// instrumentation. Seqloq's optimistic reads intentionally race with
// writers and resolve the race by retrying; copying through
// runtime.memmove keeps those reads invisible to the detector.
//
// go:linkname does not work on exported names, hence the indirection.
//
//go:nosplit
func Memmove(to, from unsafe.Pointer, n uintptr) {
	memmove(to, from, n)
}

//go:linkname memmove runtime.memmove
//go:noescape
func memmove(to, from unsafe.Pointer, n uintptr)
