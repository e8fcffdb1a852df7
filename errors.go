package seqloq

import "errors"

var (
	ErrInconsistent    = errors.New("seqloq: reader observed a torn payload")
	ErrNoInconsistency = errors.New("seqloq: expected inconsistency was never observed")
	ErrAborted         = errors.New("seqloq: harness goroutine aborted")
)
