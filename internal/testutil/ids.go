package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SequentialIDSource generates a deterministic sequence of valid UUIDv4
// values for tests and golden scenarios.
//
// The same scenario with the same source produces byte-identical event
// logs. The generated IDs carry the RFC 4122 version and variant bits, so
// they pass UUIDv4 validation, but the remaining bits count up from 1.
//
// Thread-safety: Next is safe for concurrent use via internal mutex.
type SequentialIDSource struct {
	mu  sync.Mutex
	seq uint32
}

// NewSequentialIDSource creates a source whose first Next() returns the
// UUID ending in ...000000000001.
func NewSequentialIDSource() *SequentialIDSource {
	return &SequentialIDSource{}
}

// Next returns the next UUID in the sequence.
func (s *SequentialIDSource) Next() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := uuid.MustParse(fmt.Sprintf("00000000-0000-4000-8000-%012x", s.seq))
	return id
}
