package testutil

import (
	"fmt"
	"sync"
)

// SequentialOpIDs generates "<prefix>-0001", "<prefix>-0002", ... and never
// runs out.
//
// Unlike engine.FixedGenerator, which panics once its list is exhausted,
// this suits scenarios whose operation count is not known up front.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialOpIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialOpIDs creates a generator. An empty prefix becomes "op".
func NewSequentialOpIDs(prefix string) *SequentialOpIDs {
	if prefix == "" {
		prefix = "op"
	}
	return &SequentialOpIDs{prefix: prefix}
}

// Generate implements engine.OpIDGenerator.
func (g *SequentialOpIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
