package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable identifiers: "<prefix>-0001",
// "<prefix>-0002", and so on.
//
// Use it in place of uuid.NewV7 where tests compare stored IDs.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequentialIDs creates a generator. An empty prefix means "test-id".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "test-id"
	}
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next identifier.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}
