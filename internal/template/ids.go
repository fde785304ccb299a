package template

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces the value of ${uuid} for each new scope.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator returns random version 4 UUIDs.
type UUIDGenerator struct{}

// NewID returns a new random UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator returns predictable ids ("<prefix>-1", "<prefix>-2", ...).
type SequenceGenerator struct {
	Prefix string

	mu   sync.Mutex
	next int
}

// NewID returns the next id in the sequence.
func (g *SequenceGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.Prefix, g.next)
}
