package chat

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator produces correlation ids for pending messages: a per-process
// instance prefix followed by a ULID drawn from monotonic entropy, so ids
// minted in the same millisecond still differ and sort in send order.
type IDGenerator struct {
	mu       sync.Mutex
	instance string
	entropy  *ulid.MonotonicEntropy
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		instance: strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *IDGenerator) Instance() string {
	return g.instance
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	g.mu.Unlock()
	if err != nil {
		// Monotonic entropy overflowed within one millisecond.
		id = ulid.Make()
	}
	return g.instance + "-" + id.String()
}
