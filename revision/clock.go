package revision

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CLOCK / ID GENERATOR - Injectable for deterministic tests
// =============================================================================

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// SystemClock returns wall-clock time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator issues random UUIDv4 identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// =============================================================================
// DETERMINISTIC DOUBLES - Used by tests and demo scenario seeding
// =============================================================================

// StepClock starts at a fixed instant and advances by a fixed step on every
// Now call, so consecutive events get distinct, ordered timestamps.
type StepClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{current: start, step: step}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

// SequenceIDs issues "prefix-000001", "prefix-000002", ...
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewSequenceIDs(prefix string) *SequenceIDs {
	return &SequenceIDs{prefix: prefix}
}

func (g *SequenceIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}
