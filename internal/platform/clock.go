package platform

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time. TTL, circuit-breaker, and suppression
// logic all read time through this interface so tests can drive it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator mints unique opaque identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator mints random UUID strings.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }
