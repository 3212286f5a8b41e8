package clock

import (
	"sync/atomic"
	"time"

	"github.com/trebuchet-org/govlock/internal/domain/config"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// SystemClock reads the wall clock in unix seconds
type SystemClock struct{}

// NewSystemClock creates a new system clock
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// FixedClock returns a settable logical time. The CLI uses it for --at so
// a whole session can be replayed against a chosen timestamp.
type FixedClock struct {
	at atomic.Uint64
}

// NewFixedClock creates a clock frozen at t
func NewFixedClock(t uint64) *FixedClock {
	c := &FixedClock{}
	c.at.Store(t)
	return c
}

func (c *FixedClock) Now() uint64 {
	return c.at.Load()
}

// Set moves the clock to t.
func (c *FixedClock) Set(t uint64) {
	c.at.Store(t)
}

// Advance moves the clock forward by d seconds.
func (c *FixedClock) Advance(d uint64) uint64 {
	return c.at.Add(d)
}

// ProvideClock picks the fixed clock when the runtime config pins a time
func ProvideClock(cfg *config.RuntimeConfig) usecase.Clock {
	if cfg.At > 0 {
		return NewFixedClock(cfg.At)
	}
	return NewSystemClock()
}

var (
	_ usecase.Clock = (*SystemClock)(nil)
	_ usecase.Clock = (*FixedClock)(nil)
)
