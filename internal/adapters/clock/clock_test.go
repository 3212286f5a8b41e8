package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trebuchet-org/govlock/internal/domain/config"
)

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(100)
	assert.Equal(t, uint64(100), c.Now())

	assert.Equal(t, uint64(150), c.Advance(50))
	c.Set(10)
	assert.Equal(t, uint64(10), c.Now())
}

func TestProvideClock(t *testing.T) {
	t.Run("pinned time", func(t *testing.T) {
		c := ProvideClock(&config.RuntimeConfig{At: 42})
		assert.Equal(t, uint64(42), c.Now())
	})

	t.Run("wall clock", func(t *testing.T) {
		c := ProvideClock(&config.RuntimeConfig{})
		assert.InDelta(t, time.Now().Unix(), int64(c.Now()), 2)
	})
}
