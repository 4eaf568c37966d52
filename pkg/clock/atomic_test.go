package clock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtomicClock_Advance(t *testing.T) {
	c := NewAtomic(5)

	assert.False(t, c.Advance(3))
	assert.False(t, c.Advance(5))
	assert.True(t, c.Advance(9))
	assert.Equal(t, uint64(9), c.Val())

	c.Set(1)
	assert.Equal(t, uint64(1), c.Val())
}

func TestAtomicClock_ConcurrentAdvance(t *testing.T) {
	c := NewAtomic(0)

	var wg sync.WaitGroup
	for i := 1; i <= 64; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			c.Advance(v)
		}(uint64(i))
	}
	wg.Wait()

	assert.Equal(t, uint64(64), c.Val())
}
