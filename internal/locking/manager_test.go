package locking

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restakelabs/risk-oracle/pkg/logger"
)

func TestAcquireRelease(t *testing.T) {
	m := NewManager(logger.New(logger.Config{Level: "error"}))

	require.NoError(t, m.Acquire("job:test"))
	assert.Error(t, m.Acquire("job:test"), "second acquire must fail while held")

	m.Release("job:test")
	assert.NoError(t, m.Acquire("job:test"))
	m.Release("job:test")
}

func TestAcquire_IndependentKeys(t *testing.T) {
	m := NewManager(logger.New(logger.Config{Level: "error"}))

	require.NoError(t, m.Acquire("a"))
	assert.NoError(t, m.Acquire("b"))
	m.Release("a")
	m.Release("b")
}

func TestLock_SerializesSameKey(t *testing.T) {
	m := NewManager(logger.New(logger.Config{Level: "error"}))

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock("rebalance:alice")
			counter++
			m.Unlock("rebalance:alice")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}
