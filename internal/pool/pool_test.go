package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := New(4, nil, nil)
	defer p.Shutdown()

	var mu sync.Mutex
	seen := make(map[int]bool)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		p.Submit(func() {
			defer wg.Done()
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		})
	}
	wg.Wait()

	require.Len(t, seen, 20)
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	p := New(2, nil, nil)
	defer p.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	// Give the respawned worker goroutine a moment to start before handing
	// it more work; the pool must still process tasks after the panic.
	time.Sleep(20 * time.Millisecond)

	var wg2 sync.WaitGroup
	wg2.Add(1)
	done := false
	p.Submit(func() {
		defer wg2.Done()
		done = true
	})
	wg2.Wait()

	require.True(t, done)
}
