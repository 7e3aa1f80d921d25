package threading

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationLocks_SerializesSameKey(t *testing.T) {
	locks := newConversationLocks()

	const workers = 16
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("conv_a")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestConversationLocks_IndependentKeysDoNotBlock(t *testing.T) {
	locks := newConversationLocks()

	unlockA := locks.Lock("conv_a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("conv_b")
		unlockB()
		close(done)
	}()

	<-done
}

func TestConversationLocks_EntriesAreReleased(t *testing.T) {
	locks := newConversationLocks()

	unlock := locks.Lock("conv_a")
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
