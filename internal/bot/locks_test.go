package bot

import (
	"sync"
	"testing"
)

func TestChatLocksSameChatSameLock(t *testing.T) {
	locks := newChatLocks()

	if locks.get(1) != locks.get(1) {
		t.Error("same chat returned different locks")
	}
	if locks.get(1) == locks.get(2) {
		t.Error("different chats share a lock")
	}
}

// Events for one chat must apply one at a time with no interleaving.
func TestChatLocksSerializeSameChat(t *testing.T) {
	locks := newChatLocks()

	const workers = 50
	var counter int
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			lock := locks.get(7)
			lock.Lock()
			defer lock.Unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}
