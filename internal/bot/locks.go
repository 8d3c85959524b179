package bot

import "sync"

// chatLocks serializes event processing per chat: events for one chat are
// applied one at a time, events for distinct chats proceed in parallel.
type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newChatLocks() *chatLocks {
	return &chatLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *chatLocks) get(chatID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[chatID] = lock
	}
	return lock
}
