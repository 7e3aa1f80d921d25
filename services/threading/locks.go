package threading

import "sync"

// conversationLocks serializes ingestion and mutation per conversation
// within this process. The database row lock covers cross-process
// writers; this keeps the resolve-then-write window race free between
// goroutines sharing the service.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{
		locks: make(map[string]*entry),
	}
}

// Lock blocks until the key is held and returns the unlock func.
// Entries are reference counted so the map does not grow with every
// conversation ever touched.
func (l *conversationLocks) Lock(key string) func() {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
