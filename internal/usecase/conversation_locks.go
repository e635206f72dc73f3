package usecase

import "sync"

// ConversationLocks serializes writers per conversation id. Different
// conversations never contend; entries are dropped when unused.
type ConversationLocks struct {
	mu    sync.Mutex
	locks map[string]*conversationLock
}

type conversationLock struct {
	mu   sync.Mutex
	refs int
}

func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{
		locks: make(map[string]*conversationLock),
	}
}

// Lock blocks until the conversation is free and returns its unlock func.
func (l *ConversationLocks) Lock(conversationID string) (unlock func()) {
	l.mu.Lock()
	lock, ok := l.locks[conversationID]
	if !ok {
		lock = &conversationLock{}
		l.locks[conversationID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()

			l.mu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(l.locks, conversationID)
			}
			l.mu.Unlock()
		})
	}
}

func (l *ConversationLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
