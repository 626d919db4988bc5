package emitter

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// SessionKey is the storage key the session id is kept under.
const SessionKey = "storefront_session_id"

const sessionAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// SessionStorage persists the session id for the lifetime of a browsing
// context, typically a cookie jar or a per-visitor store on the server side.
type SessionStorage interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoryStorage is a process-local SessionStorage.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok && v != ""
}

func (m *MemoryStorage) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

// NewSessionID returns sess_<unixMillis>_<9 random base-36 chars>.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("sess_%d_%s", now.UnixMilli(), randomString(9))
}

func randomString(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(sessionAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			b[i] = sessionAlphabet[i%len(sessionAlphabet)]
			continue
		}
		b[i] = sessionAlphabet[idx.Int64()]
	}
	return string(b)
}
