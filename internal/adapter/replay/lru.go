package replay

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU remembers claimed challenge signatures for ttl. When more than size
// challenges are live at once the oldest claims are forgotten first, so size
// should exceed the expected number of solutions per ttl.
type LRU struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, time.Time]
	now   func() time.Time
}

func NewLRU(size int, ttl time.Duration) *LRU {
	return &LRU{
		cache: expirable.NewLRU[string, time.Time](size, nil, ttl),
		now:   time.Now,
	}
}

// Claim records key until the given time and reports whether it was free.
func (l *LRU) Claim(key string, until time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if exp, ok := l.cache.Get(key); ok && !l.now().After(exp) {
		return false
	}
	l.cache.Add(key, until)
	return true
}

func (l *LRU) Len() int { return l.cache.Len() }
