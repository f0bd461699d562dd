package trust

import (
	"sync"
	"time"
)

const (
	historyCapacity = 20
	entryTTL        = 30 * time.Minute
	evictEvery      = 100
)

// SessionTrustStore records recent trust history per session key. The bundled
// MemoryStore is process-local; a shared, durable implementation can replace
// it behind this interface without touching scoring or enforcement.
type SessionTrustStore interface {
	// Record folds one score into the entry for key and returns what was
	// observed, including whether the request origin changed since last seen.
	Record(key, origin string, score int) Observation
	// Get returns a snapshot of the entry for key, or ok false.
	Get(key string) (Snapshot, bool)
	// Reset discards all entries.
	Reset()
}

// Observation is the result of recording one request.
type Observation struct {
	// OriginChanged is set when the entry existed and its recorded origin
	// differs from this request's. A possible hijack signal: it informs
	// logging and trust, it does not itself deny.
	OriginChanged  bool
	PreviousOrigin string
	RequestCount   int
}

// Snapshot is a read-only copy of one tracked entry.
type Snapshot struct {
	LastSeenAt   time.Time
	TrustHistory []int
	RequestCount int
	LastOrigin   string
}

type trackerEntry struct {
	lastSeenAt   time.Time
	history      [historyCapacity]int
	historyLen   int
	historyNext  int
	requestCount int
	lastOrigin   string
}

func (e *trackerEntry) push(score int) {
	e.history[e.historyNext] = score
	e.historyNext = (e.historyNext + 1) % historyCapacity
	if e.historyLen < historyCapacity {
		e.historyLen++
	}
}

func (e *trackerEntry) snapshotHistory() []int {
	out := make([]int, 0, e.historyLen)
	start := e.historyNext - e.historyLen
	if start < 0 {
		start += historyCapacity
	}
	for i := 0; i < e.historyLen; i++ {
		out = append(out, e.history[(start+i)%historyCapacity])
	}
	return out
}

// MemoryStore is the in-memory SessionTrustStore. Entries idle past a
// 30-minute TTL are evicted opportunistically on every 100th insertion.
// Not durable: history is lost on restart, and horizontal scaling fragments
// it per instance.
type MemoryStore struct {
	mu      sync.Mutex
	m       map[string]*trackerEntry
	inserts int
	nowF    func() time.Time
}

// NewMemoryStore returns an empty in-memory session trust store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]*trackerEntry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Record folds score into the entry for key, creating it lazily.
func (s *MemoryStore) Record(key, origin string, score int) Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowF()
	var obs Observation
	e, ok := s.m[key]
	if !ok {
		e = &trackerEntry{}
		s.m[key] = e
	} else if e.lastOrigin != "" && origin != "" && e.lastOrigin != origin {
		obs.OriginChanged = true
		obs.PreviousOrigin = e.lastOrigin
	}
	e.push(score)
	e.requestCount++
	e.lastOrigin = origin
	e.lastSeenAt = now
	obs.RequestCount = e.requestCount

	s.inserts++
	if s.inserts%evictEvery == 0 {
		s.evictIdle(now)
	}
	return obs
}

// Get returns a snapshot of the entry for key.
func (s *MemoryStore) Get(key string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		LastSeenAt:   e.lastSeenAt,
		TrustHistory: e.snapshotHistory(),
		RequestCount: e.requestCount,
		LastOrigin:   e.lastOrigin,
	}, true
}

// Reset discards all entries and the insertion counter.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[string]*trackerEntry)
	s.inserts = 0
}

func (s *MemoryStore) evictIdle(now time.Time) {
	for key, e := range s.m {
		if now.Sub(e.lastSeenAt) > entryTTL {
			delete(s.m, key)
		}
	}
}

// SessionKey resolves the tracking key for a request: identity id when
// authenticated, else the transport session id, else the network origin.
// Empty when no signal is available.
func SessionKey(identityID, sessionID, origin string) string {
	if identityID != "" {
		return identityID
	}
	if sessionID != "" {
		return sessionID
	}
	return origin
}
