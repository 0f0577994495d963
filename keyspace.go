/*
Package redkv implements a small in-memory key-value server.

This file is the Store: the process-wide keyspace, shared by every
connection and guarded by a single mutex. Expiry is lazy: reads (Get, and
the NX/XX check inside Set) and Len remove expired keys when they meet
them; there is no background sweep. Writers never leave a stale expiration entry behind for a key they just
overwrote without a TTL clause.
*/
package redkv

import "sync"

// Store holds the keyspace's values and per-key expirations. The zero
// value is not usable directly in production; construct one with NewStore
// or reach the process-wide instance through Init/Shared.
type Store struct {
	mu          sync.Mutex
	values      map[string][]byte
	expirations map[string]int64 // absolute epoch-ms expiry
	clock       Clock
}

// NewStore constructs a Store with the given time source. Production code
// should prefer Init/Shared for the single process-wide instance; NewStore
// is for tests that want an isolated keyspace.
func NewStore(clock Clock) *Store {
	return &Store{
		values:      make(map[string][]byte),
		expirations: make(map[string]int64),
		clock:       clock,
	}
}

var (
	sharedStore     *Store
	sharedStoreOnce sync.Once
)

// Init idempotently constructs the single shared Store instance using the
// real clock. Subsequent calls are no-ops.
func Init() {
	sharedStoreOnce.Do(func() {
		sharedStore = NewStore(RealClock)
	})
}

// Shared returns the process-wide Store, initializing it on first use.
func Shared() *Store {
	Init()
	return sharedStore
}

// Get returns the value stored at key, performing lazy expiration: if the
// key has an expiration at or before the current time, it is atomically
// removed from both maps and Get reports absent.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key)
}

// getLocked is Get's body, callable while already holding s.mu (used by Set
// to honor NX/XX without a second lock acquisition).
func (s *Store) getLocked(key string) ([]byte, bool) {
	if expiry, ok := s.expirations[key]; ok && s.clock.NowMillis() >= expiry {
		delete(s.values, key)
		delete(s.expirations, key)
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Set writes key=value subject to flags.Exist, returning false without
// modifying state if the NX/XX precondition fails. On a successful write
// the TTL segment is resolved: KEEPTTL preserves any existing expiration,
// an explicit TTL kind installs a new absolute expiry, and no TTL segment
// at all clears any prior expiration for the key.
func (s *Store) Set(key string, value []byte, flags SetFlags) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.getLocked(key)
	switch flags.Exist {
	case ExistNX:
		if exists {
			return false
		}
	case ExistXX:
		if !exists {
			return false
		}
	}

	switch flags.TTL.Kind {
	case TTLKeep:
		// leave s.expirations[key] untouched
	case TTLEX:
		s.expirations[key] = s.clock.NowMillis() + int64(flags.TTL.Value)*1000
	case TTLPX:
		s.expirations[key] = s.clock.NowMillis() + int64(flags.TTL.Value)
	case TTLEXAT:
		s.expirations[key] = int64(flags.TTL.Value) * 1000
	case TTLPXAT:
		s.expirations[key] = int64(flags.TTL.Value)
	default: // TTLNone
		delete(s.expirations, key)
	}

	s.values[key] = value
	return true
}

// Len reports the number of keys currently live, i.e. present and not
// expired. It performs lazy expiration on every key as a side effect,
// exactly as Get would.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.NowMillis()
	for key, expiry := range s.expirations {
		if now >= expiry {
			delete(s.values, key)
			delete(s.expirations, key)
		}
	}
	return len(s.values)
}

// Flush atomically clears every key and expiration from the store.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string][]byte)
	s.expirations = make(map[string]int64)
}
