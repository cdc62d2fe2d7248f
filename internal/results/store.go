// Package results keeps rendered analysis artifacts in memory so the
// HTTP service can serve downloads after the analyze response returns.
package results

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Entry is one downloadable result.
type Entry struct {
	Filename string
	Data     []byte
}

// Store holds entries until their TTL lapses. It is the only retention
// the service has; nothing is persisted.
type Store struct {
	cache *cache.Cache
}

// NewStore builds a store whose entries expire after ttl. The janitor
// sweeps at twice that interval.
func NewStore(ttl time.Duration) *Store {
	return &Store{cache: cache.New(ttl, ttl*2)}
}

// Put stores an entry under a fresh id and returns the id.
func (s *Store) Put(e Entry) string {
	id := uuid.NewString()
	s.cache.Set(id, e, cache.DefaultExpiration)
	return id
}

// Get looks an entry up by id.
func (s *Store) Get(id string) (Entry, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}

// Len reports the stored entry count. Expired items are included until
// the janitor sweeps them.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
