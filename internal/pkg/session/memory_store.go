// internal/pkg/session/memory_store.go
package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	xerrors "verdant-service/internal/pkg/errors"
)

const shardCount = 32

// MemoryStore is the single-process Store implementation. State is sharded
// by key so concurrent requests for different users do not contend on one
// global lock.
type MemoryStore struct {
	shards        [shardCount]*memoryShard
	refreshShards [shardCount]*refreshShard
}

type memoryShard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

type refreshShard struct {
	mu      sync.RWMutex
	records map[string]*RefreshRecord
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i] = &memoryShard{sessions: make(map[string]*Session)}
		s.refreshShards[i] = &refreshShard{records: make(map[string]*RefreshRecord)}
	}
	return s
}

func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

func (m *MemoryStore) shard(fingerprint string) *memoryShard {
	return m.shards[shardIndex(fingerprint)]
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	cp := *s
	shard := m.shard(s.Fingerprint)
	shard.mu.Lock()
	shard.sessions[s.Fingerprint] = &cp
	shard.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, fingerprint string) (*Session, error) {
	shard := m.shard(fingerprint)
	shard.mu.RLock()
	s, ok := shard.sessions[fingerprint]
	if !ok {
		shard.mu.RUnlock()
		return nil, xerrors.ErrSessionNotFound
	}
	cp := *s
	shard.mu.RUnlock()
	return &cp, nil
}

// Update mutates under the shard lock, so concurrent touches of the same
// session serialize instead of overwriting each other. fn works on a copy;
// a failed fn leaves the stored record untouched.
func (m *MemoryStore) Update(_ context.Context, fingerprint string, fn func(s *Session) error) (*Session, error) {
	shard := m.shard(fingerprint)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	s, ok := shard.sessions[fingerprint]
	if !ok {
		return nil, xerrors.ErrSessionNotFound
	}
	cp := *s
	if err := fn(&cp); err != nil {
		return nil, err
	}
	shard.sessions[fingerprint] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryStore) Delete(_ context.Context, fingerprint string) error {
	shard := m.shard(fingerprint)
	shard.mu.Lock()
	delete(shard.sessions, fingerprint)
	shard.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteAllForUser(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, shard := range m.shards {
		shard.mu.Lock()
		for fp, s := range shard.sessions {
			if s.Principal.UserID == userID {
				delete(shard.sessions, fp)
				count++
			}
		}
		shard.mu.Unlock()
	}
	return count, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID int64) ([]*Session, error) {
	var out []*Session
	for _, shard := range m.shards {
		shard.mu.RLock()
		for _, s := range shard.sessions {
			if s.Principal.UserID == userID {
				cp := *s
				out = append(out, &cp)
			}
		}
		shard.mu.RUnlock()
	}
	return out, nil
}

func (m *MemoryStore) refreshShard(tokenID string) *refreshShard {
	return m.refreshShards[shardIndex(tokenID)]
}

func (m *MemoryStore) SaveRefresh(_ context.Context, rec *RefreshRecord) error {
	cp := *rec
	shard := m.refreshShard(rec.TokenID)
	shard.mu.Lock()
	shard.records[rec.TokenID] = &cp
	shard.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetRefresh(_ context.Context, tokenID string) (*RefreshRecord, error) {
	shard := m.refreshShard(tokenID)
	shard.mu.RLock()
	rec, ok := shard.records[tokenID]
	if !ok {
		shard.mu.RUnlock()
		return nil, xerrors.ErrTokenRevoked
	}
	cp := *rec
	shard.mu.RUnlock()
	return &cp, nil
}

func (m *MemoryStore) RevokeRefresh(_ context.Context, tokenID string) error {
	shard := m.refreshShard(tokenID)
	shard.mu.Lock()
	if rec, ok := shard.records[tokenID]; ok {
		rec.Revoked = true
	}
	shard.mu.Unlock()
	return nil
}

func (m *MemoryStore) RevokeAllRefreshForUser(_ context.Context, userID int64) error {
	for _, shard := range m.refreshShards {
		shard.mu.Lock()
		for _, rec := range shard.records {
			if rec.UserID == userID {
				rec.Revoked = true
			}
		}
		shard.mu.Unlock()
	}
	return nil
}

func (m *MemoryStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	count := 0
	for _, shard := range m.shards {
		shard.mu.Lock()
		for fp, s := range shard.sessions {
			if now.After(s.ExpiresAt) {
				delete(shard.sessions, fp)
				count++
			}
		}
		shard.mu.Unlock()
	}
	for _, shard := range m.refreshShards {
		shard.mu.Lock()
		for id, rec := range shard.records {
			if now.After(rec.ExpiresAt) {
				delete(shard.records, id)
			}
		}
		shard.mu.Unlock()
	}
	return count, nil
}

func (m *MemoryStore) Close() error { return nil }
