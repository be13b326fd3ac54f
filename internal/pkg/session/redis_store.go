// internal/pkg/session/redis_store.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "verdant-service/internal/pkg/errors"
)

// RedisStore is the distributed Store implementation for multi-instance
// deployments. Sessions live under session:<fingerprint> with a TTL matched
// to their expiry; a per-user set indexes fingerprints for the cap check and
// bulk termination.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) sessionKey(fingerprint string) string {
	return "session:" + fingerprint
}

func (r *RedisStore) userKey(userID int64) string {
	return "session:user:" + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) refreshKey(tokenID string) string {
	return "refresh:" + tokenID
}

func (r *RedisStore) refreshUserKey(userID int64) string {
	return "refresh:user:" + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(s.Fingerprint), data, ttl)
	pipe.SAdd(ctx, r.userKey(s.Principal.UserID), s.Fingerprint)
	pipe.Expire(ctx, r.userKey(s.Principal.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, fingerprint string) (*Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(fingerprint)).Bytes()
	if err == redis.Nil {
		return nil, xerrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// Update applies fn under WATCH/MULTI so concurrent touches of the same
// session serialize; a conflicting write aborts the transaction and the
// read-modify-write retries.
func (r *RedisStore) Update(ctx context.Context, fingerprint string, fn func(s *Session) error) (*Session, error) {
	key := r.sessionKey(fingerprint)
	var updated *Session

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return xerrors.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read session from redis: %w", err)
		}

		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		if err := fn(&s); err != nil {
			return err
		}

		out, err := json.Marshal(&s)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		ttl := time.Until(s.ExpiresAt)
		if ttl <= 0 {
			return xerrors.ErrSessionNotFound
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, ttl)
			return nil
		}); err != nil {
			return err
		}
		updated = &s
		return nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := r.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("session update kept conflicting for %s", fingerprint)
}

func (r *RedisStore) Delete(ctx context.Context, fingerprint string) error {
	s, err := r.Get(ctx, fingerprint)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(fingerprint))
	pipe.SRem(ctx, r.userKey(s.Principal.UserID), fingerprint)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) DeleteAllForUser(ctx context.Context, userID int64) (int, error) {
	fingerprints, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list user sessions: %w", err)
	}

	count := 0
	for _, fp := range fingerprints {
		deleted, err := r.client.Del(ctx, r.sessionKey(fp)).Result()
		if err != nil {
			return count, err
		}
		count += int(deleted)
	}
	if err := r.client.Del(ctx, r.userKey(userID)).Err(); err != nil {
		return count, err
	}
	return count, nil
}

func (r *RedisStore) ListByUser(ctx context.Context, userID int64) ([]*Session, error) {
	fingerprints, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}

	var sessions []*Session
	for _, fp := range fingerprints {
		s, err := r.Get(ctx, fp)
		if err != nil {
			if xerrors.Is(err, xerrors.ErrSessionNotFound) {
				// Session key expired; drop the stale index entry.
				r.client.SRem(ctx, r.userKey(userID), fp)
				continue
			}
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (r *RedisStore) SaveRefresh(ctx context.Context, rec *RefreshRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh record: %w", err)
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refresh token already expired")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.refreshKey(rec.TokenID), data, ttl)
	pipe.SAdd(ctx, r.refreshUserKey(rec.UserID), rec.TokenID)
	pipe.Expire(ctx, r.refreshUserKey(rec.UserID), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetRefresh(ctx context.Context, tokenID string) (*RefreshRecord, error) {
	data, err := r.client.Get(ctx, r.refreshKey(tokenID)).Bytes()
	if err == redis.Nil {
		return nil, xerrors.ErrTokenRevoked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh record: %w", err)
	}

	var rec RefreshRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal refresh record: %w", err)
	}
	return &rec, nil
}

func (r *RedisStore) RevokeRefresh(ctx context.Context, tokenID string) error {
	rec, err := r.GetRefresh(ctx, tokenID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrTokenRevoked) {
			return nil
		}
		return err
	}
	rec.Revoked = true

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.refreshKey(tokenID), data, ttl).Err()
}

func (r *RedisStore) RevokeAllRefreshForUser(ctx context.Context, userID int64) error {
	tokenIDs, err := r.client.SMembers(ctx, r.refreshUserKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	for _, id := range tokenIDs {
		if err := r.RevokeRefresh(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SweepExpired prunes stale per-user index entries. Redis TTLs already
// remove the session payloads themselves.
func (r *RedisStore) SweepExpired(ctx context.Context, _ time.Time) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, "session:user:*", 0).Iterator()
	for iter.Next(ctx) {
		userKey := iter.Val()
		fingerprints, err := r.client.SMembers(ctx, userKey).Result()
		if err != nil {
			continue
		}
		for _, fp := range fingerprints {
			exists, err := r.client.Exists(ctx, r.sessionKey(fp)).Result()
			if err == nil && exists == 0 {
				r.client.SRem(ctx, userKey, fp)
				count++
			}
		}
	}
	return count, iter.Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
