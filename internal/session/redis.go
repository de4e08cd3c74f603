package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/threadscan/threadscan/internal/models"
)

const redisKeyPrefix = "threadscan:scan:"

// RedisStore keeps scan sessions in Redis so multiple replicas can serve
// status polls for the same scan. Sessions are stored as one JSON blob per
// scan with the TTL refreshed on every write; the scan itself runs in one
// process, so the local mutex is enough to serialize read-modify-write
// cycles.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.Mutex
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Create(ctx context.Context, query string, sitesTotal int) (string, error) {
	id := uuid.New().String()
	entry := &Session{
		ID:         id,
		Query:      query,
		CreatedAt:  time.Now(),
		SitesTotal: sitesTotal,
		Status:     StatusRunning,
	}
	if err := r.save(ctx, entry); err != nil {
		return "", err
	}
	return id, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, bool) {
	entry, err := r.load(ctx, id)
	if err != nil {
		return nil, false
	}
	return entry, true
}

func (r *RedisStore) AddResults(ctx context.Context, id string, results []models.Product) error {
	return r.update(ctx, id, func(entry *Session) {
		entry.Results = append(entry.Results, results...)
	})
}

func (r *RedisStore) AddLog(ctx context.Context, id, message string) error {
	return r.update(ctx, id, func(entry *Session) {
		entry.appendLog(message)
	})
}

func (r *RedisStore) MarkSiteDone(ctx context.Context, id, site string, siteErr error) error {
	return r.update(ctx, id, func(entry *Session) {
		entry.SitesDone++
		entry.appendLog(siteDoneMessage(site, siteErr))
	})
}

func (r *RedisStore) MarkComplete(ctx context.Context, id string) error {
	return r.update(ctx, id, func(entry *Session) {
		entry.Status = StatusComplete
		entry.appendLog("scan: complete")
	})
}

func (r *RedisStore) ExportCSV(ctx context.Context, id, dir string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.load(ctx, id)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	path, err := exportCSV(entry, dir)
	if err != nil {
		return "", err
	}
	if err := r.save(ctx, entry); err != nil {
		return "", err
	}
	return path, nil
}

func (r *RedisStore) update(ctx context.Context, id string, apply func(*Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.load(ctx, id)
	if err != nil {
		// Expired sessions drop writes silently, matching the memory store.
		if err == redis.Nil {
			return nil
		}
		return err
	}
	apply(entry)
	return r.save(ctx, entry)
}

func (r *RedisStore) load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		return nil, err
	}
	var entry Session
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &entry, nil
}

func (r *RedisStore) save(ctx context.Context, entry *Session) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+entry.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}
