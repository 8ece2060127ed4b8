package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nexo-studio/agency-api/internal/quoteform"
	"github.com/redis/go-redis/v9"
)

const previewKeyPrefix = "quotation:preview:"

// RedisPreviewStore keeps previewed quotation forms in redis until they expire
type RedisPreviewStore struct {
	client *redis.Client
}

func NewRedisPreviewStore(client *redis.Client) *RedisPreviewStore {
	return &RedisPreviewStore{client: client}
}

func (s *RedisPreviewStore) Save(ctx context.Context, token string, snap quoteform.Snapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return s.client.Set(ctx, previewKeyPrefix+token, raw, ttl).Err()
}

// Take returns the snapshot and removes it atomically. A missing or expired token yields nil.
func (s *RedisPreviewStore) Take(ctx context.Context, token string) (*quoteform.Snapshot, error) {
	raw, err := s.client.GetDel(ctx, previewKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap quoteform.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode preview: %w", err)
	}
	return &snap, nil
}

// MemoryPreviewStore is the in-process fallback used when redis is not configured
type MemoryPreviewStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	snap    quoteform.Snapshot
	expires time.Time
}

func NewMemoryPreviewStore() *MemoryPreviewStore {
	return &MemoryPreviewStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryPreviewStore) Save(_ context.Context, token string, snap quoteform.Snapshot, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()
	s.entries[token] = memoryEntry{snap: snap, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryPreviewStore) Take(_ context.Context, token string) (*quoteform.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return nil, nil
	}
	delete(s.entries, token)
	if !s.now().Before(entry.expires) {
		return nil, nil
	}
	snap := entry.snap
	return &snap, nil
}

func (s *MemoryPreviewStore) evictExpired() {
	now := s.now()
	for token, entry := range s.entries {
		if !now.Before(entry.expires) {
			delete(s.entries, token)
		}
	}
}
