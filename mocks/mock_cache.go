package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/sharedcode/xa"
)

type mockCache struct {
	mu          sync.Mutex
	stringStore map[string]string
}

// NewMockCache returns an in-memory coordination cache.
func NewMockCache() xa.Cache {
	return &mockCache{
		stringStore: make(map[string]string),
	}
}

func (m *mockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stringStore[key] = value
	return nil
}

func (m *mockCache) Get(ctx context.Context, key string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.stringStore[key]
	if !ok {
		return false, "", nil
	}
	return true, v, nil
}

// GetEx ignores TTL in the mock; behaves like Get.
func (m *mockCache) GetEx(ctx context.Context, key string, expiration time.Duration) (bool, string, error) {
	return m.Get(ctx, key)
}

func (m *mockCache) Delete(ctx context.Context, keys []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deletedAny := false
	for _, k := range keys {
		if _, ok := m.stringStore[k]; ok {
			delete(m.stringStore, k)
			deletedAny = true
		}
	}
	return deletedAny, nil
}

func (m *mockCache) Ping(ctx context.Context) error { return nil }

func (m *mockCache) CreateLockKeys(keys []string) []*xa.LockKey {
	lockKeys := make([]*xa.LockKey, len(keys))
	for i, k := range keys {
		lockKeys[i] = &xa.LockKey{
			Key:    xa.FormatLockKey(k),
			LockID: xa.NewUUID(),
		}
	}
	return lockKeys
}

func (m *mockCache) Lock(ctx context.Context, duration time.Duration, lockKeys []*xa.LockKey) (bool, xa.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lk := range lockKeys {
		if v, ok := m.stringStore[lk.Key]; ok {
			if v != lk.LockID.String() {
				id, _ := xa.ParseUUID(v)
				return false, id, nil
			}
			continue
		}
		m.stringStore[lk.Key] = lk.LockID.String()
		lk.IsLockOwner = true
	}
	return true, xa.NilUUID, nil
}

func (m *mockCache) IsLocked(ctx context.Context, lockKeys []*xa.LockKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lk := range lockKeys {
		v, ok := m.stringStore[lk.Key]
		if !ok || v != lk.LockID.String() {
			lk.IsLockOwner = false
			return false, nil
		}
		lk.IsLockOwner = true
	}
	return true, nil
}

func (m *mockCache) Unlock(ctx context.Context, lockKeys []*xa.LockKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lk := range lockKeys {
		if !lk.IsLockOwner {
			continue
		}
		delete(m.stringStore, lk.Key)
		lk.IsLockOwner = false
	}
	return nil
}
