package xa

import (
	"context"
	"time"
)

// LockKey is a lock entry with ownership tracking, usable by this process to manage locks.
type LockKey struct {
	// Key name of the lock as stored in the cache.
	Key string
	// LockID identifies this process as the lock owner.
	LockID UUID
	// IsLockOwner is true when this process owns the lock.
	IsLockOwner bool
}

// Cache is the coordination cache consumed by the recovery janitor to serialize
// cleanup runs across participant instances. Branch state itself is never cached;
// the resource manager's catalog stays the single source of truth.
type Cache interface {
	// Set stores a string value with the given TTL.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	// Get fetches a string value; found is false when the key does not exist.
	Get(ctx context.Context, key string) (bool, string, error)
	// GetEx fetches a string value and extends its TTL when found.
	GetEx(ctx context.Context, key string, expiration time.Duration) (bool, string, error)
	// Delete removes the given keys. Returns false when none were found.
	Delete(ctx context.Context, keys []string) (bool, error)
	// Ping checks connectivity to the cache.
	Ping(ctx context.Context) error

	// CreateLockKeys builds lock entries, applying the lock namespace prefix.
	CreateLockKeys(keys []string) []*LockKey
	// Lock attempts to acquire locks for all provided keys using the given TTL duration.
	// If any key is already locked by another owner, it returns false and that owner's UUID.
	Lock(ctx context.Context, duration time.Duration, lockKeys []*LockKey) (bool, UUID, error)
	// IsLocked reports whether all provided lock keys are currently owned by this process.
	IsLocked(ctx context.Context, lockKeys []*LockKey) (bool, error)
	// Unlock releases the provided lock keys, deleting only those owned by this process.
	Unlock(ctx context.Context, lockKeys []*LockKey) error
}

// FormatLockKey applies the lock namespace prefix to a key name.
func FormatLockKey(k string) string {
	return "X" + k
}
