package redis

import (
	"context"
	"time"

	"github.com/sharedcode/xa"
)

// Lock attempts to acquire locks for all provided keys using the given TTL duration.
// If any key is already locked by another owner, it returns false and that owner's UUID.
func (c client) Lock(ctx context.Context, duration time.Duration, lockKeys []*xa.LockKey) (bool, xa.UUID, error) {
	for _, lk := range lockKeys {
		found, readItem, err := c.Get(ctx, lk.Key)
		if err != nil {
			return false, xa.NilUUID, err
		}
		if found {
			// Item found in Redis, check if not ours. Most likely, but check anyway.
			if readItem != lk.LockID.String() {
				id, _ := xa.ParseUUID(readItem)
				return false, id, nil
			}
			continue
		}

		// Item does not exist, upsert it.
		if err := c.Set(ctx, lk.Key, lk.LockID.String(), duration); err != nil {
			return false, xa.NilUUID, err
		}
		// Use a 2nd "get" to ensure we "won" the lock attempt & fail if not.
		if found, readItem2, err := c.Get(ctx, lk.Key); !found || err != nil {
			return false, xa.NilUUID, err
		} else if readItem2 != lk.LockID.String() {
			id, _ := xa.ParseUUID(readItem2)
			// Item found in Redis, lock attempt failed.
			return false, id, nil
		}
		// We got the item locked, ensure we can unlock it.
		lk.IsLockOwner = true
	}
	// Successfully locked.
	return true, xa.NilUUID, nil
}

// IsLocked reports whether all provided lock keys are currently owned by this process.
func (c client) IsLocked(ctx context.Context, lockKeys []*xa.LockKey) (bool, error) {
	r := true
	var lastErr error
	for _, lk := range lockKeys {
		found, readItem, err := c.Get(ctx, lk.Key)
		if !found || err != nil {
			lk.IsLockOwner = false
			r = false
			if err != nil {
				lastErr = err
			}
			continue
		}
		// Item found in Redis has different value, means key is locked by a different owner.
		if readItem != lk.LockID.String() {
			lk.IsLockOwner = false
			r = false
			continue
		}
		lk.IsLockOwner = true
	}
	// Is locked = true.
	return r, lastErr
}

// Unlock releases the provided lock keys, deleting only those owned by this process.
func (c client) Unlock(ctx context.Context, lockKeys []*xa.LockKey) error {
	var lastErr error
	for _, lk := range lockKeys {
		if !lk.IsLockOwner {
			continue
		}
		if _, err := c.Delete(ctx, []string{lk.Key}); err != nil {
			lastErr = err
			continue
		}
		lk.IsLockOwner = false
	}
	return lastErr
}

// CreateLockKeys creates lock keys using newly generated lock IDs for each provided key name.
func (c client) CreateLockKeys(keys []string) []*xa.LockKey {
	lockKeys := make([]*xa.LockKey, len(keys))
	for i := range keys {
		lockKeys[i] = &xa.LockKey{
			Key:    xa.FormatLockKey(keys[i]),
			LockID: xa.NewUUID(),
		}
	}
	return lockKeys
}
