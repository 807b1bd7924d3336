// Package participant drives a single resource manager through the XA
// two-phase commit protocol: the typed Started/Ended/Prepared session chain,
// and the session-less recovery operations over the resource manager's
// prepared-branch catalog.
package participant

import (
	"context"
	log "log/slog"
	"time"

	"github.com/sharedcode/xa"
)

// Participant is the public façade over one resource manager. It holds shared
// handles only (pool, dialect, optional coordination cache) and no
// per-transaction state; all transaction state lives in the session values the
// caller threads through the call sequence. A Participant is cheap to copy and
// copies share the same pool, so concurrent use from multiple call sites is
// safe: each call site owns its own sessions.
type Participant struct {
	pool    xa.ConnectionPool
	dialect xa.Dialect
	// cache, when set, serializes janitor runs across participant instances.
	cache xa.Cache
	// janitorLockDuration is the TTL of the janitor lock.
	janitorLockDuration time.Duration
	// janitorThreadCount bounds the janitor's rollback fan-out.
	janitorThreadCount int
}

// NewParticipant wraps shared pool & dialect handles.
func NewParticipant(pool xa.ConnectionPool, dialect xa.Dialect) Participant {
	return Participant{
		pool:               pool,
		dialect:            dialect,
		janitorThreadCount: 4,
	}
}

// NewParticipantWithCache additionally wires a coordination cache used by the
// stale-branch janitor to ensure only one instance sweeps at a time.
func NewParticipantWithCache(pool xa.ConnectionPool, dialect xa.Dialect, cache xa.Cache) Participant {
	p := NewParticipant(pool, dialect)
	p.cache = cache
	p.janitorLockDuration = 2 * time.Minute
	return p
}

// Begin starts a new transaction branch: acquires an exclusive connection from
// the pool and issues the start-branch command tagged with the encoded xid.
// On failure the connection is released back to the pool & the error surfaced;
// the resource manager itself rejects a duplicate in-flight xid.
func (p Participant) Begin(ctx context.Context, id string) (*SessionStarted, error) {
	xid, err := xa.NewXid(id)
	if err != nil {
		return nil, err
	}
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.Exec(ctx, p.dialect.Start(xid)); err != nil {
		if rerr := p.pool.Release(ctx, conn); rerr != nil {
			log.Warn("connection release failed", "xid", xid.String(), "error", rerr.Error())
		}
		return nil, xa.Error{Code: xa.BackendFailure, Err: err, UserData: xid.String()}
	}
	log.Debug("branch started", "xid", xid.String())
	return &SessionStarted{session{xid: xid, conn: conn, pool: p.pool, dialect: p.dialect}}, nil
}
