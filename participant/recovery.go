package participant

import (
	"context"
	log "log/slog"
	"strings"
	"sync/atomic"

	"github.com/sharedcode/xa"
)

// Recovery operations borrow a transient connection and need no live session:
// prepared-branch durability lives in the resource manager, so a fresh
// Participant sharing no memory with a crashed one can enumerate & resolve
// every branch left in the Prepared state.

// ListPreparedTransactions returns every branch currently in the Prepared
// state. This is the sole recovery entry point after a process restart.
func (p Participant) ListPreparedTransactions(ctx context.Context) ([]xa.PreparedTransactionInfo, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := p.pool.Release(ctx, conn); rerr != nil {
			log.Warn("connection release failed", "error", rerr.Error())
		}
	}()

	records, err := conn.QueryRecover(ctx, p.dialect.Recover())
	if err != nil {
		return nil, xa.Error{Code: xa.BackendFailure, Err: err}
	}
	infos := make([]xa.PreparedTransactionInfo, len(records))
	for i, r := range records {
		infos[i] = p.dialect.DecodeRecovered(r)
	}
	return infos, nil
}

// FindPreparedTransaction looks up one prepared branch by its xid string.
// A nil result means the branch is absent (not prepared, already resolved, or
// never existed) & is not an error.
func (p Participant) FindPreparedTransaction(ctx context.Context, xid string) (*xa.PreparedTransactionInfo, error) {
	infos, err := p.ListPreparedTransactions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Xid == xid {
			return &infos[i], nil
		}
	}
	return nil, nil
}

// CommitByXid commits a prepared branch addressed purely by its xid string,
// with no typed session required. This is how recovery resolves branches
// discovered via ListPreparedTransactions.
func (p Participant) CommitByXid(ctx context.Context, id string) error {
	xid, err := xa.NewXid(id)
	if err != nil {
		return err
	}
	return p.execTransient(ctx, p.dialect.Commit(xid), xid)
}

// RollbackByXid rolls back a prepared branch addressed purely by its xid string.
func (p Participant) RollbackByXid(ctx context.Context, id string) error {
	xid, err := xa.NewXid(id)
	if err != nil {
		return err
	}
	return p.execTransient(ctx, p.dialect.Rollback(xid), xid)
}

func (p Participant) execTransient(ctx context.Context, stmt string, xid xa.Xid) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := p.pool.Release(ctx, conn); rerr != nil {
			log.Warn("connection release failed", "xid", xid.String(), "error", rerr.Error())
		}
	}()
	if err := conn.Exec(ctx, stmt); err != nil {
		return xa.Error{Code: xa.BackendFailure, Err: err, UserData: xid.String()}
	}
	return nil
}

// CleanupStaleTransactions rolls back every prepared branch whose xid starts
// with prefix and returns the count rolled back. Best-effort janitor for
// branches orphaned by a crash whose staleness has been judged, by policy
// external to this library, to mean safe to abort. Branches whose rollback
// fails are logged & excluded from the count.
//
// When the Participant carries a coordination cache, runs are serialized
// across instances with a TTL lock; a run that loses the lock does nothing and
// reports zero.
func (p Participant) CleanupStaleTransactions(ctx context.Context, prefix string) (int, error) {
	if p.cache != nil {
		lk := p.cache.CreateLockKeys([]string{"janitor_" + prefix})
		ok, owner, err := p.cache.Lock(ctx, p.janitorLockDuration, lk)
		if err != nil {
			return 0, err
		}
		if !ok {
			log.Debug("janitor lock held elsewhere", "prefix", prefix, "owner", owner.String())
			return 0, nil
		}
		defer func() {
			if uerr := p.cache.Unlock(ctx, lk); uerr != nil {
				log.Warn("janitor unlock failed", "prefix", prefix, "error", uerr.Error())
			}
		}()
	}

	infos, err := p.ListPreparedTransactions(ctx)
	if err != nil {
		return 0, err
	}

	var cleaned int32
	tr := xa.NewTaskRunner(ctx, p.janitorThreadCount)
	for _, info := range infos {
		if !strings.HasPrefix(info.Xid, prefix) {
			continue
		}
		xid := info.Xid
		tr.Go(func() error {
			if err := p.RollbackByXid(tr.GetContext(), xid); err != nil {
				log.Warn("stale branch rollback failed", "xid", xid, "error", err.Error())
				return nil
			}
			atomic.AddInt32(&cleaned, 1)
			return nil
		})
	}
	if err := tr.Wait(); err != nil {
		return int(atomic.LoadInt32(&cleaned)), err
	}
	return int(atomic.LoadInt32(&cleaned)), nil
}
