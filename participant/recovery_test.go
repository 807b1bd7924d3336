package participant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sharedcode/xa"
	"github.com/sharedcode/xa/mocks"
	"github.com/sharedcode/xa/mysql"
)

// prepareBranch drives a branch to the Prepared state, recording one write in it.
func prepareBranch(ctx context.Context, t *testing.T, p Participant, xid string) {
	t.Helper()
	s, err := p.Begin(ctx, xid)
	if err != nil {
		t.Fatalf("Begin %s failed: %v", xid, err)
	}
	if err := s.Conn().Exec(ctx, "INSERT INTO orders VALUES ('"+xid+"')"); err != nil {
		t.Fatalf("work on %s failed: %v", xid, err)
	}
	e, err := s.End(ctx)
	if err != nil {
		t.Fatalf("End %s failed: %v", xid, err)
	}
	if _, err := e.Prepare(ctx); err != nil {
		t.Fatalf("Prepare %s failed: %v", xid, err)
	}
}

func Test_Recovery_ListContainsOnlyPrepared(t *testing.T) {
	ctx := context.Background()
	rm := mocks.NewResourceManager(8)
	p := NewParticipant(rm, mysql.NewDialect())

	// One branch per state.
	if _, err := p.Begin(ctx, "tx_started"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	s2, err := p.Begin(ctx, "tx_ended")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := s2.End(ctx); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	prepareBranch(ctx, t, p, "tx_prepared")

	infos, err := p.ListPreparedTransactions(ctx)
	if err != nil {
		t.Fatalf("ListPreparedTransactions failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("catalog size: got %d want 1: %+v", len(infos), infos)
	}
	if infos[0].Xid != "tx_prepared" {
		t.Fatalf("catalog xid: got %q want tx_prepared", infos[0].Xid)
	}
	if infos[0].FormatID != xa.DefaultFormatID {
		t.Fatalf("catalog formatID: got %d", infos[0].FormatID)
	}
	if infos[0].GtridLength != int32(len("tx_prepared")) {
		t.Fatalf("catalog gtrid length: got %d", infos[0].GtridLength)
	}
}

func Test_Recovery_FindPreparedTransaction(t *testing.T) {
	ctx := context.Background()
	rm := mocks.NewResourceManager(4)
	p := NewParticipant(rm, mysql.NewDialect())

	prepareBranch(ctx, t, p, "tx_find")

	info, err := p.FindPreparedTransaction(ctx, "tx_find")
	if err != nil {
		t.Fatalf("FindPreparedTransaction failed: %v", err)
	}
	if info == nil || info.Xid != "tx_find" {
		t.Fatalf("prepared branch not found: %+v", info)
	}

	// Absence is a nil result, not an error.
	info, err = p.FindPreparedTransaction(ctx, "tx_missing")
	if err != nil {
		t.Fatalf("FindPreparedTransaction failed: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil for absent branch, got %+v", info)
	}
}

func Test_Recovery_NewParticipantResolvesAfterCrash(t *testing.T) {
	ctx := context.Background()
	rm := mocks.NewResourceManager(8)

	// First "process": prepares a branch and then crashes, dropping every
	// session (and leaking its connection, exactly like a dead process would).
	p1 := NewParticipant(rm, mysql.NewDialect())
	prepareBranch(ctx, t, p1, "tx_crash")

	// Second "process": shares nothing with the first but the backend.
	p2 := NewParticipant(rm, mysql.NewDialect())
	info, err := p2.FindPreparedTransaction(ctx, "tx_crash")
	if err != nil {
		t.Fatalf("FindPreparedTransaction failed: %v", err)
	}
	if info == nil {
		t.Fatalf("prepared branch lost across restart")
	}
	if err := p2.CommitByXid(ctx, info.Xid); err != nil {
		t.Fatalf("CommitByXid failed: %v", err)
	}
	if n := rm.CommittedCount("tx_crash"); n != 1 {
		t.Fatalf("recovered commit not durable: got %d want 1", n)
	}
	info, err = p2.FindPreparedTransaction(ctx, "tx_crash")
	if err != nil {
		t.Fatalf("FindPreparedTransaction failed: %v", err)
	}
	if info != nil {
		t.Fatalf("resolved branch still in catalog: %+v", info)
	}
}

func Test_Recovery_RollbackByXid(t *testing.T) {
	ctx := context.Background()
	rm := mocks.NewResourceManager(4)
	p := NewParticipant(rm, mysql.NewDialect())

	prepareBranch(ctx, t, p, "tx_heuristic")
	if err := p.RollbackByXid(ctx, "tx_heuristic"); err != nil {
		t.Fatalf("RollbackByXid failed: %v", err)
	}
	if n := rm.CommittedCount("tx_heuristic"); n != 0 {
		t.Fatalf("rolled back writes became durable: %d", n)
	}
	infos, err := p.ListPreparedTransactions(ctx)
	if err != nil {
		t.Fatalf("ListPreparedTransactions failed: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("rolled back branch still in catalog: %+v", infos)
	}
}

func Test_Recovery_CommitByXid_UnknownXid(t *testing.T) {
	ctx := context.Background()
	rm := mocks.NewResourceManager(2)
	p := NewParticipant(rm, mysql.NewDialect())

	err := p.CommitByXid(ctx, "tx_nowhere")
	var e xa.Error
	if !errors.As(err, &e) || e.Code != xa.BackendFailure {
		t.Fatalf("expected BackendFailure for unknown xid, got %v", err)
	}
}

func Test_Cleanup_PrefixFilterAndCount(t *testing.T) {
	ctx := context.Background()
	rm := mocks.NewResourceManager(8)
	p := NewParticipant(rm, mysql.NewDialect())

	prepareBranch(ctx, t, p, "stale_1")
	prepareBranch(ctx, t, p, "stale_2")
	prepareBranch(ctx, t, p, "keep_1")

	n, err := p.CleanupStaleTransactions(ctx, "stale_")
	if err != nil {
		t.Fatalf("CleanupStaleTransactions failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("cleaned count: got %d want 2", n)
	}
	// Branches outside the prefix are untouched.
	info, err := p.FindPreparedTransaction(ctx, "keep_1")
	if err != nil {
		t.Fatalf("FindPreparedTransaction failed: %v", err)
	}
	if info == nil {
		t.Fatalf("janitor rolled back a branch outside the prefix")
	}
	// A second sweep finds nothing.
	n, err = p.CleanupStaleTransactions(ctx, "stale_")
	if err != nil {
		t.Fatalf("CleanupStaleTransactions failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sweep cleaned %d, want 0", n)
	}
}

func Test_Cleanup_LockHeldElsewhere_ReportsZero(t *testing.T) {
	ctx := context.Background()
	rm := mocks.NewResourceManager(8)
	cache := mocks.NewMockCache()
	p := NewParticipantWithCache(rm, mysql.NewDialect(), cache)

	prepareBranch(ctx, t, p, "stale_locked")

	// Another janitor instance holds the lock for this prefix.
	other := cache.CreateLockKeys([]string{"janitor_stale_"})
	if ok, _, err := cache.Lock(ctx, time.Minute, other); err != nil || !ok {
		t.Fatalf("pre-lock failed: ok=%v err=%v", ok, err)
	}

	n, err := p.CleanupStaleTransactions(ctx, "stale_")
	if err != nil {
		t.Fatalf("CleanupStaleTransactions failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("sweep ran while lock held elsewhere: cleaned %d", n)
	}
	info, err := p.FindPreparedTransaction(ctx, "stale_locked")
	if err != nil {
		t.Fatalf("FindPreparedTransaction failed: %v", err)
	}
	if info == nil {
		t.Fatalf("branch rolled back while lock held elsewhere")
	}

	// Lock released: the sweep proceeds.
	if err := cache.Unlock(ctx, other); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	n, err = p.CleanupStaleTransactions(ctx, "stale_")
	if err != nil {
		t.Fatalf("CleanupStaleTransactions failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("cleaned count after release: got %d want 1", n)
	}
}
