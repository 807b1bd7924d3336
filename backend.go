package xa

import "context"

// Conn is an exclusively-owned backend connection. XA state transitions for a branch
// are only valid on the connection that started the branch, which is why sessions own
// their Conn for their entire lifetime.
type Conn interface {
	// Exec runs a backend command, e.g. an encoded XA command or caller work (DML).
	Exec(ctx context.Context, stmt string, args ...any) error
	// QueryRecover runs the encoded recover command and returns the raw catalog rows.
	QueryRecover(ctx context.Context, stmt string) ([]XidRecord, error)
}

// ConnectionPool supplies & reclaims exclusive backend connections. Acquire suspends
// under exhaustion, bounded by the pool's capacity/timeout configuration. A released
// connection must not carry XA state over to the next acquirer.
type ConnectionPool interface {
	Acquire(ctx context.Context) (Conn, error)
	Release(ctx context.Context, conn Conn) error
}

// Dialect is the protocol command encoder. It translates abstract XA operations into
// backend-native command text and decodes the backend's recovery catalog rows. Only
// command semantics are part of the participant's contract; the wire syntax lives
// entirely behind this interface.
type Dialect interface {
	Start(xid Xid) string
	End(xid Xid) string
	Prepare(xid Xid) string
	Commit(xid Xid) string
	// CommitOnePhase collapses prepare+commit into one irrevocable command.
	CommitOnePhase(xid Xid) string
	Rollback(xid Xid) string
	// Recover returns the command listing all branches in the Prepared state.
	Recover() string
	// DecodeRecovered converts a raw recovery catalog row to its public form.
	DecodeRecovered(r XidRecord) PreparedTransactionInfo
}
