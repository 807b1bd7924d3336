package participant

import (
	"context"
	"fmt"
	log "log/slog"

	"github.com/sharedcode/xa"
)

// session carries the bits shared by every state: the branch identifier, the
// exclusively-owned connection, and the handles needed to issue commands &
// return the connection. Go has no move semantics, so consumption is emulated:
// every transition marks its receiver done and any further call on it fails
// fast instead of reaching the backend.
type session struct {
	xid     xa.Xid
	conn    xa.Conn
	pool    xa.ConnectionPool
	dialect xa.Dialect
	done    bool
}

// guard fails when the session was already consumed by a prior transition.
func (s *session) guard() error {
	if s.done {
		return xa.Error{
			Code:     xa.ProtocolViolation,
			Err:      fmt.Errorf("session was already consumed"),
			UserData: s.xid.String(),
		}
	}
	return nil
}

// finish consumes the session and returns its connection to the pool. Called
// exactly once per session chain: on a terminal command or on a failed
// transition. The release happens regardless of the command's outcome so a
// failed commit/rollback never leaks a connection.
func (s *session) finish(ctx context.Context) {
	s.done = true
	if err := s.pool.Release(ctx, s.conn); err != nil {
		log.Warn("connection release failed", "xid", s.xid.String(), "error", err.Error())
	}
}

// transition issues stmt on the owned connection. On failure the session is
// consumed & its connection freed; the branch's backend-side state is then
// whatever the backend reports, discoverable via the recovery catalog.
func (s *session) transition(ctx context.Context, stmt string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.conn.Exec(ctx, stmt); err != nil {
		s.finish(ctx)
		return xa.Error{Code: xa.BackendFailure, Err: err, UserData: s.xid.String()}
	}
	return nil
}

// terminal issues stmt and consumes the session whatever the outcome.
func (s *session) terminal(ctx context.Context, stmt string) error {
	if err := s.guard(); err != nil {
		return err
	}
	err := s.conn.Exec(ctx, stmt)
	s.finish(ctx)
	if err != nil {
		return xa.Error{Code: xa.BackendFailure, Err: err, UserData: s.xid.String()}
	}
	return nil
}

// SessionStarted is a transaction branch in the Started state. The caller
// performs its transactional work on Conn(), then calls End, or aborts with
// Rollback.
type SessionStarted struct {
	session
}

// Xid returns the branch identifier.
func (s *SessionStarted) Xid() xa.Xid { return s.xid }

// Conn exposes the exclusively-owned connection for the caller's work between
// begin & end. The connection must not be used once the session is consumed.
func (s *SessionStarted) Conn() xa.Conn { return s.conn }

// End issues the end-branch command, consuming this session and returning the
// Ended session holding the same connection.
func (s *SessionStarted) End(ctx context.Context) (*SessionEnded, error) {
	if err := s.transition(ctx, s.dialect.End(s.xid)); err != nil {
		return nil, err
	}
	s.done = true
	log.Debug("branch ended", "xid", s.xid.String())
	return &SessionEnded{session{xid: s.xid, conn: s.conn, pool: s.pool, dialect: s.dialect}}, nil
}

// Rollback aborts the branch from the Started state. Terminal.
func (s *SessionStarted) Rollback(ctx context.Context) error {
	return s.terminal(ctx, s.dialect.Rollback(s.xid))
}

// SessionEnded is a branch in the Ended state: work is complete and the branch
// can either Prepare for two-phase commit or CommitOnePhase when this
// participant is the sole participant of the global transaction.
type SessionEnded struct {
	session
}

// Xid returns the branch identifier.
func (s *SessionEnded) Xid() xa.Xid { return s.xid }

// Prepare makes the branch durable in the resource manager, consuming this
// session. From here the branch is equally reachable via the recovery catalog;
// the returned Prepared session is just a convenience handle.
func (s *SessionEnded) Prepare(ctx context.Context) (*SessionPrepared, error) {
	if err := s.transition(ctx, s.dialect.Prepare(s.xid)); err != nil {
		return nil, err
	}
	s.done = true
	log.Debug("branch prepared", "xid", s.xid.String())
	return &SessionPrepared{session{xid: s.xid, conn: s.conn, pool: s.pool, dialect: s.dialect}}, nil
}

// CommitOnePhase collapses prepare+commit into one irrevocable command.
// Only valid when the caller knows this is the sole participant of the global
// transaction: there is no prepared window and no recovery hook. Terminal.
func (s *SessionEnded) CommitOnePhase(ctx context.Context) error {
	return s.terminal(ctx, s.dialect.CommitOnePhase(s.xid))
}

// SessionPrepared is a branch durably prepared and awaiting the coordinator's
// decision: Commit or Rollback.
type SessionPrepared struct {
	session
}

// Xid returns the branch identifier.
func (s *SessionPrepared) Xid() xa.Xid { return s.xid }

// Commit finishes the two-phase commit affirmatively. Terminal.
func (s *SessionPrepared) Commit(ctx context.Context) error {
	return s.terminal(ctx, s.dialect.Commit(s.xid))
}

// Rollback aborts the prepared branch. Terminal.
func (s *SessionPrepared) Rollback(ctx context.Context) error {
	return s.terminal(ctx, s.dialect.Rollback(s.xid))
}
