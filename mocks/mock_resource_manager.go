// Package mocks provides in-memory fakes used by package tests: a resource
// manager honoring XA branch semantics (including the prepared-branch catalog
// that survives "process crashes", i.e. new Participant values), and a
// coordination cache.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sharedcode/xa"
)

type branchState int

const (
	// stateActive: between start & end; the only state accepting work.
	stateActive branchState = iota
	stateEnded
	statePrepared
)

// Write is one unit of caller work recorded inside a branch.
type Write struct {
	Stmt string
	Args []any
}

type branch struct {
	state  branchState
	gtrid  string
	bqual  string
	writes []Write
}

// ResourceManager is an in-memory XA backend. It implements xa.ConnectionPool;
// the conns it hands out execute the MySQL XA grammar, so pairing it with the
// mysql Dialect exercises the encoder end to end. Branch state is keyed by xid
// and shared across conns & ResourceManager users, the same way a real backend
// outlives the process that started a branch.
type ResourceManager struct {
	mu       sync.Mutex
	branches map[string]*branch
	durable  []Write
	tokens   chan struct{}
}

// NewResourceManager returns a mock backend whose pool holds capacity connections.
func NewResourceManager(capacity int) *ResourceManager {
	if capacity <= 0 {
		capacity = 8
	}
	rm := &ResourceManager{
		branches: make(map[string]*branch),
		tokens:   make(chan struct{}, capacity),
	}
	for i := 0; i < capacity; i++ {
		rm.tokens <- struct{}{}
	}
	return rm
}

// Acquire hands out a connection, suspending while the pool is exhausted.
func (rm *ResourceManager) Acquire(ctx context.Context) (xa.Conn, error) {
	select {
	case <-rm.tokens:
		return &mockConn{rm: rm}, nil
	case <-ctx.Done():
		return nil, xa.Error{Code: xa.PoolExhausted, Err: ctx.Err()}
	}
}

// Release returns the connection to the pool. The conn's branch binding is
// dropped so a released connection carries no XA state to the next acquirer.
func (rm *ResourceManager) Release(ctx context.Context, c xa.Conn) error {
	mc, ok := c.(*mockConn)
	if !ok {
		return fmt.Errorf("connection was not acquired from this pool")
	}
	mc.activeXid = ""
	rm.tokens <- struct{}{}
	return nil
}

// Committed returns a copy of the durably committed writes.
func (rm *ResourceManager) Committed() []Write {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	out := make([]Write, len(rm.durable))
	copy(out, rm.durable)
	return out
}

// CommittedCount returns how many committed writes contain substr in their statement.
func (rm *ResourceManager) CommittedCount(substr string) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	n := 0
	for _, w := range rm.durable {
		if strings.Contains(w.Stmt, substr) {
			n++
		}
	}
	return n
}

type mockConn struct {
	rm *ResourceManager
	// activeXid is the branch this conn is working inside, between start & end.
	activeXid string
}

func (c *mockConn) Exec(ctx context.Context, stmt string, args ...any) error {
	if strings.HasPrefix(stmt, "XA ") {
		return c.execXA(stmt)
	}
	return c.execWork(stmt, args)
}

// execWork records caller DML inside the conn's active branch.
func (c *mockConn) execWork(stmt string, args []any) error {
	rm := c.rm
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if c.activeXid == "" {
		return fmt.Errorf("no active transaction branch on this connection")
	}
	b, ok := rm.branches[c.activeXid]
	if !ok || b.state != stateActive {
		return fmt.Errorf("XAER_RMERR: branch %q not active", c.activeXid)
	}
	b.writes = append(b.writes, Write{Stmt: stmt, Args: args})
	return nil
}

func (c *mockConn) execXA(stmt string) error {
	verb, xid, onePhase, err := parseXACommand(stmt)
	if err != nil {
		return err
	}

	rm := c.rm
	rm.mu.Lock()
	defer rm.mu.Unlock()
	b := rm.branches[xid]

	switch verb {
	case "START":
		if b != nil {
			return fmt.Errorf("XAER_DUPID: xid %q already in use", xid)
		}
		if c.activeXid != "" {
			return fmt.Errorf("XAER_OUTSIDE: connection already inside branch %q", c.activeXid)
		}
		rm.branches[xid] = &branch{state: stateActive, gtrid: xid}
		c.activeXid = xid
		return nil
	case "END":
		if b == nil {
			return fmt.Errorf("XAER_NOTA: unknown xid %q", xid)
		}
		if b.state != stateActive || c.activeXid != xid {
			return fmt.Errorf("XAER_RMFAIL: branch %q not active on this connection", xid)
		}
		b.state = stateEnded
		return nil
	case "PREPARE":
		if b == nil {
			return fmt.Errorf("XAER_NOTA: unknown xid %q", xid)
		}
		if b.state != stateEnded {
			return fmt.Errorf("XAER_RMFAIL: branch %q not ended", xid)
		}
		b.state = statePrepared
		// Prepared branches outlive the starting connection.
		c.activeXid = ""
		return nil
	case "COMMIT":
		if b == nil {
			return fmt.Errorf("XAER_NOTA: unknown xid %q", xid)
		}
		if onePhase {
			if b.state != stateEnded || c.activeXid != xid {
				return fmt.Errorf("XAER_RMFAIL: branch %q not ended on this connection", xid)
			}
		} else if b.state != statePrepared {
			return fmt.Errorf("XAER_RMFAIL: branch %q not prepared", xid)
		}
		rm.durable = append(rm.durable, b.writes...)
		delete(rm.branches, xid)
		if c.activeXid == xid {
			c.activeXid = ""
		}
		return nil
	case "ROLLBACK":
		if b == nil {
			return fmt.Errorf("XAER_NOTA: unknown xid %q", xid)
		}
		// Lenient like the real backend: abort is accepted from any in-flight state.
		delete(rm.branches, xid)
		if c.activeXid == xid {
			c.activeXid = ""
		}
		return nil
	}
	return fmt.Errorf("unsupported XA command %q", stmt)
}

// QueryRecover lists the prepared branches as raw catalog rows.
func (c *mockConn) QueryRecover(ctx context.Context, stmt string) ([]xa.XidRecord, error) {
	if strings.TrimSpace(stmt) != "XA RECOVER" {
		return nil, fmt.Errorf("unsupported recover command %q", stmt)
	}
	rm := c.rm
	rm.mu.Lock()
	defer rm.mu.Unlock()

	xids := make([]string, 0, len(rm.branches))
	for xid, b := range rm.branches {
		if b.state == statePrepared {
			xids = append(xids, xid)
		}
	}
	sort.Strings(xids)

	records := make([]xa.XidRecord, len(xids))
	for i, xid := range xids {
		b := rm.branches[xid]
		data := []byte(b.gtrid + b.bqual)
		records[i] = xa.XidRecord{
			FormatID:    xa.DefaultFormatID,
			GtridLength: int32(len(b.gtrid)),
			BqualLength: int32(len(b.bqual)),
			Data:        data,
		}
	}
	return records, nil
}

// parseXACommand decodes the MySQL XA grammar: VERB 'gtrid'[,'bqual'] [ONE PHASE].
func parseXACommand(stmt string) (verb string, xid string, onePhase bool, err error) {
	rest := strings.TrimPrefix(stmt, "XA ")
	i := strings.IndexByte(rest, ' ')
	if i < 0 {
		return "", "", false, fmt.Errorf("malformed XA command %q", stmt)
	}
	verb = rest[:i]
	rest = strings.TrimSpace(rest[i+1:])

	gtrid, rest, err := parseQuoted(rest)
	if err != nil {
		return "", "", false, fmt.Errorf("malformed XA command %q: %w", stmt, err)
	}
	xid = gtrid
	if strings.HasPrefix(rest, ",") {
		var bqual string
		bqual, rest, err = parseQuoted(strings.TrimSpace(rest[1:]))
		if err != nil {
			return "", "", false, fmt.Errorf("malformed XA command %q: %w", stmt, err)
		}
		xid = gtrid + "," + bqual
	}
	onePhase = strings.TrimSpace(rest) == "ONE PHASE"
	return verb, xid, onePhase, nil
}

// parseQuoted consumes a leading 'quoted' token, unescaping doubled quotes.
func parseQuoted(s string) (string, string, error) {
	if len(s) == 0 || s[0] != '\'' {
		return "", "", fmt.Errorf("expected quoted identifier")
	}
	var sb strings.Builder
	i := 1
	for i < len(s) {
		if s[i] == '\'' {
			if i+1 < len(s) && s[i+1] == '\'' {
				sb.WriteByte('\'')
				i += 2
				continue
			}
			return sb.String(), s[i+1:], nil
		}
		sb.WriteByte(s[i])
		i++
	}
	return "", "", fmt.Errorf("unterminated quoted identifier")
}
