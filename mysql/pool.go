package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sharedcode/xa"
)

// Pool adapts database/sql's connection pool to xa.ConnectionPool. database/sql
// resets session state when a *sql.Conn is closed, which preserves the pool
// contract that a released connection is not XA-state-polluted for the next
// acquirer.
type Pool struct {
	db *sql.DB
	// 0 = caller's context bounds the wait.
	acquireTimeout time.Duration
}

// NewPool returns a Pool over the given Connection's database handle.
func NewPool(c *Connection) *Pool {
	return &Pool{
		db:             c.DB,
		acquireTimeout: c.AcquireTimeout,
	}
}

// Acquire checks out an exclusive connection, suspending while the pool is exhausted.
func (p *Pool) Acquire(ctx context.Context) (xa.Conn, error) {
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}
	c, err := p.db.Conn(ctx)
	if err != nil {
		return nil, xa.Error{Code: xa.PoolExhausted, Err: err}
	}
	return &conn{std: c}, nil
}

// Release returns the connection to the pool.
func (p *Pool) Release(ctx context.Context, c xa.Conn) error {
	mc, ok := c.(*conn)
	if !ok {
		return fmt.Errorf("connection was not acquired from this pool")
	}
	return mc.std.Close()
}

type conn struct {
	std *sql.Conn
}

// Exec runs a statement on this connection. XA commands are not supported in the
// prepared statement protocol, so encoded commands arrive as complete text with no args.
func (c *conn) Exec(ctx context.Context, stmt string, args ...any) error {
	_, err := c.std.ExecContext(ctx, stmt, args...)
	return err
}

// QueryRecover runs the recover command and scans its rows.
// Row shape: formatID, gtrid_length, bqual_length, data.
func (c *conn) QueryRecover(ctx context.Context, stmt string) ([]xa.XidRecord, error) {
	rows, err := c.std.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []xa.XidRecord
	for rows.Next() {
		var r xa.XidRecord
		if err := rows.Scan(&r.FormatID, &r.GtridLength, &r.BqualLength, &r.Data); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
