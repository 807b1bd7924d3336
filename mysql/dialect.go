// Package mysql adapts a MySQL-compatible resource manager to the xa interfaces:
// connection pooling over database/sql and the XA command dialect
// (XA START, XA END, XA PREPARE, XA COMMIT, XA ROLLBACK, XA RECOVER).
package mysql

import (
	"strings"

	"github.com/sharedcode/xa"
)

// Dialect encodes abstract XA operations as MySQL XA commands and decodes
// XA RECOVER rows. It is stateless & safe for concurrent use.
type Dialect struct{}

// NewDialect returns the MySQL XA command encoder.
func NewDialect() Dialect {
	return Dialect{}
}

func (Dialect) Start(xid xa.Xid) string {
	return "XA START " + quoteXid(xid)
}

func (Dialect) End(xid xa.Xid) string {
	return "XA END " + quoteXid(xid)
}

func (Dialect) Prepare(xid xa.Xid) string {
	return "XA PREPARE " + quoteXid(xid)
}

func (Dialect) Commit(xid xa.Xid) string {
	return "XA COMMIT " + quoteXid(xid)
}

func (Dialect) CommitOnePhase(xid xa.Xid) string {
	return "XA COMMIT " + quoteXid(xid) + " ONE PHASE"
}

func (Dialect) Rollback(xid xa.Xid) string {
	return "XA ROLLBACK " + quoteXid(xid)
}

func (Dialect) Recover() string {
	return "XA RECOVER"
}

// DecodeRecovered converts one XA RECOVER row; data holds the gtrid followed by the bqual.
func (Dialect) DecodeRecovered(r xa.XidRecord) xa.PreparedTransactionInfo {
	return xa.PreparedTransactionInfo{
		Xid:         string(r.Data),
		FormatID:    r.FormatID,
		GtridLength: r.GtridLength,
		BqualLength: r.BqualLength,
		Data:        r.Data,
	}
}

// quoteXid renders 'gtrid'[,'bqual'] with single quotes escaped by doubling.
func quoteXid(x xa.Xid) string {
	s := "'" + escape(string(x.Gtrid)) + "'"
	if len(x.Bqual) > 0 {
		s += ",'" + escape(string(x.Bqual)) + "'"
	}
	return s
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
