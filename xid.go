package xa

import "fmt"

const (
	// MaxGtridLength is the XA specification's limit on the global transaction identifier, in bytes.
	MaxGtridLength = 64
	// MaxBqualLength is the XA specification's limit on the branch qualifier, in bytes.
	MaxBqualLength = 64
)

// DefaultFormatID identifies the default encoding scheme of the gtrid & bqual fields.
const DefaultFormatID int32 = 1

// Xid identifies one branch of a global (distributed) transaction. Gtrid is shared
// by every participant branch of the same global transaction; Bqual is unique per
// participant within it.
type Xid struct {
	FormatID int32
	Gtrid    []byte
	Bqual    []byte
}

// NewXid converts a caller-supplied identifier string into an Xid. The whole string
// becomes the gtrid with an empty branch qualifier, matching the backend's single
// quoted identifier form.
func NewXid(id string) (Xid, error) {
	if id == "" {
		return Xid{}, Error{Code: InvalidXid, Err: fmt.Errorf("xid is empty")}
	}
	if len(id) > MaxGtridLength {
		return Xid{}, Error{Code: InvalidXid, Err: fmt.Errorf("gtrid is %d bytes, max is %d", len(id), MaxGtridLength), UserData: id}
	}
	return Xid{
		FormatID: DefaultFormatID,
		Gtrid:    []byte(id),
	}, nil
}

// NewBranchXid builds an Xid with both a gtrid and a branch qualifier.
func NewBranchXid(gtrid string, bqual string) (Xid, error) {
	x, err := NewXid(gtrid)
	if err != nil {
		return Xid{}, err
	}
	if len(bqual) > MaxBqualLength {
		return Xid{}, Error{Code: InvalidXid, Err: fmt.Errorf("bqual is %d bytes, max is %d", len(bqual), MaxBqualLength), UserData: bqual}
	}
	x.Bqual = []byte(bqual)
	return x, nil
}

// NewXidString generates a unique transaction branch identifier string.
func NewXidString() string {
	return NewUUID().String()
}

// String returns the wire-level identifier: the gtrid, plus the bqual when one is set.
func (x Xid) String() string {
	if len(x.Bqual) == 0 {
		return string(x.Gtrid)
	}
	return string(x.Gtrid) + "," + string(x.Bqual)
}

// IsNil reports whether the Xid is the zero value.
func (x Xid) IsNil() bool {
	return len(x.Gtrid) == 0
}

// XidRecord is one raw row of the resource manager's recovery catalog, as reported
// by the backend's recover command. Data holds the gtrid immediately followed by
// the bqual.
type XidRecord struct {
	FormatID    int32
	GtridLength int32
	BqualLength int32
	Data        []byte
}

// PreparedTransactionInfo describes a branch found in the Prepared state. It is only
// ever produced by decoding the recovery catalog, never from in-process session state,
// so it remains obtainable after a crash destroyed all sessions.
type PreparedTransactionInfo struct {
	// Xid is the string form of the branch identifier.
	Xid string
	// FormatID, GtridLength & BqualLength mirror the raw catalog row.
	FormatID    int32
	GtridLength int32
	BqualLength int32
	// Data is the raw encoded Xid as reported by the resource manager.
	Data []byte
}
