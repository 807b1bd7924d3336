package xa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func Test_Xid_New_ValidIdentifier(t *testing.T) {
	xid, err := NewXid("tx_service_001")
	if err != nil {
		t.Fatalf("NewXid failed: %v", err)
	}
	if string(xid.Gtrid) != "tx_service_001" {
		t.Fatalf("gtrid mismatch: got %s", string(xid.Gtrid))
	}
	if len(xid.Bqual) != 0 {
		t.Fatalf("expected empty bqual, got %s", string(xid.Bqual))
	}
	if xid.FormatID != DefaultFormatID {
		t.Fatalf("formatID mismatch: got %d want %d", xid.FormatID, DefaultFormatID)
	}
	if xid.String() != "tx_service_001" {
		t.Fatalf("String mismatch: got %s", xid.String())
	}
}

func Test_Xid_New_EmptyRejected(t *testing.T) {
	_, err := NewXid("")
	if err == nil {
		t.Fatalf("expected error on empty xid")
	}
	var e Error
	if !errors.As(err, &e) || e.Code != InvalidXid {
		t.Fatalf("expected InvalidXid error, got %v", err)
	}
}

func Test_Xid_New_TooLongRejected(t *testing.T) {
	// Exactly at the limit is fine.
	atLimit := strings.Repeat("a", MaxGtridLength)
	if _, err := NewXid(atLimit); err != nil {
		t.Fatalf("xid at max length rejected: %v", err)
	}
	_, err := NewXid(atLimit + "a")
	if err == nil {
		t.Fatalf("expected error on oversized xid")
	}
	var e Error
	if !errors.As(err, &e) || e.Code != InvalidXid {
		t.Fatalf("expected InvalidXid error, got %v", err)
	}
}

func Test_Xid_NewBranch_RendersBothParts(t *testing.T) {
	xid, err := NewBranchXid("global1", "branch1")
	if err != nil {
		t.Fatalf("NewBranchXid failed: %v", err)
	}
	if xid.String() != "global1,branch1" {
		t.Fatalf("String mismatch: got %s", xid.String())
	}
}

func Test_Xid_NewBranch_OversizedBqualRejected(t *testing.T) {
	_, err := NewBranchXid("g", strings.Repeat("b", MaxBqualLength+1))
	if err == nil {
		t.Fatalf("expected error on oversized bqual")
	}
}

func Test_Xid_NewXidString_UniquePerCall(t *testing.T) {
	a := NewXidString()
	b := NewXidString()
	if a == b {
		t.Fatalf("expected unique xid strings, got %s twice", a)
	}
	if _, err := NewXid(a); err != nil {
		t.Fatalf("generated xid string rejected: %v", err)
	}
}

func Test_Error_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("backend said no")
	err := Error{Code: BackendFailure, Err: cause, UserData: "tx1"}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be discoverable via errors.Is")
	}
	if !strings.Contains(err.Error(), "backend said no") {
		t.Fatalf("expected cause in message, got %s", err.Error())
	}
}

func Test_Retry_ShouldRetry_Classification(t *testing.T) {
	if ShouldRetry(nil) {
		t.Fatalf("nil error should not retry")
	}
	if ShouldRetry(context.Canceled) || ShouldRetry(context.DeadlineExceeded) {
		t.Fatalf("context errors should not retry")
	}
	if ShouldRetry(Error{Code: ProtocolViolation, Err: fmt.Errorf("consumed")}) {
		t.Fatalf("protocol violations should not retry")
	}
	if ShouldRetry(Error{Code: InvalidXid, Err: fmt.Errorf("too long")}) {
		t.Fatalf("invalid xids should not retry")
	}
	if !ShouldRetry(Error{Code: BackendFailure, Err: fmt.Errorf("timeout")}) {
		t.Fatalf("backend failures should retry")
	}
	if !ShouldRetry(fmt.Errorf("transient")) {
		t.Fatalf("plain errors should retry")
	}
}
