package xa

import "fmt"

type ErrorCode int

const (
	Unknown ErrorCode = iota
	// PoolExhausted means a connection could not be acquired within the pool's bounds.
	PoolExhausted
	// ProtocolViolation means a command was issued against a branch that is not in the
	// expected state, either detected locally (consumed session) or reported by the backend.
	ProtocolViolation
	// InvalidXid means the supplied transaction branch identifier is malformed.
	InvalidXid
	// BackendFailure means the resource manager failed to execute a command.
	BackendFailure
)

// XA custom error.
type Error struct {
	Code     ErrorCode
	Err      error
	UserData any
}

func (e Error) Error() string {
	return fmt.Sprintf("error code: %d, user data: %v, details: %v", e.Code, e.UserData, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}
