package errors

// Generic codes.
const (
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"
	ErrNotImplemented  = "NOT_IMPLEMENTED"
)

// Payment pipeline codes. These are stable and surface to API callers.
const (
	ErrInvalidSignature       = "INVALID_SIGNATURE"
	ErrDuplicateEvent         = "DUPLICATE_EVENT"
	ErrDependencyUnresolved   = "DEPENDENCY_UNRESOLVED"
	ErrUnknownJobType         = "UNKNOWN_JOB_TYPE"
	ErrExternalCallFailed     = "EXTERNAL_CALL_FAILED"
	ErrInvalidStateTransition = "INVALID_STATE_TRANSITION"
	ErrInsufficientFunds      = "INSUFFICIENT_FUNDS"
	ErrLedgerImbalance        = "LEDGER_IMBALANCE"
)
