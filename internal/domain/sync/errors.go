package sync

import (
	"errors"
	"fmt"
)

// Error class sentinels. Fetch strategies and adapters wrap their failures in
// one of the typed errors below; callers branch with errors.Is against these.
var (
	// ErrConnection marks network/DNS/timeout failures. Retried at the
	// fetch-call level, never globally.
	ErrConnection = errors.New("sync: connection failed")
	// ErrAuthentication marks credential or login failures. Fatal to the
	// run and never retried.
	ErrAuthentication = errors.New("sync: authentication failed")
	// ErrParse marks a malformed upstream record. Recorded as a warning
	// and the record is skipped.
	ErrParse = errors.New("sync: parse failed")
	// ErrTransform marks a record that fetched cleanly but could not be
	// mapped into a unified product. Recorded as an error, record skipped.
	ErrTransform = errors.New("sync: transform failed")
	// ErrPersistence marks a failed write. Recorded and skipped, unless it
	// is the very first write of the run, which aborts it.
	ErrPersistence = errors.New("sync: persistence failed")
	// ErrSyncFailure marks anything escaping the taxonomy above; it aborts
	// the run and fails the session.
	ErrSyncFailure = errors.New("sync: run failed")
)

// ConnectionError wraps a transport-level failure.
func ConnectionError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrConnection, op, err)
}

// AuthenticationError wraps a login/credential failure.
func AuthenticationError(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrAuthentication, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrAuthentication, op, err)
}

// ParseError wraps a malformed-record failure.
func ParseError(record string, err error) error {
	return fmt.Errorf("%w: record %q: %v", ErrParse, record, err)
}

// TransformError wraps a record-mapping failure.
func TransformError(record string, err error) error {
	return fmt.Errorf("%w: record %q: %v", ErrTransform, record, err)
}

// PersistenceError wraps a failed write.
func PersistenceError(record string, err error) error {
	return fmt.Errorf("%w: record %q: %v", ErrPersistence, record, err)
}

// IsRetryable reports whether an error class may be retried. Only transport
// failures qualify; authentication failures in particular must never be
// retried, a locked-out account is worse than a failed run.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrAuthentication) {
		return false
	}
	return errors.Is(err, ErrConnection)
}

// IsFatal reports whether an error aborts the whole run rather than being
// recorded against one record.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConnection) ||
		errors.Is(err, ErrAuthentication) ||
		errors.Is(err, ErrSyncFailure)
}
