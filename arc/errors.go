package arc

import "fmt"

type constError string

func (e constError) Error() string { return string(e) }

const (
	// ErrIncomparableKey is returned by the ordered variant when the key
	// comparator fails (panics) for the keys involved in an operation.
	ErrIncomparableKey = constError("incomparable key")

	// ErrIndexDegraded is returned by ordered enumeration after a key could
	// not be removed from the ordered index. Hashed lookups are unaffected.
	// Clear restores the index.
	ErrIndexDegraded = constError("ordered index degraded")
)

func incomparableKeyError(op string, k any, cause any) error {
	return fmt.Errorf("%w: %s %v: %v", ErrIncomparableKey, op, k, cause)
}

func equalKeysError(k, resident any) error {
	return fmt.Errorf("%w: insert %v: compares equal to resident key %v", ErrIncomparableKey, k, resident)
}
