package geost

import "errors"

var (
	// ErrInvalidInterval reports a time interval whose start is after its end.
	// This is a caller bug, never a transient condition.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrUnsupportedPredicate reports a predicate leaf no strategy classifier
	// recognizes. Hitting it indicates a planner defect, not a user error.
	ErrUnsupportedPredicate = errors.New("unsupported predicate")

	// ErrSchemaMismatch reports that a store already holds a schema whose
	// layout differs from the one supplied at open.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrClosed reports an operation against a closed store.
	ErrClosed = errors.New("store closed")
)
