package wherelib

import "github.com/juju/errors"

var (
	// ErrCircuitOpen is returned by circuit breaker guarded calls when
	// an upstream is considered as dead.
	ErrCircuitOpen = errors.New("circuit is open")

	// ErrNoEvidence means that source has nothing to say about given IP.
	ErrNoEvidence = errors.New("no evidence")

	// ErrNotIPv4 is returned for addresses range learning does not
	// support.
	ErrNotIPv4 = errors.New("address is not IPv4")

	// ErrDatabaseIsNotReadyYet is returned by local databases which
	// were not opened.
	ErrDatabaseIsNotReadyYet = errors.New("database is not ready yet")
)
