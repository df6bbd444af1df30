package providers

import "github.com/juju/errors"

var (
	// ErrAuthTokenIsRequired is returned if you are trying to initialize
	// a vendor which requires some token to work.
	ErrAuthTokenIsRequired = errors.New("auth token is required")

	// ErrUnknownVendor is returned if there is no vendor with such name.
	ErrUnknownVendor = errors.New("unknown vendor")
)
