package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrDuplicateEvent     = errors.New("event already processed")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidPayload     = errors.New("invalid event payload")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrAffiliateInactive  = errors.New("affiliate is not active")
	ErrUnknownEventType   = errors.New("unknown event type")
)

// Permanent reports whether err is a business failure that will not succeed
// on redelivery. Permanent failures are recorded on the event and
// acknowledged; everything else rolls back so the platform retries.
func Permanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrAffiliateInactive) ||
		errors.Is(err, ErrAlreadyExists)
}
