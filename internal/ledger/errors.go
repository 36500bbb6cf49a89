package ledger

import "errors"

var (
	// ErrUnresolvedContact means no contact id could be obtained because the
	// backend was unreachable or failed. No id is ever fabricated.
	ErrUnresolvedContact = errors.New("contact could not be resolved")

	ErrContactNotFound  = errors.New("contact not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrEmptyIdentifier  = errors.New("empty identifier")
	ErrEmptyMessageID   = errors.New("empty message id")
)
