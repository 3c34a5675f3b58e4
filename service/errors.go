package service

import (
	"errors"
)

// Error kinds wrapped by service errors so callers can branch on the class
// of failure without parsing messages. Commands detect these before any
// mutation happens; a failed command never partially applies.
var (
	// ErrValidation marks malformed input: non-positive amounts, empty
	// names, inconsistent blind configuration.
	ErrValidation = errors.New("validation error")

	// ErrState marks an operation forbidden by the ledger's current state:
	// cash-out over the remaining stack, closed bank, re-buy while seated.
	ErrState = errors.New("state error")

	// ErrNotFound marks a missing session, player, expense or transfer.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity marks an unresolvable reference or unsupported format
	// in a session transfer file; the whole import aborts on it.
	ErrIntegrity = errors.New("integrity error")

	// ErrReconciliation marks a settlement plan whose credits cannot be
	// covered. It indicates an upstream ledger inconsistency, not a
	// user-correctable condition.
	ErrReconciliation = errors.New("reconciliation error")
)
