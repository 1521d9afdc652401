package flow

import "errors"

// Error taxonomy. Callers branch on these with errors.Is; the HTTP layer
// maps them to status codes.
var (
	// ErrNotFound: a queue, ticket, or task reference does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName: queue name already used within the project.
	ErrDuplicateName = errors.New("duplicate queue name")
	// ErrQueueInactive: the queue refuses new members and claims.
	ErrQueueInactive = errors.New("queue inactive")
	// ErrQueueNotEmpty: queue deletion requires members to be moved out first.
	ErrQueueNotEmpty = errors.New("queue not empty")
	// ErrAlreadyQueued: the item already belongs to a queue; use Move.
	ErrAlreadyQueued = errors.New("item already queued")
	// ErrAlreadyClaimed: another agent holds the in-progress claim.
	ErrAlreadyClaimed = errors.New("item already claimed")
	// ErrInvalidTransition: the membership state machine forbids the request.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrCapacityExceeded: the queue is at its max concurrency; back off.
	ErrCapacityExceeded = errors.New("queue capacity exceeded")
	// ErrOrderMismatch: reorder input does not match the live queued set.
	ErrOrderMismatch = errors.New("order does not match queued set")
)

// errClaimRace signals a lost conditional update inside ClaimNext; the
// selection is retried once before giving up. Never escapes the package.
var errClaimRace = errors.New("claim race lost")
