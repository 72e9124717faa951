package domain

import "errors"

// Kind is the closed set of failure classes callers branch on.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindPreconditionFailed
	KindContention
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidInput:
		return "InvalidInput"
	case KindPreconditionFailed:
		return "PreconditionFailed"
	case KindContention:
		return "Contention"
	default:
		return "Internal"
	}
}

var kindTable = []struct {
	err  error
	kind Kind
}{
	{ErrContention, KindContention},
	{ErrNotFound, KindNotFound},
	{ErrInvalidAmount, KindInvalidInput},
	{ErrInvalidRequest, KindInvalidInput},
	{ErrSameAccount, KindInvalidInput},
	{ErrEntryNotCompleted, KindInvalidInput},
	{ErrAccountInactive, KindPreconditionFailed},
	{ErrInsufficientFunds, KindPreconditionFailed},
	{ErrAccountExists, KindPreconditionFailed},
	{ErrAlertResolved, KindPreconditionFailed},
	{ErrNotAuthorized, KindPreconditionFailed},
	{ErrVersionConflict, KindContention},
	{ErrSerialization, KindContention},
}

// KindOf classifies err. Anything not recognised is KindInternal; nil has no
// kind and also reports KindInternal, so check err first.
func KindOf(err error) Kind {
	for _, e := range kindTable {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindInternal
}

// IsRetryable reports whether the failure came from a storage-level conflict
// that is safe to retry from scratch.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrSerialization)
}
