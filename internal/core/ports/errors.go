package ports

import "errors"

// ErrNotPending is returned by TransactionRepository.Settle when the row is no longer PENDING.
var ErrNotPending = errors.New("transaction is not pending")
