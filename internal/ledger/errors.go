package ledger

import "errors"

// ErrLedgerMissing indicates the ledger table does not exist yet.
var ErrLedgerMissing = errors.New("migration ledger table does not exist")

// ErrLedgerInit indicates the ledger table could not be created.
var ErrLedgerInit = errors.New("creating migration ledger")
