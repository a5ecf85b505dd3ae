package executor

import "errors"

// ErrExecutionFailed indicates a migration unit failed and was rolled back.
var ErrExecutionFailed = errors.New("migration execution failed")
