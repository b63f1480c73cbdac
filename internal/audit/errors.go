package audit

import "errors"

// ErrWriteFailed indicates the ledger store rejected an append. Callers must
// abort the triggering operation rather than continue with a gap.
var ErrWriteFailed = errors.New("audit write failed")
