package normalizer

import "errors"

// ErrMalformedSheet indicates a permanent parse failure. The sheet is marked
// failed and retained; reprocessing requires manual intervention.
var ErrMalformedSheet = errors.New("malformed sheet")
