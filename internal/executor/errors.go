package executor

import "errors"

// ErrInternal is returned when the executor recovers from an unexpected
// panic at its own boundary (spec §7.9). It is returned as-is: the original
// panic value is logged, never included in the error the caller sees.
var ErrInternal = errors.New("internal agent error")
