package store

import "errors"

// ErrNodeNum is returned when MakeNode would exceed MaxNodes and
// garbage collection could not free enough slots to proceed, the
// NODENUM error kind of the core's error taxonomy. It is fatal only to
// the apply call in progress, not to the store itself.
var ErrNodeNum = errors.New("store: node table exhausted (NODENUM)")

// ErrIllBDD is returned when an operation references an out-of-range or
// freed node ID, the ILLBDD error kind.
var ErrIllBDD = errors.New("store: illegal or dangling node reference (ILLBDD)")

// ErrVar is returned when a variable level exceeds MaxVar, the VAR
// error kind.
var ErrVar = errors.New("store: variable level exceeds MAXVAR")
