package ports

import "github.com/bft-labs/eventship/pkg/log"

// Logger is the structured logging port. It aliases the pkg/log interface so
// application code can log without importing pkg/log directly.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors, re-exported for application code.
var (
	Str      = log.String
	Int      = log.Int
	Int64    = log.Int64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
