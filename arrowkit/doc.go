// Package arrowkit provides resilience wrappers around jana2.Processor:
// retry, exponential backoff, circuit breaking, rate limiting, timeout, and
// fallback. These are the patterns a MapArrow reaches for when the
// underlying callback talks to something unreliable —
// a calibration database, a detector slow-control service, a remote
// conditions store — rather than pure in-memory computation.
//
// Each wrapper itself implements jana2.Processor, so it drops directly into
// NewMapArrow in place of the processor it wraps, and wrappers compose by
// nesting. None of them wraps a jana2.Source.
package arrowkit
