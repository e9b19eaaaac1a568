package wordpress

import "net/http"

// Outcome classifies how a gateway request ended.
type Outcome int

const (
	// OutcomeOK means the upstream answered 2xx with a usable payload.
	OutcomeOK Outcome = iota
	// OutcomeEmpty means the upstream answered 2xx but had nothing for us.
	OutcomeEmpty
	// OutcomeTransportFailure covers DNS, connection, timeout and cancellation errors.
	OutcomeTransportFailure
	// OutcomeStatusFailure means a non-2xx response.
	OutcomeStatusFailure
	// OutcomeDecodeFailure means the body could not be parsed.
	OutcomeDecodeFailure
)

// String returns the metric/log label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeStatusFailure:
		return "status_failure"
	case OutcomeDecodeFailure:
		return "decode_failure"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome is one of the failure kinds.
func (o Outcome) Failed() bool {
	return o >= OutcomeTransportFailure
}

// Result is the internal, unflattened form of a gateway call.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
	Status  int
	Header  http.Header
}

// OK reports whether Value holds usable upstream data.
func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeOK
}

// Or returns Value when OK and fallback otherwise.
func (r Result[T]) Or(fallback T) T {
	if r.OK() {
		return r.Value
	}
	return fallback
}
