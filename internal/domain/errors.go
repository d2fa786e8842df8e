package domain

import "fmt"

// InvalidURLError rejects a syntactically malformed classify input.
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid URL %q: %s", e.URL, e.Reason)
}

// MissingFieldError reports a required request field that was absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

// RateLimitedError signals the admission gate rejected the request.
type RateLimitedError struct {
	ClientID string
}

func (e *RateLimitedError) Error() string {
	return "rate limit exceeded for client " + e.ClientID
}

// UpstreamError wraps a failure to reach the bookmark service or an error
// status it returned.
type UpstreamError struct {
	Service string
	Status  int
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s unreachable: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// InferenceParseError rejects a non-conforming inference response rather
// than coercing it into a result.
type InferenceParseError struct {
	Reason string
}

func (e *InferenceParseError) Error() string {
	return "inference response rejected: " + e.Reason
}

// InferenceUnavailableError wraps a transport failure talking to the
// inference backend.
type InferenceUnavailableError struct {
	Err error
}

func (e *InferenceUnavailableError) Error() string {
	return fmt.Sprintf("inference backend unavailable: %v", e.Err)
}

func (e *InferenceUnavailableError) Unwrap() error { return e.Err }

// PartialAssignmentError records an add that succeeded followed by a
// remove that failed, leaving the link a member of both lists. Recorded in
// the batch summary, never raised to the HTTP caller.
type PartialAssignmentError struct {
	LinkID       int
	InputListID  int
	TargetListID int
	Err          error
}

func (e *PartialAssignmentError) Error() string {
	return fmt.Sprintf("link %d added to list %d but not removed from list %d: %v",
		e.LinkID, e.TargetListID, e.InputListID, e.Err)
}

func (e *PartialAssignmentError) Unwrap() error { return e.Err }
