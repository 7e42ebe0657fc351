package event

import "errors"

var (
	// ErrEventNotFound signals a lookup miss, an expired record, or an inactive one.
	ErrEventNotFound = errors.New("event not found")
	// ErrEventForbidden is returned when a caller is not the creating owner.
	ErrEventForbidden = errors.New("event forbidden")
	// ErrPrimaryUnavailable marks a primary store failure that triggers the local fallback.
	ErrPrimaryUnavailable = errors.New("primary event store unavailable")
)
