package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so that callers can react without string matching.
type Kind string

const (
	KindInsufficientWaypoints Kind = "insufficient_waypoints"
	KindRouteNotFound         Kind = "route_not_found"
	KindGeocodeNotFound       Kind = "geocode_not_found"
	KindUnknownVehicleType    Kind = "unknown_vehicle_type"
	KindUnknownChecklistItem  Kind = "unknown_checklist_item"
	KindValidationFailed      Kind = "validation_failed"
	KindProviderUnavailable   Kind = "provider_unavailable"
	KindNotFound              Kind = "not_found"
	KindInvalidState          Kind = "invalid_state"
	KindConflict              Kind = "conflict"
)

// Error is the error type returned by domain and application code.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is checks. They match any Error of the same kind.
var (
	ErrInsufficientWaypoints = &Error{Kind: KindInsufficientWaypoints}
	ErrRouteNotFound         = &Error{Kind: KindRouteNotFound}
	ErrGeocodeNotFound       = &Error{Kind: KindGeocodeNotFound}
	ErrUnknownVehicleType    = &Error{Kind: KindUnknownVehicleType}
	ErrUnknownChecklistItem  = &Error{Kind: KindUnknownChecklistItem}
	ErrValidationFailed      = &Error{Kind: KindValidationFailed}
	ErrProviderUnavailable   = &Error{Kind: KindProviderUnavailable}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrInvalidState          = &Error{Kind: KindInvalidState}
	ErrConflict              = &Error{Kind: KindConflict}
)

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first domain Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// NewInsufficientWaypointsError reports a route request with fewer than two waypoints.
func NewInsufficientWaypointsError(have int) *Error {
	return &Error{Kind: KindInsufficientWaypoints, Message: fmt.Sprintf("at least 2 waypoints required, have %d", have)}
}

// NewRouteNotFoundError reports that the provider returned no usable route.
func NewRouteNotFoundError(reason string) *Error {
	return &Error{Kind: KindRouteNotFound, Message: reason}
}

// NewGeocodeNotFoundError reports that a geocoding query matched nothing.
func NewGeocodeNotFoundError(query string) *Error {
	return &Error{Kind: KindGeocodeNotFound, Message: fmt.Sprintf("no location found for %q", query)}
}

// NewUnknownVehicleTypeError reports a vehicle type without a pricing rate.
func NewUnknownVehicleTypeError(vehicle string) *Error {
	return &Error{Kind: KindUnknownVehicleType, Message: fmt.Sprintf("unknown vehicle type: %q", vehicle)}
}

// NewUnknownChecklistItemError reports an item that is not on the category's reference list.
func NewUnknownChecklistItemError(category, item string) *Error {
	return &Error{Kind: KindUnknownChecklistItem, Message: fmt.Sprintf("%q is not a %s checklist item", item, category)}
}

// NewValidationError reports missing or malformed input.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidationFailed, Message: message}
}

// NewProviderUnavailableError wraps a transport failure talking to an external provider.
func NewProviderUnavailableError(provider string, err error) *Error {
	return &Error{Kind: KindProviderUnavailable, Message: provider, Err: err}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewInvalidStateError reports an operation that is not legal in the current state.
func NewInvalidStateError(state, operation string) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf("cannot %s in state %s", operation, state)}
}

// NewConflictError reports a concurrent modification.
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}
