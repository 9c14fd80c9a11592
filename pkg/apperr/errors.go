package apperr

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies an error for callers that need to react to it, mainly the
// HTTP layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindInsufficientStock
	KindInvalidTransition
	KindStructural
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindStructural:
		return "structural"
	default:
		return "unknown"
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports a bad input: missing field, non-positive quantity,
// duplicate number.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity. It is also returned for entities the
// actor may not see.
func NotFound(entity string, id uint) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

// Forbidden reports a visible entity the actor lacks the capability to act on.
func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a request that clashes with existing state.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Structural reports corrupt reference data, e.g. a cyclic department tree.
// It is administrative and not recoverable by the caller.
func Structural(format string, args ...any) error {
	return &Error{Kind: KindStructural, Message: fmt.Sprintf(format, args...)}
}

// InvalidState reports an action the entity's current status does not allow,
// such as editing the lines of a sent quote request.
func InvalidState(format string, args ...any) error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with an extra message.
func Wrap(kind Kind, err error, message string) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// InsufficientStockError is returned when an outbound posting would drive a
// part's quantity below zero.
type InsufficientStockError struct {
	PartID    uint
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for part %d: available %s, requested %s",
		e.PartID, e.Available.String(), e.Requested.String())
}

// InvalidTransitionError is returned when an entity's status does not allow
// the requested move.
type InvalidTransitionError struct {
	Entity string
	ID     uint
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %d cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
}

// KindOf classifies any error, looking through wrapping.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var stock *InsufficientStockError
	if errors.As(err, &stock) {
		return KindInsufficientStock
	}

	var transition *InvalidTransitionError
	if errors.As(err, &transition) {
		return KindInvalidTransition
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	return KindUnknown
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
