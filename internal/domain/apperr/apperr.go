// Package apperr defines the error taxonomy shared by the domain services.
//
// Every business failure is an *Error tagged with a Kind. Callers branch on
// the kind (errors.As / errors.Is against the Err* sentinels), never on the
// message text. Anything that is not an *Error is an unexpected failure.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies an Error.
type Kind uint8

const (
	// KindInternal is an unexpected failure: database errors, lost
	// connections, unanticipated constraint violations.
	KindInternal Kind = iota
	// KindValidation is malformed caller input.
	KindValidation
	// KindEmptyCartSelection means none of the requested cart items belong
	// to the caller.
	KindEmptyCartSelection
	// KindInsufficientStock means a product cannot cover the requested
	// quantity. Error.ProductID names the product.
	KindInsufficientStock
	// KindNotFound means the addressed entity does not exist or is not
	// visible to the caller.
	KindNotFound
	// KindConflict means the write collides with existing state.
	KindConflict
	// KindUnauthorized means the caller could not be authenticated.
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindValidation:
		return "validation"
	case KindEmptyCartSelection:
		return "empty_cart_selection"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is a classified domain error.
type Error struct {
	Kind Kind
	// Field names the offending input field for KindValidation.
	Field string
	// ProductID is set for KindInsufficientStock.
	ProductID int64
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a kind sentinel (an *Error without a message)
// of the same kind. A sentinel with a ProductID only matches that product.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" || t.Kind != e.Kind {
		return false
	}
	return t.ProductID == 0 || t.ProductID == e.ProductID
}

// Kind sentinels for errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrEmptyCartSelection = &Error{Kind: KindEmptyCartSelection}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
)

// Validation reports a malformed input field.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

// EmptyCartSelection reports that no requested cart item resolved for the user.
func EmptyCartSelection() *Error {
	return &Error{Kind: KindEmptyCartSelection, Msg: "no cart items found for this user"}
}

// InsufficientStock reports that productID cannot cover the requested quantity.
func InsufficientStock(productID int64) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		ProductID: productID,
		Msg:       fmt.Sprintf("insufficient stock for product %d", productID),
	}
}

// NotFound reports a missing entity.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Conflict reports a write that collides with existing state.
func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Msg: msg, Err: err}
}

// Unauthorized reports a failed authentication.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

// Internal wraps an unexpected failure with the operation that hit it. An err
// that is already classified is returned unchanged.
func Internal(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindInternal, Msg: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
// when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
