package apperr

import "errors"

// Category sentinels. Service-level sentinel errors are built through
// the constructors below so transport code can map an unknown error to
// a status with a single errors.Is per category.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrUnavailable = errors.New("downstream unavailable")
)

type Error struct {
	category error
	msg      string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.category }

func Validation(msg string) error { return &Error{category: ErrValidation, msg: msg} }

func NotFound(msg string) error { return &Error{category: ErrNotFound, msg: msg} }

func Forbidden(msg string) error { return &Error{category: ErrForbidden, msg: msg} }

func Unavailable(msg string) error { return &Error{category: ErrUnavailable, msg: msg} }

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
