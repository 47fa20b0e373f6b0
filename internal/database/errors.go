package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

func ClassifyError(err error) ErrorClass {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		}
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorClassTransient, ErrorClassDeadlock, ErrorClassSerialization:
		return true
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint failure. When
// constraint is non-empty the violated constraint name must match too.
func IsUniqueViolation(err error, constraint string) bool {
	return hasCode(err, codeUniqueViolation, constraint)
}

// IsForeignKeyViolation is IsUniqueViolation for foreign keys.
func IsForeignKeyViolation(err error, constraint string) bool {
	return hasCode(err, codeForeignKeyViolation, constraint)
}

func IsCheckViolation(err error) bool {
	return hasCode(err, codeCheckViolation, "")
}

func hasCode(err error, code pq.ErrorCode, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != code {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

var (
	ErrNotFound         = errors.New("not found")
	ErrUserNotFound     = notFound("user not found")
	ErrCartItemNotFound = notFound("cart item not found")
	ErrCatalogNotFound  = notFound("catalog item not found")
	ErrOrderNotFound    = notFound("order not found")
	ErrBookingNotFound  = notFound("booking not found")
	ErrPaymentNotFound  = notFound("payment not found")

	ErrEmptyCart            = errors.New("cart is empty")
	ErrOverPayment          = errors.New("payment exceeds remaining balance")
	ErrInvalidAmount        = errors.New("amount must be greater than zero with at most 2 decimal places")
	ErrInvalidState         = errors.New("invalid state")
	ErrConflict             = errors.New("conflict")
	ErrDuplicateUser        = conflict("username or email already exists")
	ErrReviewExists         = conflict("review already exists for this booking")
	ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")
)

// kindError lets specific sentinels match a broader category through
// errors.Is while keeping their own message.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string        { return e.msg }
func (e *kindError) Is(target error) bool { return target == e.kind }

func notFound(msg string) error { return &kindError{msg: msg, kind: ErrNotFound} }
func conflict(msg string) error { return &kindError{msg: msg, kind: ErrConflict} }
