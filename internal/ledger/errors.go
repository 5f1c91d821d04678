package ledger

import (
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/storage"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an expense, group, member or split is missing.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the acting user lacks admin, ownership or self rights.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned when the ledger state does not allow the operation,
	// such as the last participant leaving an expense.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidArgument is returned for malformed input: empty names, non-positive
	// amounts, a payment to oneself.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrArithmeticInconsistency means a redistribution did not conserve the
	// expense total. It indicates a bug and aborts the transaction.
	ErrArithmeticInconsistency = errors.New("arithmetic inconsistency")

	// ErrUnavailable is returned for mutations while maintenance mode is on.
	ErrUnavailable = errors.New("ledger unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// Error is a ledger failure of a given kind.
type Error struct {
	Kind error
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// ExpensesRemainingError rejects a soft-delete while the group still has expenses.
type ExpensesRemainingError struct {
	GroupID   string
	Remaining int
}

func (e *ExpensesRemainingError) Error() string {
	return fmt.Sprintf("all expenses must be deleted first: group %s has %d remaining", e.GroupID, e.Remaining)
}

func (e *ExpensesRemainingError) Unwrap() error {
	return ErrInvalidState
}

func newError(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func notFound(op, format string, args ...any) error {
	return newError(ErrNotFound, op, format, args...)
}

func forbidden(op, format string, args ...any) error {
	return newError(ErrForbidden, op, format, args...)
}

func invalidState(op, format string, args ...any) error {
	return newError(ErrInvalidState, op, format, args...)
}

func invalidArgument(op, format string, args ...any) error {
	return newError(ErrInvalidArgument, op, format, args...)
}

// classify converts storage failures into ledger kinds where one applies.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	var re *ExpensesRemainingError
	if errors.As(err, &le) || errors.As(err, &re) {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &Error{Kind: ErrNotFound, Op: op, Msg: err.Error()}
	case errors.Is(err, storage.ErrConflict):
		return &Error{Kind: ErrInvalidState, Op: op, Msg: err.Error()}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, storage.ErrConcurrentModification)
}

// IsClientError returns true if the error is due to the request rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidArgument)
}
