package orders

import (
	"strings"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/inventory"
	"github.com/pkg/errors"
)

var (
	ErrValidation  = errors.New("invalid request")
	ErrStock       = errors.New("insufficient stock")
	ErrNotFound    = errors.New("order not found")
	ErrForbidden   = errors.New("invalid admin code")
	ErrConflict    = errors.New("status transition not allowed")
	ErrPersistence = errors.New("failed to save")
)

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type StockError struct {
	Shortfalls []inventory.Shortfall
}

func (e *StockError) Error() string {
	return (&inventory.ShortfallError{Shortfalls: e.Shortfalls}).Error()
}

func (e *StockError) Is(target error) bool { return target == ErrStock }

type ConflictError struct {
	From, To Status
}

func (e *ConflictError) Error() string {
	return "cannot move order from " + string(e.From) + " to " + string(e.To)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// PersistenceError wraps a snapshot write failure. Memory may already hold the
// change; only durability is in question.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "failed to save: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
func (e *PersistenceError) Is(t error) bool { return t == ErrPersistence }
