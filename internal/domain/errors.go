package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
)

// ValidationError detalla qué campo de la entrada fue rechazado.
// errors.Is(err, ErrInvalidInput) es verdadero.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError construye un error de validación para un campo.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// InsufficientStockError se produce cuando un ajuste dejaría un bucket en negativo.
// Line es el índice de la línea del movimiento que falló (-1 si no aplica).
type InsufficientStockError struct {
	PartID    string
	Location  string
	Bucket    string
	Available decimal.Decimal
	Requested decimal.Decimal
	Line      int
}

func (e *InsufficientStockError) Error() string {
	msg := fmt.Sprintf("%s: parte %s en %s (%s): disponible %s, requerido %s",
		ErrInsufficientStock, e.PartID, e.Location, e.Bucket, e.Available, e.Requested)
	if e.Line >= 0 {
		msg = fmt.Sprintf("línea %d: %s", e.Line, msg)
	}
	return msg
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
