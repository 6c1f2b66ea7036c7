package repository

import (
	"context"
	"time"

	"github.com/jhoicas/spare-ledger/internal/domain/entity"
)

// StockMovementRepository puerto de persistencia para movimientos (solo inserción,
// salvo la transición de estado pending → completed | failed).
type StockMovementRepository interface {
	// Create inserta la cabecera y sus líneas.
	Create(ctx context.Context, movement *entity.StockMovement) error
	UpdateStatus(ctx context.Context, id, status string, at time.Time) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	// GetForUpdate bloquea la cabecera (para recepción o anulación de despachos).
	GetForUpdate(ctx context.Context, id string) (*entity.StockMovement, error)
	// FindByIdempotencyKey devuelve nil, nil si no hay movimiento con esa clave.
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.StockMovement, error)
	ListByRequest(ctx context.Context, requestID string) ([]*entity.StockMovement, error)
	ListByLocation(ctx context.Context, loc entity.Location, limit, offset int) ([]*entity.StockMovement, error)
	// ListPending devuelve los movimientos pendientes del tipo indicado, con sus líneas.
	ListPending(ctx context.Context, movementType string) ([]*entity.StockMovement, error)
}
