package repository

import (
	"context"

	"github.com/jhoicas/spare-ledger/internal/domain/entity"
)

// InventoryRecordRepository puerto para las filas del ledger por (repuesto, ubicación).
// Usado dentro de transacciones para garantizar consistencia.
type InventoryRecordRepository interface {
	// Get devuelve el registro; si no existe devuelve uno en cero (sin crearlo).
	Get(ctx context.Context, partID string, loc entity.Location) (*entity.InventoryRecord, error)
	// GetForUpdate crea la fila en cero si no existe y la bloquea hasta el fin de la transacción
	// (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, partID string, loc entity.Location) (*entity.InventoryRecord, error)
	// Save persiste las cantidades de una fila previamente bloqueada.
	Save(ctx context.Context, rec *entity.InventoryRecord) error
	ListByLocation(ctx context.Context, loc entity.Location) ([]*entity.InventoryRecord, error)
	// ListInTransit devuelve las filas con qty_in_transit > 0.
	ListInTransit(ctx context.Context) ([]*entity.InventoryRecord, error)
}
