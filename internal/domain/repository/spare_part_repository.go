package repository

import (
	"context"

	"github.com/jhoicas/spare-ledger/internal/domain/entity"
)

// SparePartRepository puerto de lectura del catálogo de repuestos.
type SparePartRepository interface {
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.SparePart, error)
	GetByCode(ctx context.Context, code string) (*entity.SparePart, error)
	List(ctx context.Context, search string, limit, offset int) ([]*entity.SparePart, error)
}
