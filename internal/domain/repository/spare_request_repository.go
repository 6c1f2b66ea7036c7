package repository

import (
	"context"

	"github.com/jhoicas/spare-ledger/internal/domain/entity"
)

// SpareRequestFilter criterios de listado de solicitudes. Campos vacíos no filtran.
type SpareRequestFilter struct {
	Status   string
	Kind     string
	Location *entity.Location // coincide con origen o destino
	Limit    int
	Offset   int
}

// SpareRequestRepository puerto de persistencia para solicitudes y sus líneas.
type SpareRequestRepository interface {
	// Create inserta la cabecera y todas sus líneas.
	Create(ctx context.Context, req *entity.SpareRequest) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.SpareRequest, error)
	// GetForUpdate igual que GetByID pero bloquea la cabecera hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.SpareRequest, error)
	// UpdateDecision persiste estado, decisor, motivo y cantidades aprobadas de las líneas.
	UpdateDecision(ctx context.Context, req *entity.SpareRequest) error
	List(ctx context.Context, filter SpareRequestFilter) ([]*entity.SpareRequest, error)
}
