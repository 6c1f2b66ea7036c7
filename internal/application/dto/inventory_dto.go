package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/spare-ledger/internal/domain/entity"
)

// LocationDTO ubicación en la jerarquía (plant, service_center, technician).
type LocationDTO struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// ToEntity convierte al valor de dominio.
func (l LocationDTO) ToEntity() entity.Location {
	return entity.NewLocation(l.Kind, l.ID)
}

// FromLocation convierte desde el valor de dominio.
func FromLocation(l entity.Location) LocationDTO {
	return LocationDTO{Kind: l.Kind, ID: l.ID}
}

// InventoryRecordResponse cantidades por bucket de un repuesto en una ubicación.
type InventoryRecordResponse struct {
	PartID       string          `json:"part_id"`
	Location     LocationDTO     `json:"location"`
	QtyGood      decimal.Decimal `json:"qty_good"`
	QtyDefective decimal.Decimal `json:"qty_defective"`
	QtyInTransit decimal.Decimal `json:"qty_in_transit"`
	UpdatedAt    time.Time       `json:"updated_at,omitempty"`
}

// FromInventoryRecord convierte un registro del ledger.
func FromInventoryRecord(r *entity.InventoryRecord) InventoryRecordResponse {
	return InventoryRecordResponse{
		PartID:       r.PartID,
		Location:     FromLocation(r.Location),
		QtyGood:      r.QtyGood,
		QtyDefective: r.QtyDefective,
		QtyInTransit: r.QtyInTransit,
		UpdatedAt:    r.UpdatedAt,
	}
}

// MovementLineRequest línea de un movimiento. Condition vacío = good.
type MovementLineRequest struct {
	PartID    string          `json:"part_id"`
	Qty       decimal.Decimal `json:"qty"`
	Condition string          `json:"condition,omitempty"`
}

// RecordMovementRequest body para POST /api/movements (TRANSFER o DISPATCH).
type RecordMovementRequest struct {
	Type           string                `json:"type"`
	Source         LocationDTO           `json:"source"`
	Destination    LocationDTO           `json:"destination"`
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
	Lines          []MovementLineRequest `json:"lines"`
}

// AdjustmentRequest body para POST /api/inventory/adjustments (ADJUSTMENT o CONSUMPTION).
type AdjustmentRequest struct {
	Type           string                `json:"type"`
	Location       LocationDTO           `json:"location"`
	Reason         string                `json:"reason,omitempty"`
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
	Lines          []MovementLineRequest `json:"lines"`
}

// MovementLineResponse línea de un movimiento.
type MovementLineResponse struct {
	ID        string          `json:"id"`
	PartID    string          `json:"part_id"`
	Qty       decimal.Decimal `json:"qty"`
	Condition string          `json:"condition"`
}

// MovementResponse salida de un movimiento con sus líneas.
type MovementResponse struct {
	ID                 string                 `json:"id"`
	Type               string                 `json:"type"`
	Source             LocationDTO            `json:"source"`
	Destination        LocationDTO            `json:"destination"`
	ReferenceRequestID *string                `json:"reference_request_id,omitempty"`
	IdempotencyKey     string                 `json:"idempotency_key,omitempty"`
	TotalQty           decimal.Decimal        `json:"total_qty"`
	Status             string                 `json:"status"`
	Reason             string                 `json:"reason,omitempty"`
	CreatedBy          string                 `json:"created_by,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	CompletedAt        *time.Time             `json:"completed_at,omitempty"`
	Lines              []MovementLineResponse `json:"lines"`
}

// FromMovement convierte un movimiento.
func FromMovement(m *entity.StockMovement) MovementResponse {
	out := MovementResponse{
		ID:                 m.ID,
		Type:               m.Type,
		Source:             FromLocation(m.Source),
		Destination:        FromLocation(m.Destination),
		ReferenceRequestID: m.ReferenceRequestID,
		IdempotencyKey:     m.IdempotencyKey,
		TotalQty:           m.TotalQty,
		Status:             m.Status,
		Reason:             m.Reason,
		CreatedBy:          m.CreatedBy,
		CreatedAt:          m.CreatedAt,
		CompletedAt:        m.CompletedAt,
		Lines:              make([]MovementLineResponse, 0, len(m.Lines)),
	}
	for _, l := range m.Lines {
		out.Lines = append(out.Lines, MovementLineResponse{ID: l.ID, PartID: l.PartID, Qty: l.Qty, Condition: l.Condition})
	}
	return out
}
