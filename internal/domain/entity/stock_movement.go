package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovementTypeAllocation  = "ALLOCATION"  // centro de servicio → técnico
	MovementTypeReturn      = "RETURN"      // técnico → centro de servicio
	MovementTypeTransfer    = "TRANSFER"    // traslado directo entre ubicaciones
	MovementTypeDispatch    = "DISPATCH"    // envío con tránsito, se completa al recibir
	MovementTypeAdjustment  = "ADJUSTMENT"  // entrada en una sola ubicación
	MovementTypeConsumption = "CONSUMPTION" // consumo en una sola ubicación
)

// Estados de un movimiento. Solo pending → completed | failed.
const (
	MovementStatusPending   = "pending"
	MovementStatusCompleted = "completed"
	MovementStatusFailed    = "failed"
)

// IsTransferType indica si el tipo mueve cantidad entre dos ubicaciones.
func IsTransferType(t string) bool {
	switch t {
	case MovementTypeAllocation, MovementTypeReturn, MovementTypeTransfer, MovementTypeDispatch:
		return true
	}
	return false
}

// IsSingleLocationType indica si el tipo afecta una sola ubicación (entrada o consumo).
func IsSingleLocationType(t string) bool {
	return t == MovementTypeAdjustment || t == MovementTypeConsumption
}

// StockMovement cabecera inmutable de un movimiento. Solo cambia Status (y CompletedAt).
type StockMovement struct {
	ID                 string
	Type               string
	Source             Location
	Destination        Location
	ReferenceRequestID *string
	IdempotencyKey     string
	TotalQty           decimal.Decimal
	Status             string
	Reason             string
	CreatedBy          string
	CreatedAt          time.Time
	CompletedAt        *time.Time
	Lines              []*MovementLineItem
}

// MovementLineItem línea de un movimiento; pertenece a su cabecera.
type MovementLineItem struct {
	ID         string
	MovementID string
	PartID     string
	Qty        decimal.Decimal
	Condition  string
}

// LinesTotal suma de cantidades de las líneas.
func (m *StockMovement) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range m.Lines {
		total = total.Add(l.Qty)
	}
	return total
}
