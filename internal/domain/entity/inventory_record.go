package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Buckets de cantidad por (repuesto, ubicación).
const (
	BucketGood      = "good"
	BucketDefective = "defective"
	BucketInTransit = "in_transit"
)

// Condiciones físicas de una línea de movimiento.
const (
	ConditionGood      = "good"
	ConditionDefective = "defective"
)

// ValidBucket indica si el bucket es uno de los tres conocidos.
func ValidBucket(b string) bool {
	return b == BucketGood || b == BucketDefective || b == BucketInTransit
}

// ValidCondition indica si la condición es good o defective.
func ValidCondition(c string) bool {
	return c == ConditionGood || c == ConditionDefective
}

// BucketForCondition devuelve el bucket que almacena la condición indicada.
func BucketForCondition(c string) string {
	if c == ConditionDefective {
		return BucketDefective
	}
	return BucketGood
}

// InventoryRecord fila del ledger: cantidades por bucket de un repuesto en una ubicación.
// Invariante: las tres cantidades son >= 0. Solo el Ledger la modifica.
type InventoryRecord struct {
	PartID       string
	Location     Location
	QtyGood      decimal.Decimal
	QtyDefective decimal.Decimal
	QtyInTransit decimal.Decimal
	UpdatedAt    time.Time
}

// NewInventoryRecord registro con todos los buckets en cero.
func NewInventoryRecord(partID string, loc Location) *InventoryRecord {
	return &InventoryRecord{
		PartID:       partID,
		Location:     loc,
		QtyGood:      decimal.Zero,
		QtyDefective: decimal.Zero,
		QtyInTransit: decimal.Zero,
	}
}

// Quantity devuelve la cantidad del bucket.
func (r *InventoryRecord) Quantity(bucket string) decimal.Decimal {
	switch bucket {
	case BucketGood:
		return r.QtyGood
	case BucketDefective:
		return r.QtyDefective
	case BucketInTransit:
		return r.QtyInTransit
	}
	return decimal.Zero
}

// SetQuantity fija la cantidad del bucket. Uso exclusivo del Ledger.
func (r *InventoryRecord) SetQuantity(bucket string, qty decimal.Decimal) {
	switch bucket {
	case BucketGood:
		r.QtyGood = qty
	case BucketDefective:
		r.QtyDefective = qty
	case BucketInTransit:
		r.QtyInTransit = qty
	}
}
