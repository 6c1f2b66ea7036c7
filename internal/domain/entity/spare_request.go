package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de solicitud de repuestos.
const (
	RequestKindAllocation = "allocation"
	RequestKindReturn     = "return"
)

// Estados de una solicitud. open es inicial; approved, rejected y cancelled son terminales;
// partially_approved cierra la decisión con al menos una línea sin cubrir.
const (
	RequestStatusOpen              = "open"
	RequestStatusPartiallyApproved = "partially_approved"
	RequestStatusApproved          = "approved"
	RequestStatusRejected          = "rejected"
	RequestStatusCancelled         = "cancelled"
)

// ValidRequestStatus rechaza cualquier estado fuera del conjunto cerrado.
func ValidRequestStatus(s string) bool {
	switch s {
	case RequestStatusOpen, RequestStatusPartiallyApproved, RequestStatusApproved,
		RequestStatusRejected, RequestStatusCancelled:
		return true
	}
	return false
}

// ValidRequestKind indica si el tipo de solicitud es conocido.
func ValidRequestKind(k string) bool {
	return k == RequestKindAllocation || k == RequestKindReturn
}

// SpareRequest solicitud de asignación o devolución de repuestos.
type SpareRequest struct {
	ID              string
	Kind            string
	Source          Location
	Destination     Location
	Status          string
	RequestedBy     string
	DecidedBy       string
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DecidedAt       *time.Time
	Items           []*SpareRequestItem
}

// IsClosed indica que la solicitud ya no admite decisiones ni cambios.
func (r *SpareRequest) IsClosed() bool {
	return r.Status != RequestStatusOpen
}

// Item busca una línea por ID.
func (r *SpareRequest) Item(id string) *SpareRequestItem {
	for _, it := range r.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// SpareRequestItem línea de una solicitud. ApprovedQty es nil hasta que se decide.
// Los campos Good/Defective solo aplican a devoluciones.
type SpareRequestItem struct {
	ID                    string
	RequestID             string
	PartID                string
	RequestedQty          decimal.Decimal
	ApprovedQty           *decimal.Decimal
	RequestedGoodQty      decimal.Decimal
	RequestedDefectiveQty decimal.Decimal
	ApprovedGoodQty       *decimal.Decimal
	ApprovedDefectiveQty  *decimal.Decimal
}

// Shortfall cantidad solicitada que quedó sin aprobar (cero si aún no se decide).
func (it *SpareRequestItem) Shortfall() decimal.Decimal {
	if it.ApprovedQty == nil {
		return decimal.Zero
	}
	return it.RequestedQty.Sub(*it.ApprovedQty)
}
