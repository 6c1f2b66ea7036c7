package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/spare-ledger/internal/domain/entity"
)

// SpareRequestLineRequest línea de una solicitud de asignación.
type SpareRequestLineRequest struct {
	PartID       string          `json:"part_id"`
	RequestedQty decimal.Decimal `json:"requested_qty"`
}

// CreateSpareRequestRequest body para POST /api/spare-requests.
type CreateSpareRequestRequest struct {
	Source      LocationDTO               `json:"source"`
	Destination LocationDTO               `json:"destination"`
	Lines       []SpareRequestLineRequest `json:"lines"`
}

// ApprovalDecisionRequest decisión por línea.
type ApprovalDecisionRequest struct {
	ItemID      string          `json:"item_id"`
	ApprovedQty decimal.Decimal `json:"approved_qty"`
}

// ApproveSpareRequestRequest body para POST /api/spare-requests/:id/approve.
type ApproveSpareRequestRequest struct {
	Decisions []ApprovalDecisionRequest `json:"decisions"`
}

// RejectSpareRequestRequest body para POST /api/spare-requests/:id/reject.
type RejectSpareRequestRequest struct {
	Reason string `json:"reason"`
}

// ReturnLineRequest línea de devolución por condición.
type ReturnLineRequest struct {
	PartID       string          `json:"part_id"`
	GoodQty      decimal.Decimal `json:"good_qty"`
	DefectiveQty decimal.Decimal `json:"defective_qty"`
}

// CreateReturnRequest body para POST /api/returns.
type CreateReturnRequest struct {
	Technician    LocationDTO         `json:"technician"`
	ServiceCenter LocationDTO         `json:"service_center"`
	Lines         []ReturnLineRequest `json:"lines"`
}

// ReturnDecisionRequest decisión por línea y condición.
type ReturnDecisionRequest struct {
	ItemID               string          `json:"item_id"`
	ApprovedGoodQty      decimal.Decimal `json:"approved_good_qty"`
	ApprovedDefectiveQty decimal.Decimal `json:"approved_defective_qty"`
}

// ApproveReturnRequest body para POST /api/returns/:id/approve.
type ApproveReturnRequest struct {
	Decisions []ReturnDecisionRequest `json:"decisions"`
}

// SpareRequestItemResponse línea con lo aprobado (null si aún no se decide).
type SpareRequestItemResponse struct {
	ID                    string           `json:"id"`
	PartID                string           `json:"part_id"`
	RequestedQty          decimal.Decimal  `json:"requested_qty"`
	ApprovedQty           *decimal.Decimal `json:"approved_qty"`
	Shortfall             decimal.Decimal  `json:"shortfall"`
	RequestedGoodQty      *decimal.Decimal `json:"requested_good_qty,omitempty"`
	RequestedDefectiveQty *decimal.Decimal `json:"requested_defective_qty,omitempty"`
	ApprovedGoodQty       *decimal.Decimal `json:"approved_good_qty,omitempty"`
	ApprovedDefectiveQty  *decimal.Decimal `json:"approved_defective_qty,omitempty"`
}

// SpareRequestResponse salida de una solicitud.
type SpareRequestResponse struct {
	ID              string                     `json:"id"`
	Kind            string                     `json:"kind"`
	Source          LocationDTO                `json:"source"`
	Destination     LocationDTO                `json:"destination"`
	Status          string                     `json:"status"`
	RequestedBy     string                     `json:"requested_by,omitempty"`
	DecidedBy       string                     `json:"decided_by,omitempty"`
	RejectionReason string                     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	DecidedAt       *time.Time                 `json:"decided_at,omitempty"`
	Items           []SpareRequestItemResponse `json:"items"`
	Movements       []MovementResponse         `json:"movements,omitempty"`
}

// SpareRequestListResponse listado paginado.
type SpareRequestListResponse struct {
	Items []SpareRequestResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}

// FromSpareRequest convierte una solicitud.
func FromSpareRequest(r *entity.SpareRequest) SpareRequestResponse {
	out := SpareRequestResponse{
		ID:              r.ID,
		Kind:            r.Kind,
		Source:          FromLocation(r.Source),
		Destination:     FromLocation(r.Destination),
		Status:          r.Status,
		RequestedBy:     r.RequestedBy,
		DecidedBy:       r.DecidedBy,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		DecidedAt:       r.DecidedAt,
		Items:           make([]SpareRequestItemResponse, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		item := SpareRequestItemResponse{
			ID:           it.ID,
			PartID:       it.PartID,
			RequestedQty: it.RequestedQty,
			ApprovedQty:  it.ApprovedQty,
			Shortfall:    it.Shortfall(),
		}
		if r.Kind == entity.RequestKindReturn {
			good, defective := it.RequestedGoodQty, it.RequestedDefectiveQty
			item.RequestedGoodQty = &good
			item.RequestedDefectiveQty = &defective
			item.ApprovedGoodQty = it.ApprovedGoodQty
			item.ApprovedDefectiveQty = it.ApprovedDefectiveQty
		}
		out.Items = append(out.Items, item)
	}
	return out
}
