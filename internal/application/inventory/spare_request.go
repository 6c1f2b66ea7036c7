package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/spare-ledger/internal/domain/inventory"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
	"github.com/jhoicas/spare-ledger/pkg/logger"
)

// SpareRequestUseCase máquina de estados de solicitudes de asignación
// (planta → centro de servicio, centro de servicio → técnico).
type SpareRequestUseCase struct {
	txRunner    TxRunner
	requestRepo repository.SpareRequestRepository
	decider     *decider
}

// NewSpareRequestUseCase construye el caso de uso. requestRepo se usa para lecturas fuera de tx.
func NewSpareRequestUseCase(
	txRunner TxRunner,
	requestRepo repository.SpareRequestRepository,
	recorder *MovementRecorder,
	log *logger.Logger,
) *SpareRequestUseCase {
	return &SpareRequestUseCase{
		txRunner:    txRunner,
		requestRepo: requestRepo,
		decider:     &decider{recorder: recorder, log: log, now: time.Now},
	}
}

// RequestLineInput línea solicitada.
type RequestLineInput struct {
	PartID       string
	RequestedQty decimal.Decimal
}

// CreateRequestInput entrada de Create. Source es quien entrega el stock.
type CreateRequestInput struct {
	ActorID     string
	Source      entity.Location
	Destination entity.Location
	Lines       []RequestLineInput
}

// ApprovalDecision cantidad aprobada por el aprobador para una línea.
type ApprovalDecision struct {
	ItemID      string
	ApprovedQty decimal.Decimal
}

// Create persiste una solicitud de asignación abierta con ApprovedQty = nil en todas sus líneas.
func (uc *SpareRequestUseCase) Create(ctx context.Context, in CreateRequestInput) (*entity.SpareRequest, error) {
	if err := validateAllocationRoute(in.Source, in.Destination); err != nil {
		return nil, err
	}
	if len(in.Lines) == 0 {
		return nil, domain.NewValidationError("lines", "se requiere al menos una línea")
	}

	now := uc.decider.now()
	req := &entity.SpareRequest{
		ID:          uuid.New().String(),
		Kind:        entity.RequestKindAllocation,
		Source:      in.Source,
		Destination: in.Destination,
		Status:      entity.RequestStatusOpen,
		RequestedBy: in.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, l := range in.Lines {
		if l.PartID == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("lines[%d].part_id", i), "requerido")
		}
		if !validQty(l.RequestedQty) || l.RequestedQty.IsZero() {
			return nil, domain.NewValidationError(fmt.Sprintf("lines[%d].requested_qty", i), "debe ser un entero positivo")
		}
		req.Items = append(req.Items, &entity.SpareRequestItem{
			ID:                    uuid.New().String(),
			RequestID:             req.ID,
			PartID:                l.PartID,
			RequestedQty:          l.RequestedQty,
			RequestedGoodQty:      decimal.Zero,
			RequestedDefectiveQty: decimal.Zero,
		})
	}

	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		return repos.Requests.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Approve decide una solicitud abierta. Por cada línea aprobado = min(decisión, solicitado,
// disponible good en origen); una sobre-solicitud se recorta, no falla. Líneas sin decisión quedan en 0.
// Suma cero → rejected sin movimiento; si no, un movimiento y approved o partially_approved.
func (uc *SpareRequestUseCase) Approve(ctx context.Context, actorID, requestID string, decisions []ApprovalDecision) (*entity.SpareRequest, error) {
	byItem := make(map[string]decimal.Decimal, len(decisions))
	for i, d := range decisions {
		field := fmt.Sprintf("decisions[%d]", i)
		if d.ItemID == "" {
			return nil, domain.NewValidationError(field+".item_id", "requerido")
		}
		if !validQty(d.ApprovedQty) {
			return nil, domain.NewValidationError(field+".approved_qty", "debe ser un entero >= 0")
		}
		if _, dup := byItem[d.ItemID]; dup {
			return nil, domain.NewValidationError(field+".item_id", "línea repetida")
		}
		byItem[d.ItemID] = d.ApprovedQty
	}

	var out *entity.SpareRequest
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		req, err := loadOpenRequest(ctx, repos, requestID, entity.RequestKindAllocation)
		if err != nil {
			return err
		}
		if err := checkUnknownItems(req, byItem); err != nil {
			return err
		}
		stock, err := lockRoute(ctx, repos, req)
		if err != nil {
			return err
		}

		var lines []MovementLineInput
		complete := true
		for _, it := range req.Items {
			rec := stock[it.PartID]
			q := domaininv.Clamp(byItem[it.ID], it.RequestedQty, rec.Quantity(entity.BucketGood))
			takeAvailable(rec, entity.BucketGood, q)
			it.ApprovedQty = &q
			if q.LessThan(it.RequestedQty) {
				complete = false
			}
			if q.IsPositive() {
				lines = append(lines, MovementLineInput{PartID: it.PartID, Qty: q, Condition: entity.ConditionGood})
			}
		}

		if err := uc.decider.settle(ctx, repos, req, actorID, allocationMovementType(req.Source), lines, complete); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reject cierra una solicitud abierta sin efecto en el ledger.
func (uc *SpareRequestUseCase) Reject(ctx context.Context, actorID, requestID, reason string) (*entity.SpareRequest, error) {
	return uc.close(ctx, actorID, requestID, entity.RequestStatusRejected, reason)
}

// Cancel cancela una solicitud abierta sin efecto en el ledger.
func (uc *SpareRequestUseCase) Cancel(ctx context.Context, actorID, requestID string) (*entity.SpareRequest, error) {
	return uc.close(ctx, actorID, requestID, entity.RequestStatusCancelled, "")
}

func (uc *SpareRequestUseCase) close(ctx context.Context, actorID, requestID, status, reason string) (*entity.SpareRequest, error) {
	var out *entity.SpareRequest
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		req, err := loadOpenRequest(ctx, repos, requestID, "")
		if err != nil {
			return err
		}
		now := uc.decider.now()
		req.Status = status
		req.RejectionReason = reason
		req.DecidedBy = actorID
		req.DecidedAt = &now
		req.UpdatedAt = now
		if err := repos.Requests.UpdateDecision(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get obtiene una solicitud con sus líneas.
func (uc *SpareRequestUseCase) Get(ctx context.Context, id string) (*entity.SpareRequest, error) {
	req, err := uc.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	return req, nil
}

// maxListLimit tope de filas por página en los listados.
const maxListLimit = 100

// List lista solicitudes por estado, tipo o ubicación.
func (uc *SpareRequestUseCase) List(ctx context.Context, filter repository.SpareRequestFilter) ([]*entity.SpareRequest, error) {
	if filter.Status != "" && !entity.ValidRequestStatus(filter.Status) {
		return nil, domain.NewValidationError("status", "estado desconocido: "+filter.Status)
	}
	if filter.Kind != "" && !entity.ValidRequestKind(filter.Kind) {
		return nil, domain.NewValidationError("kind", "tipo desconocido: "+filter.Kind)
	}
	if filter.Location != nil && !filter.Location.Valid() {
		return nil, domain.NewValidationError("location", "ubicación inválida")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = 20
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.requestRepo.List(ctx, filter)
}

// validateAllocationRoute solo admite los tramos de la jerarquía:
// planta → centro de servicio y centro de servicio → técnico.
func validateAllocationRoute(source, destination entity.Location) error {
	if !source.Valid() {
		return domain.NewValidationError("source", "ubicación inválida")
	}
	if !destination.Valid() {
		return domain.NewValidationError("destination", "ubicación inválida")
	}
	switch {
	case source.Kind == entity.LocationPlant && destination.Kind == entity.LocationServiceCenter,
		source.Kind == entity.LocationServiceCenter && destination.Kind == entity.LocationTechnician:
		return nil
	}
	return domain.NewValidationError("destination",
		fmt.Sprintf("asignación no permitida de %s a %s", source.Kind, destination.Kind))
}

// allocationMovementType los envíos desde planta viajan en tránsito hasta la recepción.
func allocationMovementType(source entity.Location) string {
	if source.Kind == entity.LocationPlant {
		return entity.MovementTypeDispatch
	}
	return entity.MovementTypeAllocation
}
