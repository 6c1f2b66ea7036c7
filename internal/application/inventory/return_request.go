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

// ReturnUseCase devoluciones técnico → centro de servicio. Una línea puede resolverse en
// dos condiciones a la vez (good y defective). Rechazo y cancelación usan SpareRequestUseCase.
type ReturnUseCase struct {
	txRunner    TxRunner
	requestRepo repository.SpareRequestRepository
	decider     *decider
}

// NewReturnUseCase construye el caso de uso.
func NewReturnUseCase(
	txRunner TxRunner,
	requestRepo repository.SpareRequestRepository,
	recorder *MovementRecorder,
	log *logger.Logger,
) *ReturnUseCase {
	return &ReturnUseCase{
		txRunner:    txRunner,
		requestRepo: requestRepo,
		decider:     &decider{recorder: recorder, log: log, now: time.Now},
	}
}

// ReturnLineInput cantidades devueltas por condición.
type ReturnLineInput struct {
	PartID       string
	GoodQty      decimal.Decimal
	DefectiveQty decimal.Decimal
}

// CreateReturnInput entrada de CreateReturn.
type CreateReturnInput struct {
	ActorID       string
	Technician    entity.Location
	ServiceCenter entity.Location
	Lines         []ReturnLineInput
}

// ReturnDecision cantidades aprobadas por condición para una línea.
type ReturnDecision struct {
	ItemID               string
	ApprovedGoodQty      decimal.Decimal
	ApprovedDefectiveQty decimal.Decimal
}

// CreateReturn persiste una devolución abierta; RequestedQty = good + defective.
func (uc *ReturnUseCase) CreateReturn(ctx context.Context, in CreateReturnInput) (*entity.SpareRequest, error) {
	if !in.Technician.Valid() || in.Technician.Kind != entity.LocationTechnician {
		return nil, domain.NewValidationError("technician", "debe ser una ubicación de técnico")
	}
	if !in.ServiceCenter.Valid() || in.ServiceCenter.Kind != entity.LocationServiceCenter {
		return nil, domain.NewValidationError("service_center", "debe ser un centro de servicio")
	}
	if len(in.Lines) == 0 {
		return nil, domain.NewValidationError("lines", "se requiere al menos una línea")
	}

	now := uc.decider.now()
	req := &entity.SpareRequest{
		ID:          uuid.New().String(),
		Kind:        entity.RequestKindReturn,
		Source:      in.Technician,
		Destination: in.ServiceCenter,
		Status:      entity.RequestStatusOpen,
		RequestedBy: in.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, l := range in.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if l.PartID == "" {
			return nil, domain.NewValidationError(field+".part_id", "requerido")
		}
		if !validQty(l.GoodQty) || !validQty(l.DefectiveQty) {
			return nil, domain.NewValidationError(field, "cantidades deben ser enteros >= 0")
		}
		total := l.GoodQty.Add(l.DefectiveQty)
		if total.IsZero() {
			return nil, domain.NewValidationError(field, "la línea no devuelve nada")
		}
		req.Items = append(req.Items, &entity.SpareRequestItem{
			ID:                    uuid.New().String(),
			RequestID:             req.ID,
			PartID:                l.PartID,
			RequestedQty:          total,
			RequestedGoodQty:      l.GoodQty,
			RequestedDefectiveQty: l.DefectiveQty,
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

// ApproveReturn valida cada condición por separado contra lo declarado (el aprobador no puede
// reclasificar, solo reducir), recorta contra el stock del técnico en el bucket correspondiente
// y registra un único movimiento RETURN con hasta dos líneas por ítem.
func (uc *ReturnUseCase) ApproveReturn(ctx context.Context, actorID, requestID string, decisions []ReturnDecision) (*entity.SpareRequest, error) {
	byItem := make(map[string]ReturnDecision, len(decisions))
	for i, d := range decisions {
		field := fmt.Sprintf("decisions[%d]", i)
		if d.ItemID == "" {
			return nil, domain.NewValidationError(field+".item_id", "requerido")
		}
		if !validQty(d.ApprovedGoodQty) || !validQty(d.ApprovedDefectiveQty) {
			return nil, domain.NewValidationError(field, "cantidades deben ser enteros >= 0")
		}
		if _, dup := byItem[d.ItemID]; dup {
			return nil, domain.NewValidationError(field+".item_id", "línea repetida")
		}
		byItem[d.ItemID] = d
	}

	var out *entity.SpareRequest
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		req, err := loadOpenRequest(ctx, repos, requestID, entity.RequestKindReturn)
		if err != nil {
			return err
		}
		if err := checkUnknownItems(req, byItem); err != nil {
			return err
		}
		for _, it := range req.Items {
			d, ok := byItem[it.ID]
			if !ok {
				continue
			}
			if d.ApprovedGoodQty.GreaterThan(it.RequestedGoodQty) {
				return domain.NewValidationError("approved_good_qty",
					fmt.Sprintf("línea %s: %s excede lo declarado (%s)", it.ID, d.ApprovedGoodQty, it.RequestedGoodQty))
			}
			if d.ApprovedDefectiveQty.GreaterThan(it.RequestedDefectiveQty) {
				return domain.NewValidationError("approved_defective_qty",
					fmt.Sprintf("línea %s: %s excede lo declarado (%s)", it.ID, d.ApprovedDefectiveQty, it.RequestedDefectiveQty))
			}
		}

		stock, err := lockRoute(ctx, repos, req)
		if err != nil {
			return err
		}

		var lines []MovementLineInput
		complete := true
		for _, it := range req.Items {
			d := byItem[it.ID]
			rec := stock[it.PartID]

			good := domaininv.Clamp(d.ApprovedGoodQty, it.RequestedGoodQty, rec.Quantity(entity.BucketGood))
			takeAvailable(rec, entity.BucketGood, good)
			defective := domaininv.Clamp(d.ApprovedDefectiveQty, it.RequestedDefectiveQty, rec.Quantity(entity.BucketDefective))
			takeAvailable(rec, entity.BucketDefective, defective)

			total := good.Add(defective)
			it.ApprovedGoodQty = &good
			it.ApprovedDefectiveQty = &defective
			it.ApprovedQty = &total
			if total.LessThan(it.RequestedQty) {
				complete = false
			}
			if good.IsPositive() {
				lines = append(lines, MovementLineInput{PartID: it.PartID, Qty: good, Condition: entity.ConditionGood})
			}
			if defective.IsPositive() {
				lines = append(lines, MovementLineInput{PartID: it.PartID, Qty: defective, Condition: entity.ConditionDefective})
			}
		}

		if err := uc.decider.settle(ctx, repos, req, actorID, entity.MovementTypeReturn, lines, complete); err != nil {
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

