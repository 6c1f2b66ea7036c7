package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
	"github.com/jhoicas/spare-ledger/pkg/logger"
)

// requestKeyPrefix prefijo de las claves de idempotencia de los movimientos que generan
// las solicitudes. Reservado: los callers externos no pueden usarlo.
const requestKeyPrefix = "request:"

func requestKey(requestID string) string { return requestKeyPrefix + requestID }

// MovementRecorder registra movimientos de stock de forma transaccional: cabecera, líneas y
// transferencias en el ledger se confirman juntas o no se persiste nada.
type MovementRecorder struct {
	txRunner     TxRunner
	movementRepo repository.StockMovementRepository
	log          *logger.Logger
	now          func() time.Time
}

// NewMovementRecorder construye el caso de uso. movementRepo se usa solo para lecturas fuera de tx.
func NewMovementRecorder(txRunner TxRunner, movementRepo repository.StockMovementRepository, log *logger.Logger) *MovementRecorder {
	return &MovementRecorder{
		txRunner:     txRunner,
		movementRepo: movementRepo,
		log:          log,
		now:          time.Now,
	}
}

// MovementLineInput una línea (repuesto, cantidad, condición) de un movimiento.
type MovementLineInput struct {
	PartID    string
	Qty       decimal.Decimal
	Condition string
}

// RecordMovementInput entrada para un movimiento entre dos ubicaciones.
// IdempotencyKey es opcional; si se indica y ya existe un movimiento no fallido con esa clave,
// se devuelve ese movimiento sin escribir nada.
type RecordMovementInput struct {
	Type               string
	Source             entity.Location
	Destination        entity.Location
	ReferenceRequestID *string
	IdempotencyKey     string
	ActorID            string
	Lines              []MovementLineInput
}

// AdjustmentInput entrada para ADJUSTMENT (entrada de stock) o CONSUMPTION (consumo) en una ubicación.
type AdjustmentInput struct {
	Type           string
	Location       entity.Location
	Reason         string
	IdempotencyKey string
	ActorID        string
	Lines          []MovementLineInput
}

// RecordMovement abre una transacción y registra el movimiento completo.
func (r *MovementRecorder) RecordMovement(ctx context.Context, in RecordMovementInput) (*entity.StockMovement, error) {
	if err := validateMovementInput(in); err != nil {
		return nil, err
	}
	if err := checkCallerKey(in.IdempotencyKey); err != nil {
		return nil, err
	}
	var out *entity.StockMovement
	err := r.txRunner.Run(ctx, func(repos TxRepos) error {
		m, err := r.RecordInTx(ctx, repos, in)
		if err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().
		Str("movement_id", out.ID).
		Str("type", out.Type).
		Str("source", out.Source.String()).
		Str("destination", out.Destination.String()).
		Str("total_qty", out.TotalQty.String()).
		Msg("movimiento registrado")
	return out, nil
}

// RecordInTx registra el movimiento usando los repositorios de la transacción del caller:
// (1) cabecera pending con total = suma de líneas, (2) líneas, (3) Transfer por línea,
// (4) completed (DISPATCH queda pending hasta la recepción).
// Si una línea falla el error la identifica y el caller debe hacer Rollback.
func (r *MovementRecorder) RecordInTx(ctx context.Context, repos TxRepos, in RecordMovementInput) (*entity.StockMovement, error) {
	if err := validateMovementInput(in); err != nil {
		return nil, err
	}
	existing, err := r.findIdempotent(ctx, repos, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !sameOperation(existing, in.Type, in.Source, in.Destination, in.ReferenceRequestID) {
			return nil, fmt.Errorf("%w: clave de idempotencia %s ya usada por el movimiento %s",
				domain.ErrDuplicate, in.IdempotencyKey, existing.ID)
		}
		return existing, nil
	}

	now := r.now()
	m := r.newMovement(in.Type, in.Source, in.Destination, in.IdempotencyKey, in.ActorID, in.Lines, now)
	m.ReferenceRequestID = in.ReferenceRequestID
	if err := repos.Movements.Create(ctx, m); err != nil {
		return nil, err
	}

	ledger := NewLedger(repos.Records)
	if _, err := ledger.LockAll(ctx, movementKeys(m)); err != nil {
		return nil, err
	}

	for i, line := range m.Lines {
		fromBucket := entity.BucketForCondition(line.Condition)
		toBucket := fromBucket
		if m.Type == entity.MovementTypeDispatch {
			toBucket = entity.BucketInTransit
		}
		if err := ledger.Transfer(ctx, line.PartID, m.Source, fromBucket, m.Destination, toBucket, line.Qty); err != nil {
			return nil, lineError(i, line, err)
		}
	}

	if m.Type != entity.MovementTypeDispatch {
		if err := r.complete(ctx, repos, m, now); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordAdjustment registra una entrada (ADJUSTMENT) o un consumo (CONSUMPTION) en una sola ubicación.
// Son los bordes por donde el stock entra o sale de la jerarquía.
func (r *MovementRecorder) RecordAdjustment(ctx context.Context, in AdjustmentInput) (*entity.StockMovement, error) {
	if !entity.IsSingleLocationType(in.Type) {
		return nil, domain.NewValidationError("type", "tipo de ajuste inválido: "+in.Type)
	}
	if !in.Location.Valid() {
		return nil, domain.NewValidationError("location", "ubicación inválida")
	}
	if err := validateLines(in.Lines); err != nil {
		return nil, err
	}
	if err := checkCallerKey(in.IdempotencyKey); err != nil {
		return nil, err
	}

	var out *entity.StockMovement
	err := r.txRunner.Run(ctx, func(repos TxRepos) error {
		existing, err := r.findIdempotent(ctx, repos, in.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			if !sameOperation(existing, in.Type, in.Location, in.Location, nil) {
				return fmt.Errorf("%w: clave de idempotencia %s ya usada por el movimiento %s",
					domain.ErrDuplicate, in.IdempotencyKey, existing.ID)
			}
			out = existing
			return nil
		}

		now := r.now()
		m := r.newMovement(in.Type, in.Location, in.Location, in.IdempotencyKey, in.ActorID, in.Lines, now)
		m.Reason = in.Reason
		if err := repos.Movements.Create(ctx, m); err != nil {
			return err
		}
		ledger := NewLedger(repos.Records)
		for i, line := range m.Lines {
			delta := line.Qty
			if m.Type == entity.MovementTypeConsumption {
				delta = delta.Neg()
			}
			if err := ledger.Adjust(ctx, line.PartID, m.Source, entity.BucketForCondition(line.Condition), delta); err != nil {
				return lineError(i, line, err)
			}
		}
		if err := r.complete(ctx, repos, m, now); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().
		Str("movement_id", out.ID).
		Str("type", out.Type).
		Str("location", out.Source.String()).
		Str("total_qty", out.TotalQty.String()).
		Msg("ajuste registrado")
	return out, nil
}

// ConfirmReceipt libera el tránsito de un DISPATCH pendiente hacia el bucket de la condición
// de cada línea en el destino y completa el movimiento.
func (r *MovementRecorder) ConfirmReceipt(ctx context.Context, movementID, actorID string) (*entity.StockMovement, error) {
	return r.settleDispatch(ctx, movementID, actorID, true)
}

// CancelDispatch devuelve el tránsito de un DISPATCH pendiente al origen y lo marca failed.
func (r *MovementRecorder) CancelDispatch(ctx context.Context, movementID, actorID string) (*entity.StockMovement, error) {
	return r.settleDispatch(ctx, movementID, actorID, false)
}

func (r *MovementRecorder) settleDispatch(ctx context.Context, movementID, actorID string, received bool) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	err := r.txRunner.Run(ctx, func(repos TxRepos) error {
		m, err := repos.Movements.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if m.Type != entity.MovementTypeDispatch || m.Status != entity.MovementStatusPending {
			return fmt.Errorf("%w: movimiento %s es %s/%s", domain.ErrInvalidStateTransition, m.ID, m.Type, m.Status)
		}

		ledger := NewLedger(repos.Records)
		if _, err := ledger.LockAll(ctx, movementKeys(m)); err != nil {
			return err
		}
		for i, line := range m.Lines {
			target, bucket := m.Destination, entity.BucketForCondition(line.Condition)
			if !received {
				target = m.Source
			}
			if err := ledger.Transfer(ctx, line.PartID, m.Destination, entity.BucketInTransit, target, bucket, line.Qty); err != nil {
				return lineError(i, line, err)
			}
		}

		now := r.now()
		if received {
			err = r.complete(ctx, repos, m, now)
		} else {
			err = repos.Movements.UpdateStatus(ctx, m.ID, entity.MovementStatusFailed, now)
			m.Status = entity.MovementStatusFailed
			m.CompletedAt = &now
		}
		if err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().
		Str("movement_id", out.ID).
		Str("status", out.Status).
		Str("actor", actorID).
		Msg("despacho cerrado")
	if !received && out.ReferenceRequestID != nil {
		// La solicitud conserva su decisión; el movimiento failed queda visible en su detalle.
		r.log.Warn().
			Str("movement_id", out.ID).
			Str("request_id", *out.ReferenceRequestID).
			Msg("despacho de una solicitud anulado")
	}
	return out, nil
}

// GetMovement obtiene un movimiento con sus líneas.
func (r *MovementRecorder) GetMovement(ctx context.Context, id string) (*entity.StockMovement, error) {
	m, err := r.movementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

// ListByRequest lista los movimientos generados por una solicitud.
func (r *MovementRecorder) ListByRequest(ctx context.Context, requestID string) ([]*entity.StockMovement, error) {
	return r.movementRepo.ListByRequest(ctx, requestID)
}

// ListByLocation lista movimientos con origen o destino en la ubicación.
func (r *MovementRecorder) ListByLocation(ctx context.Context, loc entity.Location, limit, offset int) ([]*entity.StockMovement, error) {
	if !loc.Valid() {
		return nil, domain.NewValidationError("location", "ubicación inválida")
	}
	return r.movementRepo.ListByLocation(ctx, loc, limit, offset)
}

func (r *MovementRecorder) findIdempotent(ctx context.Context, repos TxRepos, key string) (*entity.StockMovement, error) {
	if key == "" {
		return nil, nil
	}
	return repos.Movements.FindByIdempotencyKey(ctx, key)
}

// sameOperation indica si un movimiento previo con la misma clave corresponde a la misma operación.
// Una clave repetida con otro tipo, otras ubicaciones u otra solicitud es un duplicado, no un reintento.
func sameOperation(m *entity.StockMovement, movementType string, source, destination entity.Location, ref *string) bool {
	if m.Type != movementType || m.Source != source || m.Destination != destination {
		return false
	}
	if (m.ReferenceRequestID == nil) != (ref == nil) {
		return false
	}
	return ref == nil || *m.ReferenceRequestID == *ref
}

func checkCallerKey(key string) error {
	if strings.HasPrefix(key, requestKeyPrefix) {
		return domain.NewValidationError("idempotency_key", "el prefijo "+requestKeyPrefix+" está reservado")
	}
	return nil
}

func (r *MovementRecorder) newMovement(
	movementType string,
	source, destination entity.Location,
	key, actorID string,
	lines []MovementLineInput,
	now time.Time,
) *entity.StockMovement {
	m := &entity.StockMovement{
		ID:             uuid.New().String(),
		Type:           movementType,
		Source:         source,
		Destination:    destination,
		IdempotencyKey: key,
		Status:         entity.MovementStatusPending,
		CreatedBy:      actorID,
		CreatedAt:      now,
	}
	for _, l := range lines {
		m.Lines = append(m.Lines, &entity.MovementLineItem{
			ID:         uuid.New().String(),
			MovementID: m.ID,
			PartID:     l.PartID,
			Qty:        l.Qty,
			Condition:  l.Condition,
		})
	}
	m.TotalQty = m.LinesTotal()
	return m
}

func (r *MovementRecorder) complete(ctx context.Context, repos TxRepos, m *entity.StockMovement, now time.Time) error {
	if err := repos.Movements.UpdateStatus(ctx, m.ID, entity.MovementStatusCompleted, now); err != nil {
		return err
	}
	m.Status = entity.MovementStatusCompleted
	m.CompletedAt = &now
	return nil
}

func movementKeys(m *entity.StockMovement) []RecordKey {
	keys := make([]RecordKey, 0, 2*len(m.Lines))
	for _, line := range m.Lines {
		keys = append(keys, RecordKey{line.PartID, m.Source}, RecordKey{line.PartID, m.Destination})
	}
	return keys
}

// lineError marca la línea culpable. InsufficientStockError conserva su tipo para errors.As.
func lineError(i int, line *entity.MovementLineItem, err error) error {
	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		ise.Line = i
		return ise
	}
	return fmt.Errorf("línea %d (parte %s): %w", i, line.PartID, err)
}

func validateMovementInput(in RecordMovementInput) error {
	if !entity.IsTransferType(in.Type) {
		return domain.NewValidationError("type", "tipo de movimiento inválido: "+in.Type)
	}
	if !in.Source.Valid() {
		return domain.NewValidationError("source", "ubicación inválida")
	}
	if !in.Destination.Valid() {
		return domain.NewValidationError("destination", "ubicación inválida")
	}
	if in.Source.Key() == in.Destination.Key() {
		return domain.NewValidationError("destination", "origen y destino deben ser distintos")
	}
	return validateLines(in.Lines)
}

func validateLines(lines []MovementLineInput) error {
	if len(lines) == 0 {
		return domain.NewValidationError("lines", "se requiere al menos una línea")
	}
	for i, l := range lines {
		field := fmt.Sprintf("lines[%d]", i)
		if l.PartID == "" {
			return domain.NewValidationError(field+".part_id", "requerido")
		}
		if !validQty(l.Qty) || l.Qty.IsZero() {
			return domain.NewValidationError(field+".qty", "debe ser un entero positivo")
		}
		if !entity.ValidCondition(l.Condition) {
			return domain.NewValidationError(field+".condition", "condición inválida: "+l.Condition)
		}
	}
	return nil
}
