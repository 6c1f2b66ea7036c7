package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/pkg/logger"
)

// rejectionNoStock motivo registrado cuando ninguna línea recibe cantidad.
const rejectionNoStock = "sin cantidad aprobada"

// decider lógica de cierre compartida por asignaciones y devoluciones.
type decider struct {
	recorder *MovementRecorder
	log      *logger.Logger
	now      func() time.Time
}

// loadOpenRequest bloquea la cabecera de la solicitud y verifica que siga abierta y sea del tipo esperado.
func loadOpenRequest(ctx context.Context, repos TxRepos, requestID, kind string) (*entity.SpareRequest, error) {
	req, err := repos.Requests.GetForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	if req.IsClosed() {
		return nil, fmt.Errorf("%w: solicitud %s está %s", domain.ErrInvalidStateTransition, req.ID, req.Status)
	}
	if kind != "" && req.Kind != kind {
		return nil, domain.NewValidationError("kind", fmt.Sprintf("la solicitud es de tipo %s", req.Kind))
	}
	return req, nil
}

// lockRoute bloquea en un solo LockAll las filas (repuesto, origen) y (repuesto, destino) de todas
// las líneas antes de calcular el clamp. El orden global de claves evita interbloqueos entre
// flujos opuestos (asignación SC→T y devolución T→SC). Devuelve las filas de origen por repuesto.
func lockRoute(ctx context.Context, repos TxRepos, req *entity.SpareRequest) (map[string]*entity.InventoryRecord, error) {
	keys := make([]RecordKey, 0, 2*len(req.Items))
	for _, it := range req.Items {
		keys = append(keys, RecordKey{it.PartID, req.Source}, RecordKey{it.PartID, req.Destination})
	}
	locked, err := NewLedger(repos.Records).LockAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	byPart := make(map[string]*entity.InventoryRecord, len(req.Items))
	for _, it := range req.Items {
		byPart[it.PartID] = locked[RecordKey{it.PartID, req.Source}.String()]
	}
	return byPart, nil
}

// settle cierra la decisión: sin líneas → rejected sin movimiento; si no, registra un único
// movimiento en la misma tx y deja approved o partially_approved.
func (d *decider) settle(
	ctx context.Context,
	repos TxRepos,
	req *entity.SpareRequest,
	actorID, movementType string,
	lines []MovementLineInput,
	complete bool,
) error {
	now := d.now()
	req.DecidedBy = actorID
	req.DecidedAt = &now
	req.UpdatedAt = now

	if len(lines) == 0 {
		req.Status = entity.RequestStatusRejected
		req.RejectionReason = rejectionNoStock
		return repos.Requests.UpdateDecision(ctx, req)
	}

	ref := req.ID
	m, err := d.recorder.RecordInTx(ctx, repos, RecordMovementInput{
		Type:               movementType,
		Source:             req.Source,
		Destination:        req.Destination,
		ReferenceRequestID: &ref,
		IdempotencyKey:     requestKey(req.ID),
		ActorID:            actorID,
		Lines:              lines,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			// Tras el clamp no debería ocurrir: señal de inconsistencia del ledger.
			d.log.Error().Err(err).
				Str("request_id", req.ID).
				Msg("inconsistencia: stock insuficiente después del clamp")
		}
		return err
	}

	if complete {
		req.Status = entity.RequestStatusApproved
	} else {
		req.Status = entity.RequestStatusPartiallyApproved
	}
	if err := repos.Requests.UpdateDecision(ctx, req); err != nil {
		return err
	}
	d.log.Info().
		Str("request_id", req.ID).
		Str("status", req.Status).
		Str("movement_id", m.ID).
		Str("total_qty", m.TotalQty.String()).
		Msg("solicitud decidida")
	return nil
}

// takeAvailable descuenta q de la fila bloqueada en memoria para que varias líneas del mismo
// repuesto en una misma llamada no cuenten dos veces el mismo stock.
func takeAvailable(rec *entity.InventoryRecord, bucket string, q decimal.Decimal) {
	rec.SetQuantity(bucket, rec.Quantity(bucket).Sub(q))
}

func checkUnknownItems[T any](req *entity.SpareRequest, byItem map[string]T) error {
	for id := range byItem {
		if req.Item(id) == nil {
			return fmt.Errorf("%w: línea %s no pertenece a la solicitud %s", domain.ErrNotFound, id, req.ID)
		}
	}
	return nil
}
