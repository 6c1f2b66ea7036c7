package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const stockMovementColumns = `id, type, source_kind, source_id, destination_kind, destination_id,
	reference_request_id, idempotency_key, total_qty, status, reason, created_by, created_at, completed_at`

// StockMovementRepo movimientos y sus líneas sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste la cabecera y sus líneas. Una clave de idempotencia repetida en un movimiento
// vivo devuelve domain.ErrDuplicate.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, type, source_kind, source_id, destination_kind, destination_id,
			reference_request_id, idempotency_key, total_qty, status, reason, created_by, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Type, m.Source.Kind, m.Source.ID, m.Destination.Kind, m.Destination.ID,
		m.ReferenceRequestID, nullIfEmpty(m.IdempotencyKey), m.TotalQty, m.Status, m.Reason, m.CreatedBy,
		m.CreatedAt, m.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: clave de idempotencia %s", domain.ErrDuplicate, m.IdempotencyKey)
		}
		return fmt.Errorf("insert stock movement: %w", err)
	}

	lineQuery := `
		INSERT INTO movement_line_items (id, movement_id, position, part_id, qty, condition)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, l := range m.Lines {
		if _, err := r.q.Exec(ctx, lineQuery, l.ID, m.ID, i, l.PartID, l.Qty, l.Condition); err != nil {
			return fmt.Errorf("insert movement line %d: %w", i, err)
		}
	}
	return nil
}

// UpdateStatus cambia el estado de un movimiento pendiente.
func (r *StockMovementRepo) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	query := `
		UPDATE stock_movements SET status = $2, completed_at = $3
		WHERE id = $1 AND status = 'pending'`
	tag, err := r.q.Exec(ctx, query, id, status, at)
	if err != nil {
		return fmt.Errorf("update movement status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: movimiento %s no está pendiente", domain.ErrInvalidStateTransition, id)
	}
	return nil
}

// GetByID obtiene un movimiento con sus líneas.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	return r.getOne(ctx, `SELECT `+stockMovementColumns+` FROM stock_movements WHERE id = $1`, id)
}

// GetForUpdate bloquea la cabecera del movimiento (SELECT FOR UPDATE).
func (r *StockMovementRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockMovement, error) {
	return r.getOne(ctx, `SELECT `+stockMovementColumns+` FROM stock_movements WHERE id = $1 FOR UPDATE`, id)
}

// FindByIdempotencyKey busca el movimiento vivo (no failed) con esa clave.
func (r *StockMovementRepo) FindByIdempotencyKey(ctx context.Context, key string) (*entity.StockMovement, error) {
	return r.getOne(ctx, `SELECT `+stockMovementColumns+`
		FROM stock_movements WHERE idempotency_key = $1 AND status <> 'failed'`, key)
}

// ListByRequest lista los movimientos de una solicitud.
func (r *StockMovementRepo) ListByRequest(ctx context.Context, requestID string) ([]*entity.StockMovement, error) {
	return r.list(ctx, "list movements by request", `SELECT `+stockMovementColumns+`
		FROM stock_movements WHERE reference_request_id = $1 ORDER BY created_at, id`, requestID)
}

// ListByLocation lista movimientos con origen o destino en la ubicación, más recientes primero.
func (r *StockMovementRepo) ListByLocation(ctx context.Context, loc entity.Location, limit, offset int) ([]*entity.StockMovement, error) {
	return r.list(ctx, "list movements by location", `SELECT `+stockMovementColumns+`
		FROM stock_movements
		WHERE (source_kind = $1 AND source_id = $2) OR (destination_kind = $1 AND destination_id = $2)
		ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`, loc.Kind, loc.ID, limit, offset)
}

// ListPending lista movimientos pendientes del tipo indicado.
func (r *StockMovementRepo) ListPending(ctx context.Context, movementType string) ([]*entity.StockMovement, error) {
	return r.list(ctx, "list pending movements", `SELECT `+stockMovementColumns+`
		FROM stock_movements WHERE type = $1 AND status = 'pending' ORDER BY created_at, id`, movementType)
}

func (r *StockMovementRepo) getOne(ctx context.Context, query string, args ...any) (*entity.StockMovement, error) {
	m, err := scanStockMovement(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	if err := r.loadLines(ctx, []*entity.StockMovement{m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *StockMovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanStockMovement(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *StockMovementRepo) loadLines(ctx context.Context, movements []*entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	byID := make(map[string]*entity.StockMovement, len(movements))
	ids := make([]string, 0, len(movements))
	for _, m := range movements {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}
	query := `
		SELECT id, movement_id, part_id, qty, condition
		FROM movement_line_items WHERE movement_id = ANY($1)
		ORDER BY movement_id, position`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list movement lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.MovementLineItem
		if err := rows.Scan(&l.ID, &l.MovementID, &l.PartID, &l.Qty, &l.Condition); err != nil {
			return fmt.Errorf("scan movement line: %w", err)
		}
		if m := byID[l.MovementID]; m != nil {
			m.Lines = append(m.Lines, &l)
		}
	}
	return rows.Err()
}

func scanStockMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var srcKind, srcID, dstKind, dstID string
	var key *string
	if err := row.Scan(&m.ID, &m.Type, &srcKind, &srcID, &dstKind, &dstID,
		&m.ReferenceRequestID, &key, &m.TotalQty, &m.Status, &m.Reason, &m.CreatedBy, &m.CreatedAt, &m.CompletedAt); err != nil {
		return nil, err
	}
	m.Source = location(srcKind, srcID)
	m.Destination = location(dstKind, dstID)
	m.IdempotencyKey = derefString(key)
	return &m, nil
}
