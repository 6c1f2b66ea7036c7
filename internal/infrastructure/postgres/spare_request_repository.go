package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

var _ repository.SpareRequestRepository = (*SpareRequestRepo)(nil)

const spareRequestColumns = `id, kind, source_kind, source_id, destination_kind, destination_id, status,
	requested_by, decided_by, rejection_reason, created_at, updated_at, decided_at`

// SpareRequestRepo solicitudes y sus líneas sobre PostgreSQL (usable con pool o tx).
type SpareRequestRepo struct {
	q Querier
}

// NewSpareRequestRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSpareRequestRepository(q Querier) *SpareRequestRepo {
	return &SpareRequestRepo{q: q}
}

// Create inserta la cabecera y sus líneas. Con pool (sin tx) no es atómico; los casos de uso
// que necesitan atomicidad lo llaman con el repo de la tx.
func (r *SpareRequestRepo) Create(ctx context.Context, req *entity.SpareRequest) error {
	query := `
		INSERT INTO spare_requests (id, kind, source_kind, source_id, destination_kind, destination_id, status,
			requested_by, decided_by, rejection_reason, created_at, updated_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		req.ID, req.Kind, req.Source.Kind, req.Source.ID, req.Destination.Kind, req.Destination.ID, req.Status,
		req.RequestedBy, req.DecidedBy, req.RejectionReason, req.CreatedAt, req.UpdatedAt, req.DecidedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert spare request: %w", err)
	}

	itemQuery := `
		INSERT INTO spare_request_items (id, request_id, position, part_id, requested_qty, approved_qty,
			requested_good_qty, requested_defective_qty, approved_good_qty, approved_defective_qty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for i, it := range req.Items {
		_, err := r.q.Exec(ctx, itemQuery,
			it.ID, req.ID, i, it.PartID, it.RequestedQty, nullDecimal(it.ApprovedQty),
			it.RequestedGoodQty, it.RequestedDefectiveQty, nullDecimal(it.ApprovedGoodQty), nullDecimal(it.ApprovedDefectiveQty),
		)
		if err != nil {
			return fmt.Errorf("insert spare request item %d: %w", i, err)
		}
	}
	return nil
}

// GetByID obtiene una solicitud con sus líneas.
func (r *SpareRequestRepo) GetByID(ctx context.Context, id string) (*entity.SpareRequest, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate bloquea la cabecera (SELECT FOR UPDATE) y carga sus líneas.
func (r *SpareRequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.SpareRequest, error) {
	return r.get(ctx, id, true)
}

func (r *SpareRequestRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.SpareRequest, error) {
	query := `SELECT ` + spareRequestColumns + ` FROM spare_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	req, err := scanSpareRequest(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get spare request: %w", err)
	}
	if err := r.loadItems(ctx, []*entity.SpareRequest{req}); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateDecision persiste el cierre de la solicitud y lo aprobado por línea.
func (r *SpareRequestRepo) UpdateDecision(ctx context.Context, req *entity.SpareRequest) error {
	query := `
		UPDATE spare_requests
		SET status = $2, decided_by = $3, rejection_reason = $4, decided_at = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, req.ID, req.Status, req.DecidedBy, req.RejectionReason, req.DecidedAt, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update spare request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	itemQuery := `
		UPDATE spare_request_items
		SET approved_qty = $2, approved_good_qty = $3, approved_defective_qty = $4
		WHERE id = $1`
	for _, it := range req.Items {
		if it.ApprovedQty == nil {
			continue
		}
		if _, err := r.q.Exec(ctx, itemQuery, it.ID,
			nullDecimal(it.ApprovedQty), nullDecimal(it.ApprovedGoodQty), nullDecimal(it.ApprovedDefectiveQty),
		); err != nil {
			return fmt.Errorf("update spare request item %s: %w", it.ID, err)
		}
	}
	return nil
}

// List lista solicitudes (más recientes primero) con sus líneas.
func (r *SpareRequestRepo) List(ctx context.Context, filter repository.SpareRequestFilter) ([]*entity.SpareRequest, error) {
	var where []string
	var args []any
	pos := 1
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", pos))
		args = append(args, filter.Status)
		pos++
	}
	if filter.Kind != "" {
		where = append(where, fmt.Sprintf("kind = $%d", pos))
		args = append(args, filter.Kind)
		pos++
	}
	if filter.Location != nil {
		where = append(where, fmt.Sprintf(
			"((source_kind = $%d AND source_id = $%d) OR (destination_kind = $%d AND destination_id = $%d))",
			pos, pos+1, pos, pos+1))
		args = append(args, filter.Location.Kind, filter.Location.ID)
		pos += 2
	}

	query := `SELECT ` + spareRequestColumns + ` FROM spare_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list spare requests: %w", err)
	}
	var list []*entity.SpareRequest
	for rows.Next() {
		req, err := scanSpareRequest(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan spare request: %w", err)
		}
		list = append(list, req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *SpareRequestRepo) loadItems(ctx context.Context, reqs []*entity.SpareRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	byID := make(map[string]*entity.SpareRequest, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		byID[req.ID] = req
		ids = append(ids, req.ID)
	}
	query := `
		SELECT id, request_id, part_id, requested_qty, approved_qty,
			requested_good_qty, requested_defective_qty, approved_good_qty, approved_defective_qty
		FROM spare_request_items WHERE request_id = ANY($1)
		ORDER BY request_id, position`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list spare request items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.SpareRequestItem
		var approved, approvedGood, approvedDefective decimal.NullDecimal
		if err := rows.Scan(&it.ID, &it.RequestID, &it.PartID, &it.RequestedQty, &approved,
			&it.RequestedGoodQty, &it.RequestedDefectiveQty, &approvedGood, &approvedDefective); err != nil {
			return fmt.Errorf("scan spare request item: %w", err)
		}
		it.ApprovedQty = decimalPtr(approved)
		it.ApprovedGoodQty = decimalPtr(approvedGood)
		it.ApprovedDefectiveQty = decimalPtr(approvedDefective)
		if req := byID[it.RequestID]; req != nil {
			req.Items = append(req.Items, &it)
		}
	}
	return rows.Err()
}

func scanSpareRequest(row pgx.Row) (*entity.SpareRequest, error) {
	var req entity.SpareRequest
	var srcKind, srcID, dstKind, dstID string
	if err := row.Scan(&req.ID, &req.Kind, &srcKind, &srcID, &dstKind, &dstID, &req.Status,
		&req.RequestedBy, &req.DecidedBy, &req.RejectionReason, &req.CreatedAt, &req.UpdatedAt, &req.DecidedAt); err != nil {
		return nil, err
	}
	req.Source = location(srcKind, srcID)
	req.Destination = location(dstKind, dstID)
	return &req, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
