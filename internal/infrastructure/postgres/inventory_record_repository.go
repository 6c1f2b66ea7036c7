package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

var _ repository.InventoryRecordRepository = (*InventoryRecordRepo)(nil)

const inventoryRecordColumns = `part_id, location_kind, location_id, qty_good, qty_defective, qty_in_transit, updated_at`

// InventoryRecordRepo implementación del ledger sobre PostgreSQL (usable con pool o tx).
type InventoryRecordRepo struct {
	q Querier
}

// NewInventoryRecordRepository construye el adaptador del ledger. Pasar pool o tx (Querier).
func NewInventoryRecordRepository(q Querier) *InventoryRecordRepo {
	return &InventoryRecordRepo{q: q}
}

// Get obtiene la fila (repuesto, ubicación); si no existe devuelve un registro en cero.
func (r *InventoryRecordRepo) Get(ctx context.Context, partID string, loc entity.Location) (*entity.InventoryRecord, error) {
	query := `SELECT ` + inventoryRecordColumns + `
		FROM inventory_records WHERE part_id = $1 AND location_kind = $2 AND location_id = $3`
	rec, err := scanInventoryRecord(r.q.QueryRow(ctx, query, partID, loc.Kind, loc.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.NewInventoryRecord(partID, loc), nil
		}
		return nil, fmt.Errorf("get inventory record: %w", err)
	}
	return rec, nil
}

// GetForUpdate crea la fila en cero si falta y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *InventoryRecordRepo) GetForUpdate(ctx context.Context, partID string, loc entity.Location) (*entity.InventoryRecord, error) {
	insert := `
		INSERT INTO inventory_records (part_id, location_kind, location_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (part_id, location_kind, location_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, partID, loc.Kind, loc.ID); err != nil {
		return nil, fmt.Errorf("ensure inventory record: %w", err)
	}
	query := `SELECT ` + inventoryRecordColumns + `
		FROM inventory_records WHERE part_id = $1 AND location_kind = $2 AND location_id = $3
		FOR UPDATE`
	rec, err := scanInventoryRecord(r.q.QueryRow(ctx, query, partID, loc.Kind, loc.ID))
	if err != nil {
		return nil, fmt.Errorf("get inventory record for update: %w", err)
	}
	return rec, nil
}

// Save persiste las tres cantidades de una fila ya bloqueada.
func (r *InventoryRecordRepo) Save(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		UPDATE inventory_records
		SET qty_good = $4, qty_defective = $5, qty_in_transit = $6, updated_at = $7
		WHERE part_id = $1 AND location_kind = $2 AND location_id = $3`
	tag, err := r.q.Exec(ctx, query,
		rec.PartID, rec.Location.Kind, rec.Location.ID,
		rec.QtyGood, rec.QtyDefective, rec.QtyInTransit, rec.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: cantidad negativa en %s/%s", domain.ErrInsufficientStock, rec.Location, rec.PartID)
		}
		return fmt.Errorf("save inventory record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save inventory record: fila %s/%s no bloqueada", rec.Location, rec.PartID)
	}
	return nil
}

// ListByLocation lista las filas de una ubicación ordenadas por repuesto.
func (r *InventoryRecordRepo) ListByLocation(ctx context.Context, loc entity.Location) ([]*entity.InventoryRecord, error) {
	query := `SELECT ` + inventoryRecordColumns + `
		FROM inventory_records WHERE location_kind = $1 AND location_id = $2
		ORDER BY part_id`
	return r.list(ctx, "list inventory by location", query, loc.Kind, loc.ID)
}

// ListInTransit lista las filas con tránsito pendiente.
func (r *InventoryRecordRepo) ListInTransit(ctx context.Context) ([]*entity.InventoryRecord, error) {
	query := `SELECT ` + inventoryRecordColumns + `
		FROM inventory_records WHERE qty_in_transit > 0
		ORDER BY location_kind, location_id, part_id`
	return r.list(ctx, "list inventory in transit", query)
}

func (r *InventoryRecordRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.InventoryRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.InventoryRecord
	for rows.Next() {
		rec, err := scanInventoryRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory record: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func scanInventoryRecord(row pgx.Row) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	var kind, id string
	if err := row.Scan(&rec.PartID, &kind, &id, &rec.QtyGood, &rec.QtyDefective, &rec.QtyInTransit, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Location = location(kind, id)
	return &rec, nil
}
