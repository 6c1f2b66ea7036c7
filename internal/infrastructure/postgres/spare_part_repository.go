package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

var _ repository.SparePartRepository = (*SparePartRepo)(nil)

// SparePartRepo lectura del catálogo de repuestos sobre PostgreSQL.
type SparePartRepo struct {
	q Querier
}

// NewSparePartRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSparePartRepository(q Querier) *SparePartRepo {
	return &SparePartRepo{q: q}
}

// GetByID obtiene un repuesto por ID.
func (r *SparePartRepo) GetByID(ctx context.Context, id string) (*entity.SparePart, error) {
	query := `SELECT id, code, description FROM spare_parts WHERE id = $1`
	return r.getOne(ctx, "get spare part", query, id)
}

// GetByCode obtiene un repuesto por código.
func (r *SparePartRepo) GetByCode(ctx context.Context, code string) (*entity.SparePart, error) {
	query := `SELECT id, code, description FROM spare_parts WHERE code = $1`
	return r.getOne(ctx, "get spare part by code", query, code)
}

// List lista repuestos; search filtra por código o descripción (ILIKE).
func (r *SparePartRepo) List(ctx context.Context, search string, limit, offset int) ([]*entity.SparePart, error) {
	query := `SELECT id, code, description FROM spare_parts`
	args := []any{}
	pos := 1
	if search != "" {
		query += fmt.Sprintf(" WHERE code ILIKE $%d OR description ILIKE $%d", pos, pos)
		args = append(args, "%"+search+"%")
		pos++
	}
	query += fmt.Sprintf(" ORDER BY code LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list spare parts: %w", err)
	}
	defer rows.Close()
	var list []*entity.SparePart
	for rows.Next() {
		var p entity.SparePart
		if err := rows.Scan(&p.ID, &p.Code, &p.Description); err != nil {
			return nil, fmt.Errorf("scan spare part: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

func (r *SparePartRepo) getOne(ctx context.Context, op, query string, arg string) (*entity.SparePart, error) {
	var p entity.SparePart
	err := r.q.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Code, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}
