package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

var (
	_ repository.InventoryRecordRepository = (*InventoryRecordRepo)(nil)
	_ repository.SpareRequestRepository    = (*SpareRequestRepo)(nil)
	_ repository.StockMovementRepository   = (*StockMovementRepo)(nil)
	_ repository.SparePartRepository       = (*SparePartRepo)(nil)
)

// InventoryRecordRepo ledger en memoria. Devuelve copias: el caller modifica su copia y llama Save.
type InventoryRecordRepo struct{ v *view }

func (r *InventoryRecordRepo) Get(_ context.Context, partID string, loc entity.Location) (*entity.InventoryRecord, error) {
	var out *entity.InventoryRecord
	err := r.v.do(func(st *state) error {
		if rec, ok := st.records[recordKey(partID, loc)]; ok {
			out = cloneRecord(rec)
			return nil
		}
		out = entity.NewInventoryRecord(partID, loc)
		return nil
	})
	return out, err
}

func (r *InventoryRecordRepo) GetForUpdate(_ context.Context, partID string, loc entity.Location) (*entity.InventoryRecord, error) {
	var out *entity.InventoryRecord
	err := r.v.do(func(st *state) error {
		key := recordKey(partID, loc)
		rec, ok := st.records[key]
		if !ok {
			rec = entity.NewInventoryRecord(partID, loc)
			st.records[key] = rec
		}
		out = cloneRecord(rec)
		return nil
	})
	return out, err
}

func (r *InventoryRecordRepo) Save(_ context.Context, rec *entity.InventoryRecord) error {
	return r.v.do(func(st *state) error {
		key := recordKey(rec.PartID, rec.Location)
		if _, ok := st.records[key]; !ok {
			return fmt.Errorf("save inventory record: fila %s/%s no bloqueada", rec.Location, rec.PartID)
		}
		if rec.QtyGood.IsNegative() || rec.QtyDefective.IsNegative() || rec.QtyInTransit.IsNegative() {
			return fmt.Errorf("%w: cantidad negativa en %s/%s", domain.ErrInsufficientStock, rec.Location, rec.PartID)
		}
		st.records[key] = cloneRecord(rec)
		return nil
	})
}

func (r *InventoryRecordRepo) ListByLocation(_ context.Context, loc entity.Location) ([]*entity.InventoryRecord, error) {
	return r.filter(func(rec *entity.InventoryRecord) bool { return rec.Location == loc })
}

func (r *InventoryRecordRepo) ListInTransit(_ context.Context) ([]*entity.InventoryRecord, error) {
	return r.filter(func(rec *entity.InventoryRecord) bool { return rec.QtyInTransit.IsPositive() })
}

func (r *InventoryRecordRepo) filter(keep func(*entity.InventoryRecord) bool) ([]*entity.InventoryRecord, error) {
	var out []*entity.InventoryRecord
	err := r.v.do(func(st *state) error {
		keys := make([]string, 0, len(st.records))
		for k, rec := range st.records {
			if keep(rec) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, cloneRecord(st.records[k]))
		}
		return nil
	})
	return out, err
}

// SpareRequestRepo solicitudes en memoria.
type SpareRequestRepo struct{ v *view }

func (r *SpareRequestRepo) Create(_ context.Context, req *entity.SpareRequest) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.requests[req.ID]; ok {
			return domain.ErrDuplicate
		}
		st.requests[req.ID] = cloneRequest(req)
		st.requestOrder = append(st.requestOrder, req.ID)
		return nil
	})
}

func (r *SpareRequestRepo) GetByID(_ context.Context, id string) (*entity.SpareRequest, error) {
	var out *entity.SpareRequest
	err := r.v.do(func(st *state) error {
		if req, ok := st.requests[id]; ok {
			out = cloneRequest(req)
		}
		return nil
	})
	return out, err
}

func (r *SpareRequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.SpareRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *SpareRequestRepo) UpdateDecision(_ context.Context, req *entity.SpareRequest) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.requests[req.ID]; !ok {
			return domain.ErrNotFound
		}
		st.requests[req.ID] = cloneRequest(req)
		return nil
	})
}

func (r *SpareRequestRepo) List(_ context.Context, f repository.SpareRequestFilter) ([]*entity.SpareRequest, error) {
	var out []*entity.SpareRequest
	err := r.v.do(func(st *state) error {
		var matched []*entity.SpareRequest
		for _, id := range st.requestOrder {
			req := st.requests[id]
			if f.Status != "" && req.Status != f.Status {
				continue
			}
			if f.Kind != "" && req.Kind != f.Kind {
				continue
			}
			if f.Location != nil && req.Source != *f.Location && req.Destination != *f.Location {
				continue
			}
			matched = append(matched, req)
		}
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
		for _, req := range page(matched, f.Limit, f.Offset) {
			out = append(out, cloneRequest(req))
		}
		return nil
	})
	return out, err
}

// StockMovementRepo movimientos en memoria.
type StockMovementRepo struct{ v *view }

func (r *StockMovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.movements[m.ID]; ok {
			return domain.ErrDuplicate
		}
		if m.IdempotencyKey != "" {
			for _, existing := range st.movements {
				if existing.IdempotencyKey == m.IdempotencyKey && existing.Status != entity.MovementStatusFailed {
					return fmt.Errorf("%w: clave de idempotencia %s", domain.ErrDuplicate, m.IdempotencyKey)
				}
			}
		}
		st.movements[m.ID] = cloneMovement(m)
		st.movementOrder = append(st.movementOrder, m.ID)
		return nil
	})
}

func (r *StockMovementRepo) UpdateStatus(_ context.Context, id, status string, at time.Time) error {
	return r.v.do(func(st *state) error {
		m, ok := st.movements[id]
		if !ok || m.Status != entity.MovementStatusPending {
			return fmt.Errorf("%w: movimiento %s no está pendiente", domain.ErrInvalidStateTransition, id)
		}
		m.Status = status
		m.CompletedAt = &at
		return nil
	})
}

func (r *StockMovementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	err := r.v.do(func(st *state) error {
		if m, ok := st.movements[id]; ok {
			out = cloneMovement(m)
		}
		return nil
	})
	return out, err
}

func (r *StockMovementRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockMovement, error) {
	return r.GetByID(ctx, id)
}

func (r *StockMovementRepo) FindByIdempotencyKey(_ context.Context, key string) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	err := r.v.do(func(st *state) error {
		for _, id := range st.movementOrder {
			m := st.movements[id]
			if m.IdempotencyKey == key && m.Status != entity.MovementStatusFailed {
				out = cloneMovement(m)
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *StockMovementRepo) ListByRequest(_ context.Context, requestID string) ([]*entity.StockMovement, error) {
	return r.filter(func(m *entity.StockMovement) bool {
		return m.ReferenceRequestID != nil && *m.ReferenceRequestID == requestID
	}, false, 0, 0)
}

func (r *StockMovementRepo) ListByLocation(_ context.Context, loc entity.Location, limit, offset int) ([]*entity.StockMovement, error) {
	return r.filter(func(m *entity.StockMovement) bool {
		return m.Source == loc || m.Destination == loc
	}, true, limit, offset)
}

func (r *StockMovementRepo) ListPending(_ context.Context, movementType string) ([]*entity.StockMovement, error) {
	return r.filter(func(m *entity.StockMovement) bool {
		return m.Type == movementType && m.Status == entity.MovementStatusPending
	}, false, 0, 0)
}

// filter recorre en orden de inserción; newestFirst invierte el orden antes de paginar.
func (r *StockMovementRepo) filter(keep func(*entity.StockMovement) bool, newestFirst bool, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.v.do(func(st *state) error {
		var matched []*entity.StockMovement
		for _, id := range st.movementOrder {
			if m := st.movements[id]; keep(m) {
				matched = append(matched, m)
			}
		}
		if newestFirst {
			for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
		for _, m := range page(matched, limit, offset) {
			out = append(out, cloneMovement(m))
		}
		return nil
	})
	return out, err
}

// SparePartRepo catálogo en memoria (solo lectura; se carga con Store.SeedParts).
type SparePartRepo struct{ v *view }

func (r *SparePartRepo) GetByID(_ context.Context, id string) (*entity.SparePart, error) {
	var out *entity.SparePart
	err := r.v.do(func(st *state) error {
		if p, ok := st.parts[id]; ok {
			c := *p
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *SparePartRepo) GetByCode(_ context.Context, code string) (*entity.SparePart, error) {
	var out *entity.SparePart
	err := r.v.do(func(st *state) error {
		for _, p := range st.parts {
			if p.Code == code {
				c := *p
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *SparePartRepo) List(_ context.Context, search string, limit, offset int) ([]*entity.SparePart, error) {
	var out []*entity.SparePart
	err := r.v.do(func(st *state) error {
		needle := strings.ToLower(search)
		var matched []*entity.SparePart
		for _, p := range st.parts {
			if needle == "" || strings.Contains(strings.ToLower(p.Code), needle) ||
				strings.Contains(strings.ToLower(p.Description), needle) {
				matched = append(matched, p)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].Code < matched[j].Code })
		for _, p := range page(matched, limit, offset) {
			c := *p
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

// page aplica limit/offset; limit <= 0 devuelve todo desde offset.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
