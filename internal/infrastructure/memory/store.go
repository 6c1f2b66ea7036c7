// Package memory implementa los puertos del ledger en memoria. Sirve para el modo demo
// (STORE_DRIVER=memory) y para los tests de casos de uso.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
)

var (
	_ inventory.TxRunner       = (*Store)(nil)
	_ inventory.SnapshotReader = (*Store)(nil)
)

// Store guarda todo el estado detrás de un único mutex. Run trabaja sobre una copia y la
// publica solo si fn termina sin error, así que un fallo a mitad de camino no deja rastro.
// Las transacciones quedan serializadas; equivale a bloquear todas las filas.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	parts         map[string]*entity.SparePart
	records       map[string]*entity.InventoryRecord
	requests      map[string]*entity.SpareRequest
	movements     map[string]*entity.StockMovement
	requestOrder  []string
	movementOrder []string
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{state: &state{
		parts:     make(map[string]*entity.SparePart),
		records:   make(map[string]*entity.InventoryRecord),
		requests:  make(map[string]*entity.SpareRequest),
		movements: make(map[string]*entity.StockMovement),
	}}
}

// SeedParts carga repuestos en el catálogo.
func (s *Store) SeedParts(parts ...entity.SparePart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range parts {
		p := p
		s.state.parts[p.ID] = &p
	}
}

// Run ejecuta fn con repositorios sobre una copia del estado y la confirma si no hay error
// y el contexto sigue vivo.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	v := &view{st: snapshot}
	if err := fn(inventory.TxRepos{
		Records:   &InventoryRecordRepo{v: v},
		Requests:  &SpareRequestRepo{v: v},
		Movements: &StockMovementRepo{v: v},
	}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

// ReadSnapshot ejecuta fn sobre una copia del estado tomada bajo el mutex. Nada de lo que fn
// escriba se publica.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v := &view{st: s.state.clone()}
	return fn(inventory.TxRepos{
		Records:   &InventoryRecordRepo{v: v},
		Requests:  &SpareRequestRepo{v: v},
		Movements: &StockMovementRepo{v: v},
	})
}

// Records repositorio del ledger fuera de transacción.
func (s *Store) Records() *InventoryRecordRepo { return &InventoryRecordRepo{v: &view{store: s}} }

// Requests repositorio de solicitudes fuera de transacción.
func (s *Store) Requests() *SpareRequestRepo { return &SpareRequestRepo{v: &view{store: s}} }

// Movements repositorio de movimientos fuera de transacción.
func (s *Store) Movements() *StockMovementRepo { return &StockMovementRepo{v: &view{store: s}} }

// Parts repositorio del catálogo.
func (s *Store) Parts() *SparePartRepo { return &SparePartRepo{v: &view{store: s}} }

// view da acceso al estado: dentro de Run usa la copia (el mutex ya está tomado);
// fuera toma el mutex en cada llamada.
type view struct {
	store *Store
	st    *state
}

func (v *view) do(fn func(st *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

func (st *state) clone() *state {
	out := &state{
		parts:         st.parts,
		records:       make(map[string]*entity.InventoryRecord, len(st.records)),
		requests:      make(map[string]*entity.SpareRequest, len(st.requests)),
		movements:     make(map[string]*entity.StockMovement, len(st.movements)),
		requestOrder:  append([]string(nil), st.requestOrder...),
		movementOrder: append([]string(nil), st.movementOrder...),
	}
	for k, r := range st.records {
		out.records[k] = cloneRecord(r)
	}
	for k, r := range st.requests {
		out.requests[k] = cloneRequest(r)
	}
	for k, m := range st.movements {
		out.movements[k] = cloneMovement(m)
	}
	return out
}

func recordKey(partID string, loc entity.Location) string {
	return loc.Key() + "|" + partID
}

func cloneRecord(r *entity.InventoryRecord) *entity.InventoryRecord {
	c := *r
	return &c
}

func cloneRequest(r *entity.SpareRequest) *entity.SpareRequest {
	c := *r
	c.Items = make([]*entity.SpareRequestItem, 0, len(r.Items))
	for _, it := range r.Items {
		item := *it
		c.Items = append(c.Items, &item)
	}
	return &c
}

func cloneMovement(m *entity.StockMovement) *entity.StockMovement {
	c := *m
	c.Lines = make([]*entity.MovementLineItem, 0, len(m.Lines))
	for _, l := range m.Lines {
		line := *l
		c.Lines = append(c.Lines, &line)
	}
	return &c
}
