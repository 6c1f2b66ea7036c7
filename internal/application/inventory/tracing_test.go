package inventory_test

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
	"github.com/jhoicas/spare-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/spare-ledger/pkg/logger"
)

// tracingStore envuelve memory.Store contando transacciones y anotando, en orden, cada
// bloqueo y cada escritura de fila del ledger.
type tracingStore struct {
	*memory.Store

	mu        sync.Mutex
	runs      int
	snapshots int
	events    []string
}

func newTracingStore(store *memory.Store) *tracingStore {
	return &tracingStore{Store: store}
}

// newTracedFixture arma el fixture con todos los casos de uso sobre un tracingStore.
func newTracedFixture() (*fixture, *tracingStore) {
	store := memory.NewStore()
	ts := newTracingStore(store)
	log := logger.NewNop()
	recorder := inventory.NewMovementRecorder(ts, store.Movements(), log)
	return &fixture{
		store:    store,
		recorder: recorder,
		requests: inventory.NewSpareRequestUseCase(ts, store.Requests(), recorder, log),
		returns:  inventory.NewReturnUseCase(ts, store.Requests(), recorder, log),
	}, ts
}

// routeLocks los bloqueos esperados para mover partIDs entre a y b, en orden global.
func routeLocks(a, b entity.Location, partIDs ...string) []string {
	var out []string
	for _, p := range partIDs {
		out = append(out,
			"lock "+inventory.RecordKey{PartID: p, Location: a}.String(),
			"lock "+inventory.RecordKey{PartID: p, Location: b}.String())
	}
	sort.Strings(out)
	return out
}

func (s *tracingStore) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	return s.Store.Run(ctx, func(repos inventory.TxRepos) error {
		repos.Records = &tracingRecords{InventoryRecordRepository: repos.Records, s: s}
		return fn(repos)
	})
}

func (s *tracingStore) ReadSnapshot(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	s.mu.Lock()
	s.snapshots++
	s.mu.Unlock()
	return s.Store.ReadSnapshot(ctx, fn)
}

func (s *tracingStore) note(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *tracingStore) trace() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *tracingStore) counts() (runs, snapshots int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.snapshots
}

type tracingRecords struct {
	repository.InventoryRecordRepository
	s *tracingStore
}

func (r *tracingRecords) GetForUpdate(ctx context.Context, partID string, loc entity.Location) (*entity.InventoryRecord, error) {
	r.s.note("lock " + inventory.RecordKey{PartID: partID, Location: loc}.String())
	return r.InventoryRecordRepository.GetForUpdate(ctx, partID, loc)
}

func (r *tracingRecords) Save(ctx context.Context, rec *entity.InventoryRecord) error {
	r.s.note("save " + inventory.RecordKey{PartID: rec.PartID, Location: rec.Location}.String())
	return r.InventoryRecordRepository.Save(ctx, rec)
}
