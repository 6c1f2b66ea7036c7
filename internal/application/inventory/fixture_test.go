package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/spare-ledger/pkg/logger"
)

const (
	partP   = "part-p"
	partQ   = "part-q"
	actorID = "user-1"
)

var (
	plant  = entity.NewLocation(entity.LocationPlant, "PL-1")
	center = entity.NewLocation(entity.LocationServiceCenter, "SC-1")
	tech   = entity.NewLocation(entity.LocationTechnician, "T-1")
)

type fixture struct {
	store    *memory.Store
	recorder *inventory.MovementRecorder
	requests *inventory.SpareRequestUseCase
	returns  *inventory.ReturnUseCase
}

func newFixture() *fixture {
	store := memory.NewStore()
	log := logger.NewNop()
	recorder := inventory.NewMovementRecorder(store, store.Movements(), log)
	return &fixture{
		store:    store,
		recorder: recorder,
		requests: inventory.NewSpareRequestUseCase(store, store.Requests(), recorder, log),
		returns:  inventory.NewReturnUseCase(store, store.Requests(), recorder, log),
	}
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// seed carga stock con un ADJUSTMENT, el único borde de entrada del ledger.
func (f *fixture) seed(t *testing.T, loc entity.Location, partID, condition string, n int64) {
	t.Helper()
	_, err := f.recorder.RecordAdjustment(context.Background(), inventory.AdjustmentInput{
		Type:     entity.MovementTypeAdjustment,
		Location: loc,
		Reason:   "carga inicial",
		ActorID:  actorID,
		Lines:    []inventory.MovementLineInput{{PartID: partID, Qty: qty(n), Condition: condition}},
	})
	require.NoError(t, err)
}

func (f *fixture) record(t *testing.T, loc entity.Location, partID string) *entity.InventoryRecord {
	t.Helper()
	rec, err := f.store.Records().Get(context.Background(), partID, loc)
	require.NoError(t, err)
	return rec
}

// assertQty compara un bucket contra un entero.
func (f *fixture) assertQty(t *testing.T, loc entity.Location, partID, bucket string, want int64) {
	t.Helper()
	got := f.record(t, loc, partID).Quantity(bucket)
	require.Truef(t, got.Equal(qty(want)), "%s %s/%s: esperado %d, obtenido %s", loc, partID, bucket, want, got)
}

func (f *fixture) createAllocation(t *testing.T, source, destination entity.Location, lines ...inventory.RequestLineInput) *entity.SpareRequest {
	t.Helper()
	req, err := f.requests.Create(context.Background(), inventory.CreateRequestInput{
		ActorID:     actorID,
		Source:      source,
		Destination: destination,
		Lines:       lines,
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) movementsOf(t *testing.T, requestID string) []*entity.StockMovement {
	t.Helper()
	list, err := f.recorder.ListByRequest(context.Background(), requestID)
	require.NoError(t, err)
	return list
}
