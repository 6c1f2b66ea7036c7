//go:build integration

package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/spare-ledger/pkg/config"
	"github.com/jhoicas/spare-ledger/pkg/logger"
)

// Correr con: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/infrastructure/postgres/

const actorID = "it-user"

type pgFixture struct {
	recorder *inventory.MovementRecorder
	requests *inventory.SpareRequestUseCase
	returns  *inventory.ReturnUseCase
	records  *postgres.InventoryRecordRepo
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 20})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))

	log := logger.NewNop()
	runner := postgres.NewTxRunner(pool)
	movements := postgres.NewStockMovementRepository(pool)
	requests := postgres.NewSpareRequestRepository(pool)
	recorder := inventory.NewMovementRecorder(runner, movements, log)
	return &pgFixture{
		recorder: recorder,
		requests: inventory.NewSpareRequestUseCase(runner, requests, recorder, log),
		returns:  inventory.NewReturnUseCase(runner, requests, recorder, log),
		records:  postgres.NewInventoryRecordRepository(pool),
	}
}

// unique evita choques entre corridas sobre la misma base.
func unique(prefix string) string { return prefix + "-" + uuid.NewString()[:8] }

func (f *pgFixture) seed(t *testing.T, loc entity.Location, partID string, n int64) {
	t.Helper()
	_, err := f.recorder.RecordAdjustment(context.Background(), inventory.AdjustmentInput{
		Type:     entity.MovementTypeAdjustment,
		Location: loc,
		ActorID:  actorID,
		Lines:    []inventory.MovementLineInput{{PartID: partID, Qty: decimal.NewFromInt(n), Condition: entity.ConditionGood}},
	})
	require.NoError(t, err)
}

func (f *pgFixture) good(t *testing.T, loc entity.Location, partID string) decimal.Decimal {
	t.Helper()
	rec, err := f.records.Get(context.Background(), partID, loc)
	require.NoError(t, err)
	return rec.QtyGood
}

func TestPG_AprobacionesConcurrentesNoSobreasignan(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	partID := unique("part")
	center := entity.NewLocation(entity.LocationServiceCenter, unique("SC"))
	f.seed(t, center, partID, 10)

	const n = 8
	reqs := make([]*entity.SpareRequest, n)
	for i := range reqs {
		var err error
		reqs[i], err = f.requests.Create(ctx, inventory.CreateRequestInput{
			ActorID:     actorID,
			Source:      center,
			Destination: entity.NewLocation(entity.LocationTechnician, unique("T")),
			Lines:       []inventory.RequestLineInput{{PartID: partID, RequestedQty: decimal.NewFromInt(6)}},
		})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make([]*entity.SpareRequest, n)
	errs := make([]error, n)
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *entity.SpareRequest) {
			defer wg.Done()
			results[i], errs[i] = f.requests.Approve(ctx, actorID, req.ID, []inventory.ApprovalDecision{
				{ItemID: req.Items[0].ID, ApprovedQty: decimal.NewFromInt(6)},
			})
		}(i, req)
	}
	wg.Wait()

	allocated := decimal.Zero
	for i := range reqs {
		require.NoError(t, errs[i])
		allocated = allocated.Add(*results[i].Items[0].ApprovedQty)
	}
	assert.True(t, allocated.Equal(decimal.NewFromInt(10)), "asignado total = %s", allocated)
	assert.True(t, f.good(t, center, partID).IsZero())
}

func TestPG_AsignacionYDevolucionOpuestasNoSeInterbloquean(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	partID := unique("part")
	center := entity.NewLocation(entity.LocationServiceCenter, unique("SC"))
	tech := entity.NewLocation(entity.LocationTechnician, unique("T"))
	f.seed(t, center, partID, 20)
	f.seed(t, tech, partID, 20)

	const pairs = 10
	allocations := make([]*entity.SpareRequest, pairs)
	returns := make([]*entity.SpareRequest, pairs)
	for i := 0; i < pairs; i++ {
		var err error
		allocations[i], err = f.requests.Create(ctx, inventory.CreateRequestInput{
			ActorID:     actorID,
			Source:      center,
			Destination: tech,
			Lines:       []inventory.RequestLineInput{{PartID: partID, RequestedQty: decimal.NewFromInt(1)}},
		})
		require.NoError(t, err)
		returns[i], err = f.returns.CreateReturn(ctx, inventory.CreateReturnInput{
			ActorID:       actorID,
			Technician:    tech,
			ServiceCenter: center,
			Lines:         []inventory.ReturnLineInput{{PartID: partID, GoodQty: decimal.NewFromInt(1), DefectiveQty: decimal.Zero}},
		})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2*pairs)
	for i := 0; i < pairs; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			req := allocations[i]
			_, errs[2*i] = f.requests.Approve(ctx, actorID, req.ID, []inventory.ApprovalDecision{
				{ItemID: req.Items[0].ID, ApprovedQty: decimal.NewFromInt(1)},
			})
		}(i)
		go func(i int) {
			defer wg.Done()
			req := returns[i]
			_, errs[2*i+1] = f.returns.ApproveReturn(ctx, actorID, req.ID, []inventory.ReturnDecision{
				{ItemID: req.Items[0].ID, ApprovedGoodQty: decimal.NewFromInt(1), ApprovedDefectiveQty: decimal.Zero},
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "aprobación %d", i)
	}
	assert.True(t, f.good(t, center, partID).Equal(decimal.NewFromInt(20)))
	assert.True(t, f.good(t, tech, partID).Equal(decimal.NewFromInt(20)))
}
