package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/pkg/logger"
)

func TestReconcileInTransit_SinDiferencias(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seed(t, plant, partP, entity.ConditionGood, 10)
	dispatch(t, f, "", 3)
	dispatch(t, f, "", 2)

	uc := inventory.NewReconciliationUseCase(f.store, logger.NewNop())
	found, err := uc.ReconcileInTransit(ctx)
	require.NoError(t, err)
	assert.Empty(t, found)
	require.NoError(t, uc.Run(ctx))
}

func TestReconcileInTransit_DetectaTransitoHuerfano(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seed(t, plant, partP, entity.ConditionGood, 10)
	dispatch(t, f, "", 3)

	// Tránsito escrito por fuera de un despacho.
	err := f.store.Run(ctx, func(repos inventory.TxRepos) error {
		return inventory.NewLedger(repos.Records).Adjust(ctx, partQ, center, entity.BucketInTransit, qty(4))
	})
	require.NoError(t, err)

	uc := inventory.NewReconciliationUseCase(f.store, logger.NewNop())
	found, err := uc.ReconcileInTransit(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, partQ, found[0].PartID)
	assert.Equal(t, center, found[0].Location)
	assert.True(t, found[0].InTransit.Equal(qty(4)))
	assert.True(t, found[0].Pending.IsZero())
}

func TestReconcileInTransit_LeeDeUnaSolaFoto(t *testing.T) {
	f, ts := newTracedFixture()
	ctx := context.Background()
	f.seed(t, plant, partP, entity.ConditionGood, 10)
	dispatch(t, f, "", 3)

	runs, _ := ts.counts()
	uc := inventory.NewReconciliationUseCase(ts, logger.NewNop())
	found, err := uc.ReconcileInTransit(ctx)
	require.NoError(t, err)
	assert.Empty(t, found)

	afterRuns, snapshots := ts.counts()
	assert.Equal(t, 1, snapshots)
	assert.Equal(t, runs, afterRuns, "la conciliación no abre transacciones de escritura")
}

func TestReconcileInTransit_ContextoCancelado(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inventory.NewReconciliationUseCase(f.store, logger.NewNop()).ReconcileInTransit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
