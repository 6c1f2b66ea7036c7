package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

var center = entity.NewLocation(entity.LocationServiceCenter, "SC-1")

func setGood(t *testing.T, s *Store, partID string, n int64) {
	t.Helper()
	err := s.Run(context.Background(), func(repos inventory.TxRepos) error {
		rec, err := repos.Records.GetForUpdate(context.Background(), partID, center)
		if err != nil {
			return err
		}
		rec.QtyGood = decimal.NewFromInt(n)
		return repos.Records.Save(context.Background(), rec)
	})
	require.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Run
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_ErrorDescartaCambios(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	setGood(t, s, "p1", 5)

	boom := errors.New("boom")
	err := s.Run(ctx, func(repos inventory.TxRepos) error {
		rec, err := repos.Records.GetForUpdate(ctx, "p1", center)
		require.NoError(t, err)
		rec.QtyGood = decimal.NewFromInt(1)
		require.NoError(t, repos.Records.Save(ctx, rec))
		require.NoError(t, repos.Movements.Create(ctx, &entity.StockMovement{ID: "m1", Status: entity.MovementStatusPending}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rec, err := s.Records().Get(ctx, "p1", center)
	require.NoError(t, err)
	assert.True(t, rec.QtyGood.Equal(decimal.NewFromInt(5)))

	m, err := s.Movements().GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRun_ContextoCanceladoNoConfirma(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Run(ctx, func(repos inventory.TxRepos) error {
		cancel()
		return repos.Movements.Create(ctx, &entity.StockMovement{ID: "m1", Status: entity.MovementStatusPending})
	})
	assert.ErrorIs(t, err, context.Canceled)

	m, err := s.Movements().GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestReadSnapshot_NoPublicaEscrituras(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	setGood(t, s, "p1", 5)

	err := s.ReadSnapshot(ctx, func(repos inventory.TxRepos) error {
		rec, err := repos.Records.Get(ctx, "p1", center)
		require.NoError(t, err)
		assert.True(t, rec.QtyGood.Equal(decimal.NewFromInt(5)))
		return repos.Movements.Create(ctx, &entity.StockMovement{ID: "m1", Status: entity.MovementStatusPending})
	})
	require.NoError(t, err)

	m, err := s.Movements().GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, m)
}

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios
// ──────────────────────────────────────────────────────────────────────────────

func TestInventoryRecordRepo_DevuelveCopias(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	setGood(t, s, "p1", 5)

	rec, err := s.Records().Get(ctx, "p1", center)
	require.NoError(t, err)
	rec.QtyGood = decimal.NewFromInt(100)

	again, err := s.Records().Get(ctx, "p1", center)
	require.NoError(t, err)
	assert.True(t, again.QtyGood.Equal(decimal.NewFromInt(5)))
}

func TestInventoryRecordRepo_SaveRechazaNegativosYFilasSinBloquear(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.Run(ctx, func(repos inventory.TxRepos) error {
		return repos.Records.Save(ctx, entity.NewInventoryRecord("p1", center))
	})
	assert.Error(t, err, "Save sin GetForUpdate previo")

	err = s.Run(ctx, func(repos inventory.TxRepos) error {
		rec, err := repos.Records.GetForUpdate(ctx, "p1", center)
		require.NoError(t, err)
		rec.QtyDefective = decimal.NewFromInt(-1)
		return repos.Records.Save(ctx, rec)
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestStockMovementRepo_ClaveDeIdempotencia(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	movements := s.Movements()

	require.NoError(t, movements.Create(ctx, &entity.StockMovement{ID: "m1", IdempotencyKey: "k", Status: entity.MovementStatusPending}))
	err := movements.Create(ctx, &entity.StockMovement{ID: "m2", IdempotencyKey: "k", Status: entity.MovementStatusPending})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	require.NoError(t, movements.UpdateStatus(ctx, "m1", entity.MovementStatusFailed, time.Now()))
	found, err := movements.FindByIdempotencyKey(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, found, "un failed no reserva la clave")
	require.NoError(t, movements.Create(ctx, &entity.StockMovement{ID: "m2", IdempotencyKey: "k", Status: entity.MovementStatusPending}))

	err = movements.UpdateStatus(ctx, "m1", entity.MovementStatusCompleted, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition, "failed es terminal")
}

func TestSpareRequestRepo_ListMasRecientePrimero(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	requests := s.Requests()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, requests.Create(ctx, &entity.SpareRequest{
			ID:        id,
			Kind:      entity.RequestKindAllocation,
			Status:    entity.RequestStatusOpen,
			Source:    center,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	list, err := requests.List(ctx, repository.SpareRequestFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r3", list[0].ID)
	assert.Equal(t, "r2", list[1].ID)

	list, err = requests.List(ctx, repository.SpareRequestFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)
}

func TestSparePartRepo_BusquedaYCodigo(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.SeedParts(
		entity.SparePart{ID: "1", Code: "CMP-001", Description: "Compresor 1/4 HP"},
		entity.SparePart{ID: "2", Code: "TRM-010", Description: "Termostato"},
	)

	list, err := s.Parts().List(ctx, "compresor", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "CMP-001", list[0].Code)

	p, err := s.Parts().GetByCode(ctx, "TRM-010")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "2", p.ID)

	p, err = s.Parts().GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
}
