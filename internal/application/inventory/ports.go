package inventory

import (
	"context"

	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Records   repository.InventoryRecordRepository
	Requests  repository.SpareRequestRepository
	Movements repository.StockMovementRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error (o el contexto se cancela) se hace Rollback completo; si no, Commit.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}

// SnapshotReader ejecuta lecturas de solo lectura sobre una misma foto consistente del estado.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, fn func(repos TxRepos) error) error
}
