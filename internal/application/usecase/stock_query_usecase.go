package usecase

import (
	"context"

	"github.com/jhoicas/spare-ledger/internal/application/dto"
	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

// StockQueryUseCase lecturas del ledger fuera de transacción.
type StockQueryUseCase struct {
	records repository.InventoryRecordRepository
}

// NewStockQueryUseCase construye el caso de uso.
func NewStockQueryUseCase(records repository.InventoryRecordRepository) *StockQueryUseCase {
	return &StockQueryUseCase{records: records}
}

// GetRecord cantidades de un repuesto en una ubicación; en cero si nunca tuvo movimientos.
func (uc *StockQueryUseCase) GetRecord(ctx context.Context, partID string, loc entity.Location) (*dto.InventoryRecordResponse, error) {
	if partID == "" {
		return nil, domain.NewValidationError("part_id", "requerido")
	}
	if !loc.Valid() {
		return nil, domain.NewValidationError("location", "ubicación inválida")
	}
	rec, err := uc.records.Get(ctx, partID, loc)
	if err != nil {
		return nil, err
	}
	out := dto.FromInventoryRecord(rec)
	return &out, nil
}

// ListByLocation todas las filas del ledger de una ubicación.
func (uc *StockQueryUseCase) ListByLocation(ctx context.Context, loc entity.Location) ([]dto.InventoryRecordResponse, error) {
	if !loc.Valid() {
		return nil, domain.NewValidationError("location", "ubicación inválida")
	}
	list, err := uc.records.ListByLocation(ctx, loc)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InventoryRecordResponse, 0, len(list))
	for _, r := range list {
		out = append(out, dto.FromInventoryRecord(r))
	}
	return out, nil
}
