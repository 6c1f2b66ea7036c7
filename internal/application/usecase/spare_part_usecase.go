package usecase

import (
	"context"

	"github.com/jhoicas/spare-ledger/internal/application/dto"
	"github.com/jhoicas/spare-ledger/internal/domain"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

// SparePartUseCase consultas del catálogo de repuestos. El alta de repuestos es externa.
type SparePartUseCase struct {
	repo repository.SparePartRepository
}

// NewSparePartUseCase construye el caso de uso.
func NewSparePartUseCase(repo repository.SparePartRepository) *SparePartUseCase {
	return &SparePartUseCase{repo: repo}
}

// GetByID obtiene un repuesto por ID.
func (uc *SparePartUseCase) GetByID(ctx context.Context, id string) (*dto.SparePartResponse, error) {
	part, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if part == nil {
		return nil, domain.ErrNotFound
	}
	return toSparePartResponse(part), nil
}

// GetByCode obtiene un repuesto por su código.
func (uc *SparePartUseCase) GetByCode(ctx context.Context, code string) (*dto.SparePartResponse, error) {
	part, err := uc.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if part == nil {
		return nil, domain.ErrNotFound
	}
	return toSparePartResponse(part), nil
}

// List lista el catálogo con búsqueda por código o descripción.
func (uc *SparePartUseCase) List(ctx context.Context, search string, page dto.PageRequest) (*dto.SparePartListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, search, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SparePartResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toSparePartResponse(p))
	}
	return &dto.SparePartListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

func toSparePartResponse(p *entity.SparePart) *dto.SparePartResponse {
	if p == nil {
		return nil
	}
	return &dto.SparePartResponse{
		ID:          p.ID,
		Code:        p.Code,
		Description: p.Description,
	}
}
