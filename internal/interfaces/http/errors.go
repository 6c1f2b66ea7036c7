package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/spare-ledger/internal/application/dto"
	"github.com/jhoicas/spare-ledger/internal/domain"
)

// InsufficientStockResponse detalle del 409 por stock insuficiente.
type InsufficientStockResponse struct {
	dto.ErrorResponse
	PartID    string `json:"part_id"`
	Location  string `json:"location"`
	Bucket    string `json:"bucket"`
	Available string `json:"available"`
	Requested string `json:"requested"`
	Line      *int   `json:"line,omitempty"`
}

// writeError traduce errores de dominio a respuestas HTTP. Lo no reconocido es 500.
func writeError(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: ve.Error()})
	}
	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		out := InsufficientStockResponse{
			ErrorResponse: dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: ise.Error()},
			PartID:        ise.PartID,
			Location:      ise.Location,
			Bucket:        ise.Bucket,
			Available:     ise.Available.String(),
			Requested:     ise.Requested.String(),
		}
		if ise.Line >= 0 {
			line := ise.Line
			out.Line = &line
		}
		return c.Status(fiber.StatusConflict).JSON(out)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// actorID el actor autenticado; sin él la petición no debió pasar el middleware.
func actorID(c *fiber.Ctx) (string, error) {
	id := GetUserID(c)
	if id == "" {
		return "", domain.ErrUnauthorized
	}
	return id, nil
}
