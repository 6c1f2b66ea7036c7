package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/spare-ledger/internal/application/dto"
	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/application/usecase"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
)

// InventoryHandler movimientos directos, despachos, ajustes y consulta del ledger (protegido).
type InventoryHandler struct {
	recorder *inventory.MovementRecorder
	stock    *usecase.StockQueryUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(recorder *inventory.MovementRecorder, stock *usecase.StockQueryUseCase) *InventoryHandler {
	return &InventoryHandler{recorder: recorder, stock: stock}
}

// RecordMovement godoc
// @Summary      Registrar traslado o despacho
// @Description  TRANSFER mueve el stock de inmediato; DISPATCH lo deja en tránsito hasta la recepción.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordMovementRequest  true  "tipo, origen, destino y líneas"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  InsufficientStockResponse
// @Router       /api/movements [post]
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.RecordMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.Type != entity.MovementTypeTransfer && in.Type != entity.MovementTypeDispatch {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "type debe ser TRANSFER o DISPATCH"})
	}
	m, err := h.recorder.RecordMovement(c.UserContext(), inventory.RecordMovementInput{
		Type:           in.Type,
		Source:         in.Source.ToEntity(),
		Destination:    in.Destination.ToEntity(),
		IdempotencyKey: in.IdempotencyKey,
		ActorID:        actor,
		Lines:          toLineInputs(in.Lines),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromMovement(m))
}

// GetMovement godoc
// @Summary      Obtener movimiento
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [get]
func (h *InventoryHandler) GetMovement(c *fiber.Ctx) error {
	m, err := h.recorder.GetMovement(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromMovement(m))
}

// ReceiveDispatch godoc
// @Summary      Confirmar recepción de un despacho
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento DISPATCH"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/movements/{id}/receive [post]
func (h *InventoryHandler) ReceiveDispatch(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	m, err := h.recorder.ConfirmReceipt(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromMovement(m))
}

// CancelDispatch godoc
// @Summary      Anular un despacho en tránsito
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento DISPATCH"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/movements/{id}/cancel [post]
func (h *InventoryHandler) CancelDispatch(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	m, err := h.recorder.CancelDispatch(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromMovement(m))
}

// RecordAdjustment godoc
// @Summary      Registrar entrada o consumo
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "ADJUSTMENT (entrada) o CONSUMPTION (consumo)"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  InsufficientStockResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) RecordAdjustment(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.recorder.RecordAdjustment(c.UserContext(), inventory.AdjustmentInput{
		Type:           in.Type,
		Location:       in.Location.ToEntity(),
		Reason:         in.Reason,
		IdempotencyKey: in.IdempotencyKey,
		ActorID:        actor,
		Lines:          toLineInputs(in.Lines),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromMovement(m))
}

// GetLocationStock godoc
// @Summary      Stock de una ubicación
// @Description  Con part_id devuelve un solo registro (en cero si no existe).
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        kind     path   string  true   "plant, service_center o technician"
// @Param        id       path   string  true   "ID de la ubicación"
// @Param        part_id  query  string  false  "Filtrar por repuesto"
// @Success      200  {array}   dto.InventoryRecordResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/{kind}/{id} [get]
func (h *InventoryHandler) GetLocationStock(c *fiber.Ctx) error {
	loc := entity.NewLocation(c.Params("kind"), c.Params("id"))
	if partID := c.Query("part_id"); partID != "" {
		rec, err := h.stock.GetRecord(c.UserContext(), partID, loc)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(rec)
	}
	list, err := h.stock.ListByLocation(c.UserContext(), loc)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}

// ListLocationMovements godoc
// @Summary      Movimientos de una ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        kind    path   string  true   "plant, service_center o technician"
// @Param        id      path   string  true   "ID de la ubicación"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {array}   dto.MovementResponse
// @Router       /api/inventory/{kind}/{id}/movements [get]
func (h *InventoryHandler) ListLocationMovements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	list, err := h.recorder.ListByLocation(c.UserContext(), entity.NewLocation(c.Params("kind"), c.Params("id")), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, dto.FromMovement(m))
	}
	return c.JSON(out)
}

func toLineInputs(lines []dto.MovementLineRequest) []inventory.MovementLineInput {
	out := make([]inventory.MovementLineInput, 0, len(lines))
	for _, l := range lines {
		cond := l.Condition
		if cond == "" {
			cond = entity.ConditionGood
		}
		out = append(out, inventory.MovementLineInput{PartID: l.PartID, Qty: l.Qty, Condition: cond})
	}
	return out
}
