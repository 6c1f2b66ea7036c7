package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/spare-ledger/internal/application/dto"
	"github.com/jhoicas/spare-ledger/internal/application/inventory"
)

// ReturnHandler devoluciones técnico → centro de servicio (protegido).
// Rechazo, cancelación y consulta van por /api/spare-requests.
type ReturnHandler struct {
	returns *inventory.ReturnUseCase
}

// NewReturnHandler construye el handler.
func NewReturnHandler(returns *inventory.ReturnUseCase) *ReturnHandler {
	return &ReturnHandler{returns: returns}
}

// Create godoc
// @Summary      Crear devolución
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReturnRequest  true  "técnico, centro de servicio y líneas por condición"
// @Success      201   {object}  dto.SpareRequestResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/returns [post]
func (h *ReturnHandler) Create(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.CreateReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines := make([]inventory.ReturnLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, inventory.ReturnLineInput{PartID: l.PartID, GoodQty: l.GoodQty, DefectiveQty: l.DefectiveQty})
	}
	req, err := h.returns.CreateReturn(c.UserContext(), inventory.CreateReturnInput{
		ActorID:       actor,
		Technician:    in.Technician.ToEntity(),
		ServiceCenter: in.ServiceCenter.ToEntity(),
		Lines:         lines,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromSpareRequest(req))
}

// Approve godoc
// @Summary      Aprobar devolución
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la devolución"
// @Param        body  body  dto.ApproveReturnRequest  true  "decisiones por línea y condición"
// @Success      200   {object}  dto.SpareRequestResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/returns/{id}/approve [post]
func (h *ReturnHandler) Approve(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.ApproveReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	decisions := make([]inventory.ReturnDecision, 0, len(in.Decisions))
	for _, d := range in.Decisions {
		decisions = append(decisions, inventory.ReturnDecision{
			ItemID:               d.ItemID,
			ApprovedGoodQty:      d.ApprovedGoodQty,
			ApprovedDefectiveQty: d.ApprovedDefectiveQty,
		})
	}
	req, err := h.returns.ApproveReturn(c.UserContext(), actor, c.Params("id"), decisions)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromSpareRequest(req))
}
