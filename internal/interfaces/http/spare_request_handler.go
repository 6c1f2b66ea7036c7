package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/spare-ledger/internal/application/dto"
	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
)

// SpareRequestHandler solicitudes de asignación y su ciclo de decisión (protegido).
type SpareRequestHandler struct {
	requests  *inventory.SpareRequestUseCase
	movements *inventory.MovementRecorder
}

// NewSpareRequestHandler construye el handler.
func NewSpareRequestHandler(requests *inventory.SpareRequestUseCase, movements *inventory.MovementRecorder) *SpareRequestHandler {
	return &SpareRequestHandler{requests: requests, movements: movements}
}

// Create godoc
// @Summary      Crear solicitud de asignación
// @Tags         spare-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSpareRequestRequest  true  "origen, destino y líneas"
// @Success      201   {object}  dto.SpareRequestResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/spare-requests [post]
func (h *SpareRequestHandler) Create(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.CreateSpareRequestRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines := make([]inventory.RequestLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, inventory.RequestLineInput{PartID: l.PartID, RequestedQty: l.RequestedQty})
	}
	req, err := h.requests.Create(c.UserContext(), inventory.CreateRequestInput{
		ActorID:     actor,
		Source:      in.Source.ToEntity(),
		Destination: in.Destination.ToEntity(),
		Lines:       lines,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromSpareRequest(req))
}

// List godoc
// @Summary      Listar solicitudes
// @Tags         spare-requests
// @Security     Bearer
// @Produce      json
// @Param        status         query  string  false  "open, partially_approved, approved, rejected, cancelled"
// @Param        kind           query  string  false  "allocation o return"
// @Param        location_kind  query  string  false  "Tipo de ubicación (origen o destino)"
// @Param        location_id    query  string  false  "ID de ubicación"
// @Param        limit          query  int     false  "Límite"  default(20)
// @Param        offset         query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.SpareRequestListResponse
// @Router       /api/spare-requests [get]
func (h *SpareRequestHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	filter := repository.SpareRequestFilter{
		Status: c.Query("status"),
		Kind:   c.Query("kind"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if kind, id := c.Query("location_kind"), c.Query("location_id"); kind != "" || id != "" {
		loc := entity.NewLocation(kind, id)
		filter.Location = &loc
	}
	list, err := h.requests.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.SpareRequestResponse, 0, len(list))
	for _, r := range list {
		items = append(items, dto.FromSpareRequest(r))
	}
	return c.JSON(dto.SpareRequestListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset},
	})
}

// GetByID godoc
// @Summary      Obtener solicitud con sus movimientos
// @Tags         spare-requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.SpareRequestResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/spare-requests/{id} [get]
func (h *SpareRequestHandler) GetByID(c *fiber.Ctx) error {
	req, err := h.requests.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	movements, err := h.movements.ListByRequest(c.UserContext(), req.ID)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.FromSpareRequest(req)
	for _, m := range movements {
		out.Movements = append(out.Movements, dto.FromMovement(m))
	}
	return c.JSON(out)
}

// Approve godoc
// @Summary      Aprobar solicitud
// @Description  Cada línea se recorta a min(aprobado, solicitado, disponible en origen).
// @Tags         spare-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "ID de la solicitud"
// @Param        body  body  dto.ApproveSpareRequestRequest  true  "decisiones por línea"
// @Success      200   {object}  dto.SpareRequestResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/spare-requests/{id}/approve [post]
func (h *SpareRequestHandler) Approve(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.ApproveSpareRequestRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	decisions := make([]inventory.ApprovalDecision, 0, len(in.Decisions))
	for _, d := range in.Decisions {
		decisions = append(decisions, inventory.ApprovalDecision{ItemID: d.ItemID, ApprovedQty: d.ApprovedQty})
	}
	req, err := h.requests.Approve(c.UserContext(), actor, c.Params("id"), decisions)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromSpareRequest(req))
}

// Reject godoc
// @Summary      Rechazar solicitud
// @Tags         spare-requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                         true   "ID de la solicitud"
// @Param        body  body  dto.RejectSpareRequestRequest  false  "motivo"
// @Success      200   {object}  dto.SpareRequestResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/spare-requests/{id}/reject [post]
func (h *SpareRequestHandler) Reject(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in dto.RejectSpareRequestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	req, err := h.requests.Reject(c.UserContext(), actor, c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromSpareRequest(req))
}

// Cancel godoc
// @Summary      Cancelar solicitud
// @Tags         spare-requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.SpareRequestResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/spare-requests/{id}/cancel [post]
func (h *SpareRequestHandler) Cancel(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, err)
	}
	req, err := h.requests.Cancel(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromSpareRequest(req))
}
