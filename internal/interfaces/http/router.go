package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	SparePartUC  *usecase.SparePartUseCase
	StockQueryUC *usecase.StockQueryUseCase
	Recorder     *inventory.MovementRecorder
	Requests     *inventory.SpareRequestUseCase
	Returns      *inventory.ReturnUseCase
	JWTSecret    string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Catálogo
	parts := api.Group("/parts")
	partHandler := NewSparePartHandler(deps.SparePartUC)
	parts.Get("/", partHandler.List)
	parts.Get("/:id", partHandler.GetByID)

	// Solicitudes de asignación (y rechazo/cancelación de cualquier solicitud)
	requests := api.Group("/spare-requests")
	requestHandler := NewSpareRequestHandler(deps.Requests, deps.Recorder)
	requests.Post("/", requestHandler.Create)
	requests.Get("/", requestHandler.List)
	requests.Get("/:id", requestHandler.GetByID)
	requests.Post("/:id/approve", requestHandler.Approve)
	requests.Post("/:id/reject", requestHandler.Reject)
	requests.Post("/:id/cancel", requestHandler.Cancel)

	// Devoluciones
	returns := api.Group("/returns")
	returnHandler := NewReturnHandler(deps.Returns)
	returns.Post("/", returnHandler.Create)
	returns.Post("/:id/approve", returnHandler.Approve)

	// Movimientos y despachos
	inventoryHandler := NewInventoryHandler(deps.Recorder, deps.StockQueryUC)
	movements := api.Group("/movements")
	movements.Post("/", inventoryHandler.RecordMovement)
	movements.Get("/:id", inventoryHandler.GetMovement)
	movements.Post("/:id/receive", inventoryHandler.ReceiveDispatch)
	movements.Post("/:id/cancel", inventoryHandler.CancelDispatch)

	// Ledger
	inv := api.Group("/inventory")
	inv.Post("/adjustments", inventoryHandler.RecordAdjustment)
	inv.Get("/:kind/:id", inventoryHandler.GetLocationStock)
	inv.Get("/:kind/:id/movements", inventoryHandler.ListLocationMovements)
}
