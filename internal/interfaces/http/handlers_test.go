package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/spare-ledger/internal/application/dto"
	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/application/usecase"
	"github.com/jhoicas/spare-ledger/internal/domain/entity"
	"github.com/jhoicas/spare-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/spare-ledger/internal/interfaces/http"
	"github.com/jhoicas/spare-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type apiHarness struct {
	app      *fiber.App
	store    *memory.Store
	recorder *inventory.MovementRecorder
	token    string
}

func newAPI(t *testing.T) *apiHarness {
	t.Helper()
	store := memory.NewStore()
	store.SeedParts(entity.SparePart{ID: "p1", Code: "CMP-001", Description: "Compresor"})
	log := logger.NewNop()
	recorder := inventory.NewMovementRecorder(store, store.Movements(), log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		SparePartUC:  usecase.NewSparePartUseCase(store.Parts()),
		StockQueryUC: usecase.NewStockQueryUseCase(store.Records()),
		Recorder:     recorder,
		Requests:     inventory.NewSpareRequestUseCase(store, store.Requests(), recorder, log),
		Returns:      inventory.NewReturnUseCase(store, store.Requests(), recorder, log),
		JWTSecret:    testJWTSecret,
	})
	return &apiHarness{app: app, store: store, recorder: recorder, token: bearer(t, testJWTSecret, testExpMin)}
}

// call ejecuta la petición autenticada y decodifica el cuerpo en out (si no es nil).
func (h *apiHarness) call(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", h.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp.StatusCode
}

func (h *apiHarness) seed(t *testing.T, loc entity.Location, partID string, n int64) {
	t.Helper()
	status := h.call(t, http.MethodPost, "/api/inventory/adjustments", dto.AdjustmentRequest{
		Type:     entity.MovementTypeAdjustment,
		Location: dto.FromLocation(loc),
		Lines:    []dto.MovementLineRequest{{PartID: partID, Qty: decimal.NewFromInt(n)}},
	}, nil)
	require.Equal(t, fiber.StatusCreated, status)
}

var (
	apiCenter = entity.NewLocation(entity.LocationServiceCenter, "SC-1")
	apiTech   = entity.NewLocation(entity.LocationTechnician, "T-1")
)

// ──────────────────────────────────────────────────────────────────────────────
// Flujo de solicitud
// ──────────────────────────────────────────────────────────────────────────────

func TestSpareRequest_FlujoCrearAprobarConsultar(t *testing.T) {
	h := newAPI(t)
	h.seed(t, apiCenter, "p1", 5)

	var created dto.SpareRequestResponse
	status := h.call(t, http.MethodPost, "/api/spare-requests", dto.CreateSpareRequestRequest{
		Source:      dto.FromLocation(apiCenter),
		Destination: dto.FromLocation(apiTech),
		Lines:       []dto.SpareRequestLineRequest{{PartID: "p1", RequestedQty: decimal.NewFromInt(8)}},
	}, &created)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, entity.RequestStatusOpen, created.Status)
	assert.Equal(t, testUserID, created.RequestedBy)
	require.Len(t, created.Items, 1)
	assert.Nil(t, created.Items[0].ApprovedQty)

	var approved dto.SpareRequestResponse
	status = h.call(t, http.MethodPost, "/api/spare-requests/"+created.ID+"/approve", dto.ApproveSpareRequestRequest{
		Decisions: []dto.ApprovalDecisionRequest{{ItemID: created.Items[0].ID, ApprovedQty: decimal.NewFromInt(8)}},
	}, &approved)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, entity.RequestStatusPartiallyApproved, approved.Status)
	require.NotNil(t, approved.Items[0].ApprovedQty)
	assert.True(t, approved.Items[0].ApprovedQty.Equal(decimal.NewFromInt(5)))
	assert.True(t, approved.Items[0].Shortfall.Equal(decimal.NewFromInt(3)))

	var fetched dto.SpareRequestResponse
	status = h.call(t, http.MethodGet, "/api/spare-requests/"+created.ID, nil, &fetched)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, fetched.Movements, 1)
	assert.Equal(t, entity.MovementTypeAllocation, fetched.Movements[0].Type)

	var stock dto.InventoryRecordResponse
	status = h.call(t, http.MethodGet, "/api/inventory/technician/T-1?part_id=p1", nil, &stock)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, stock.QtyGood.Equal(decimal.NewFromInt(5)))

	var errBody dto.ErrorResponse
	status = h.call(t, http.MethodPost, "/api/spare-requests/"+created.ID+"/cancel", nil, &errBody)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", errBody.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Mapeo de errores
// ──────────────────────────────────────────────────────────────────────────────

func TestErrores_ValidacionEs400(t *testing.T) {
	h := newAPI(t)

	var errBody dto.ErrorResponse
	status := h.call(t, http.MethodPost, "/api/spare-requests", dto.CreateSpareRequestRequest{
		Source:      dto.FromLocation(apiTech),
		Destination: dto.FromLocation(apiCenter),
		Lines:       []dto.SpareRequestLineRequest{{PartID: "p1", RequestedQty: decimal.NewFromInt(1)}},
	}, &errBody)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errBody.Code)

	status = h.call(t, http.MethodGet, "/api/spare-requests?status=pending", nil, &errBody)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestErrores_NoEncontradoEs404(t *testing.T) {
	h := newAPI(t)

	var errBody dto.ErrorResponse
	status := h.call(t, http.MethodGet, "/api/spare-requests/no-existe", nil, &errBody)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errBody.Code)

	status = h.call(t, http.MethodGet, "/api/parts/no-existe", nil, &errBody)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestErrores_StockInsuficienteEs409ConDetalle(t *testing.T) {
	h := newAPI(t)
	h.seed(t, apiCenter, "p1", 1)

	var body apphttp.InsufficientStockResponse
	status := h.call(t, http.MethodPost, "/api/movements", dto.RecordMovementRequest{
		Type:        entity.MovementTypeTransfer,
		Source:      dto.FromLocation(apiCenter),
		Destination: dto.FromLocation(apiTech),
		Lines: []dto.MovementLineRequest{
			{PartID: "p1", Qty: decimal.NewFromInt(1)},
			{PartID: "p2", Qty: decimal.NewFromInt(1)},
		},
	}, &body)
	require.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	assert.Equal(t, "p2", body.PartID)
	assert.Equal(t, "0", body.Available)
	require.NotNil(t, body.Line)
	assert.Equal(t, 1, *body.Line)

	// La primera línea no quedó aplicada.
	rec, err := h.store.Records().Get(context.Background(), "p1", apiCenter)
	require.NoError(t, err)
	assert.True(t, rec.QtyGood.Equal(decimal.NewFromInt(1)))
}

func TestRecordMovement_SoloTransferODespacho(t *testing.T) {
	h := newAPI(t)

	var errBody dto.ErrorResponse
	status := h.call(t, http.MethodPost, "/api/movements", dto.RecordMovementRequest{
		Type:        entity.MovementTypeAllocation,
		Source:      dto.FromLocation(apiCenter),
		Destination: dto.FromLocation(apiTech),
		Lines:       []dto.MovementLineRequest{{PartID: "p1", Qty: decimal.NewFromInt(1)}},
	}, &errBody)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestRecordMovement_ClaveDeIdempotencia(t *testing.T) {
	h := newAPI(t)
	h.seed(t, apiCenter, "p1", 5)

	move := func(key string, dst entity.Location, out any) int {
		return h.call(t, http.MethodPost, "/api/movements", dto.RecordMovementRequest{
			Type:           entity.MovementTypeTransfer,
			Source:         dto.FromLocation(apiCenter),
			Destination:    dto.FromLocation(dst),
			IdempotencyKey: key,
			Lines:          []dto.MovementLineRequest{{PartID: "p1", Qty: decimal.NewFromInt(1)}},
		}, out)
	}

	var errBody dto.ErrorResponse
	status := move("request:cualquiera", apiTech, &errBody)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errBody.Code)

	var m dto.MovementResponse
	require.Equal(t, fiber.StatusCreated, move("traslado-1", apiTech, &m))

	status = move("traslado-1", entity.NewLocation(entity.LocationTechnician, "T-2"), &errBody)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", errBody.Code)

	rec, err := h.store.Records().Get(context.Background(), "p1", apiCenter)
	require.NoError(t, err)
	assert.True(t, rec.QtyGood.Equal(decimal.NewFromInt(4)))
}

// ──────────────────────────────────────────────────────────────────────────────
// Devoluciones y despachos
// ──────────────────────────────────────────────────────────────────────────────

func TestReturn_CrearYAprobar(t *testing.T) {
	h := newAPI(t)
	ctx := context.Background()
	_, err := h.recorder.RecordAdjustment(ctx, inventory.AdjustmentInput{
		Type:     entity.MovementTypeAdjustment,
		Location: apiTech,
		Lines: []inventory.MovementLineInput{
			{PartID: "p1", Qty: decimal.NewFromInt(2), Condition: entity.ConditionGood},
			{PartID: "p1", Qty: decimal.NewFromInt(1), Condition: entity.ConditionDefective},
		},
	})
	require.NoError(t, err)

	var created dto.SpareRequestResponse
	status := h.call(t, http.MethodPost, "/api/returns", dto.CreateReturnRequest{
		Technician:    dto.FromLocation(apiTech),
		ServiceCenter: dto.FromLocation(apiCenter),
		Lines:         []dto.ReturnLineRequest{{PartID: "p1", GoodQty: decimal.NewFromInt(2), DefectiveQty: decimal.NewFromInt(1)}},
	}, &created)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, entity.RequestKindReturn, created.Kind)

	var approved dto.SpareRequestResponse
	status = h.call(t, http.MethodPost, "/api/returns/"+created.ID+"/approve", dto.ApproveReturnRequest{
		Decisions: []dto.ReturnDecisionRequest{{
			ItemID:               created.Items[0].ID,
			ApprovedGoodQty:      decimal.NewFromInt(2),
			ApprovedDefectiveQty: decimal.NewFromInt(1),
		}},
	}, &approved)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, entity.RequestStatusApproved, approved.Status)

	var stock []dto.InventoryRecordResponse
	status = h.call(t, http.MethodGet, "/api/inventory/service_center/SC-1", nil, &stock)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, stock, 1)
	assert.True(t, stock[0].QtyGood.Equal(decimal.NewFromInt(2)))
	assert.True(t, stock[0].QtyDefective.Equal(decimal.NewFromInt(1)))
}

func TestDispatch_RecibirPorHTTP(t *testing.T) {
	h := newAPI(t)
	plant := entity.NewLocation(entity.LocationPlant, "PL-1")
	h.seed(t, plant, "p1", 10)

	var m dto.MovementResponse
	status := h.call(t, http.MethodPost, "/api/movements", dto.RecordMovementRequest{
		Type:        entity.MovementTypeDispatch,
		Source:      dto.FromLocation(plant),
		Destination: dto.FromLocation(apiCenter),
		Lines:       []dto.MovementLineRequest{{PartID: "p1", Qty: decimal.NewFromInt(4)}},
	}, &m)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, entity.MovementStatusPending, m.Status)

	var received dto.MovementResponse
	status = h.call(t, http.MethodPost, "/api/movements/"+m.ID+"/receive", nil, &received)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, entity.MovementStatusCompleted, received.Status)

	var list []dto.MovementResponse
	status = h.call(t, http.MethodGet, "/api/inventory/service_center/SC-1/movements", nil, &list)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, list, 1)
}

func TestParts_Listado(t *testing.T) {
	h := newAPI(t)

	var out dto.SparePartListResponse
	status := h.call(t, http.MethodGet, "/api/parts?search=cmp", nil, &out)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "CMP-001", out.Items[0].Code)

	status = h.call(t, http.MethodGet, "/api/parts?limit=1000000", nil, &out)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, dto.MaxPageLimit, out.Page.Limit)
}
