package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/infrastructure/cache"
	"github.com/buildingledger/backend/internal/interfaces/http/dto"
	"github.com/buildingledger/backend/internal/interfaces/http/middleware"
	"github.com/buildingledger/backend/internal/interfaces/http/router"
	"github.com/buildingledger/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerAPI struct {
	*testutil.Ledger
	engine *gin.Engine
}

func newLedgerAPI(t *testing.T, recompute func(string) gin.HandlerFunc) *ledgerAPI {
	t.Helper()
	l := testutil.NewLedger(t, billing.GroupBoundaryStop)

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine)
	for _, group := range LedgerRoutes(Handlers{
		Property:    NewPropertyHandler(l.Properties),
		Invoice:     NewInvoiceHandler(l.Invoices),
		Transaction: NewTransactionHandler(l.Transactions),
		Balance:     NewBalanceHandler(l.Balances),
		System:      NewSystemHandler("test", nil),
		Idempotency: middleware.Idempotency(store, time.Hour),
	}, recompute) {
		r.Register(group)
	}
	r.Setup()
	return &ledgerAPI{Ledger: l, engine: engine}
}

func TestLedgerAPI_PaymentLifecycle(t *testing.T) {
	api := newLedgerAPI(t, nil)

	w := testutil.PerformRequest(t, api.engine, http.MethodPost, "/api/v1/buildings", map[string]any{"name": "Tower"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	building := testutil.DecodeData[appbilling.BuildingResponse](t, w)

	w = testutil.PerformRequest(t, api.engine, http.MethodPost,
		fmt.Sprintf("/api/v1/buildings/%s/units", building.ID),
		map[string]any{"unit_number": "12", "number_of_residents": 3, "area": "82.5"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	unit := testutil.DecodeData[appbilling.UnitResponse](t, w)
	assert.Equal(t, building.ID, unit.BuildingID)

	w = testutil.PerformRequest(t, api.engine, http.MethodPost, "/api/v1/invoices", map[string]any{
		"building_id":         building.ID,
		"title":               "March charge",
		"amount":              500,
		"target_group":        "resident",
		"distribution_method": "equal",
		"unit_ids":            []uuid.UUID{unit.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoice := testutil.DecodeData[appbilling.InvoiceResponse](t, w)
	require.Len(t, invoice.Distributions, 1)

	w = testutil.PerformRequest(t, api.engine, http.MethodPost, "/api/v1/transactions", map[string]any{
		"unit_id":            unit.ID,
		"amount":             700,
		"transaction_status": "paid",
		"target_group":       "resident",
		"payment_method":     "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tx := testutil.DecodeData[appbilling.TransactionResponse](t, w)
	assert.Equal(t, int64(500), tx.Allocated)
	assert.Equal(t, int64(200), tx.Unallocated)

	w = testutil.PerformRequest(t, api.engine, http.MethodGet, fmt.Sprintf("/api/v1/units/%s", unit.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := testutil.DecodeData[appbilling.UnitResponse](t, w)
	assert.Equal(t, int64(700), got.Resident.PaidAmount)
	assert.Equal(t, int64(500), got.Resident.Debt)
	assert.Equal(t, int64(200), got.CurrentBalance)

	w = testutil.PerformRequest(t, api.engine, http.MethodGet, fmt.Sprintf("/api/v1/units/%s/distributions", unit.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	ds := testutil.DecodeData[[]appbilling.DistributionResponse](t, w)
	require.Len(t, ds, 1)
	assert.Equal(t, billing.InvoiceStatusPaid, ds[0].Status)

	w = testutil.PerformRequest(t, api.engine, http.MethodDelete, fmt.Sprintf("/api/v1/transactions/%s", tx.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = testutil.PerformRequest(t, api.engine, http.MethodGet, fmt.Sprintf("/api/v1/transactions/%s", tx.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, testutil.ErrorCode(t, w))

	w = testutil.PerformRequest(t, api.engine, http.MethodPost, fmt.Sprintf("/api/v1/transactions/%s/restore", tx.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(500), testutil.DecodeData[appbilling.TransactionResponse](t, w).Allocated)

	w = testutil.PerformRequest(t, api.engine, http.MethodPost, fmt.Sprintf("/api/v1/transactions/%s/restore", tx.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, testutil.ErrorCode(t, w))

	w = testutil.PerformRequest(t, api.engine, http.MethodGet, fmt.Sprintf("/api/v1/buildings/%s", building.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(700), testutil.DecodeData[appbilling.BuildingResponse](t, w).PaidAmount)
}

func TestLedgerAPI_Calculate(t *testing.T) {
	api := newLedgerAPI(t, nil)
	b := api.SeedBuilding(t, "Tower")
	units := api.SeedUnits(t, b,
		testutil.UnitSeed{Number: "1", Residents: 1},
		testutil.UnitSeed{Number: "2", Residents: 3},
	)

	w := testutil.PerformRequest(t, api.engine, http.MethodPost, "/api/v1/invoices/calculate", map[string]any{
		"distribution_method": "per_person",
		"unit_ids":            units,
		"total_amount":        1000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	shares := testutil.DecodeData[[]billing.DistributionShare](t, w)
	require.Len(t, shares, 2)
	assert.Equal(t, int64(250), shares[0].Amount)
	assert.Equal(t, int64(750), shares[1].Amount)

	w = testutil.PerformRequest(t, api.engine, http.MethodPost, "/api/v1/invoices/calculate", map[string]any{
		"distribution_method": "by_mood",
		"unit_ids":            units,
		"total_amount":        1000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, testutil.ErrorCode(t, w))
}

func TestLedgerAPI_ReplaceAndEditDistributions(t *testing.T) {
	api := newLedgerAPI(t, nil)
	b := api.SeedBuilding(t, "Tower")
	units := api.SeedUnits(t, b, testutil.UnitSeed{Number: "1"}, testutil.UnitSeed{Number: "2"})
	inv := api.IssueInvoice(t, b, 600, billing.TargetGroupResident, billing.DistributionMethodEqual, units[0])

	w := testutil.PerformRequest(t, api.engine, http.MethodPut,
		fmt.Sprintf("/api/v1/invoices/%s/distributions", inv.ID), map[string]any{
			"distribution_method": "equal",
			"unit_ids":            units,
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ds := testutil.DecodeData[[]appbilling.DistributionResponse](t, w)
	require.Len(t, ds, 2)

	w = testutil.PerformRequest(t, api.engine, http.MethodPatch,
		fmt.Sprintf("/api/v1/distributions/%s", ds[0].ID), map[string]any{"status": "pending"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, billing.InvoiceStatusPending, testutil.DecodeData[appbilling.DistributionResponse](t, w).Status)

	w = testutil.PerformRequest(t, api.engine, http.MethodGet, fmt.Sprintf("/api/v1/invoices/%s", inv.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.DecodeData[appbilling.InvoiceResponse](t, w).Distributions, 2)

	w = testutil.PerformRequest(t, api.engine, http.MethodDelete, fmt.Sprintf("/api/v1/distributions/%s", ds[1].ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = testutil.PerformRequest(t, api.engine, http.MethodDelete, fmt.Sprintf("/api/v1/distributions/%s", ds[1].ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLedgerAPI_TransactionsAndIncome(t *testing.T) {
	api := newLedgerAPI(t, nil)
	b := api.SeedBuilding(t, "Tower")
	unit := api.SeedUnits(t, b, testutil.UnitSeed{Number: "1"})[0]
	api.IssueInvoice(t, b, 300, billing.TargetGroupResident, billing.DistributionMethodEqual, unit)
	api.Pay(t, unit, 100, billing.TargetGroupResident)
	api.Pay(t, unit, 50, billing.TargetGroupOwner)
	paid := api.Pay(t, unit, 200, billing.TargetGroupResident)

	w := testutil.PerformRequest(t, api.engine, http.MethodGet,
		fmt.Sprintf("/api/v1/units/%s/transactions?target_group=resident&page_size=1", unit), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	w = testutil.PerformRequest(t, api.engine, http.MethodGet,
		fmt.Sprintf("/api/v1/units/%s/transactions?status=refunded", unit), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.PerformRequest(t, api.engine, http.MethodPatch,
		fmt.Sprintf("/api/v1/transactions/%s", paid.ID), map[string]any{"transaction_status": "unsuccessful"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := testutil.DecodeData[appbilling.TransactionResponse](t, w)
	assert.Equal(t, billing.TransactionStatusUnsuccessful, updated.Status)
	assert.Zero(t, updated.Allocated)

	paidAt := time.Date(2024, 3, 21, 9, 0, 0, 0, time.UTC)
	w = testutil.PerformRequest(t, api.engine, http.MethodPost, fmt.Sprintf("/api/v1/buildings/%s/income", b), map[string]any{
		"amount":             1200,
		"transaction_status": "paid",
		"description":        "Rooftop antenna lease",
		"paid_at":            paidAt,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	income := testutil.DecodeData[appbilling.TransactionResponse](t, w)
	assert.Nil(t, income.UnitID)
	assert.Zero(t, income.Unallocated)
	assert.Equal(t, int64(1200), api.Building(t, b).TotalIncome)
}

func TestLedgerAPI_Recompute(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Hour)
	t.Cleanup(limiter.Stop)
	api := newLedgerAPI(t, func(param string) gin.HandlerFunc {
		return middleware.RateLimitByParam(limiter, param)
	})
	b := api.SeedBuilding(t, "Tower")
	unit := api.SeedUnits(t, b, testutil.UnitSeed{Number: "1"})[0]
	api.IssueInvoice(t, b, 300, billing.TargetGroupResident, billing.DistributionMethodEqual, unit)
	api.Pay(t, unit, 300, billing.TargetGroupResident)

	w := testutil.PerformRequest(t, api.engine, http.MethodPost, fmt.Sprintf("/api/v1/units/%s/recompute", unit), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(300), testutil.DecodeData[appbilling.UnitResponse](t, w).Resident.PaidAmount)

	w = testutil.PerformRequest(t, api.engine, http.MethodPost, fmt.Sprintf("/api/v1/units/%s/recompute", unit), nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = testutil.PerformRequest(t, api.engine, http.MethodPost, fmt.Sprintf("/api/v1/buildings/%s/recompute", b), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	building := testutil.DecodeData[appbilling.BuildingResponse](t, w)
	assert.Equal(t, int64(300), building.PaidAmount)
	assert.Equal(t, int64(300), building.TotalDebt)
}

func TestLedgerAPI_BadInput(t *testing.T) {
	api := newLedgerAPI(t, nil)

	tests := []struct {
		name, method, path string
		body               any
		wantStatus         int
		wantCode           string
	}{
		{"malformed path id", http.MethodGet, "/api/v1/units/not-a-uuid", nil, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"unknown unit", http.MethodGet, "/api/v1/units/" + uuid.NewString(), nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"unknown building units", http.MethodGet, "/api/v1/buildings/" + uuid.NewString() + "/units", nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"missing building name", http.MethodPost, "/api/v1/buildings", map[string]any{}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"zero payment", http.MethodPost, "/api/v1/transactions", map[string]any{
			"unit_id": uuid.New(), "amount": 0, "transaction_status": "paid", "target_group": "resident",
		}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"payment to unknown unit", http.MethodPost, "/api/v1/transactions", map[string]any{
			"unit_id": uuid.New(), "amount": 10, "transaction_status": "paid", "target_group": "resident",
		}, http.StatusNotFound, dto.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.PerformRequest(t, api.engine, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, testutil.ErrorCode(t, w))
		})
	}
}

func TestLedgerAPI_DuplicateUnitNumber(t *testing.T) {
	api := newLedgerAPI(t, nil)
	b := api.SeedBuilding(t, "Tower")
	api.SeedUnits(t, b, testutil.UnitSeed{Number: "7"})

	w := testutil.PerformRequest(t, api.engine, http.MethodPost,
		fmt.Sprintf("/api/v1/buildings/%s/units", b), map[string]any{"unit_number": "7"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeAlreadyExists, testutil.ErrorCode(t, w))
}

func TestLedgerAPI_IdempotentPayment(t *testing.T) {
	api := newLedgerAPI(t, nil)
	b := api.SeedBuilding(t, "Tower")
	units := api.SeedUnits(t, b, testutil.UnitSeed{Number: "1", Residents: 2})
	api.IssueInvoice(t, b, 300, billing.TargetGroupResident, billing.DistributionMethodEqual, units...)

	pay := func(key string) *httptest.ResponseRecorder {
		return testutil.PerformRequestWithHeaders(t, api.engine, http.MethodPost, "/api/v1/transactions", map[string]any{
			"unit_id":            units[0],
			"amount":             200,
			"transaction_status": "paid",
			"target_group":       "resident",
			"payment_method":     "mobile_banking",
		}, map[string]string{middleware.IdempotencyKeyHeader: key})
	}

	first := pay("bank-ref-77")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	retry := pay("bank-ref-77")
	require.Equal(t, http.StatusCreated, retry.Code)
	assert.Equal(t, "true", retry.Header().Get(middleware.IdempotentReplayHeader))
	assert.Equal(t,
		testutil.DecodeData[appbilling.TransactionResponse](t, first).ID,
		testutil.DecodeData[appbilling.TransactionResponse](t, retry).ID,
	)

	unit := api.Unit(t, units[0])
	assert.Equal(t, int64(200), unit.Resident.PaidAmount)
	assert.Equal(t, int64(-100), unit.CurrentBalance)

	second := pay("bank-ref-78")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, int64(400), api.Unit(t, units[0]).Resident.PaidAmount)
}

func TestLedgerAPI_UnitEditsAndMembers(t *testing.T) {
	api := newLedgerAPI(t, nil)
	b := api.SeedBuilding(t, "Tower")
	unit := api.SeedUnits(t, b, testutil.UnitSeed{Number: "1"})[0]
	unitPath := fmt.Sprintf("/api/v1/units/%s", unit)

	w := testutil.PerformRequest(t, api.engine, http.MethodPatch, unitPath, map[string]any{
		"owner_base_balance": 1200,
		"parking_spaces":     2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := testutil.DecodeData[appbilling.UnitResponse](t, w)
	assert.Equal(t, int64(1200), got.Owner.BaseBalance)
	assert.Equal(t, 2, got.ParkingSpaces)
	assert.Equal(t, "1", got.UnitNumber)

	w = testutil.PerformRequest(t, api.engine, http.MethodGet, fmt.Sprintf("/api/v1/buildings/%s", b), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1200), testutil.DecodeData[appbilling.BuildingResponse](t, w).BaseBalance)

	w = testutil.PerformRequest(t, api.engine, http.MethodPatch, unitPath, map[string]any{"parking_spaces": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	user := uuid.New()
	w = testutil.PerformRequest(t, api.engine, http.MethodPost, unitPath+"/members",
		map[string]any{"user_id": user, "role": "resident"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, testutil.DecodeData[appbilling.UnitResponse](t, w).Members, 1)

	w = testutil.PerformRequest(t, api.engine, http.MethodPost, unitPath+"/members",
		map[string]any{"user_id": user, "role": "resident"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeAlreadyExists, testutil.ErrorCode(t, w))

	w = testutil.PerformRequest(t, api.engine, http.MethodDelete,
		fmt.Sprintf("%s/members/%s/resident", unitPath, user), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, testutil.DecodeData[appbilling.UnitResponse](t, w).Members)

	w = testutil.PerformRequest(t, api.engine, http.MethodDelete,
		fmt.Sprintf("%s/members/%s/resident", unitPath, user), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
