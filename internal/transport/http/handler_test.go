package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tally/internal/ledger"
	"tally/internal/model"
)

type mockService struct {
	bookFn     func(ctx context.Context, req model.BookRequest) (uuid.UUID, error)
	fetchFn    func(ctx context.Context, tenantID, customerID uuid.UUID, skip, limit int) ([]model.Transaction, error)
	rollbackFn func(ctx context.Context, transactionID uuid.UUID) (uuid.UUID, error)
	balanceFn  func(ctx context.Context, tenantID, customerID uuid.UUID) (model.Balance, error)
}

func (m *mockService) Book(ctx context.Context, req model.BookRequest) (uuid.UUID, error) {
	return m.bookFn(ctx, req)
}

func (m *mockService) FetchTransactions(ctx context.Context, tenantID, customerID uuid.UUID, skip, limit int) ([]model.Transaction, error) {
	return m.fetchFn(ctx, tenantID, customerID, skip, limit)
}

func (m *mockService) Rollback(ctx context.Context, transactionID uuid.UUID) (uuid.UUID, error) {
	return m.rollbackFn(ctx, transactionID)
}

func (m *mockService) FindBalance(ctx context.Context, tenantID, customerID uuid.UUID) (model.Balance, error) {
	return m.balanceFn(ctx, tenantID, customerID)
}

func serve(svc ledger.LedgerService, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	NewHandler(svc).Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestBookTransaction_Created(t *testing.T) {
	tenant, customer := uuid.New(), uuid.New()
	txID := uuid.New()

	var got model.BookRequest
	svc := &mockService{
		bookFn: func(_ context.Context, req model.BookRequest) (uuid.UUID, error) {
			got = req
			return txID, nil
		},
	}

	body := `{"tenantId":"` + tenant.String() + `","customerId":"` + customer.String() + `","amount":10,"agent":"a sender"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	rec := serve(svc, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var returned uuid.UUID
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &returned))
	require.Equal(t, txID, returned)

	require.Equal(t, tenant, got.TenantID)
	require.Equal(t, customer, got.CustomerID)
	require.Equal(t, "10", got.Amount.String())
	require.Equal(t, "a sender", got.Agent)
}

func TestBookTransaction_InsufficientBalance(t *testing.T) {
	tenant, customer := uuid.New(), uuid.New()
	svc := &mockService{
		bookFn: func(_ context.Context, req model.BookRequest) (uuid.UUID, error) {
			return uuid.Nil, &ledger.InsufficientBalanceError{
				TenantID:   tenant,
				CustomerID: customer,
				Amount:     decimal.NewFromInt(-10),
			}
		},
	}

	body := `{"tenantId":"` + tenant.String() + `","customerId":"` + customer.String() + `","amount":-10,"agent":"a sender"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	rec := serve(svc, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "Unable to book")
}

func TestBookTransaction_InvalidJSON(t *testing.T) {
	called := false
	svc := &mockService{
		bookFn: func(_ context.Context, _ model.BookRequest) (uuid.UUID, error) {
			called = true
			return uuid.Nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(`{not json`))
	rec := serve(svc, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, called)
}

func TestBookTransaction_MissingTenant(t *testing.T) {
	called := false
	svc := &mockService{
		bookFn: func(_ context.Context, _ model.BookRequest) (uuid.UUID, error) {
			called = true
			return uuid.Nil, nil
		},
	}

	body := `{"customerId":"` + uuid.New().String() + `","amount":10,"agent":"a sender"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	rec := serve(svc, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, called)
}

func TestFetchTransactions_AppliesDefaults(t *testing.T) {
	tenant, customer := uuid.New(), uuid.New()

	var gotSkip, gotLimit int
	svc := &mockService{
		fetchFn: func(_ context.Context, _, _ uuid.UUID, skip, limit int) ([]model.Transaction, error) {
			gotSkip, gotLimit = skip, limit
			return []model.Transaction{
				{
					ID:         uuid.New(),
					TenantID:   tenant,
					CustomerID: customer,
					Amount:     decimal.NewFromInt(15),
					Agent:      "a sender",
				},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/transactions?tenantId="+tenant.String()+"&customerId="+customer.String(), nil)
	rec := serve(svc, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, defaultSkip, gotSkip)
	require.Equal(t, defaultLimit, gotLimit)

	var dtos []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dtos))
	require.Len(t, dtos, 1)
	require.Contains(t, dtos[0], "tenantId")
	require.Contains(t, dtos[0], "amount")
	require.NotContains(t, dtos[0], "id")
}

func TestFetchTransactions_SkipAndLimitFromQuery(t *testing.T) {
	tenant, customer := uuid.New(), uuid.New()

	var gotSkip, gotLimit int
	svc := &mockService{
		fetchFn: func(_ context.Context, _, _ uuid.UUID, skip, limit int) ([]model.Transaction, error) {
			gotSkip, gotLimit = skip, limit
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/transactions?tenantId="+tenant.String()+"&customerId="+customer.String()+"&skip=1&limit=1", nil)
	rec := serve(svc, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, gotSkip)
	require.Equal(t, 1, gotLimit)
}

func TestFetchTransactions_MissingParams(t *testing.T) {
	called := false
	svc := &mockService{
		fetchFn: func(_ context.Context, _, _ uuid.UUID, _, _ int) ([]model.Transaction, error) {
			called = true
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/transactions?customerId="+uuid.New().String(), nil)
	rec := serve(svc, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/transactions?tenantId="+uuid.New().String(), nil)
	rec = serve(svc, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.False(t, called)
}

func TestRollbackTransaction_ReturnsCompensatingID(t *testing.T) {
	originalID := uuid.New()
	compensatingID := uuid.New()

	svc := &mockService{
		rollbackFn: func(_ context.Context, transactionID uuid.UUID) (uuid.UUID, error) {
			require.Equal(t, originalID, transactionID)
			return compensatingID, nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/transactions/"+originalID.String(), nil)
	rec := serve(svc, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var returned uuid.UUID
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &returned))
	require.Equal(t, compensatingID, returned)
}

func TestRollbackTransaction_NotFound(t *testing.T) {
	unknown := uuid.New()
	svc := &mockService{
		rollbackFn: func(_ context.Context, transactionID uuid.UUID) (uuid.UUID, error) {
			return uuid.Nil, &ledger.TransactionNotFoundError{TransactionID: transactionID}
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/transactions/"+unknown.String(), nil)
	rec := serve(svc, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), unknown.String())
}

func TestRollbackTransaction_InvalidID(t *testing.T) {
	svc := &mockService{
		rollbackFn: func(_ context.Context, _ uuid.UUID) (uuid.UUID, error) {
			t.Fatal("rollback must not be called")
			return uuid.Nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/transactions/not-a-uuid", nil)
	rec := serve(svc, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchBalance_OK(t *testing.T) {
	tenant, customer := uuid.New(), uuid.New()
	svc := &mockService{
		balanceFn: func(_ context.Context, _, _ uuid.UUID) (model.Balance, error) {
			return model.Balance{
				Key:   model.AccountKey{TenantID: tenant, CustomerID: customer},
				Total: decimal.NewFromInt(42),
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/balances?tenantId="+tenant.String()+"&customerId="+customer.String(), nil)
	rec := serve(svc, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"total":"42"}`, rec.Body.String())
}

func TestFetchBalance_NotFound(t *testing.T) {
	tenant, customer := uuid.New(), uuid.New()
	svc := &mockService{
		balanceFn: func(_ context.Context, tenantID, customerID uuid.UUID) (model.Balance, error) {
			return model.Balance{}, &ledger.AccountNotFoundError{TenantID: tenantID, CustomerID: customerID}
		},
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/balances?tenantId="+tenant.String()+"&customerId="+customer.String(), nil)
	rec := serve(svc, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Account not found")
}
