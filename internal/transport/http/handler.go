package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/ledger"
	"tally/internal/model"
)

// Defaults applied when the query omits skip/limit, matching the booking
// API's contract of "everything, most recent first".
const (
	defaultSkip  = 0
	defaultLimit = 100000
)

type Handler struct {
	svc ledger.LedgerService
}

func NewHandler(svc ledger.LedgerService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /api/transactions", h.BookTransaction)
	mux.HandleFunc("GET /api/transactions", h.FetchTransactions)
	mux.HandleFunc("DELETE /api/transactions/{transactionId}", h.RollbackTransaction)
	mux.HandleFunc("GET /api/balances", h.FetchBalance)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type bookTransactionRequest struct {
	TenantID   uuid.UUID       `json:"tenantId"`
	CustomerID uuid.UUID       `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	Agent      string          `json:"agent"`
}

type transactionDTO struct {
	TenantID   uuid.UUID       `json:"tenantId"`
	CustomerID uuid.UUID       `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	Agent      string          `json:"agent"`
	CreatedOn  time.Time       `json:"createdOn"`
}

type balanceDTO struct {
	Total decimal.Decimal `json:"total"`
}

// BookTransaction books a signed amount and responds 201 with the new
// transaction id. An overdraft attempt yields 403 and no record.
func (h *Handler) BookTransaction(w http.ResponseWriter, r *http.Request) {
	var req bookTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.TenantID == uuid.Nil || req.CustomerID == uuid.Nil {
		h.respondError(w, http.StatusBadRequest, "missing tenantId or customerId")
		return
	}

	id, err := h.svc.Book(r.Context(), model.BookRequest{
		TenantID:   req.TenantID,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Agent:      req.Agent,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, id)
}

func (h *Handler) FetchTransactions(w http.ResponseWriter, r *http.Request) {
	tenantID, customerID, ok := h.accountParams(w, r)
	if !ok {
		return
	}
	skip, err := queryInt(r, "skip", defaultSkip)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid skip")
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	txs, err := h.svc.FetchTransactions(r.Context(), tenantID, customerID, skip, limit)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	dtos := make([]transactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, transactionDTO{
			TenantID:   tx.TenantID,
			CustomerID: tx.CustomerID,
			Amount:     tx.Amount,
			Agent:      tx.Agent,
			CreatedOn:  tx.CreatedOn,
		})
	}
	h.respondJSON(w, http.StatusOK, dtos)
}

// RollbackTransaction books the compensating transaction for the given id
// and responds with the new transaction's id, not the original's.
func (h *Handler) RollbackTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuid.Parse(r.PathValue("transactionId"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	compensatingID, err := h.svc.Rollback(r.Context(), transactionID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, compensatingID)
}

func (h *Handler) FetchBalance(w http.ResponseWriter, r *http.Request) {
	tenantID, customerID, ok := h.accountParams(w, r)
	if !ok {
		return
	}

	balance, err := h.svc.FindBalance(r.Context(), tenantID, customerID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, balanceDTO{Total: balance.Total})
}

func (h *Handler) accountParams(w http.ResponseWriter, r *http.Request) (tenantID, customerID uuid.UUID, ok bool) {
	tenantID, err := uuid.Parse(r.URL.Query().Get("tenantId"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing or invalid tenantId")
		return uuid.Nil, uuid.Nil, false
	}
	customerID, err = uuid.Parse(r.URL.Query().Get("customerId"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing or invalid customerId")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, customerID, true
}

func queryInt(r *http.Request, name string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return 0, errors.New("not a non-negative integer")
	}
	return val, nil
}

// respondServiceError maps domain errors onto statuses: overdraft rejections
// are 403, lookups of unknown accounts or transactions are 404, everything
// else is a 500 with no internals leaked.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var (
		insufficient *ledger.InsufficientBalanceError
		txNotFound   *ledger.TransactionNotFoundError
		accNotFound  *ledger.AccountNotFoundError
	)
	switch {
	case errors.As(err, &insufficient):
		h.respondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &txNotFound), errors.As(err, &accNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	default:
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
