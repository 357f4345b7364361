package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger/internal/app/core/usecase"
)

// Handler 將 HTTP 請求轉給 Ledger / AuditLog
type Handler struct {
	ledger *usecase.Ledger
	audit  *usecase.AuditLog
	log    logrus.FieldLogger
}

func NewHandler(ledger *usecase.Ledger, audit *usecase.AuditLog, log logrus.FieldLogger) *Handler {
	return &Handler{ledger: ledger, audit: audit, log: log}
}

// Router 建立路由
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logging)
	r.HandleFunc("/accounts/create", h.CreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts/transfer", h.Transfer).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id:[0-9]+}", h.GetAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id:[0-9]+}/deposit", h.Deposit).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id:[0-9]+}/withdraw", h.Withdraw).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id:[0-9]+}/balance", h.GetBalance).Methods(http.MethodGet)
	r.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	return r
}

type createAccountBody struct {
	OwnerName      string        `json:"ownerName"`
	InitialDeposit domain.Amount `json:"initialDeposit"`
}

type amountBody struct {
	Amount domain.Amount `json:"amount"`
}

type transferBody struct {
	FromID int64         `json:"fromId"`
	ToID   int64         `json:"toId"`
	Amount domain.Amount `json:"amount"`
}

type balanceResponse struct {
	Balance domain.Amount `json:"balance"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var body createAccountBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	account, err := h.ledger.CreateAccount(r.Context(), body.OwnerName, body.InitialDeposit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	account, err := h.ledger.GetAccount(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.Deposit)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.Withdraw)
}

// mutate 存款與提款共用：解析 id 與金額，回傳異動後的帳戶
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, domain.Amount) (*domain.Account, error)) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var body amountBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	account, err := op(r.Context(), id, body.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var body transferBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	balance, err := h.ledger.Transfer(r.Context(), body.FromID, body.ToID, body.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	balance, err := h.ledger.GetBalance(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

// ListTransactions GET /transactions?startDate=&endDate=&fromAccountId=&toAccountId=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	trans, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trans)
}

func parseFilter(r *http.Request) (domain.TxnFilter, error) {
	q := r.URL.Query()
	var filter domain.TxnFilter
	if v := q.Get("startDate"); v != "" {
		t, err := domain.ParseFilterTime(v)
		if err != nil {
			return filter, fmt.Errorf("%w: startDate %q is not an ISO 8601 date", domain.ErrInvalidArgument, v)
		}
		filter.Start = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := domain.ParseFilterTime(v)
		if err != nil {
			return filter, fmt.Errorf("%w: endDate %q is not an ISO 8601 date", domain.ErrInvalidArgument, v)
		}
		filter.End = &t
	}
	if v := q.Get("fromAccountId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("%w: fromAccountId %q", domain.ErrInvalidArgument, v)
		}
		filter.FromAccountID = &id
	}
	if v := q.Get("toAccountId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("%w: toAccountId %q", domain.ErrInvalidArgument, v)
		}
		filter.ToAccountID = &id
	}
	return filter, nil
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: account id %q", domain.ErrInvalidArgument, raw)
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return err
		}
		return fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError 帳務錯誤 -> HTTP status
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var code int
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrSameAccount):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStoreUnavailable):
		code = http.StatusServiceUnavailable
	default:
		code = http.StatusInternalServerError
	}
	if code >= http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
