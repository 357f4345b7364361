package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger/internal/app/core/usecase"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := memory.NewStore(nil)
	require.NoError(t, err)
	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewHandler(usecase.NewLedger(store), usecase.NewAuditLog(store), log)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(func() {
		srv.Close()
		_ = store.Close()
	})
	return srv
}

func do(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHandler_AccountFlow(t *testing.T) {
	srv := newTestServer(t)

	var alice domain.Account
	code := do(t, http.MethodPost, srv.URL+"/accounts/create", `{"ownerName":"Alice","initialDeposit":"1000"}`, &alice)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Alice", alice.OwnerName)
	assert.Equal(t, domain.NewAmount(1000, 0), alice.Balance)

	var bob domain.Account
	code = do(t, http.MethodPost, srv.URL+"/accounts/create", `{"ownerName":"Bob"}`, &bob)
	require.Equal(t, http.StatusCreated, code)

	var updated domain.Account
	code = do(t, http.MethodPost, srv.URL+"/accounts/2/deposit", `{"amount":"20.50"}`, &updated)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.NewAmount(20, 50), updated.Balance)

	code = do(t, http.MethodPost, srv.URL+"/accounts/2/withdraw", `{"amount":"0.50"}`, &updated)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.NewAmount(20, 0), updated.Balance)

	var balance balanceResponse
	code = do(t, http.MethodPost, srv.URL+"/accounts/transfer", `{"fromId":1,"toId":2,"amount":"300"}`, &balance)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.NewAmount(700, 0), balance.Balance)

	code = do(t, http.MethodGet, srv.URL+"/accounts/2/balance", "", &balance)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.NewAmount(320, 0), balance.Balance)

	var got domain.Account
	code = do(t, http.MethodGet, srv.URL+"/accounts/1", "", &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.NewAmount(700, 0), got.Balance)

	var trans []domain.Transaction
	code = do(t, http.MethodGet, srv.URL+"/transactions", "", &trans)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, trans, 4)
	assert.Equal(t, domain.TransactionTypeTransfer, trans[0].Type)

	code = do(t, http.MethodGet, srv.URL+"/transactions?toAccountId=2", "", &trans)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, trans, 2)

	code = do(t, http.MethodGet, srv.URL+"/transactions?fromAccountId=2&toAccountId=1", "", &trans)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, trans)
}

func TestHandler_Errors(t *testing.T) {
	srv := newTestServer(t)
	code := do(t, http.MethodPost, srv.URL+"/accounts/create", `{"ownerName":"Alice","initialDeposit":"10"}`, nil)
	require.Equal(t, http.StatusCreated, code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"empty owner", http.MethodPost, "/accounts/create", `{"ownerName":""}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/accounts/create", `{"ownerName":"A","bonus":1}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/accounts/1/deposit", `{`, http.StatusBadRequest},
		{"too many decimals", http.MethodPost, "/accounts/1/deposit", `{"amount":"1.234"}`, http.StatusBadRequest},
		{"zero amount", http.MethodPost, "/accounts/1/withdraw", `{"amount":"0"}`, http.StatusBadRequest},
		{"missing account", http.MethodGet, "/accounts/99", "", http.StatusNotFound},
		{"missing balance", http.MethodGet, "/accounts/99/balance", "", http.StatusNotFound},
		{"insufficient funds", http.MethodPost, "/accounts/1/withdraw", `{"amount":"10.01"}`, http.StatusUnprocessableEntity},
		{"same account", http.MethodPost, "/accounts/transfer", `{"fromId":1,"toId":1,"amount":"1"}`, http.StatusBadRequest},
		{"bad start date", http.MethodGet, "/transactions?startDate=yesterday", "", http.StatusBadRequest},
		{"bad account filter", http.MethodGet, "/transactions?fromAccountId=x", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp errorResponse
			code := do(t, tt.method, srv.URL+tt.path, tt.body, &resp)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, resp.Error)
		})
	}

	var balance balanceResponse
	code = do(t, http.MethodGet, srv.URL+"/accounts/1/balance", "", &balance)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.NewAmount(10, 0), balance.Balance)
}

func TestParseFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/transactions?startDate=2025-01-01T00:00:00Z&endDate=2025-01-31T23:59:59Z&toAccountId=3", nil)
	filter, err := parseFilter(req)
	require.NoError(t, err)
	require.NotNil(t, filter.Start)
	require.NotNil(t, filter.End)
	assert.Equal(t, 2025, filter.Start.Year())
	assert.Equal(t, 31, filter.End.Day())
	assert.Nil(t, filter.FromAccountID)
	require.NotNil(t, filter.ToAccountID)
	assert.Equal(t, int64(3), *filter.ToAccountID)

	req = httptest.NewRequest(http.MethodGet, "/transactions?startDate=2024-01-01&endDate=2024-01-31", nil)
	filter, err = parseFilter(req)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *filter.Start)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *filter.End)
}
