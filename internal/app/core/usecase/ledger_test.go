package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger/internal/app/core/usecase"
)

func amt(s string) domain.Amount {
	a, err := domain.ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// fixedClock 每次呼叫前進一秒
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newLedger(t *testing.T, opts ...usecase.Option) (*usecase.Ledger, *usecase.AuditLog) {
	t.Helper()
	store, err := memory.NewStore(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return usecase.NewLedger(store, opts...), usecase.NewAuditLog(store, opts...)
}

func allTransactions(t *testing.T, audit *usecase.AuditLog) []*domain.Transaction {
	t.Helper()
	trans, err := audit.Query(context.Background(), domain.TxnFilter{})
	require.NoError(t, err)
	return trans
}

func TestCreateAccount(t *testing.T) {
	ledger, audit := newLedger(t)
	ctx := context.Background()

	alice, err := ledger.CreateAccount(ctx, "Alice", amt("1000"))
	require.NoError(t, err)
	assert.Positive(t, alice.ID)
	assert.Equal(t, "Alice", alice.OwnerName)
	assert.Equal(t, amt("1000"), alice.Balance)

	bob, err := ledger.CreateAccount(ctx, "Bob", 0)
	require.NoError(t, err)
	assert.NotEqual(t, alice.ID, bob.ID)

	// 只有大於 0 的開戶存款會留下紀錄
	trans := allTransactions(t, audit)
	require.Len(t, trans, 1)
	assert.Equal(t, domain.TransactionTypeDeposit, trans[0].Type)
	assert.True(t, trans[0].To.Is(alice.ID))
	assert.False(t, trans[0].From.Valid)
	assert.Equal(t, amt("1000"), trans[0].Amount)
}

func TestCreateAccount_Invalid(t *testing.T) {
	ledger, audit := newLedger(t)
	ctx := context.Background()

	_, err := ledger.CreateAccount(ctx, "", amt("10"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = ledger.CreateAccount(ctx, "Alice", amt("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	var opErr *domain.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "create account", opErr.Op)

	assert.Empty(t, allTransactions(t, audit))
	_, err = ledger.GetAccount(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestDeposit(t *testing.T) {
	ledger, audit := newLedger(t)
	ctx := context.Background()
	acc, err := ledger.CreateAccount(ctx, "Alice", amt("100"))
	require.NoError(t, err)

	updated, err := ledger.Deposit(ctx, acc.ID, amt("50.25"))
	require.NoError(t, err)
	assert.Equal(t, amt("150.25"), updated.Balance)

	balance, err := ledger.GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, amt("150.25"), balance)

	trans := allTransactions(t, audit)
	require.Len(t, trans, 2)
	assert.Equal(t, domain.TransactionTypeDeposit, trans[0].Type)
	assert.Equal(t, amt("50.25"), trans[0].Amount)
}

func TestDeposit_Rejected(t *testing.T) {
	ledger, audit := newLedger(t)
	ctx := context.Background()
	acc, err := ledger.CreateAccount(ctx, "Alice", amt("100"))
	require.NoError(t, err)

	_, err = ledger.Deposit(ctx, acc.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = ledger.Deposit(ctx, acc.ID, amt("-5"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = ledger.Deposit(ctx, 999, amt("5"))
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	balance, err := ledger.GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, amt("100"), balance)
	assert.Len(t, allTransactions(t, audit), 1)
}

func TestWithdraw(t *testing.T) {
	ledger, audit := newLedger(t)
	ctx := context.Background()
	acc, err := ledger.CreateAccount(ctx, "Alice", amt("100"))
	require.NoError(t, err)

	updated, err := ledger.Withdraw(ctx, acc.ID, amt("100"))
	require.NoError(t, err)
	assert.Zero(t, updated.Balance)

	_, err = ledger.Withdraw(ctx, acc.ID, amt("0.01"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	trans := allTransactions(t, audit)
	require.Len(t, trans, 2)
	assert.Equal(t, domain.TransactionTypeWithdrawal, trans[0].Type)
	assert.True(t, trans[0].From.Is(acc.ID))
	assert.False(t, trans[0].To.Valid)
}

// 餘額不足的提款不改變任何狀態
func TestWithdraw_InsufficientFundsHasNoEffect(t *testing.T) {
	ledger, audit := newLedger(t)
	ctx := context.Background()
	acc, err := ledger.CreateAccount(ctx, "Alice", amt("30"))
	require.NoError(t, err)
	before := allTransactions(t, audit)

	_, err = ledger.Withdraw(ctx, acc.ID, amt("30.01"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	var opErr *domain.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "withdraw", opErr.Op)
	assert.Equal(t, acc.ID, opErr.AccountID)

	got, err := ledger.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, amt("30"), got.Balance)
	assert.Equal(t, before, allTransactions(t, audit))
}

func TestTransfer(t *testing.T) {
	ledger, audit := newLedger(t)
	ctx := context.Background()
	alice, err := ledger.CreateAccount(ctx, "Alice", amt("1000"))
	require.NoError(t, err)
	bob, err := ledger.CreateAccount(ctx, "Bob", amt("500"))
	require.NoError(t, err)

	fromBalance, err := ledger.Transfer(ctx, alice.ID, bob.ID, amt("250"))
	require.NoError(t, err)
	assert.Equal(t, amt("750"), fromBalance)

	b, err := ledger.GetBalance(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, amt("750"), b)

	trans := allTransactions(t, audit)
	require.Len(t, trans, 3)
	assert.Equal(t, domain.TransactionTypeTransfer, trans[0].Type)
	assert.True(t, trans[0].From.Is(alice.ID))
	assert.True(t, trans[0].To.Is(bob.ID))
	assert.Equal(t, amt("250"), trans[0].Amount)
}

func TestTransfer_Rejected(t *testing.T) {
	ledger, audit := newLedger(t)
	ctx := context.Background()
	alice, err := ledger.CreateAccount(ctx, "Alice", amt("100"))
	require.NoError(t, err)
	bob, err := ledger.CreateAccount(ctx, "Bob", 0)
	require.NoError(t, err)

	tests := []struct {
		name     string
		from, to int64
		amount   domain.Amount
		want     error
	}{
		{"zero amount", alice.ID, bob.ID, 0, domain.ErrInvalidArgument},
		{"negative amount", alice.ID, bob.ID, amt("-1"), domain.ErrInvalidArgument},
		{"same account", alice.ID, alice.ID, amt("1"), domain.ErrSameAccount},
		{"missing source", 999, bob.ID, amt("1"), domain.ErrAccountNotFound},
		{"missing destination", alice.ID, 999, amt("1"), domain.ErrAccountNotFound},
		{"same missing account", 999, 999, amt("1"), domain.ErrAccountNotFound},
		{"insufficient funds", alice.ID, bob.ID, amt("100.01"), domain.ErrInsufficientFunds},
		{"invalid before missing", 999, 998, 0, domain.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Transfer(ctx, tt.from, tt.to, tt.amount)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	a, err := ledger.GetBalance(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, amt("100"), a)
	b, err := ledger.GetBalance(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, b)
	assert.Len(t, allTransactions(t, audit), 1)
}

func TestTransfer_ErrorCarriesFailedAccount(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()
	alice, err := ledger.CreateAccount(ctx, "Alice", amt("10"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		from, to int64
		want     int64
	}{
		{"missing source", 998, alice.ID, 998},
		{"missing destination", alice.ID, 999, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Transfer(ctx, tt.from, tt.to, amt("1"))
			var opErr *domain.OpError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, "transfer", opErr.Op)
			assert.Equal(t, tt.want, opErr.AccountID)
		})
	}

	bob, err := ledger.CreateAccount(ctx, "Bob", 0)
	require.NoError(t, err)
	_, err = ledger.Transfer(ctx, bob.ID, alice.ID, amt("1"))
	var opErr *domain.OpError
	require.ErrorAs(t, err, &opErr)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, bob.ID, opErr.AccountID)
}

func TestGetAccount_NotFound(t *testing.T) {
	ledger, _ := newLedger(t)
	_, err := ledger.GetAccount(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = ledger.GetBalance(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestGetAccount_ReturnsSnapshot(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()
	acc, err := ledger.CreateAccount(ctx, "Alice", amt("10"))
	require.NoError(t, err)

	got, err := ledger.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	got.Balance = amt("9999")

	balance, err := ledger.GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, amt("10"), balance)
}

// 併發轉帳：總額守恆、餘額不為負、紀錄數與成功次數一致
func TestTransfer_ConcurrentConservation(t *testing.T) {
	ledger, audit := newLedger(t)
	ctx := context.Background()

	const accounts = 4
	ids := make([]int64, accounts)
	for i := range ids {
		acc, err := ledger.CreateAccount(ctx, "owner", amt("100"))
		require.NoError(t, err)
		ids[i] = acc.ID
	}

	const workers = 16
	const perWorker = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				from := ids[(w+i)%accounts]
				to := ids[(w+i+1+w%2)%accounts]
				_, err := ledger.Transfer(ctx, from, to, amt("7.5"))
				switch {
				case err == nil:
					mu.Lock()
					applied++
					mu.Unlock()
				case errors.Is(err, domain.ErrInsufficientFunds):
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	var total domain.Amount
	for _, id := range ids {
		balance, err := ledger.GetBalance(ctx, id)
		require.NoError(t, err)
		assert.False(t, balance.IsNegative())
		total += balance
	}
	assert.Equal(t, amt("400"), total)

	transfers, err := audit.Query(ctx, domain.TxnFilter{})
	require.NoError(t, err)
	assert.Len(t, transfers, accounts+applied)
}

// 反方向同時轉帳不會死鎖
func TestTransfer_OppositeDirections(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := ledger.CreateAccount(ctx, "A", amt("1000"))
	require.NoError(t, err)
	b, err := ledger.CreateAccount(ctx, "B", amt("1000"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := ledger.Transfer(ctx, a.ID, b.ID, amt("1"))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := ledger.Transfer(ctx, b.ID, a.ID, amt("1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ab, err := ledger.GetBalance(ctx, a.ID)
	require.NoError(t, err)
	bb, err := ledger.GetBalance(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, amt("2000"), ab+bb)
}

// 同一帳戶併發提款：不會超額扣款
func TestWithdraw_ConcurrentNoOverdraft(t *testing.T) {
	ledger, audit := newLedger(t)
	ctx := context.Background()
	acc, err := ledger.CreateAccount(ctx, "Alice", amt("100"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Withdraw(ctx, acc.ID, amt("10")); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	balance, err := ledger.GetBalance(ctx, acc.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	from := acc.ID
	withdrawals, err := audit.Query(ctx, domain.TxnFilter{FromAccountID: &from})
	require.NoError(t, err)
	assert.Len(t, withdrawals, 10)
}

func TestLedger_UsesClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger, audit := newLedger(t, usecase.WithClock(fixedClock(start)))
	ctx := context.Background()

	acc, err := ledger.CreateAccount(ctx, "Alice", amt("1"))
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Second), acc.CreatedAt)

	updated, err := ledger.Deposit(ctx, acc.ID, amt("1"))
	require.NoError(t, err)
	assert.Equal(t, start.Add(2*time.Second), updated.UpdatedAt)
	assert.Equal(t, acc.CreatedAt, updated.CreatedAt)

	trans := allTransactions(t, audit)
	require.Len(t, trans, 2)
	assert.Equal(t, start.Add(2*time.Second), trans[0].CreatedAt)
	assert.Equal(t, start.Add(time.Second), trans[1].CreatedAt)
	assert.NotEqual(t, trans[0].ID, trans[1].ID)
}

func TestLedger_UsesIDGenerator(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ledger, audit := newLedger(t, usecase.WithIDGenerator(func() uuid.UUID { return id }))

	_, err := ledger.CreateAccount(context.Background(), "Alice", amt("5"))
	require.NoError(t, err)
	trans := allTransactions(t, audit)
	require.Len(t, trans, 1)
	assert.Equal(t, id, trans[0].ID)
}

// failingStore 模擬底層儲存失敗
type failingStore struct {
	err error
}

func (s failingStore) Atomic(ctx context.Context, lockIDs []int64, fn func(tx usecase.Tx) error) error {
	return s.err
}

func (s failingStore) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return nil, s.err
}

func (s failingStore) ScanTransactions(ctx context.Context, filter domain.TxnFilter) ([]*domain.Transaction, error) {
	return nil, s.err
}

func TestLedger_StoreFailure(t *testing.T) {
	diskErr := errors.New("disk full")
	store := failingStore{err: diskErr}
	ledger := usecase.NewLedger(store)
	audit := usecase.NewAuditLog(store)
	ctx := context.Background()

	_, err := ledger.CreateAccount(ctx, "Alice", amt("1"))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, diskErr)

	_, err = ledger.Deposit(ctx, 1, amt("1"))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = ledger.Transfer(ctx, 1, 2, amt("1"))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = ledger.GetBalance(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = audit.Query(ctx, domain.TxnFilter{})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	var opErr *domain.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "query transactions", opErr.Op)
}

func TestLedger_ContextErrorsPassThrough(t *testing.T) {
	ledger := usecase.NewLedger(failingStore{err: context.Canceled})
	_, err := ledger.Deposit(context.Background(), 1, amt("1"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
}
