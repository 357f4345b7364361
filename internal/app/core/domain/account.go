package domain

import (
	"fmt"
	"strings"
	"time"
)

// Account 帳戶
// ID 由 Record Store 在建立時分配，之後不可變；Balance 是唯一可變欄位
type Account struct {
	ID        int64     `json:"id"`
	OwnerName string    `json:"ownerName"`
	Balance   Amount    `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewAccount 建立尚未持久化的帳戶 (ID 為 0)
func NewAccount(ownerName string, openingBalance Amount, now time.Time) (*Account, error) {
	if strings.TrimSpace(ownerName) == "" {
		return nil, fmt.Errorf("%w: owner name must not be empty", ErrInvalidArgument)
	}
	if openingBalance.IsNegative() {
		return nil, fmt.Errorf("%w: initial deposit cannot be negative", ErrInvalidArgument)
	}
	return &Account{
		OwnerName: ownerName,
		Balance:   openingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone 回傳值拷貝，避免呼叫端改寫 store 內部狀態
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}

// Deposit 存款
func (a *Account) Deposit(amount Amount) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidArgument)
	}
	balance, ok := a.Balance.add(amount)
	if !ok {
		return fmt.Errorf("%w: balance would overflow", ErrInvalidArgument)
	}
	a.Balance = balance
	return nil
}

// Withdraw 提款，餘額不得為負
func (a *Account) Withdraw(amount Amount) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidArgument)
	}
	if a.Balance < amount {
		return ErrInsufficientFunds
	}
	a.Balance -= amount
	return nil
}
