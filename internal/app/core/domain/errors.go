package domain

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrInvalidArgument 參數錯誤 (金額非正數、戶名為空等)
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccount 轉出與轉入為同一帳戶
	ErrSameAccount = errors.New("cannot transfer to the same account")

	// ErrStoreUnavailable 底層儲存讀寫失敗
	ErrStoreUnavailable = errors.New("store unavailable")
)

// OpError 帳務操作失敗時回傳的錯誤，附帶出錯的帳戶與金額
// 以 errors.Is 判斷分類 (ErrInsufficientFunds 等)
type OpError struct {
	Op        string
	AccountID int64
	Amount    Amount
	Err       error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.AccountID != 0 {
		b.WriteString(" account ")
		b.WriteString(strconv.FormatInt(e.AccountID, 10))
	}
	if e.Amount != 0 {
		b.WriteString(" amount ")
		b.WriteString(e.Amount.String())
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsKnown 是否屬於帳務錯誤分類之一
func IsKnown(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrStoreUnavailable)
}
