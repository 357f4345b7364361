package domain

import "time"

// TxnFilter 交易查詢條件，所有欄位皆可選，以 AND 組合
type TxnFilter struct {
	Start         *time.Time // 含
	End           *time.Time // 含
	FromAccountID *int64
	ToAccountID   *int64
}

// Matches 判斷交易是否符合所有已設定的條件
func (f TxnFilter) Matches(t *Transaction) bool {
	if f.Start != nil && t.CreatedAt.Before(*f.Start) {
		return false
	}
	if f.End != nil && t.CreatedAt.After(*f.End) {
		return false
	}
	if f.FromAccountID != nil && !t.From.Is(*f.FromAccountID) {
		return false
	}
	if f.ToAccountID != nil && !t.To.Is(*f.ToAccountID) {
		return false
	}
	return true
}

// ParseFilterTime 解析查詢條件的時間，接受 RFC 3339 或只有日期的 2006-01-02 (UTC 零時)
func ParseFilterTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	if d, dateErr := time.Parse(time.DateOnly, s); dateErr == nil {
		return d, nil
	}
	return time.Time{}, err
}

// IsEmpty 沒有任何條件
func (f TxnFilter) IsEmpty() bool {
	return f.Start == nil && f.End == nil && f.FromAccountID == nil && f.ToAccountID == nil
}

// NewerFirst 查詢結果的排序：CreatedAt 由新到舊，相同時後寫入者在前
func NewerFirst(a, b *Transaction) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.Sequence > b.Sequence:
		return -1
	case a.Sequence < b.Sequence:
		return 1
	}
	return 0
}
