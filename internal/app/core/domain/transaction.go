package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// TransactionType 交易類型
type TransactionType uint8

const (
	// 存款
	TransactionTypeDeposit TransactionType = 1
	// 提款
	TransactionTypeWithdrawal TransactionType = 2
	// 轉帳
	TransactionTypeTransfer TransactionType = 3
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeDeposit:
		return "DEPOSIT"
	case TransactionTypeWithdrawal:
		return "WITHDRAWAL"
	case TransactionTypeTransfer:
		return "TRANSFER"
	default:
		return fmt.Sprintf("TransactionType(%d)", uint8(t))
	}
}

// ParseTransactionType 解析 "DEPOSIT" / "WITHDRAWAL" / "TRANSFER"
func ParseTransactionType(s string) (TransactionType, error) {
	switch s {
	case "DEPOSIT":
		return TransactionTypeDeposit, nil
	case "WITHDRAWAL":
		return TransactionTypeWithdrawal, nil
	case "TRANSFER":
		return TransactionTypeTransfer, nil
	}
	return 0, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidArgument, s)
}

func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(text []byte) error {
	v, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// AccountRef 可選的帳戶參照
// 存款沒有轉出方，提款沒有轉入方，以 Valid 明確表示，不使用 0 當作哨兵值
type AccountRef struct {
	ID    int64
	Valid bool
}

// Ref 建立指向 id 的參照
func Ref(id int64) AccountRef {
	return AccountRef{ID: id, Valid: true}
}

// Is 參照存在且指向 id
func (r AccountRef) Is(id int64) bool {
	return r.Valid && r.ID == id
}

// Ptr 轉為 *int64，缺席時為 nil (供 SQL / JSON 使用)
func (r AccountRef) Ptr() *int64 {
	if !r.Valid {
		return nil
	}
	id := r.ID
	return &id
}

// RefFromPtr Ptr 的反向
func RefFromPtr(id *int64) AccountRef {
	if id == nil {
		return AccountRef{}
	}
	return Ref(*id)
}

func (r AccountRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Ptr())
}

func (r *AccountRef) UnmarshalJSON(data []byte) error {
	var id *int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*r = RefFromPtr(id)
	return nil
}

// Transaction 稽核紀錄，建立後不可變
type Transaction struct {
	// ID: 建立時分配的追蹤號 (UUID)
	ID uuid.UUID `json:"txnId"`
	// Sequence: 由 store 在寫入時分配的遞增序號，用於同時間戳的排序
	Sequence  uint64          `json:"sequence"`
	Type      TransactionType `json:"txnType"`
	Amount    Amount          `json:"amount"`
	From      AccountRef      `json:"fromAccount"`
	To        AccountRef      `json:"toAccount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewDeposit 存款紀錄，只有轉入方
func NewDeposit(id uuid.UUID, to int64, amount Amount, at time.Time) *Transaction {
	return &Transaction{ID: id, Type: TransactionTypeDeposit, Amount: amount, To: Ref(to), CreatedAt: at}
}

// NewWithdrawal 提款紀錄，只有轉出方
func NewWithdrawal(id uuid.UUID, from int64, amount Amount, at time.Time) *Transaction {
	return &Transaction{ID: id, Type: TransactionTypeWithdrawal, Amount: amount, From: Ref(from), CreatedAt: at}
}

// NewTransfer 轉帳紀錄，兩方皆有
func NewTransfer(id uuid.UUID, from, to int64, amount Amount, at time.Time) *Transaction {
	return &Transaction{ID: id, Type: TransactionTypeTransfer, Amount: amount, From: Ref(from), To: Ref(to), CreatedAt: at}
}

// Validate 檢查交易類型與帳戶參照是否一致
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: transaction amount must be positive", ErrInvalidArgument)
	}
	switch t.Type {
	case TransactionTypeDeposit:
		if !t.To.Valid || t.From.Valid {
			return fmt.Errorf("%w: deposit must credit exactly one account", ErrInvalidArgument)
		}
	case TransactionTypeWithdrawal:
		if !t.From.Valid || t.To.Valid {
			return fmt.Errorf("%w: withdrawal must debit exactly one account", ErrInvalidArgument)
		}
	case TransactionTypeTransfer:
		if !t.From.Valid || !t.To.Valid {
			return fmt.Errorf("%w: transfer needs both accounts", ErrInvalidArgument)
		}
		if t.From.ID == t.To.ID {
			return ErrSameAccount
		}
	default:
		return fmt.Errorf("%w: unknown transaction type %d", ErrInvalidArgument, uint8(t.Type))
	}
	return nil
}

// Clone 值拷貝
func (t *Transaction) Clone() *Transaction {
	cp := *t
	return &cp
}

// LockIDs 回傳需要鎖定的帳號 ID，排序並去重以避免死鎖
func LockIDs(ids ...int64) []int64 {
	out := make([]int64, 0, len(ids))
	out = append(out, ids...)
	slices.Sort(out)
	return slices.Compact(out)
}
