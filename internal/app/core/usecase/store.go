package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
)

// Store 是帳務核心依賴的 Record Store
// 負責持久化與 ID 分配；餘額規則由 Ledger 決定
type Store interface {
	// Atomic 在單一原子單位中執行 fn
	// lockIDs 內的帳戶在 fn 執行期間被鎖定 (依 ID 遞增順序取得)
	// fn 回傳錯誤時，所有暫存的寫入都會被丟棄
	Atomic(ctx context.Context, lockIDs []int64, fn func(tx Tx) error) error
	// GetAccount 讀取帳戶快照，不存在時回傳 domain.ErrAccountNotFound
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	// ScanTransactions 依條件掃描交易，結果依 domain.NewerFirst 排序
	ScanTransactions(ctx context.Context, filter domain.TxnFilter) ([]*domain.Transaction, error)
}

// Tx 原子單位內可用的操作
type Tx interface {
	GetAccount(id int64) (*domain.Account, error)
	// InsertAccount 寫入新帳戶並回傳分配的 ID
	InsertAccount(account *domain.Account) (int64, error)
	// UpdateAccount 以 ID 整筆覆蓋
	UpdateAccount(account *domain.Account) error
	// InsertTransaction 新增稽核紀錄 (只能新增，不能修改)
	InsertTransaction(tran *domain.Transaction) error
}

// classify 不屬於已知分類或 context 的錯誤一律視為 store 失敗
func classify(err error) error {
	if domain.IsKnown(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
