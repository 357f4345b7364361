package memory

import (
	"fmt"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger/internal/app/core/usecase"
)

// unit 一個原子單位的暫存寫入，提交前外部看不到
type unit struct {
	store     *Store
	highWater int64
	locked    map[int64]bool

	accounts map[int64]*domain.Account
	order    []int64 // 帳戶寫入順序，讓 WAL 內容穩定
	trans    []*domain.Transaction
}

func (u *unit) GetAccount(id int64) (*domain.Account, error) {
	if account, ok := u.accounts[id]; ok {
		return account.Clone(), nil
	}
	if id > u.highWater {
		return nil, domain.ErrAccountNotFound
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	account, ok := u.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (u *unit) InsertAccount(account *domain.Account) (int64, error) {
	id := u.store.nextID.Add(1)
	stored := account.Clone()
	stored.ID = id
	u.stage(stored)
	// 新帳戶在提交前只有這個單位看得到，視同已鎖定
	u.locked[id] = true
	return id, nil
}

func (u *unit) UpdateAccount(account *domain.Account) error {
	if !u.locked[account.ID] {
		return fmt.Errorf("update account %d: not locked by this unit", account.ID)
	}
	if _, err := u.GetAccount(account.ID); err != nil {
		return err
	}
	u.stage(account.Clone())
	return nil
}

func (u *unit) InsertTransaction(tran *domain.Transaction) error {
	if err := tran.Validate(); err != nil {
		return err
	}
	u.trans = append(u.trans, tran.Clone())
	return nil
}

func (u *unit) stage(account *domain.Account) {
	if _, ok := u.accounts[account.ID]; !ok {
		u.order = append(u.order, account.ID)
	}
	u.accounts[account.ID] = account
}

// record 沒有任何寫入時回傳 nil
func (u *unit) record() *walRecord {
	if len(u.order) == 0 && len(u.trans) == 0 {
		return nil
	}
	rec := &walRecord{Transactions: u.trans}
	for _, id := range u.order {
		rec.Accounts = append(rec.Accounts, u.accounts[id])
	}
	return rec
}

var _ usecase.Tx = (*unit)(nil)
