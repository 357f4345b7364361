package mysql

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger/internal/app/core/usecase"
)

// unit 包裝一個進行中的 DB Transaction
type unit struct {
	tx     *gorm.DB
	locked map[int64]*sqlAccount // 已上鎖的帳戶列 (含本單位的修改)
}

func (u *unit) GetAccount(id int64) (*domain.Account, error) {
	if row, ok := u.locked[id]; ok {
		return row.toDomain(), nil
	}
	var row sqlAccount
	if err := u.tx.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, storeError(err)
	}
	return row.toDomain(), nil
}

func (u *unit) InsertAccount(account *domain.Account) (int64, error) {
	row := toSQLAccount(account)
	row.ID = 0
	if err := u.tx.Create(&row).Error; err != nil {
		return 0, storeError(err)
	}
	u.locked[row.ID] = &row
	return row.ID, nil
}

// UpdateAccount 只允許修改本單位已鎖定的帳戶
func (u *unit) UpdateAccount(account *domain.Account) error {
	if _, ok := u.locked[account.ID]; !ok {
		return fmt.Errorf("%w: update account %d: row not locked", domain.ErrStoreUnavailable, account.ID)
	}
	row := toSQLAccount(account)
	err := u.tx.Model(&sqlAccount{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"owner_name": row.OwnerName,
			"balance":    row.Balance,
			"updated_at": row.UpdatedAt,
		}).Error
	if err != nil {
		return storeError(err)
	}
	u.locked[row.ID] = &row
	return nil
}

func (u *unit) InsertTransaction(tran *domain.Transaction) error {
	if err := tran.Validate(); err != nil {
		return err
	}
	row := toSQLTransaction(tran)
	if err := u.tx.Create(&row).Error; err != nil {
		return storeError(err)
	}
	return nil
}

var _ usecase.Tx = (*unit)(nil)
