package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-ledger/pkg/mysql"
)

// Store 是 MySQL 版的 Record Store
// 每個原子單位是一個 DB Transaction，帳戶以 SELECT ... FOR UPDATE 依 ID 順序悲觀鎖定
type Store struct {
	client *mysql.Client
}

func NewStore(client *mysql.Client) *Store {
	return &Store{
		client: client,
	}
}

// Migrate 建立 / 更新資料表
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.client.DB().WithContext(ctx).AutoMigrate(&sqlAccount{}, &sqlTransaction{}); err != nil {
		return fmt.Errorf("migrate ledger tables: %w", err)
	}
	return nil
}

func (s *Store) Atomic(ctx context.Context, lockIDs []int64, fn func(tx usecase.Tx) error) error {
	// fn 的錯誤要原樣回傳，與 DB 本身的錯誤分開
	var fnErr error
	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 取得鎖定帳號 悲觀鎖 (ID 遞增順序，避免死鎖)
		ids := domain.LockIDs(lockIDs...)
		u := &unit{tx: tx, locked: make(map[int64]*sqlAccount, len(ids))}
		if len(ids) > 0 {
			var rows []sqlAccount
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id IN ?", ids).
				Order("id").
				Find(&rows).Error; err != nil {
				return err
			}
			for i := range rows {
				u.locked[rows[i].ID] = &rows[i]
			}
		}
		if err := fn(u); err != nil {
			fnErr = err
			return err
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return storeError(err)
	}
	return nil
}

// GetAccount 取得帳戶
func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	var row sqlAccount
	if err := s.client.DB().WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, storeError(err)
	}
	return row.toDomain(), nil
}

// ScanTransactions 單一 SELECT，InnoDB 以一致性快照讀取
func (s *Store) ScanTransactions(ctx context.Context, filter domain.TxnFilter) ([]*domain.Transaction, error) {
	var rows []sqlTransaction
	if err := scanQuery(s.client.DB().WithContext(ctx), filter).Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}
	out := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		tran, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: transaction row %d: %w", domain.ErrStoreUnavailable, rows[i].ID, err)
		}
		out = append(out, tran)
	}
	return out, nil
}

// scanQuery 依條件組出查詢；排序與 domain.NewerFirst 一致
func scanQuery(db *gorm.DB, filter domain.TxnFilter) *gorm.DB {
	q := db.Model(&sqlTransaction{})
	if filter.Start != nil {
		q = q.Where("created_at >= ?", *filter.Start)
	}
	if filter.End != nil {
		q = q.Where("created_at <= ?", *filter.End)
	}
	if filter.FromAccountID != nil {
		q = q.Where("from_account_id = ?", *filter.FromAccountID)
	}
	if filter.ToAccountID != nil {
		q = q.Where("to_account_id = ?", *filter.ToAccountID)
	}
	return q.Order("created_at DESC").Order("id DESC")
}

// storeError 找不到資料 -> ErrAccountNotFound，其餘 -> ErrStoreUnavailable
func storeError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrAccountNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
}

var _ usecase.Store = (*Store)(nil)
