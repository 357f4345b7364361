package mysql

import (
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	OwnerName string    `gorm:"size:255;not null"`
	Balance   int64     `gorm:"not null"` // 最小貨幣單位
	CreatedAt time.Time `gorm:"type:datetime(6)"`
	UpdatedAt time.Time `gorm:"type:datetime(6)"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 transactions 表
// 自增主鍵即為寫入序號；帳戶欄位可為 NULL，不設外鍵，帳戶被移除後紀錄仍保留原 ID
type sqlTransaction struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	TxnID         []byte    `gorm:"column:txn_id;type:binary(16);uniqueIndex"` // 對應 domain.Transaction.ID
	Type          uint8     `gorm:"not null"`
	Amount        int64     `gorm:"not null"`
	FromAccountID *int64    `gorm:"index"`
	ToAccountID   *int64    `gorm:"index"`
	CreatedAt     time.Time `gorm:"type:datetime(6);index"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

func toSQLAccount(a *domain.Account) sqlAccount {
	return sqlAccount{
		ID:        a.ID,
		OwnerName: a.OwnerName,
		Balance:   int64(a.Balance),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (row *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:        row.ID,
		OwnerName: row.OwnerName,
		Balance:   domain.Amount(row.Balance),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func toSQLTransaction(t *domain.Transaction) sqlTransaction {
	return sqlTransaction{
		TxnID:         t.ID[:],
		Type:          uint8(t.Type),
		Amount:        int64(t.Amount),
		FromAccountID: t.From.Ptr(),
		ToAccountID:   t.To.Ptr(),
		CreatedAt:     t.CreatedAt,
	}
}

func (row *sqlTransaction) toDomain() (*domain.Transaction, error) {
	id, err := uuid.FromBytes(row.TxnID)
	if err != nil {
		return nil, err
	}
	return &domain.Transaction{
		ID:        id,
		Sequence:  row.ID,
		Type:      domain.TransactionType(row.Type),
		Amount:    domain.Amount(row.Amount),
		From:      domain.RefFromPtr(row.FromAccountID),
		To:        domain.RefFromPtr(row.ToAccountID),
		CreatedAt: row.CreatedAt,
	}, nil
}
