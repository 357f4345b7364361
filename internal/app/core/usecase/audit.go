package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
)

// AuditLog 交易紀錄查詢，只讀不寫
type AuditLog struct {
	store Store
	opts  options
}

// NewAuditLog 建立 AuditLog
func NewAuditLog(store Store, opts ...Option) *AuditLog {
	return &AuditLog{
		store: store,
		opts:  buildOptions(opts),
	}
}

// Query 依條件查詢交易，由新到舊排列
// 條件皆未設定時回傳全部紀錄；結果為查詢當下的快照
func (a *AuditLog) Query(ctx context.Context, filter domain.TxnFilter) ([]*domain.Transaction, error) {
	trans, err := a.store.ScanTransactions(ctx, filter)
	if err != nil {
		err = classify(err)
		a.opts.logger.WithError(err).Error("transaction query failed")
		return nil, &domain.OpError{Op: "query transactions", Err: err}
	}
	a.opts.logger.WithFields(logrus.Fields{
		"op":      "query transactions",
		"results": len(trans),
	}).Debug("transactions queried")
	return trans, nil
}
