package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
)

// Ledger 是帳務核心：唯一能修改餘額與新增稽核紀錄的元件
// 每個公開操作要嘛完整生效 (餘額 + 對應紀錄)，要嘛完全不生效
type Ledger struct {
	store Store
	opts  options
}

// NewLedger 建立 Ledger
//
// 參數:
//
//	store: Record Store 實作 (memory / mysql)
//	opts: 可選的 logger、時間來源、ID 產生器
func NewLedger(store Store, opts ...Option) *Ledger {
	return &Ledger{
		store: store,
		opts:  buildOptions(opts),
	}
}

// CreateAccount 開戶，初始存款大於 0 時在同一原子單位內記一筆 DEPOSIT
func (l *Ledger) CreateAccount(ctx context.Context, ownerName string, initialDeposit domain.Amount) (*domain.Account, error) {
	const op = "create account"

	account, err := domain.NewAccount(ownerName, initialDeposit, l.opts.now())
	if err != nil {
		return nil, l.fail(op, 0, initialDeposit, err)
	}

	err = l.store.Atomic(ctx, nil, func(tx Tx) error {
		id, err := tx.InsertAccount(account)
		if err != nil {
			return err
		}
		account.ID = id
		// 開戶存款與帳戶在同一單位內寫入，回傳前兩者皆已持久化
		if initialDeposit.IsPositive() {
			tran := domain.NewDeposit(l.opts.newID(), id, initialDeposit, account.CreatedAt)
			if err := tx.InsertTransaction(tran); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, l.fail(op, 0, initialDeposit, err)
	}

	l.opts.logger.WithFields(logrus.Fields{
		"op":         op,
		"account_id": account.ID,
		"amount":     initialDeposit.String(),
	}).Info("account created")
	return account, nil
}

// GetAccount 查詢帳戶
func (l *Ledger) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	account, err := l.store.GetAccount(ctx, id)
	if err != nil {
		return nil, l.fail("get account", id, 0, err)
	}
	return account, nil
}

// GetBalance 查詢餘額
func (l *Ledger) GetBalance(ctx context.Context, id int64) (domain.Amount, error) {
	account, err := l.store.GetAccount(ctx, id)
	if err != nil {
		return 0, l.fail("get balance", id, 0, err)
	}
	return account.Balance, nil
}

// Deposit 存款，回傳異動後的帳戶
func (l *Ledger) Deposit(ctx context.Context, id int64, amount domain.Amount) (*domain.Account, error) {
	const op = "deposit"
	if !amount.IsPositive() {
		return nil, l.fail(op, id, amount, fmt.Errorf("%w: deposit amount must be greater than zero", domain.ErrInvalidArgument))
	}

	var updated *domain.Account
	var tran *domain.Transaction
	err := l.store.Atomic(ctx, domain.LockIDs(id), func(tx Tx) error {
		account, err := tx.GetAccount(id)
		if err != nil {
			return err
		}
		if err := account.Deposit(amount); err != nil {
			return err
		}
		now := l.opts.now()
		account.UpdatedAt = now
		if err := tx.UpdateAccount(account); err != nil {
			return err
		}
		tran = domain.NewDeposit(l.opts.newID(), id, amount, now)
		if err := tx.InsertTransaction(tran); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, l.fail(op, id, amount, err)
	}

	l.logApplied(op, tran, updated.Balance)
	return updated, nil
}

// Withdraw 提款，回傳異動後的帳戶
func (l *Ledger) Withdraw(ctx context.Context, id int64, amount domain.Amount) (*domain.Account, error) {
	const op = "withdraw"
	if !amount.IsPositive() {
		return nil, l.fail(op, id, amount, fmt.Errorf("%w: withdrawal amount must be greater than zero", domain.ErrInvalidArgument))
	}

	var updated *domain.Account
	var tran *domain.Transaction
	err := l.store.Atomic(ctx, domain.LockIDs(id), func(tx Tx) error {
		account, err := tx.GetAccount(id)
		if err != nil {
			return err
		}
		// 檢查與扣款在同一把鎖內完成
		if err := account.Withdraw(amount); err != nil {
			return err
		}
		now := l.opts.now()
		account.UpdatedAt = now
		if err := tx.UpdateAccount(account); err != nil {
			return err
		}
		tran = domain.NewWithdrawal(l.opts.newID(), id, amount, now)
		if err := tx.InsertTransaction(tran); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, l.fail(op, id, amount, err)
	}

	l.logApplied(op, tran, updated.Balance)
	return updated, nil
}

// Transfer 轉帳，回傳轉出帳戶的新餘額
//
// 檢查順序: 金額 -> 兩個帳戶是否存在 -> 是否同一帳戶 -> 餘額
// 兩個帳戶依 ID 遞增順序上鎖，與轉帳方向無關
func (l *Ledger) Transfer(ctx context.Context, fromID, toID int64, amount domain.Amount) (domain.Amount, error) {
	const op = "transfer"
	if !amount.IsPositive() {
		return 0, l.fail(op, fromID, amount, fmt.Errorf("%w: transfer amount must be greater than zero", domain.ErrInvalidArgument))
	}

	var newBalance domain.Amount
	var tran *domain.Transaction
	failedID := fromID // 錯誤要帶的帳戶 ID
	err := l.store.Atomic(ctx, domain.LockIDs(fromID, toID), func(tx Tx) error {
		from, err := tx.GetAccount(fromID)
		if err != nil {
			return err
		}
		to, err := tx.GetAccount(toID)
		if err != nil {
			failedID = toID
			return fmt.Errorf("account %d: %w", toID, err)
		}
		if from.ID == to.ID {
			return domain.ErrSameAccount
		}
		if err := from.Withdraw(amount); err != nil {
			return err
		}
		if err := to.Deposit(amount); err != nil {
			return err
		}
		now := l.opts.now()
		from.UpdatedAt = now
		to.UpdatedAt = now
		if err := tx.UpdateAccount(from); err != nil {
			return err
		}
		if err := tx.UpdateAccount(to); err != nil {
			return err
		}
		tran = domain.NewTransfer(l.opts.newID(), fromID, toID, amount, now)
		if err := tx.InsertTransaction(tran); err != nil {
			return err
		}
		newBalance = from.Balance
		return nil
	})
	if err != nil {
		return 0, l.fail(op, failedID, amount, err)
	}

	l.logApplied(op, tran, newBalance)
	return newBalance, nil
}

// fail 包裝成 OpError 並記錄
func (l *Ledger) fail(op string, accountID int64, amount domain.Amount, err error) error {
	err = classify(err)
	entry := l.opts.logger.WithFields(logrus.Fields{
		"op":         op,
		"account_id": accountID,
		"amount":     amount.String(),
	})
	if errors.Is(err, domain.ErrStoreUnavailable) {
		entry.WithError(err).Error("ledger operation failed")
	} else {
		entry.WithError(err).Debug("ledger operation rejected")
	}
	return &domain.OpError{Op: op, AccountID: accountID, Amount: amount, Err: err}
}

func (l *Ledger) logApplied(op string, tran *domain.Transaction, balance domain.Amount) {
	fields := logrus.Fields{
		"op":      op,
		"txn_id":  tran.ID.String(),
		"amount":  tran.Amount.String(),
		"balance": balance.String(),
	}
	if tran.From.Valid {
		fields["from_account_id"] = tran.From.ID
	}
	if tran.To.Valid {
		fields["to_account_id"] = tran.To.ID
	}
	l.opts.logger.WithFields(fields).Info("ledger operation applied")
}
