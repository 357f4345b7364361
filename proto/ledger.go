// Package proto 定義 LedgerService 的 gRPC 合約
// 訊息以 JSON 編碼 (見 pkg/grpc.JSONCodec)，金額一律為十進位字串
package proto

import (
	"time"
)

// TransactionType DEPOSIT / WITHDRAWAL / TRANSFER
type TransactionType string

const (
	TransactionType_DEPOSIT    TransactionType = "DEPOSIT"
	TransactionType_WITHDRAWAL TransactionType = "WITHDRAWAL"
	TransactionType_TRANSFER   TransactionType = "TRANSFER"
)

type Account struct {
	Id        int64     `json:"id"`
	OwnerName string    `json:"ownerName"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Transaction struct {
	TxnId         string          `json:"txnId"`
	Sequence      uint64          `json:"sequence"`
	Type          TransactionType `json:"txnType"`
	Amount        string          `json:"amount"`
	FromAccountId *int64          `json:"fromAccountId,omitempty"`
	ToAccountId   *int64          `json:"toAccountId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type CreateAccountRequest struct {
	OwnerName      string `json:"ownerName"`
	InitialDeposit string `json:"initialDeposit"`
}

type GetAccountRequest struct {
	AccountId int64 `json:"accountId"`
}

type AmountRequest struct {
	AccountId int64  `json:"accountId"`
	Amount    string `json:"amount"`
}

type AccountResponse struct {
	Account *Account `json:"account"`
}

type TransferRequest struct {
	FromAccountId int64  `json:"fromAccountId"`
	ToAccountId   int64  `json:"toAccountId"`
	Amount        string `json:"amount"`
}

type TransferResponse struct {
	// 轉出帳戶的新餘額
	FromBalance string `json:"fromBalance"`
}

type GetBalanceRequest struct {
	AccountId int64 `json:"accountId"`
}

type GetBalanceResponse struct {
	Balance string `json:"balance"`
}

type ListTransactionsRequest struct {
	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
	FromAccountId *int64     `json:"fromAccountId,omitempty"`
	ToAccountId   *int64     `json:"toAccountId,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}
