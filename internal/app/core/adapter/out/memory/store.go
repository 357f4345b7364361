package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-ledger/pkg/wal"
)

// Store 是記憶體版的 Record Store
//
// 結構:
//
//	accounts / trans: 已提交的狀態，由 mu 保護
//	locks: 每個帳戶一把 1 格 channel 鎖，Atomic 期間持有
//	commits: 輸送帶，由單一 committer goroutine 依序寫 WAL 並套用
//	wal: Write-Ahead Log，nil 代表純記憶體
type Store struct {
	mu       sync.RWMutex
	accounts map[int64]*domain.Account
	trans    []*domain.Transaction

	nextID   atomic.Int64
	sequence uint64 // 只有 committer (或初始化時的 recover) 會修改

	locks sync.Map // map[int64]chan struct{}

	wal *wal.WAL

	commits     chan *commitRequest
	requestPool sync.Pool
	closeMu     sync.RWMutex
	closed      bool
	stop        context.CancelFunc
	done        chan struct{}
}

// walRecord 一個原子單位在 WAL 中的樣子
type walRecord struct {
	Accounts     []*domain.Account     `json:"accounts,omitempty"`
	Transactions []*domain.Transaction `json:"transactions,omitempty"`
}

// NewStore 建立 Store 並從 WAL 恢復狀態
//
// 參數:
//
//	w: Write-Ahead Log 實例，nil 則不持久化
//
// 回傳:
//
//	*Store: Store 實例
//	error: WAL 恢復失敗
func NewStore(w *wal.WAL) (*Store, error) {
	s := &Store{
		accounts: make(map[int64]*domain.Account),
		wal:      w,
		commits:  make(chan *commitRequest, 1000), // Buffer 1000
		requestPool: sync.Pool{
			New: func() interface{} {
				return &commitRequest{
					Result: make(chan error, 1),
				}
			},
		},
		done: make(chan struct{}),
	}

	// 在啟動前先恢復資料
	if w != nil {
		if err := s.recoverFromWAL(); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go s.run(ctx)
	return s, nil
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態 (單執行緒，不需要 Lock)
func (s *Store) recoverFromWAL() error {
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		var rec walRecord
		if err := json.Unmarshal(jsonRaw, &rec); err != nil {
			return fmt.Errorf("decode wal record: %w", err)
		}
		for _, account := range rec.Accounts {
			if account.ID > s.nextID.Load() {
				s.nextID.Store(account.ID)
			}
		}
		for _, tran := range rec.Transactions {
			if tran.Sequence > s.sequence {
				s.sequence = tran.Sequence
			}
		}
		s.apply(&rec)
		return nil
	})
}

// Close 停止 committer；已排入的單位會先處理完
// WAL 由呼叫端負責關閉
func (s *Store) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	s.stop()
	<-s.done
	return nil
}

// GetAccount 讀取帳戶快照，不等待帳戶鎖
func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

// ScanTransactions 查詢當下已提交紀錄的快照
func (s *Store) ScanTransactions(ctx context.Context, filter domain.TxnFilter) ([]*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*domain.Transaction, 0, len(s.trans))
	for _, tran := range s.trans {
		if filter.Matches(tran) {
			out = append(out, tran.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, domain.NewerFirst)
	return out, nil
}

// Atomic 鎖定 lockIDs 後執行 fn，fn 成功才提交
//
// 參數:
//
//	ctx: 等待帳戶鎖時可被取消
//	lockIDs: 要鎖定的帳戶，內部會排序去重
//	fn: 在原子單位內執行的邏輯
//
// 回傳:
//
//	error: fn 的錯誤原樣回傳；提交失敗時回傳 domain.ErrStoreUnavailable
func (s *Store) Atomic(ctx context.Context, lockIDs []int64, fn func(tx usecase.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// 之後才分配的 ID 在這個單位開始時並不存在
	highWater := s.nextID.Load()

	locked, held, err := s.acquire(ctx, domain.LockIDs(lockIDs...), highWater)
	if err != nil {
		return err
	}
	defer release(held)

	u := &unit{
		store:     s,
		highWater: highWater,
		locked:    locked,
		accounts:  make(map[int64]*domain.Account),
	}
	if err := fn(u); err != nil {
		return err
	}
	// 尚未交給 committer 前被取消，不留下任何效果
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(u.record())
}

// acquire 依 ID 遞增順序取得帳戶鎖
// 大於 highWater 的 ID 不可能存在，不需要鎖
func (s *Store) acquire(ctx context.Context, ids []int64, highWater int64) (map[int64]bool, []chan struct{}, error) {
	locked := make(map[int64]bool, len(ids))
	held := make([]chan struct{}, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || id > highWater {
			continue
		}
		lock := s.lockFor(id)
		select {
		case lock <- struct{}{}:
			held = append(held, lock)
			locked[id] = true
		case <-ctx.Done():
			release(held)
			return nil, nil, ctx.Err()
		}
	}
	return locked, held, nil
}

func (s *Store) lockFor(id int64) chan struct{} {
	if v, ok := s.locks.Load(id); ok {
		return v.(chan struct{})
	}
	v, _ := s.locks.LoadOrStore(id, make(chan struct{}, 1))
	return v.(chan struct{})
}

// release 反向釋放
func release(held []chan struct{}) {
	for i := len(held) - 1; i >= 0; i-- {
		<-held[i]
	}
}

// apply 將一個單位套用到已提交狀態
// 帳戶與交易在同一個寫鎖內出現，讀取端不會看到只有一半的結果
func (s *Store) apply(rec *walRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range rec.Accounts {
		s.accounts[account.ID] = account
	}
	s.trans = append(s.trans, rec.Transactions...)
}

var _ usecase.Store = (*Store)(nil)
