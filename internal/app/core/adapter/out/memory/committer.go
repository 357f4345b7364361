package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
)

var errStoreClosed = errors.New("memory store closed")

// commitRequest 提交請求包裝channel，讓 commit 可以等待結果
type commitRequest struct {
	Record *walRecord
	Result chan error // 讓 commit 等這個 channel
}

// commit 交給 committer 並等待結果
// commit -> Channel -> Run Loop -> WAL -> Map Update -> Result Channel -> commit(收到結果)
//
// 交出後不再理會 ctx：單位一定完整套用或完整失敗
func (s *Store) commit(rec *walRecord) error {
	if rec == nil {
		return nil
	}

	// 1. 放入輸送帶 (使用 sync.Pool 減少 GC)
	req := s.requestPool.Get().(*commitRequest)
	req.Record = rec

	s.closeMu.RLock()
	if s.closed {
		s.closeMu.RUnlock()
		s.requestPool.Put(req)
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, errStoreClosed)
	}
	s.commits <- req
	s.closeMu.RUnlock()

	err := <-req.Result
	req.Record = nil
	s.requestPool.Put(req)
	return err
}

func (s *Store) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的單位處理完
			s.drain()
			return
		case req := <-s.commits:
			s.process(req)
		}
	}
}

func (s *Store) drain() {
	for {
		select {
		case req := <-s.commits:
			s.process(req)
		default:
			return
		}
	}
}

// process 分配序號、寫 WAL、套用狀態並回傳結果
func (s *Store) process(req *commitRequest) {
	rec := req.Record

	// 1. 分配全局順序號
	next := s.sequence
	for _, tran := range rec.Transactions {
		next++
		tran.Sequence = next
	}

	// 2. 寫入 WAL (Critical Path)
	if s.wal != nil {
		if err := s.wal.Append(rec); err != nil {
			// 沒有寫入成功就不套用，序號也不前進
			for _, tran := range rec.Transactions {
				tran.Sequence = 0
			}
			req.Result <- fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
			return
		}
	}
	s.sequence = next

	// 3. 套用狀態
	s.apply(rec)

	// 4. 回傳結果
	req.Result <- nil
}
