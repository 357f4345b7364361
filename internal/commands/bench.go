package commands

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkggrpc "github.com/JoeShih716/go-ledger/pkg/grpc"
	pb "github.com/JoeShih716/go-ledger/proto"
)

type benchOptions struct {
	total       int
	concurrency int
	amount      string
	seed        string
}

// benchResult 壓測統計
type benchResult struct {
	Total    int           `json:"total"`
	Applied  int64         `json:"applied"`
	Rejected int64         `json:"rejected"`
	Failed   int64         `json:"failed"`
	Elapsed  time.Duration `json:"elapsed"`
	TPS      float64       `json:"tps"`
}

func newBenchCommand() *cobra.Command {
	flags := &clientFlags{}
	opts := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Fire concurrent transfers between two fresh accounts and report TPS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool := pkggrpc.NewPool()
			defer pool.Close()
			conn, err := pool.GetConnection(flags.addr)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
			defer cancel()

			res, err := runBench(ctx, pb.NewLedgerServiceClient(conn), opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	// 壓測跑得比單筆呼叫久
	flags.register(cmd, 2*time.Minute)
	cmd.Flags().IntVar(&opts.total, "total", 10000, "number of transfers")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 100, "in-flight requests")
	cmd.Flags().StringVar(&opts.amount, "amount", "1.00", "amount per transfer")
	cmd.Flags().StringVar(&opts.seed, "seed", "1000.00", "opening deposit of each account")

	return cmd
}

// runBench 建立兩個帳戶後，以 concurrency 個併發來回轉帳
// 偶數筆 a->b，奇數筆 b->a；餘額不足屬於 Rejected，其他錯誤屬於 Failed
func runBench(ctx context.Context, c pb.LedgerServiceClient, opts benchOptions) (*benchResult, error) {
	if opts.total <= 0 || opts.concurrency <= 0 {
		return nil, fmt.Errorf("total and concurrency must be positive")
	}

	a, err := c.CreateAccount(ctx, &pb.CreateAccountRequest{OwnerName: "bench-a", InitialDeposit: opts.seed})
	if err != nil {
		return nil, fmt.Errorf("create bench account: %w", err)
	}
	b, err := c.CreateAccount(ctx, &pb.CreateAccountRequest{OwnerName: "bench-b", InitialDeposit: opts.seed})
	if err != nil {
		return nil, fmt.Errorf("create bench account: %w", err)
	}

	var applied, rejected, failed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(opts.total)
	sem := make(chan struct{}, opts.concurrency)

	startTime := time.Now()
	for i := 0; i < opts.total; i++ {
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			from, to := a.Account.Id, b.Account.Id
			if idx%2 == 1 {
				from, to = to, from
			}
			_, err := c.Transfer(ctx, &pb.TransferRequest{FromAccountId: from, ToAccountId: to, Amount: opts.amount})
			switch {
			case err == nil:
				applied.Add(1)
			case status.Code(err) == codes.FailedPrecondition:
				rejected.Add(1)
			default:
				failed.Add(1)
			}
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(startTime)
	return &benchResult{
		Total:    opts.total,
		Applied:  applied.Load(),
		Rejected: rejected.Load(),
		Failed:   failed.Load(),
		Elapsed:  elapsed,
		TPS:      float64(opts.total) / elapsed.Seconds(),
	}, nil
}
