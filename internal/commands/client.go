package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
	pkggrpc "github.com/JoeShih716/go-ledger/pkg/grpc"
	pb "github.com/JoeShih716/go-ledger/proto"
)

// clientFlags 所有 client 子命令共用
type clientFlags struct {
	addr    string
	timeout time.Duration
}

func (f *clientFlags) register(cmd *cobra.Command, timeout time.Duration) {
	cmd.PersistentFlags().StringVar(&f.addr, "addr", "localhost:50051", "ledger gRPC address")
	cmd.PersistentFlags().DurationVar(&f.timeout, "timeout", timeout, "call timeout")
}

// call 建立連線後執行 fn，並把回應以 JSON 輸出
func (f *clientFlags) call(cmd *cobra.Command, fn func(ctx context.Context, c pb.LedgerServiceClient) (any, error)) error {
	pool := pkggrpc.NewPool()
	defer pool.Close()
	conn, err := pool.GetConnection(f.addr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()

	resp, err := fn(ctx, pb.NewLedgerServiceClient(conn))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}

func newAccountCommand() *cobra.Command {
	flags := &clientFlags{}
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations against a running ledger",
	}
	flags.register(accountCmd, 10*time.Second)

	accountCmd.AddCommand(
		&cobra.Command{
			Use:   "create <owner> [initial-deposit]",
			Short: "Open an account",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				req := &pb.CreateAccountRequest{OwnerName: args[0]}
				if len(args) == 2 {
					req.InitialDeposit = args[1]
				}
				return flags.call(cmd, func(ctx context.Context, c pb.LedgerServiceClient) (any, error) {
					return c.CreateAccount(ctx, req)
				})
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return flags.call(cmd, func(ctx context.Context, c pb.LedgerServiceClient) (any, error) {
					return c.GetAccount(ctx, &pb.GetAccountRequest{AccountId: id})
				})
			},
		},
		&cobra.Command{
			Use:   "balance <id>",
			Short: "Show an account balance",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return flags.call(cmd, func(ctx context.Context, c pb.LedgerServiceClient) (any, error) {
					return c.GetBalance(ctx, &pb.GetBalanceRequest{AccountId: id})
				})
			},
		},
		&cobra.Command{
			Use:   "deposit <id> <amount>",
			Short: "Deposit into an account",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return flags.call(cmd, func(ctx context.Context, c pb.LedgerServiceClient) (any, error) {
					return c.Deposit(ctx, &pb.AmountRequest{AccountId: id, Amount: args[1]})
				})
			},
		},
		&cobra.Command{
			Use:   "withdraw <id> <amount>",
			Short: "Withdraw from an account",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return flags.call(cmd, func(ctx context.Context, c pb.LedgerServiceClient) (any, error) {
					return c.Withdraw(ctx, &pb.AmountRequest{AccountId: id, Amount: args[1]})
				})
			},
		},
		&cobra.Command{
			Use:   "transfer <from-id> <to-id> <amount>",
			Short: "Move funds between two accounts",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				from, err := parseID(args[0])
				if err != nil {
					return err
				}
				to, err := parseID(args[1])
				if err != nil {
					return err
				}
				return flags.call(cmd, func(ctx context.Context, c pb.LedgerServiceClient) (any, error) {
					return c.Transfer(ctx, &pb.TransferRequest{FromAccountId: from, ToAccountId: to, Amount: args[2]})
				})
			},
		},
	)
	return accountCmd
}

func newHistoryCommand() *cobra.Command {
	flags := &clientFlags{}
	var start, end string
	var fromID, toID int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &pb.ListTransactionsRequest{}
			if start != "" {
				t, err := domain.ParseFilterTime(start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				req.Start = &t
			}
			if end != "" {
				t, err := domain.ParseFilterTime(end)
				if err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
				req.End = &t
			}
			if cmd.Flags().Changed("from") {
				req.FromAccountId = &fromID
			}
			if cmd.Flags().Changed("to") {
				req.ToAccountId = &toID
			}
			return flags.call(cmd, func(ctx context.Context, c pb.LedgerServiceClient) (any, error) {
				return c.ListTransactions(ctx, req)
			})
		},
	}
	flags.register(cmd, 10*time.Second)
	cmd.Flags().StringVar(&start, "start", "", "inclusive lower bound (RFC 3339 or 2006-01-02)")
	cmd.Flags().StringVar(&end, "end", "", "inclusive upper bound (RFC 3339 or 2006-01-02)")
	cmd.Flags().Int64Var(&fromID, "from", 0, "only transactions debiting this account")
	cmd.Flags().Int64Var(&toID, "to", 0, "only transactions crediting this account")

	return cmd
}
