package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-ledger/internal/app/core/usecase"
	pkggrpc "github.com/JoeShih716/go-ledger/pkg/grpc"
	pb "github.com/JoeShih716/go-ledger/proto"
)

type GrpcServer struct {
	pb.UnimplementedLedgerServiceServer
	ledger *usecase.Ledger
	audit  *usecase.AuditLog
}

func NewGrpcServer(ledger *usecase.Ledger, audit *usecase.AuditLog) *GrpcServer {
	return &GrpcServer{
		ledger: ledger,
		audit:  audit,
	}
}

// NewServer 建立已註冊 LedgerService 的 grpc.Server (JSON codec + logging interceptor)
func NewServer(srv *GrpcServer, log logrus.FieldLogger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ForceServerCodec(pkggrpc.JSONCodec{}),
		grpc.ChainUnaryInterceptor(LoggingInterceptor(log)),
	}, opts...)
	s := grpc.NewServer(opts...)
	pb.RegisterLedgerServiceServer(s, srv)
	return s
}

func (s *GrpcServer) CreateAccount(ctx context.Context, req *pb.CreateAccountRequest) (*pb.AccountResponse, error) {
	initial := domain.Amount(0)
	if req.InitialDeposit != "" {
		amount, err := domain.ParseAmount(req.InitialDeposit)
		if err != nil {
			return nil, toStatus(err)
		}
		initial = amount
	}
	account, err := s.ledger.CreateAccount(ctx, req.OwnerName, initial)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AccountResponse{Account: toPBAccount(account)}, nil
}

func (s *GrpcServer) GetAccount(ctx context.Context, req *pb.GetAccountRequest) (*pb.AccountResponse, error) {
	account, err := s.ledger.GetAccount(ctx, req.AccountId)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AccountResponse{Account: toPBAccount(account)}, nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *pb.AmountRequest) (*pb.AccountResponse, error) {
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}
	account, err := s.ledger.Deposit(ctx, req.AccountId, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AccountResponse{Account: toPBAccount(account)}, nil
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *pb.AmountRequest) (*pb.AccountResponse, error) {
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}
	account, err := s.ledger.Withdraw(ctx, req.AccountId, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.AccountResponse{Account: toPBAccount(account)}, nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *pb.TransferRequest) (*pb.TransferResponse, error) {
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}
	balance, err := s.ledger.Transfer(ctx, req.FromAccountId, req.ToAccountId, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.TransferResponse{FromBalance: balance.String()}, nil
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *pb.GetBalanceRequest) (*pb.GetBalanceResponse, error) {
	balance, err := s.ledger.GetBalance(ctx, req.AccountId)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.GetBalanceResponse{Balance: balance.String()}, nil
}

func (s *GrpcServer) ListTransactions(ctx context.Context, req *pb.ListTransactionsRequest) (*pb.ListTransactionsResponse, error) {
	trans, err := s.audit.Query(ctx, domain.TxnFilter{
		Start:         req.Start,
		End:           req.End,
		FromAccountID: req.FromAccountId,
		ToAccountID:   req.ToAccountId,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]*pb.Transaction, 0, len(trans))
	for _, tran := range trans {
		out = append(out, toPBTransaction(tran))
	}
	return &pb.ListTransactionsResponse{Transactions: out}, nil
}

// toStatus 帳務錯誤 -> gRPC status code
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrAccountNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrSameAccount):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrStoreUnavailable):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

func toPBAccount(a *domain.Account) *pb.Account {
	return &pb.Account{
		Id:        a.ID,
		OwnerName: a.OwnerName,
		Balance:   a.Balance.String(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toPBTransaction(t *domain.Transaction) *pb.Transaction {
	return &pb.Transaction{
		TxnId:         t.ID.String(),
		Sequence:      t.Sequence,
		Type:          pb.TransactionType(t.Type.String()),
		Amount:        t.Amount.String(),
		FromAccountId: t.From.Ptr(),
		ToAccountId:   t.To.Ptr(),
		CreatedAt:     t.CreatedAt,
	}
}

// LoggingInterceptor 記錄每個請求的方法、耗時與結果 code
func LoggingInterceptor(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method":  info.FullMethod,
			"code":    status.Code(err).String(),
			"elapsed": time.Since(start).String(),
		})
		if status.Code(err) == codes.Internal || status.Code(err) == codes.Unavailable {
			entry.WithError(err).Warn("grpc request failed")
		} else {
			entry.Debug("grpc request")
		}
		return resp, err
	}
}

var _ pb.LedgerServiceServer = (*GrpcServer)(nil)
