package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-ledger/internal/app/core/adapter/in/grpc"
	http_adapter "github.com/JoeShih716/go-ledger/internal/app/core/adapter/in/http"
	memory_adapter "github.com/JoeShih716/go-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-ledger/internal/config"
	"github.com/JoeShih716/go-ledger/pkg/logger"
	"github.com/JoeShih716/go-ledger/pkg/mysql"
	"github.com/JoeShih716/go-ledger/pkg/wal"
)

func newServeCommand() *cobra.Command {
	var configPath string
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger gRPC and HTTP servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, configPath, migrate)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.Path(), "path to config.yaml")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "create or update mysql tables before serving")

	return cmd
}

func runServe(ctx context.Context, configPath string, migrate bool) error {
	// 1. 載入設定
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	// 2. 初始化 Record Store
	store, closeStore, err := openStore(ctx, cfg, log, migrate)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. 初始化帳務核心
	ledger := usecase.NewLedger(store, usecase.WithLogger(log))
	audit := usecase.NewAuditLog(store, usecase.WithLogger(log))

	// 4. 啟動 gRPC / HTTP
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}
	grpcServer := grpc_adapter.NewServer(grpc_adapter.NewGrpcServer(ledger, audit), log)

	errc := make(chan error, 2)
	go func() {
		log.Infof("Starting gRPC server on %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errc <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	var httpServer *http.Server
	if cfg.Server.HTTPAddr != "" {
		httpServer = &http.Server{
			Addr:         cfg.Server.HTTPAddr,
			Handler:      http_adapter.NewHandler(ledger, audit, log).Router(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			log.Infof("Starting HTTP server on %s", cfg.Server.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("http serve: %w", err)
			}
		}()
	}

	// Graceful Shutdown
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err = <-errc:
		log.WithError(err).Error("server failed, shutting down")
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			log.WithError(shutdownErr).Warn("http shutdown")
		}
	}
	grpcServer.GracefulStop()
	log.Info("Server exited")
	return err
}

// openStore 依設定建立 memory (+WAL) 或 mysql store，回傳關閉函式
func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, migrate bool) (usecase.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMySQL:
		client, err := mysql.NewClient(cfg.MySQL, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Connected to MySQL successfully")
		store := mysql_adapter.NewStore(client)
		if migrate {
			if err := store.Migrate(ctx); err != nil {
				_ = client.Close()
				return nil, nil, err
			}
		}
		return store, func() { _ = client.Close() }, nil

	default:
		var walFile *wal.WAL
		if cfg.Store.WALPath != "" {
			w, err := wal.Open(cfg.Store.WALPath)
			if err != nil {
				return nil, nil, err
			}
			walFile = w
		}
		store, err := memory_adapter.NewStore(walFile)
		if err != nil {
			if walFile != nil {
				_ = walFile.Close()
			}
			return nil, nil, fmt.Errorf("recover memory store: %w", err)
		}
		return store, func() {
			_ = store.Close()
			// store 關閉後才關 WAL，確保排隊中的單位已寫入
			if walFile != nil {
				_ = walFile.Close()
			}
		}, nil
	}
}

// Execute 執行 root command，回傳結束碼 (錯誤訊息由 cobra 輸出)
func Execute() int {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		return 1
	}
	return 0
}
