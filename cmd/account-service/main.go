package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/MikeMC777/tienda-commerce/internal/account"
	"github.com/MikeMC777/tienda-commerce/internal/config"
	"github.com/MikeMC777/tienda-commerce/internal/db"
	"github.com/MikeMC777/tienda-commerce/internal/httpx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := httpx.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("failed to migrate", zap.Error(err))
	}

	lis, err := net.Listen("tcp", cfg.AccountGRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}
	s := grpc.NewServer()
	account.Register(s, account.NewService(account.NewPGRepo(pool), logger.Named("account")))

	go func() {
		logger.Info("account-service listening", zap.String("addr", cfg.AccountGRPCAddr))
		if err := s.Serve(lis); err != nil {
			logger.Error("grpc server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down...")
	s.GracefulStop()
}
