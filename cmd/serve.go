package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cryptofono/cryptofono/internal/account"
	"github.com/cryptofono/cryptofono/internal/chain"
	"github.com/cryptofono/cryptofono/internal/config"
	"github.com/cryptofono/cryptofono/internal/crypto"
	"github.com/cryptofono/cryptofono/internal/db"
	httpSrv "github.com/cryptofono/cryptofono/internal/http"
	"github.com/cryptofono/cryptofono/internal/logger"
	"github.com/cryptofono/cryptofono/internal/repository"
	"github.com/cryptofono/cryptofono/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the USSD HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
			DSN:             cfg.ClickHouse.DSN,
			MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
			PingTimeout:     cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer func() { _ = chDB.Close() }()

		cipher, err := crypto.NewCipher(cfg.Wallet.KeySecret)
		if err != nil {
			return fmt.Errorf("wallet key secret: %w", err)
		}

		feeMargin, err := decimal.NewFromString(cfg.Wallet.FeeMargin)
		if err != nil {
			return fmt.Errorf("fee margin: %w", err)
		}

		provider := chain.NewHTTPProvider(
			cfg.Network,
			cfg.Provider.BaseURL,
			cfg.Provider.WalletPath,
			cfg.Provider.BalancePath,
			cfg.Provider.TransferPath,
			cfg.Provider.TimeoutMs,
			cfg.Provider.Breaker.FailThreshold,
			cfg.Provider.Breaker.OpenForMs,
		)

		accountsRepo := repository.NewAccountsRepository(mysqlDB)
		walletsRepo := repository.NewWalletsRepository(mysqlDB)
		txsRepo := repository.NewTransactionsRepository(mysqlDB)
		paymentsRepo := repository.NewMerchantPaymentsRepository(mysqlDB)
		outboxRepo := repository.NewOutboxRepository(mysqlDB)

		walletSvc := wallet.New(
			mysqlDB,
			walletsRepo,
			accountsRepo,
			txsRepo,
			paymentsRepo,
			outboxRepo,
			provider,
			cipher,
			cfg.Network,
			feeMargin,
			logger.Log,
		)
		accountSvc := account.New(accountsRepo, walletSvc, logger.Log)

		server := httpSrv.NewServer(cfg, mysqlDB, chDB, redisClient, walletSvc, accountSvc)

		errCh := make(chan error, 1)
		go func() {
			log.Printf("starting http on %s (network=%s)", cfg.HTTP.Addr, cfg.Network)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Printf("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
