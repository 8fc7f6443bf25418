package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/josh-kwaku/wallet-ledger/internal/config"
	"github.com/josh-kwaku/wallet-ledger/internal/handler"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/provider"
	"github.com/josh-kwaku/wallet-ledger/internal/repository"
	"github.com/josh-kwaku/wallet-ledger/internal/service"
	"github.com/josh-kwaku/wallet-ledger/internal/service/engine"
	"github.com/josh-kwaku/wallet-ledger/internal/service/reconcile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("wallet-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid redis url", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	timeouts := provider.Timeouts{
		Airtime:  cfg.Timeouts.Airtime,
		Data:     cfg.Timeouts.Data,
		Bill:     cfg.Timeouts.Bill,
		Transfer: cfg.Timeouts.Transfer,
		Lookup:   cfg.Timeouts.Lookup,
	}
	flw := provider.NewFlutterwave(cfg.Flutterwave.BaseURL, cfg.Flutterwave.SecretKey, cfg.Flutterwave.CallbackURL, timeouts)
	n3 := provider.NewN3Data(cfg.N3Data.BaseURL, cfg.N3Data.Username, cfg.N3Data.Password, timeouts)
	catalog := provider.NewCachedCatalog(flw, rdb, cfg.CatalogCacheTTL)

	wallets := repository.NewWalletRepository(db)
	journal := repository.NewJournalRepository(db)
	users := repository.NewUserRepository(db)
	accounts := repository.NewVirtualAccountRepository(db)

	ledger := engine.New(engine.Deps{
		DB:                 db,
		Wallets:            wallets,
		Ledger:             repository.NewLedgerRepository(db),
		Journal:            journal,
		Users:              users,
		Proposals:          repository.NewProposalRepository(db),
		VTU:                n3,
		Payouts:            provider.NewCachedPayouts(flw, catalog),
		DefaultTransferFee: cfg.DefaultTransferFee,
	})

	accountSvc := service.NewAccountService(wallets, users, accounts, catalog, flw, cfg.DefaultTransferFee)
	historySvc := service.NewHistoryService(journal, lagos())

	reconciler := reconcile.New(
		cfg.WebhookSecret,
		repository.NewWebhookEventRepository(db),
		ledger,
		accounts,
		users,
		slog.Default().With("component", "reconciler"),
		cfg.WebhookRetryInterval,
		cfg.WebhookMaxAttempts,
		cfg.PayoutStaleAfter,
	)
	go reconciler.Start(ctx)

	h := handlers{
		health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": db,
			"redis":    handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		}),
		webhook:     handler.NewWebhookHandler(reconciler),
		account:     handler.NewAccountHandler(accountSvc),
		payment:     handler.NewPaymentHandler(ledger),
		vtu:         handler.NewVTUHandler(ledger),
		transaction: handler.NewTransactionHandler(historySvc, ledger),
		giftcard:    handler.NewGiftCardHandler(ledger),
		admin:       handler.NewAdminHandler(ledger),
	}
	idempotency := repository.NewIdempotencyRepository(rdb, cfg.IdempotencyTTL)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           routes(cfg, h, idempotency),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// lagos is the calendar used for "today" totals.
func lagos() *time.Location {
	loc, err := time.LoadLocation("Africa/Lagos")
	if err != nil {
		slog.Warn("tz database unavailable, using fixed WAT offset", "error", err)
		return time.FixedZone("WAT", 60*60)
	}
	return loc
}
