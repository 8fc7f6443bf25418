package main

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/josh-kwaku/wallet-ledger/internal/config"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/handler"
	"github.com/josh-kwaku/wallet-ledger/internal/middleware"
	"github.com/josh-kwaku/wallet-ledger/internal/repository"
)

type handlers struct {
	health      *handler.HealthHandler
	webhook     *handler.WebhookHandler
	account     *handler.AccountHandler
	payment     *handler.PaymentHandler
	vtu         *handler.VTUHandler
	transaction *handler.TransactionHandler
	giftcard    *handler.GiftCardHandler
	admin       *handler.AdminHandler
}

type chain []func(http.Handler) http.Handler

func (c chain) then(h http.HandlerFunc) http.Handler {
	var out http.Handler = h
	for i := len(c) - 1; i >= 0; i-- {
		out = c[i](out)
	}
	return out
}

func (c chain) with(m ...func(http.Handler) http.Handler) chain {
	return append(append(chain{}, c...), m...)
}

func routes(cfg *config.Config, h handlers, idem *repository.IdempotencyRepository) http.Handler {
	mux := http.NewServeMux()

	authed := chain{middleware.Auth(cfg.JWTSecret), middleware.Idempotency(idem)}
	verifier := authed.with(middleware.RequireRole(domain.RoleVerifier))
	admin := authed.with(middleware.RequireRole(domain.RoleAdmin))

	mux.HandleFunc("GET /api/v1/health", h.health.Liveness)
	mux.HandleFunc("GET /api/v1/health/ready", h.health.Readiness)

	mux.HandleFunc("POST /api/v1/webhooks/flutterwave", h.webhook.ReceiveFlutterwave)

	mux.Handle("GET /api/v1/wallet/balance", authed.then(h.account.Balance))
	mux.Handle("POST /api/v1/wallet/virtual-account", authed.then(h.account.CreateVirtualAccount))
	mux.Handle("POST /api/v1/wallet/transfer", authed.then(h.payment.Transfer))
	mux.Handle("POST /api/v1/wallet/bank-transfer", authed.then(h.payment.BankTransfer))

	mux.Handle("GET /api/v1/banks", authed.then(h.account.ListBanks))
	mux.Handle("GET /api/v1/banks/resolve", authed.then(h.account.ResolveBankAccount))
	mux.Handle("GET /api/v1/banks/transfer-fee", authed.then(h.account.TransferFee))

	mux.Handle("POST /api/v1/vtu/airtime", authed.then(h.vtu.Airtime))
	mux.Handle("POST /api/v1/vtu/data", authed.then(h.vtu.Data))
	mux.Handle("POST /api/v1/vtu/cable", authed.then(h.vtu.Cable))
	mux.Handle("POST /api/v1/vtu/electricity", authed.then(h.vtu.Electricity))
	mux.Handle("POST /api/v1/vtu/education", authed.then(h.vtu.Education))
	mux.Handle("POST /api/v1/vtu/betting", authed.then(h.vtu.Betting))

	mux.Handle("GET /api/v1/transactions", authed.then(h.transaction.List))
	mux.Handle("GET /api/v1/transactions/stats", authed.then(h.transaction.Stats))
	mux.Handle("GET /api/v1/transactions/income/today", authed.then(h.transaction.IncomeToday))
	mux.Handle("GET /api/v1/transactions/expenses/today", authed.then(h.transaction.ExpensesToday))
	mux.Handle("GET /api/v1/transactions/{reference}", authed.then(h.transaction.Get))
	mux.Handle("POST /api/v1/transactions/{reference}/resolve", authed.then(h.transaction.Resolve))

	mux.Handle("POST /api/v1/giftcards", authed.then(h.giftcard.Submit))
	mux.Handle("GET /api/v1/giftcards", authed.then(h.giftcard.List))
	mux.Handle("POST /api/v1/giftcards/{id}/approve", verifier.then(h.giftcard.Approve))
	mux.Handle("POST /api/v1/giftcards/{id}/reject", verifier.then(h.giftcard.Reject))

	mux.Handle("POST /api/v1/admin/adjustments", admin.then(h.admin.Adjust))
	mux.Handle("POST /api/v1/admin/transactions/{reference}/settle", admin.then(h.admin.Settle))

	corsMW := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	return chain{corsMW, middleware.Tracing, middleware.Logging, middleware.Recovery}.then(mux.ServeHTTP)
}
