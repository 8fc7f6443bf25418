// Command mock-provider stands in for Flutterwave and N3Data in local runs.
// Payouts settle asynchronously through signed webhooks sent back to the API.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

type config struct {
	Port          int           `env:"PORT" envDefault:"8081"`
	AppEnv        string        `env:"APP_ENV" envDefault:"development"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	WebhookURL    string        `env:"WEBHOOK_URL" envDefault:"http://localhost:8080/api/v1/webhooks/flutterwave"`
	WebhookSecret string        `env:"WEBHOOK_SECRET,required"`
	SettleDelay   time.Duration `env:"SETTLE_DELAY" envDefault:"2s"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Init("mock-provider", cfg.LogLevel, cfg.AppEnv)

	hooks := &notifier{url: cfg.WebhookURL, secret: []byte(cfg.WebhookSecret), client: &http.Client{Timeout: 10 * time.Second}}
	flw := newFlutterwave(hooks, cfg.SettleDelay)
	n3 := &n3data{}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(90 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/flw", flw.routes)
	r.Route("/n3", n3.routes)

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("mock provider started", "addr", addr, "webhook_url", cfg.WebhookURL)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
