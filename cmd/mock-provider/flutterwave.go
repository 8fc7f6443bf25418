package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Magic account numbers steer payout outcomes.
const (
	declinedAccount = "0000000000"
	failingAccount  = "9999999999"
)

type transfer struct {
	ID              int64  `json:"id"`
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	CompleteMessage string `json:"complete_message"`
}

type flutterwave struct {
	hooks       *notifier
	settleDelay time.Duration

	nextID    atomic.Int64
	mu        sync.Mutex
	transfers map[string]*transfer
}

func newFlutterwave(hooks *notifier, settleDelay time.Duration) *flutterwave {
	f := &flutterwave{hooks: hooks, settleDelay: settleDelay, transfers: map[string]*transfer{}}
	f.nextID.Store(100000)
	return f
}

func (f *flutterwave) routes(r chi.Router) {
	r.Post("/transfers", f.initiateTransfer)
	r.Get("/transfers/fee", f.transferFee)
	r.Get("/transfers/{id}", f.getTransfer)
	r.Post("/accounts/resolve", f.resolveAccount)
	r.Get("/banks/{country}", f.listBanks)
	r.Post("/virtual-account-numbers", f.createVirtualAccount)
	r.Post("/simulate/charge", f.simulateCharge)
}

func success(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": message, "data": data})
}

func failure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": "error", "message": message, "data": nil})
}

func (f *flutterwave) initiateTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountNumber string          `json:"account_number"`
		Amount        decimal.Decimal `json:"amount"`
		Reference     string          `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.AccountNumber == declinedAccount {
		failure(w, http.StatusBadRequest, "Account resolve failed")
		return
	}

	t := &transfer{ID: f.nextID.Add(1), Reference: req.Reference, Status: "NEW"}
	f.mu.Lock()
	f.transfers[fmt.Sprint(t.ID)] = t
	f.mu.Unlock()

	final, message := "SUCCESSFUL", "Transaction was successful"
	if req.AccountNumber == failingAccount {
		final, message = "FAILED", "DISBURSE FAILED: Insufficient funds in customer wallet"
	}
	go f.complete(t, final, message)

	success(w, "Transfer Queued Successfully", t)
}

func (f *flutterwave) complete(t *transfer, status, message string) {
	time.Sleep(f.settleDelay)

	f.mu.Lock()
	t.Status = status
	t.CompleteMessage = message
	snapshot := *t
	f.mu.Unlock()

	if err := f.hooks.send("transfer.completed", snapshot); err != nil {
		slog.Warn("transfer notification failed", "reference", t.Reference, "error", err)
	}
}

func (f *flutterwave) getTransfer(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	t, ok := f.transfers[chi.URLParam(r, "id")]
	var snapshot transfer
	if ok {
		snapshot = *t
	}
	f.mu.Unlock()

	if !ok {
		failure(w, http.StatusNotFound, "No transfer found")
		return
	}
	success(w, "Transfer fetched", snapshot)
}

func (f *flutterwave) transferFee(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		failure(w, http.StatusBadRequest, "amount is required")
		return
	}
	fee := decimal.RequireFromString("10.75")
	switch {
	case amount.GreaterThan(decimal.NewFromInt(50000)):
		fee = decimal.RequireFromString("53.75")
	case amount.GreaterThan(decimal.NewFromInt(5000)):
		fee = decimal.RequireFromString("26.88")
	}
	success(w, "Transfer fee fetched", []map[string]any{{"currency": "NGN", "fee_type": "value", "fee": fee}})
}

func (f *flutterwave) resolveAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountNumber string `json:"account_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.AccountNumber) != 10 {
		failure(w, http.StatusBadRequest, "Account number is invalid")
		return
	}
	if req.AccountNumber == declinedAccount {
		failure(w, http.StatusBadRequest, "Could not resolve account name")
		return
	}
	success(w, "Account details fetched", map[string]string{
		"account_number": req.AccountNumber,
		"account_name":   "TEST ACCOUNT " + req.AccountNumber[6:],
	})
}

func (f *flutterwave) listBanks(w http.ResponseWriter, _ *http.Request) {
	success(w, "Banks fetched successfully", []map[string]any{
		{"id": 191, "code": "044", "name": "Access Bank"},
		{"id": 186, "code": "058", "name": "GTBank Plc"},
		{"id": 188, "code": "057", "name": "Zenith Bank"},
		{"id": 176, "code": "035", "name": "Wema Bank"},
		{"id": 179, "code": "011", "name": "First Bank of Nigeria"},
	})
}

func (f *flutterwave) createVirtualAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		TxRef string `json:"tx_ref"`
		BVN   string `json:"bvn"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		failure(w, http.StatusBadRequest, "email is required")
		return
	}
	id := f.nextID.Add(1)
	success(w, "Virtual account created", map[string]string{
		"account_number": fmt.Sprintf("78%08d", id%100000000),
		"bank_name":      "WEMA BANK",
		"order_ref":      req.TxRef,
		"flw_ref":        fmt.Sprintf("FLW-%d", id),
	})
}

// simulateCharge pretends a customer paid into a virtual account.
func (f *flutterwave) simulateCharge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderRef string          `json:"order_ref"`
		Email    string          `json:"email"`
		Amount   decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Amount.IsPositive() {
		failure(w, http.StatusBadRequest, "order_ref or email and a positive amount are required")
		return
	}

	id := f.nextID.Add(1)
	data := map[string]any{
		"id":       id,
		"tx_ref":   req.OrderRef,
		"flw_ref":  fmt.Sprintf("FLW-MOCK-%d", id),
		"amount":   req.Amount,
		"currency": "NGN",
		"status":   "successful",
		"customer": map[string]string{"email": strings.ToLower(req.Email)},
	}
	if err := f.hooks.send("charge.completed", data); err != nil {
		failure(w, http.StatusBadGateway, err.Error())
		return
	}
	success(w, "Charge delivered", data)
}
