package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/provider"
	"github.com/josh-kwaku/wallet-ledger/internal/service"
)

type accountService interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	CreateVirtualAccount(ctx context.Context, req service.VirtualAccountRequest) (*domain.VirtualAccount, error)
	ListBanks(ctx context.Context) ([]provider.Bank, error)
	ResolveBankAccount(ctx context.Context, accountNumber, bankCode string) (*provider.ResolvedAccount, error)
	TransferFee(ctx context.Context, amount int64) (int64, error)
}

type AccountHandler struct {
	accounts accountService
}

func NewAccountHandler(accounts accountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type createVirtualAccountRequest struct {
	BVN   string `json:"bvn" validate:"required,len=11,numeric"`
	Phone string `json:"phone" validate:"omitempty,ngphone"`
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	wallet, err := h.accounts.GetWallet(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load wallet", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wallet))
}

func (h *AccountHandler) CreateVirtualAccount(w http.ResponseWriter, r *http.Request) {
	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createVirtualAccountRequest
	fields, appErr := decodeAndValidate(r, &req)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	va, err := h.accounts.CreateVirtualAccount(r.Context(), service.VirtualAccountRequest{
		UserID: userID,
		BVN:    req.BVN,
		Phone:  req.Phone,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to create virtual account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toVirtualAccountDTO(va))
}

func (h *AccountHandler) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.accounts.ListBanks(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Warn("bank list unavailable", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, banks)
}

type resolveQuery struct {
	AccountNumber string `json:"account_number" validate:"required,nuban"`
	BankCode      string `json:"bank_code" validate:"required,numeric"`
}

func (h *AccountHandler) ResolveBankAccount(w http.ResponseWriter, r *http.Request) {
	q := resolveQuery{
		AccountNumber: r.URL.Query().Get("account_number"),
		BankCode:      r.URL.Query().Get("bank_code"),
	}
	if fields := validateStruct(q); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	acct, err := h.accounts.ResolveBankAccount(r.Context(), q.AccountNumber, q.BankCode)
	if err != nil {
		logging.FromContext(r.Context()).Warn("account resolution failed", "error", err, "bank_code", q.BankCode)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, acct)
}

func (h *AccountHandler) TransferFee(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		RespondValidationError(w, []FieldError{{Field: "amount", Message: "must be greater than 0"}})
		return
	}

	fee, err := h.accounts.TransferFee(r.Context(), amount)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]int64{"amount": amount, "fee": fee, "total": amount + fee})
}
