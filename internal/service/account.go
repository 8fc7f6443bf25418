package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/provider"
)

type walletRepo interface {
	EnsureWallet(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error)
}

type userChecker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type virtualAccountRepo interface {
	Create(ctx context.Context, va *domain.VirtualAccount) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.VirtualAccount, error)
}

type bankDirectory interface {
	ListBanks(ctx context.Context) ([]provider.Bank, error)
	GetTransferFee(ctx context.Context, amount int64) (int64, error)
}

type accountProvider interface {
	ResolveBankAccount(ctx context.Context, accountNumber, bankCode string) (*provider.ResolvedAccount, error)
	CreateVirtualAccount(ctx context.Context, req provider.VirtualAccountRequest) (*provider.VirtualAccount, error)
}

// AccountService serves wallet reads, virtual account issuance and the bank
// lookups that precede a payout.
type AccountService struct {
	wallets    walletRepo
	users      userChecker
	accounts   virtualAccountRepo
	banks      bankDirectory
	provider   accountProvider
	defaultFee int64
}

func NewAccountService(wallets walletRepo, users userChecker, accounts virtualAccountRepo, banks bankDirectory, p accountProvider, defaultFee int64) *AccountService {
	return &AccountService{
		wallets:    wallets,
		users:      users,
		accounts:   accounts,
		banks:      banks,
		provider:   p,
		defaultFee: defaultFee,
	}
}

// GetWallet returns the user's NGN wallet, creating it with a zero balance on first use.
func (s *AccountService) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.wallets.EnsureWallet(ctx, userID, domain.CurrencyNGN)
	if err != nil {
		return nil, fmt.Errorf("GetWallet: %w", err)
	}
	return w, nil
}

type VirtualAccountRequest struct {
	UserID uuid.UUID
	BVN    string
	Phone  string
}

// CreateVirtualAccount issues the user's permanent deposit account. A user
// that already has one gets it back unchanged.
func (s *AccountService) CreateVirtualAccount(ctx context.Context, req VirtualAccountRequest) (*domain.VirtualAccount, error) {
	log := logging.FromContext(ctx)

	existing, err := s.accounts.GetByUserID(ctx, req.UserID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("CreateVirtualAccount: %w", err)
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("CreateVirtualAccount: %w", err)
	}

	orderRef := fmt.Sprintf("VA-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	issued, err := s.provider.CreateVirtualAccount(ctx, provider.VirtualAccountRequest{
		Reference: orderRef,
		Email:     user.Email,
		BVN:       req.BVN,
		Name:      user.Name,
		Phone:     req.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("CreateVirtualAccount: %w", err)
	}

	va := &domain.VirtualAccount{
		ID:            uuid.New(),
		UserID:        user.ID,
		AccountNumber: issued.AccountNumber,
		BankName:      issued.BankName,
		OrderRef:      issued.OrderRef,
		CreatedAt:     time.Now().UTC(),
	}
	if issued.ProviderReference != "" {
		va.ProviderReference = &issued.ProviderReference
	}
	if err := s.accounts.Create(ctx, va); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			// A concurrent request won; return its account.
			return s.accounts.GetByUserID(ctx, req.UserID)
		}
		return nil, fmt.Errorf("CreateVirtualAccount: %w", err)
	}
	if _, err := s.wallets.EnsureWallet(ctx, user.ID, domain.CurrencyNGN); err != nil {
		return nil, fmt.Errorf("CreateVirtualAccount: %w", err)
	}

	log.Info("virtual account created", "user_id", user.ID, "order_ref", va.OrderRef, "bank", va.BankName)
	return va, nil
}

func (s *AccountService) ListBanks(ctx context.Context) ([]provider.Bank, error) {
	banks, err := s.banks.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBanks: %w", err)
	}
	return banks, nil
}

func (s *AccountService) ResolveBankAccount(ctx context.Context, accountNumber, bankCode string) (*provider.ResolvedAccount, error) {
	if len(accountNumber) != 10 || bankCode == "" {
		return nil, fmt.Errorf("ResolveBankAccount: %w", domain.ErrValidation)
	}
	acct, err := s.provider.ResolveBankAccount(ctx, accountNumber, bankCode)
	if err != nil {
		return nil, fmt.Errorf("ResolveBankAccount: %w", err)
	}
	return acct, nil
}

// TransferFee quotes the payout fee, falling back to the configured default
// exactly as a bank transfer would.
func (s *AccountService) TransferFee(ctx context.Context, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("TransferFee: %w", domain.ErrInvalidAmount)
	}
	fee, err := s.banks.GetTransferFee(ctx, amount)
	if err != nil {
		logging.FromContext(ctx).Warn("transfer fee quote failed, using default", "error", err)
		return s.defaultFee, nil
	}
	return fee, nil
}
