package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

// Flutterwave covers bank payouts, account lookup, virtual accounts and fee quotes.
type Flutterwave struct {
	api         endpoint
	secretKey   string
	callbackURL string
	timeouts    Timeouts
}

func NewFlutterwave(baseURL, secretKey, callbackURL string, timeouts Timeouts) *Flutterwave {
	return &Flutterwave{
		api:         endpoint{name: "flutterwave", baseURL: baseURL, http: &http.Client{}},
		secretKey:   secretKey,
		callbackURL: callbackURL,
		timeouts:    timeouts.withDefaults(),
	}
}

type flwEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// flexID accepts ids sent either as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexID(b)
	return nil
}

type flwTransferPayload struct {
	AccountBank     string      `json:"account_bank"`
	AccountNumber   string      `json:"account_number"`
	Amount          json.Number `json:"amount"`
	Narration       string      `json:"narration"`
	Currency        string      `json:"currency"`
	DebitCurrency   string      `json:"debit_currency"`
	Reference       string      `json:"reference"`
	CallbackURL     string      `json:"callback_url,omitempty"`
	BeneficiaryName string      `json:"beneficiary_name,omitempty"`
}

type flwTransferData struct {
	ID              flexID `json:"id"`
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	CompleteMessage string `json:"complete_message"`
}

// InitiateBankTransfer queues a payout. Success means the provider accepted
// it; the final outcome arrives later as a transfer.completed notification.
func (c *Flutterwave) InitiateBankTransfer(ctx context.Context, req BankTransferRequest) (*Result, error) {
	narration := req.Narration
	if narration == "" {
		narration = "Wallet transfer"
	}
	payload := flwTransferPayload{
		AccountBank:     req.BankCode,
		AccountNumber:   req.AccountNumber,
		Amount:          wireAmount(req.Amount),
		Narration:       narration,
		Currency:        string(domain.CurrencyNGN),
		DebitCurrency:   string(domain.CurrencyNGN),
		Reference:       req.Reference,
		CallbackURL:     c.callbackURL,
		BeneficiaryName: req.BeneficiaryName,
	}

	code, raw, err := c.api.send(ctx, c.timeouts.Transfer, http.MethodPost, "/transfers", bearer(c.secretKey), payload)
	if err != nil {
		return nil, fmt.Errorf("InitiateBankTransfer: %w", err)
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("InitiateBankTransfer: %w", err)
	}
	if !isSuccessStatus(code) || env.Status != "success" {
		return &Result{Success: false, Message: env.Message, Raw: raw}, nil
	}

	var data flwTransferData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("InitiateBankTransfer: decode data: %v: %w", err, domain.ErrProviderUnavailable)
	}
	return &Result{Success: true, ProviderReference: string(data.ID), Message: env.Message, Raw: raw}, nil
}

// VerifyTransfer asks for the current state of a payout by provider id.
func (c *Flutterwave) VerifyTransfer(ctx context.Context, providerRef string) (*TransferStatus, error) {
	var data flwTransferData
	if err := c.lookup(ctx, http.MethodGet, "/transfers/"+url.PathEscape(providerRef), nil, &data); err != nil {
		return nil, fmt.Errorf("VerifyTransfer: %w", err)
	}
	return &TransferStatus{
		ProviderReference: string(data.ID),
		Reference:         data.Reference,
		Status:            data.Status,
		Message:           data.CompleteMessage,
	}, nil
}

func (c *Flutterwave) ResolveBankAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	body := map[string]string{"account_number": accountNumber, "account_bank": bankCode}
	var data ResolvedAccount
	if err := c.lookup(ctx, http.MethodPost, "/accounts/resolve", body, &data); err != nil {
		return nil, fmt.Errorf("ResolveBankAccount: %w", err)
	}
	return &data, nil
}

func (c *Flutterwave) CreateVirtualAccount(ctx context.Context, req VirtualAccountRequest) (*VirtualAccount, error) {
	body := map[string]any{
		"email":        req.Email,
		"bvn":          req.BVN,
		"is_permanent": true,
		"tx_ref":       req.Reference,
		"narration":    req.Name,
		"phone_number": req.Phone,
		"fullname":     req.Name,
	}
	var data VirtualAccount
	if err := c.lookup(ctx, http.MethodPost, "/virtual-account-numbers", body, &data); err != nil {
		return nil, fmt.Errorf("CreateVirtualAccount: %w", err)
	}
	if data.OrderRef == "" {
		data.OrderRef = req.Reference
	}
	return &data, nil
}

func (c *Flutterwave) ListBanks(ctx context.Context) ([]Bank, error) {
	var banks []Bank
	if err := c.lookup(ctx, http.MethodGet, "/banks/NG", nil, &banks); err != nil {
		return nil, fmt.Errorf("ListBanks: %w", err)
	}
	return banks, nil
}

type flwFee struct {
	Fee decimal.Decimal `json:"fee"`
}

// GetTransferFee quotes the payout fee for amount, both in kobo.
func (c *Flutterwave) GetTransferFee(ctx context.Context, amount int64) (int64, error) {
	q := url.Values{}
	q.Set("amount", ToMajor(amount).StringFixed(2))
	q.Set("currency", string(domain.CurrencyNGN))

	var data json.RawMessage
	if err := c.lookup(ctx, http.MethodGet, "/transfers/fee?"+q.Encode(), nil, &data); err != nil {
		return 0, fmt.Errorf("GetTransferFee: %w", err)
	}

	// The quote arrives either as a list of tiers or as a single object.
	var quote flwFee
	var tiers []flwFee
	if err := json.Unmarshal(data, &tiers); err == nil {
		if len(tiers) == 0 {
			return 0, fmt.Errorf("GetTransferFee: empty quote: %w", domain.ErrProviderUnavailable)
		}
		quote = tiers[0]
	} else if err := json.Unmarshal(data, &quote); err != nil {
		return 0, fmt.Errorf("GetTransferFee: decode: %v: %w", err, domain.ErrProviderUnavailable)
	}

	fee, err := ToMinor(quote.Fee.Round(2))
	if err != nil {
		return 0, fmt.Errorf("GetTransferFee: %w", err)
	}
	return fee, nil
}

// lookup runs a read-style call. A decline is returned as a wrapped
// domain.ErrProviderRejected since there is no money movement to reconcile.
func (c *Flutterwave) lookup(ctx context.Context, method, path string, body, out any) error {
	code, raw, err := c.api.send(ctx, c.timeouts.Lookup, method, path, bearer(c.secretKey), body)
	if err != nil {
		return err
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return err
	}
	if !isSuccessStatus(code) || env.Status != "success" {
		return (&Result{Message: env.Message}).Err()
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %v: %w", err, domain.ErrProviderUnavailable)
	}
	return nil
}

func decodeEnvelope(raw []byte) (*flwEnvelope, error) {
	var env flwEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %v: %w", err, domain.ErrProviderUnavailable)
	}
	return &env, nil
}
