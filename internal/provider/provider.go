// Package provider adapts the external payment (Flutterwave) and VTU (N3Data)
// APIs to one result contract. A definite decline is a normal Result with
// Success false; only transport faults, timeouts and 5xx responses are errors,
// and those wrap domain.ErrProviderUnavailable.
package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

type Result struct {
	Success           bool
	ProviderReference string
	Message           string
	// Token is a value issued to the customer, such as a prepaid meter token.
	Token string
	Raw   json.RawMessage
}

// Err is nil for a success and a wrapped domain.ErrProviderRejected otherwise.
func (r *Result) Err() error {
	if r.Success {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = "declined"
	}
	return fmt.Errorf("%w: %s", domain.ErrProviderRejected, msg)
}

type Timeouts struct {
	Airtime  time.Duration
	Data     time.Duration
	Bill     time.Duration
	Transfer time.Duration
	Lookup   time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	def := func(d, fallback time.Duration) time.Duration {
		if d <= 0 {
			return fallback
		}
		return d
	}
	return Timeouts{
		Airtime:  def(t.Airtime, 20*time.Second),
		Data:     def(t.Data, 20*time.Second),
		Bill:     def(t.Bill, 30*time.Second),
		Transfer: def(t.Transfer, 30*time.Second),
		Lookup:   def(t.Lookup, 10*time.Second),
	}
}

type AirtimeRequest struct {
	Reference string
	Network   string
	Phone     string
	Amount    int64
}

type DataRequest struct {
	Reference string
	Network   string
	Phone     string
	Plan      string
	Amount    int64
}

// BillRequest pays one of cable, electricity, education or betting. Details
// carries the kind-specific fields.
type BillRequest struct {
	Reference string
	Amount    int64
	Details   domain.Metadata
}

type BankTransferRequest struct {
	Reference       string
	BankCode        string
	AccountNumber   string
	Amount          int64
	Narration       string
	BeneficiaryName string
}

type VirtualAccountRequest struct {
	Reference string
	Email     string
	BVN       string
	Name      string
	Phone     string
}

type VirtualAccount struct {
	AccountNumber     string `json:"account_number"`
	BankName          string `json:"bank_name"`
	OrderRef          string `json:"order_ref"`
	ProviderReference string `json:"flw_ref"`
}

type ResolvedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type Bank struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// TransferStatus values as reported by the transfer provider.
const (
	TransferSuccessful = "SUCCESSFUL"
	TransferFailed     = "FAILED"
)

type TransferStatus struct {
	ProviderReference string
	Reference         string
	Status            string
	Message           string
}
