package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Metadata is the kind-specific context of a journal entry.
type Metadata interface {
	Kind() Kind
}

type TransferMetadata struct {
	RecipientUsername string `json:"recipient_username"`
	Note              string `json:"note,omitempty"`
}

type BankTransferMetadata struct {
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name,omitempty"`
	Narration     string `json:"narration,omitempty"`
}

type AirtimeMetadata struct {
	Network string `json:"network"`
	Phone   string `json:"phone"`
}

type DataMetadata struct {
	Network string `json:"network"`
	Phone   string `json:"phone"`
	Plan    string `json:"plan"`
}

type CableMetadata struct {
	Provider  string `json:"provider"`
	SmartCard string `json:"smartcard"`
	Package   string `json:"package"`
}

type ElectricityMetadata struct {
	Disco     string `json:"disco"`
	Meter     string `json:"meter"`
	MeterType string `json:"meter_type"`
	Token     string `json:"token,omitempty"`
}

type EducationMetadata struct {
	Institution string `json:"institution"`
	StudentID   string `json:"student_id"`
}

type BettingMetadata struct {
	Platform  string `json:"platform"`
	AccountID string `json:"account_id"`
}

type GiftCardMetadata struct {
	ProposalID uuid.UUID `json:"proposal_id"`
	CardName   string    `json:"card_name"`
	VerifierID uuid.UUID `json:"verifier_id"`
}

type FundingMetadata struct {
	Channel       string `json:"channel"`
	ProviderTxRef string `json:"provider_tx_ref,omitempty"`
	FlwRef        string `json:"flw_ref,omitempty"`
	PayerEmail    string `json:"payer_email,omitempty"`
}

type AdjustmentMetadata struct {
	Reason  string    `json:"reason"`
	ActorID uuid.UUID `json:"actor_id"`
}

func (TransferMetadata) Kind() Kind     { return KindTransfer }
func (BankTransferMetadata) Kind() Kind { return KindBankTransfer }
func (AirtimeMetadata) Kind() Kind      { return KindAirtime }
func (DataMetadata) Kind() Kind         { return KindData }
func (CableMetadata) Kind() Kind        { return KindCable }
func (ElectricityMetadata) Kind() Kind  { return KindElectricity }
func (EducationMetadata) Kind() Kind    { return KindEducation }
func (BettingMetadata) Kind() Kind      { return KindBetting }
func (GiftCardMetadata) Kind() Kind     { return KindGiftCard }
func (FundingMetadata) Kind() Kind      { return KindFunding }
func (AdjustmentMetadata) Kind() Kind   { return KindAdjustment }

// EncodeMetadata serializes m for an entry of kind k. A nil m encodes as an empty object.
func EncodeMetadata(k Kind, m Metadata) ([]byte, error) {
	if m == nil {
		return []byte(`{}`), nil
	}
	if m.Kind() != k {
		return nil, fmt.Errorf("EncodeMetadata: %s metadata on %s entry: %w", m.Kind(), k, ErrValidation)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("EncodeMetadata: %w", err)
	}
	return b, nil
}

// DecodeMetadata picks the variant from the entry kind.
func DecodeMetadata(k Kind, raw []byte) (Metadata, error) {
	if len(raw) == 0 || string(raw) == "{}" || string(raw) == "null" {
		return nil, nil
	}

	var m Metadata
	switch k {
	case KindTransfer:
		m = decodeInto[TransferMetadata](raw)
	case KindBankTransfer:
		m = decodeInto[BankTransferMetadata](raw)
	case KindAirtime:
		m = decodeInto[AirtimeMetadata](raw)
	case KindData:
		m = decodeInto[DataMetadata](raw)
	case KindCable:
		m = decodeInto[CableMetadata](raw)
	case KindElectricity:
		m = decodeInto[ElectricityMetadata](raw)
	case KindEducation:
		m = decodeInto[EducationMetadata](raw)
	case KindBetting:
		m = decodeInto[BettingMetadata](raw)
	case KindGiftCard:
		m = decodeInto[GiftCardMetadata](raw)
	case KindFunding:
		m = decodeInto[FundingMetadata](raw)
	case KindAdjustment:
		m = decodeInto[AdjustmentMetadata](raw)
	default:
		return nil, fmt.Errorf("DecodeMetadata: unknown kind %q: %w", k, ErrValidation)
	}
	if m == nil {
		return nil, fmt.Errorf("DecodeMetadata: malformed %s metadata: %w", k, ErrValidation)
	}
	return m, nil
}

func decodeInto[T Metadata](raw []byte) Metadata {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
