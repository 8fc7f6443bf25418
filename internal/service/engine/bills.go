package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/provider"
)

var billPrefixes = map[domain.Kind]string{
	domain.KindAirtime:     "AIR_",
	domain.KindData:        "DATA_",
	domain.KindCable:       "CABLE_",
	domain.KindElectricity: "ELEC_",
	domain.KindEducation:   "EDU_",
	domain.KindBetting:     "BET_",
}

var billTitles = map[domain.Kind]string{
	domain.KindAirtime:     "Airtime purchase",
	domain.KindData:        "Data purchase",
	domain.KindCable:       "Cable TV subscription",
	domain.KindElectricity: "Electricity payment",
	domain.KindEducation:   "Education payment",
	domain.KindBetting:     "Betting wallet funding",
}

// BillRequest is a VTU purchase. Details must be the metadata variant of Kind.
type BillRequest struct {
	ActorID   uuid.UUID
	Kind      domain.Kind
	Amount    int64
	Reference string
	Details   domain.Metadata
}

func (e *Engine) PayBill(ctx context.Context, req BillRequest) (*Outcome, error) {
	if err := validateBill(req); err != nil {
		return nil, fmt.Errorf("PayBill: %w", err)
	}
	same := sameRequest(req.ActorID, req.Kind, req.Amount)
	if out, err := e.priorOutcome(ctx, req.Reference, same); out != nil || err != nil {
		return out, err
	}
	if err := e.precheck(ctx, req.ActorID, req.Amount); err != nil {
		return nil, fmt.Errorf("PayBill: %w", err)
	}

	reference := req.Reference
	if reference == "" {
		reference = NewReference(billPrefixes[req.Kind])
	}

	t := &domain.Transaction{
		Reference:    reference,
		Kind:         req.Kind,
		Title:        billTitles[req.Kind],
		Description:  describeBill(req.Details),
		OriginUserID: &req.ActorID,
		Currency:     domain.CurrencyNGN,
		Amount:       req.Amount,
		Metadata:     req.Details,
	}
	if _, err := e.journal.CreatePending(ctx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			return e.replay(ctx, reference, same)
		}
		return nil, fmt.Errorf("PayBill: %w", err)
	}

	return e.providerCall(ctx, t, func(ctx context.Context) (*provider.Result, error) {
		switch d := req.Details.(type) {
		case domain.AirtimeMetadata:
			return e.vtu.SendAirtime(ctx, provider.AirtimeRequest{
				Reference: reference, Network: d.Network, Phone: d.Phone, Amount: req.Amount,
			})
		case domain.DataMetadata:
			return e.vtu.SendData(ctx, provider.DataRequest{
				Reference: reference, Network: d.Network, Phone: d.Phone, Plan: d.Plan, Amount: req.Amount,
			})
		default:
			return e.vtu.PayBill(ctx, provider.BillRequest{Reference: reference, Amount: req.Amount, Details: req.Details})
		}
	}, true)
}

func validateBill(req BillRequest) error {
	if req.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if !req.Kind.IsBill() {
		return fmt.Errorf("%q is not a bill kind: %w", req.Kind, domain.ErrValidation)
	}
	if req.Details == nil || req.Details.Kind() != req.Kind {
		return fmt.Errorf("missing %s details: %w", req.Kind, domain.ErrValidation)
	}
	return nil
}

func describeBill(d domain.Metadata) string {
	switch v := d.(type) {
	case domain.AirtimeMetadata:
		return fmt.Sprintf("%s airtime to %s", strings.ToUpper(v.Network), v.Phone)
	case domain.DataMetadata:
		return fmt.Sprintf("%s %s data to %s", strings.ToUpper(v.Network), v.Plan, v.Phone)
	case domain.CableMetadata:
		return fmt.Sprintf("%s %s for %s", strings.ToUpper(v.Provider), v.Package, v.SmartCard)
	case domain.ElectricityMetadata:
		return fmt.Sprintf("%s %s meter %s", strings.ToUpper(v.Disco), v.MeterType, v.Meter)
	case domain.EducationMetadata:
		return fmt.Sprintf("%s for student %s", strings.ToUpper(v.Institution), v.StudentID)
	case domain.BettingMetadata:
		return fmt.Sprintf("%s account %s", v.Platform, v.AccountID)
	}
	return ""
}
