package handler

import (
	"context"
	"net/http"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/service/engine"
)

type billEngine interface {
	PayBill(ctx context.Context, req engine.BillRequest) (*engine.Outcome, error)
}

type VTUHandler struct {
	bills billEngine
}

func NewVTUHandler(bills billEngine) *VTUHandler {
	return &VTUHandler{bills: bills}
}

// billRequest is implemented by each purchase body.
type billRequest interface {
	amount() int64
	details() domain.Metadata
}

type airtimeRequest struct {
	Network string `json:"network" validate:"required,oneof=mtn airtel glo 9mobile"`
	Phone   string `json:"phone" validate:"required,ngphone"`
	Amount  int64  `json:"amount" validate:"gte=5000"`
}

func (r airtimeRequest) amount() int64 { return r.Amount }
func (r airtimeRequest) details() domain.Metadata {
	return domain.AirtimeMetadata{Network: r.Network, Phone: r.Phone}
}

type dataRequest struct {
	Network string `json:"network" validate:"required,oneof=mtn airtel glo 9mobile"`
	Phone   string `json:"phone" validate:"required,ngphone"`
	Plan    string `json:"plan" validate:"required,max=64"`
	Amount  int64  `json:"amount" validate:"gt=0"`
}

func (r dataRequest) amount() int64 { return r.Amount }
func (r dataRequest) details() domain.Metadata {
	return domain.DataMetadata{Network: r.Network, Phone: r.Phone, Plan: r.Plan}
}

type cableRequest struct {
	Provider  string `json:"provider" validate:"required,oneof=dstv gotv startimes showmax"`
	SmartCard string `json:"smartcard" validate:"required,numeric"`
	Package   string `json:"package" validate:"required,max=64"`
	Amount    int64  `json:"amount" validate:"gt=0"`
}

func (r cableRequest) amount() int64 { return r.Amount }
func (r cableRequest) details() domain.Metadata {
	return domain.CableMetadata{Provider: r.Provider, SmartCard: r.SmartCard, Package: r.Package}
}

type electricityRequest struct {
	Disco     string `json:"disco" validate:"required,max=32"`
	Meter     string `json:"meter" validate:"required,numeric"`
	MeterType string `json:"meter_type" validate:"required,oneof=prepaid postpaid"`
	Amount    int64  `json:"amount" validate:"gte=100000"`
}

func (r electricityRequest) amount() int64 { return r.Amount }
func (r electricityRequest) details() domain.Metadata {
	return domain.ElectricityMetadata{Disco: r.Disco, Meter: r.Meter, MeterType: r.MeterType}
}

type educationRequest struct {
	Institution string `json:"institution" validate:"required,oneof=waec neco jamb nabteb"`
	StudentID   string `json:"student_id" validate:"required,max=32"`
	Amount      int64  `json:"amount" validate:"gt=0"`
}

func (r educationRequest) amount() int64 { return r.Amount }
func (r educationRequest) details() domain.Metadata {
	return domain.EducationMetadata{Institution: r.Institution, StudentID: r.StudentID}
}

type bettingRequest struct {
	Platform  string `json:"platform" validate:"required,max=32"`
	AccountID string `json:"account_id" validate:"required,max=64"`
	Amount    int64  `json:"amount" validate:"gte=10000"`
}

func (r bettingRequest) amount() int64 { return r.Amount }
func (r bettingRequest) details() domain.Metadata {
	return domain.BettingMetadata{Platform: r.Platform, AccountID: r.AccountID}
}

func (h *VTUHandler) Airtime(w http.ResponseWriter, r *http.Request) {
	pay(h, w, r, domain.KindAirtime, &airtimeRequest{})
}

func (h *VTUHandler) Data(w http.ResponseWriter, r *http.Request) {
	pay(h, w, r, domain.KindData, &dataRequest{})
}

func (h *VTUHandler) Cable(w http.ResponseWriter, r *http.Request) {
	pay(h, w, r, domain.KindCable, &cableRequest{})
}

func (h *VTUHandler) Electricity(w http.ResponseWriter, r *http.Request) {
	pay(h, w, r, domain.KindElectricity, &electricityRequest{})
}

func (h *VTUHandler) Education(w http.ResponseWriter, r *http.Request) {
	pay(h, w, r, domain.KindEducation, &educationRequest{})
}

func (h *VTUHandler) Betting(w http.ResponseWriter, r *http.Request) {
	pay(h, w, r, domain.KindBetting, &bettingRequest{})
}

func pay[T billRequest](h *VTUHandler, w http.ResponseWriter, r *http.Request, kind domain.Kind, req T) {
	log := logging.FromContext(r.Context())

	userID, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	fields, appErr := decodeAndValidate(r, req)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	out, err := h.bills.PayBill(r.Context(), engine.BillRequest{
		ActorID:   userID,
		Kind:      kind,
		Amount:    req.amount(),
		Reference: referenceFromRequest(r, userID),
		Details:   req.details(),
	})
	if err != nil {
		log.Warn("bill payment failed", "kind", kind, "error", err)
		RespondOutcomeError(w, err, out)
		return
	}

	respondOutcome(w, out)
}
