package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/service/engine"
)

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "RESOURCE_NOT_FOUND"},
		{name: "recipient", err: fmt.Errorf("x: %w", domain.ErrRecipientNotFound), wantStatus: http.StatusUnprocessableEntity, wantCode: "RECIPIENT_NOT_FOUND"},
		{name: "insufficient", err: domain.ErrInsufficientFunds, wantStatus: http.StatusUnprocessableEntity, wantCode: "INSUFFICIENT_FUNDS"},
		{name: "duplicate", err: domain.ErrDuplicateReference, wantStatus: http.StatusConflict, wantCode: "DUPLICATE_REFERENCE"},
		{name: "declined", err: fmt.Errorf("x: %w", domain.ErrProviderRejected), wantStatus: http.StatusUnprocessableEntity, wantCode: "PROVIDER_REJECTED"},
		{name: "provider down", err: domain.ErrProviderUnavailable, wantStatus: http.StatusBadGateway, wantCode: "PROVIDER_UNAVAILABLE"},
		{name: "unconfirmed", err: domain.ErrUnconfirmed, wantStatus: http.StatusAccepted, wantCode: "OUTCOME_UNCONFIRMED"},
		{name: "validation", err: domain.ErrValidation, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "decided", err: domain.ErrProposalDecided, wantStatus: http.StatusConflict, wantCode: "PROPOSAL_DECIDED"},
		{name: "unknown", err: fmt.Errorf("disk on fire"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondDomainError(rr, tc.err)

			assert.Equal(t, tc.wantStatus, rr.Code)
			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestRespondOutcomeError_CarriesReference(t *testing.T) {
	txn := &domain.Transaction{Reference: "AIR_1", Kind: domain.KindAirtime, Status: domain.StatusPending, Amount: 20000}
	err := &engine.OpError{Reference: "AIR_1", Err: fmt.Errorf("%w: timeout", domain.ErrUnconfirmed)}

	rr := httptest.NewRecorder()
	RespondOutcomeError(rr, err, &engine.Outcome{Transaction: txn, Balance: 80000})

	assert.Equal(t, http.StatusAccepted, rr.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Reference   string `json:"reference"`
				Transaction struct {
					Status        string `json:"status"`
					AmountDisplay string `json:"amount_display"`
				} `json:"transaction"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "OUTCOME_UNCONFIRMED", resp.Error.Code)
	assert.Equal(t, "AIR_1", resp.Error.Details.Reference)
	assert.Equal(t, "pending", resp.Error.Details.Transaction.Status)
	assert.Equal(t, "200.00", resp.Error.Details.Transaction.AmountDisplay)
}

func TestRespondOutcome_ReportsStoredState(t *testing.T) {
	flwRef := "FLW-9"
	declined := "insufficient beneficiary details"

	tests := []struct {
		name        string
		out         *engine.Outcome
		wantStatus  int
		wantCode    string
		wantSuccess bool
		wantDetail  string
	}{
		{
			name:        "new settled entry",
			out:         &engine.Outcome{Transaction: &domain.Transaction{Reference: "AIR_1", Kind: domain.KindAirtime, Status: domain.StatusSuccess, Amount: 100}},
			wantStatus:  http.StatusCreated,
			wantSuccess: true,
		},
		{
			name:        "replay of settled entry",
			out:         &engine.Outcome{Transaction: &domain.Transaction{Reference: "AIR_1", Kind: domain.KindAirtime, Status: domain.StatusSuccess, Amount: 100}, Replayed: true},
			wantStatus:  http.StatusOK,
			wantSuccess: true,
		},
		{
			name:       "replay of unconfirmed purchase",
			out:        &engine.Outcome{Transaction: &domain.Transaction{Reference: "AIR_2", Kind: domain.KindAirtime, Status: domain.StatusPending, Amount: 100}, Replayed: true},
			wantStatus: http.StatusAccepted,
			wantCode:   "OUTCOME_UNCONFIRMED",
		},
		{
			name: "replay of accepted payout",
			out: &engine.Outcome{Transaction: &domain.Transaction{
				Reference: "BT_1", Kind: domain.KindBankTransfer, Status: domain.StatusPending, Amount: 100, ProviderReference: &flwRef,
			}, Replayed: true},
			wantStatus:  http.StatusAccepted,
			wantSuccess: true,
		},
		{
			name: "replay of failed entry",
			out: &engine.Outcome{Transaction: &domain.Transaction{
				Reference: "BT_2", Kind: domain.KindBankTransfer, Status: domain.StatusFailed, Amount: 100, ErrorDetail: &declined,
			}, Replayed: true},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "TRANSACTION_FAILED",
			wantDetail: declined,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			respondOutcome(rr, tc.out)

			assert.Equal(t, tc.wantStatus, rr.Code)
			var resp struct {
				Success bool `json:"success"`
				Error   *struct {
					Code    string `json:"code"`
					Details struct {
						Reference   string `json:"reference"`
						Transaction struct {
							Status      string `json:"status"`
							ErrorDetail string `json:"error_detail"`
						} `json:"transaction"`
					} `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantSuccess, resp.Success)
			if tc.wantCode == "" {
				assert.Nil(t, resp.Error)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
			assert.Equal(t, tc.out.Transaction.Reference, resp.Error.Details.Reference)
			assert.Equal(t, string(tc.out.Transaction.Status), resp.Error.Details.Transaction.Status)
			assert.Equal(t, tc.wantDetail, resp.Error.Details.Transaction.ErrorDetail)
		})
	}
}
