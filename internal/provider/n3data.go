package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

const defaultTokenTTL = 50 * time.Minute

// N3Data is the VTU aggregator: airtime, data bundles and bill payments.
type N3Data struct {
	api      endpoint
	username string
	password string
	tokens   *TokenCache
	timeouts Timeouts
}

func NewN3Data(baseURL, username, password string, timeouts Timeouts) *N3Data {
	c := &N3Data{
		api:      endpoint{name: "n3data", baseURL: baseURL, http: &http.Client{}},
		username: username,
		password: password,
		timeouts: timeouts.withDefaults(),
	}
	c.tokens = NewTokenCache(c.fetchToken)
	return c
}

type n3Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Reference string `json:"reference"`
	Token     string `json:"token"`
}

func (c *N3Data) SendAirtime(ctx context.Context, req AirtimeRequest) (*Result, error) {
	body := map[string]any{
		"network":   req.Network,
		"phone":     req.Phone,
		"amount":    wireAmount(req.Amount),
		"reference": req.Reference,
	}
	res, err := c.call(ctx, c.timeouts.Airtime, "/airtime/buy", body)
	if err != nil {
		return nil, fmt.Errorf("SendAirtime: %w", err)
	}
	return res, nil
}

func (c *N3Data) SendData(ctx context.Context, req DataRequest) (*Result, error) {
	body := map[string]any{
		"network":   req.Network,
		"plan":      req.Plan,
		"phone":     req.Phone,
		"reference": req.Reference,
	}
	res, err := c.call(ctx, c.timeouts.Data, "/data/buy", body)
	if err != nil {
		return nil, fmt.Errorf("SendData: %w", err)
	}
	return res, nil
}

// PayBill routes on the details variant: cable, electricity, education or betting.
func (c *N3Data) PayBill(ctx context.Context, req BillRequest) (*Result, error) {
	var path string
	var body map[string]any

	switch d := req.Details.(type) {
	case domain.CableMetadata:
		path = "/cabletv/pay"
		body = map[string]any{"provider": d.Provider, "smartcard": d.SmartCard, "packageName": d.Package}
	case domain.ElectricityMetadata:
		path = "/electricity/pay"
		body = map[string]any{"disco": d.Disco, "meter": d.Meter, "type": d.MeterType, "amount": wireAmount(req.Amount)}
	case domain.EducationMetadata:
		path = "/education/pay"
		body = map[string]any{"institution": d.Institution, "studentId": d.StudentID, "amount": wireAmount(req.Amount)}
	case domain.BettingMetadata:
		path = "/betting/fund"
		body = map[string]any{"platform": d.Platform, "account": d.AccountID, "amount": wireAmount(req.Amount)}
	default:
		return nil, fmt.Errorf("PayBill: unsupported bill details %T: %w", req.Details, domain.ErrValidation)
	}
	body["reference"] = req.Reference

	res, err := c.call(ctx, c.timeouts.Bill, path, body)
	if err != nil {
		return nil, fmt.Errorf("PayBill: %w", err)
	}
	return res, nil
}

// call sends one purchase. A 401 invalidates the cached token and the request
// is sent once more; the first attempt was refused before any processing.
func (c *N3Data) call(ctx context.Context, timeout time.Duration, path string, body any) (*Result, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			// Nothing was sent, so this is a definite non-execution.
			logging.FromContext(ctx).Warn("provider authentication failed", "provider", c.api.name, "error", err)
			return &Result{Success: false, Message: "provider authentication failed"}, nil
		}

		code, raw, err := c.api.send(ctx, timeout, http.MethodPost, path, bearer(token), body)
		if err != nil {
			return nil, err
		}
		if code == http.StatusUnauthorized && attempt == 0 {
			c.tokens.Invalidate(token)
			continue
		}

		var resp n3Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			if isSuccessStatus(code) {
				return nil, fmt.Errorf("decode response: %v: %w", err, domain.ErrProviderUnavailable)
			}
			return &Result{Success: false, Message: http.StatusText(code), Raw: raw}, nil
		}
		return &Result{
			Success:           isSuccessStatus(code) && resp.Success,
			ProviderReference: resp.Reference,
			Message:           resp.Message,
			Token:             resp.Token,
			Raw:               raw,
		}, nil
	}
	return &Result{Success: false, Message: "provider rejected credentials"}, nil
}

type n3TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (c *N3Data) fetchToken(ctx context.Context) (string, time.Duration, error) {
	header := http.Header{}
	header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.username+":"+c.password)))

	code, raw, err := c.api.send(ctx, c.timeouts.Lookup, http.MethodPost, "/auth/token", header, struct{}{})
	if err != nil {
		return "", 0, fmt.Errorf("fetchToken: %w", err)
	}
	if !isSuccessStatus(code) {
		return "", 0, fmt.Errorf("fetchToken: status %d", code)
	}

	var tok n3TokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil || tok.Token == "" {
		return "", 0, fmt.Errorf("fetchToken: malformed token response")
	}
	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return tok.Token, ttl, nil
}
