package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

const maxResponseBytes = 1 << 20

type endpoint struct {
	name    string
	baseURL string
	http    *http.Client
}

// send performs one JSON call bounded by timeout. Transport faults, an expired
// wait and 5xx responses wrap domain.ErrProviderUnavailable; every other
// status is returned with its body for the caller to interpret.
func (e *endpoint) send(ctx context.Context, timeout time.Duration, method, path string, header http.Header, body any) (int, []byte, error) {
	log := logging.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("send: marshal: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("send: build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := e.http.Do(req)
	if err != nil {
		log.Warn("provider call failed", "provider", e.name, "path", path, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return 0, nil, fmt.Errorf("send: %s %s: %v: %w", method, path, err, domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("send: read body: %v: %w", err, domain.ErrProviderUnavailable)
	}

	log.Info("provider response received",
		"provider", e.name,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, raw, fmt.Errorf("send: %s %s: status %d: %w", method, path, resp.StatusCode, domain.ErrProviderUnavailable)
	}
	return resp.StatusCode, raw, nil
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func isSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}
