package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/wallet-ledger/internal/service/reconcile"
)

// notifier posts signed notifications to the wallet API.
type notifier struct {
	url    string
	secret []byte
	client *http.Client
}

func (n *notifier) send(event string, data any) error {
	body, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(reconcile.SignatureHeader, reconcile.Sign(n.secret, body))

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	slog.Info("webhook delivered", "event", event, "status", resp.StatusCode)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("send: api returned %d", resp.StatusCode)
	}
	return nil
}
