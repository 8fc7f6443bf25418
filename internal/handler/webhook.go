package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
	"github.com/josh-kwaku/wallet-ledger/internal/service/reconcile"
)

type notificationHandler interface {
	HandleNotification(ctx context.Context, raw []byte, signature string) error
}

type WebhookHandler struct {
	reconciler notificationHandler
}

func NewWebhookHandler(reconciler notificationHandler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// ReceiveFlutterwave answers 200 once the notification is applied or safely
// ignorable, 401 on a bad signature and 500 when the provider should redeliver.
func (h *WebhookHandler) ReceiveFlutterwave(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	err = h.reconciler.HandleNotification(r.Context(), body, r.Header.Get(reconcile.SignatureHeader))
	switch {
	case err == nil:
		RespondSuccess(w, http.StatusOK, map[string]string{"status": "received"})
	case errors.Is(err, domain.ErrUnauthorized):
		RespondAppError(w, ErrInvalidSignature, nil)
	case errors.Is(err, domain.ErrValidation):
		log.Warn("malformed webhook payload", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
	default:
		log.Error("webhook processing failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
	}
}
