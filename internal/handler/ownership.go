package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/auth"
)

const idempotencyHeader = "Idempotency-Key"

func actorFromRequest(r *http.Request) (uuid.UUID, *AppError) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}
	return userID, nil
}

// referenceFromRequest derives the journal reference from the caller and the
// Idempotency-Key header, so two users sending the same key never share an
// entry. An absent header lets the engine generate one.
func referenceFromRequest(r *http.Request, userID uuid.UUID) string {
	return scopedReference(userID, strings.TrimSpace(r.Header.Get(idempotencyHeader)))
}

func scopedReference(userID uuid.UUID, key string) string {
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(userID.String() + ":" + key))
	return "IK_" + hex.EncodeToString(sum[:16])
}

func uuidFromPath(r *http.Request, name string) (uuid.UUID, *AppError) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, ErrResourceNotFound
	}
	return id, nil
}
