package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Magic phone numbers steer VTU outcomes.
const (
	declinedPhone = "08000000000"
	hangingPhone  = "08099999999"
)

type n3data struct {
	issued atomic.Int64
}

func (n *n3data) routes(r chi.Router) {
	r.Post("/auth/token", n.token)
	r.Group(func(r chi.Router) {
		r.Use(requireBearer)
		r.Post("/airtime/buy", n.purchase)
		r.Post("/data/buy", n.purchase)
		r.Post("/cabletv/pay", n.purchase)
		r.Post("/electricity/pay", n.purchase)
		r.Post("/education/pay", n.purchase)
		r.Post("/betting/fund", n.purchase)
	})
}

func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer mock-") {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (n *n3data) token(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "credentials required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": "mock-" + uuid.NewString(), "expires_in": 3600})
}

func (n *n3data) purchase(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid payload"})
		return
	}

	phone, _ := req["phone"].(string)
	switch phone {
	case declinedPhone:
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Number not eligible for recharge"})
		return
	case hangingPhone:
		select {
		case <-time.After(2 * time.Minute):
		case <-r.Context().Done():
			return
		}
	}

	resp := map[string]any{
		"success":   true,
		"message":   "Transaction successful",
		"reference": fmt.Sprintf("N3-%d", time.Now().UnixNano()),
	}
	if strings.HasSuffix(r.URL.Path, "/electricity/pay") && req["type"] == "prepaid" {
		seq := n.issued.Add(1)
		resp["token"] = fmt.Sprintf("%04d-%04d-%04d-%04d", seq%10000, (seq*7)%10000, (seq*13)%10000, (seq*31)%10000)
	}
	writeJSON(w, http.StatusOK, resp)
}
