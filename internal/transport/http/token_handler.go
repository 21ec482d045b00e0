package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
)

// TokenHandler exposes the ephemeral callback token store for ingress
// round-trips: park a payload behind a short token, read it back before the
// TTL runs out.
type TokenHandler struct {
	store ref.TokenStore
}

func NewTokenHandler(store ref.TokenStore) *TokenHandler {
	return &TokenHandler{store: store}
}

// Register installs the token routes on mux.
func (h *TokenHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/tokens/put", h.handlePut)
	mux.HandleFunc("/tokens/get", h.handleGet)
}

func (h *TokenHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token      string          `json:"token"`
		Payload    json.RawMessage `json:"payload"`
		TTLSeconds int             `json:"ttlSeconds"`
	}
	if !decode(w, r, &req) {
		return
	}
	token := req.Token
	if token == "" {
		token = ref.NewToken()
	}
	ttl := ref.ClampTTL(time.Duration(req.TTLSeconds) * time.Second)
	if err := h.store.Put(r.Context(), token, req.Payload, ttl); err != nil {
		writeTokenErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "token": token})
}

func (h *TokenHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &req) {
		return
	}
	payload, err := h.store.Get(r.Context(), req.Token)
	if err != nil {
		writeTokenErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "payload": json.RawMessage(payload)})
}

func writeTokenErr(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": domain.ErrorCode(err)})
}
