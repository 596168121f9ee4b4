/*
handlers.go - HTTP handlers for the points engine

ENDPOINTS:
  POST /add      Record a point grant {payer, points, timestamp}
  POST /spend    Spend points {points}
  GET  /balance  Current balance per payer
  GET  /grants   Raw ledger (audit/debug)
  GET  /health   Liveness

ERROR HANDLING:
  - 400 JSON {"msg": ...} for missing/malformed fields, message naming
    the field
  - 400 plain text for insufficient balance (an expected business
    outcome, deliberately not JSON)
  - 500 JSON {"msg":"Something went wrong!"} for anything else; the
    underlying error is logged, never leaked

SEE ALSO:
  - dto.go: request/response types
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/points-engine/ledger"
)

const (
	internalErrorMsg       = "Something went wrong!"
	insufficientBalanceMsg = "Insufficient points balance"
)

// Handler holds the dependencies of the HTTP surface.
type Handler struct {
	svc *ledger.Service
	log *zap.Logger
}

// NewHandler creates a handler around the ledger service.
func NewHandler(svc *ledger.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// =============================================================================
// GRANT RECORDING
// =============================================================================

// AddPoints handles POST /add.
func (h *Handler) AddPoints(w http.ResponseWriter, r *http.Request) {
	var req AddPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.Payer == nil:
		writeError(w, http.StatusBadRequest, "missing required field: payer")
		return
	case req.Points == nil:
		writeError(w, http.StatusBadRequest, "missing required field: points")
		return
	case req.Timestamp == nil:
		writeError(w, http.StatusBadRequest, "missing required field: timestamp")
		return
	}

	id, err := h.svc.Record(r.Context(), *req.Payer, decimal.NewFromInt(*req.Points), *req.Timestamp)
	if err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AddPointsResponse{Msg: "grant recorded", ID: string(id)})
}

// =============================================================================
// SPENDING
// =============================================================================

// SpendPoints handles POST /spend.
func (h *Handler) SpendPoints(w http.ResponseWriter, r *http.Request) {
	var req SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Points == nil {
		writeError(w, http.StatusBadRequest, "missing required field: points")
		return
	}

	summary, err := h.svc.Spend(r.Context(), decimal.NewFromInt(*req.Points))
	if err != nil {
		// Insufficiency is reported as plain text, not JSON. The
		// asymmetry is a documented part of the API contract.
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(insufficientBalanceMsg))
			return
		}
		h.respondError(w, err)
		return
	}

	results := make([]SpendResultDTO, len(summary))
	for i, d := range summary {
		results[i] = SpendResultDTO{Payer: d.Payer, Points: d.Points.IntPart()}
	}

	writeJSON(w, http.StatusOK, results)
}

// =============================================================================
// READ SIDE
// =============================================================================

// GetBalance handles GET /balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balances, err := h.svc.PayerBalances(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	out := make(map[string]int64, len(balances))
	for payer, points := range balances {
		out[payer] = points.IntPart()
	}

	writeJSON(w, http.StatusOK, out)
}

// ListGrants handles GET /grants.
func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.svc.Grants(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	dtos := make([]GrantDTO, len(grants))
	for i, g := range grants {
		dtos[i] = GrantDTO{
			ID:        string(g.ID),
			Payer:     g.Payer,
			Points:    g.Points.IntPart(),
			Timestamp: g.Timestamp.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// respondError maps a service error onto the wire: validation failures
// are 400 with their message, everything else is the generic 500 with
// the cause logged server-side.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}

	h.log.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, internalErrorMsg)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Msg: msg})
}
