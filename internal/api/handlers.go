package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/davidahmann/courseledger/internal/auth"
	"github.com/davidahmann/courseledger/internal/catalog"
	"github.com/davidahmann/courseledger/internal/crypto"
	"github.com/davidahmann/courseledger/internal/market"
	"github.com/davidahmann/courseledger/pkg/types"
)

type Handler struct {
	Auth    auth.Authenticator
	Market  *market.Service
	Catalog *catalog.Catalog
	Log     zerolog.Logger
}

type PurchaseRequest struct {
	CourseID string `json:"course_id"`
	Email    string `json:"email"`
	Price    string `json:"price,omitempty"`
}

type VerifyRequest struct {
	Hash  string `json:"hash"`
	Email string `json:"email"`
}

type VerifyResponse struct {
	Hash     string `json:"hash"`
	Verified bool   `json:"verified"`
}

// ManagedCourse is a ledger record with the admin transitions open to it.
type ManagedCourse struct {
	types.OwnedCourseView
	Actions []market.Action `json:"actions"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Courses(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	listing, err := h.Market.Listing(r.Context(), h.Catalog, claims.Account)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": listing})
}

func (h *Handler) OwnedCourses(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	owned, err := h.Market.OwnedCourses(r.Context(), h.Catalog, claims.Account)
	if err != nil {
		h.fail(w, err)
		return
	}
	courses := owned.Courses
	if courses == nil {
		courses = []types.OwnedCourseView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	course, ok := h.Catalog.Lookup(req.CourseID)
	if !ok {
		writeError(w, http.StatusNotFound, errCourseNotFound)
		return
	}

	claims := claimsFrom(r.Context())
	receipt, err := h.Market.Purchase(r.Context(), course, types.Order{Email: req.Email, Price: req.Price}, claims.Account)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) ManagedCourses(w http.ResponseWriter, r *http.Request) {
	views, err := h.Market.ManagedCourses(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]ManagedCourse, 0, len(views))
	for _, v := range views {
		actions, err := market.AdminActions(v.State)
		if err != nil {
			h.fail(w, err)
			return
		}
		out = append(out, ManagedCourse{OwnedCourseView: v, Actions: actions})
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": out})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	view, found, err := h.Market.SearchCourse(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		h.fail(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, errCourseNotFound)
		return
	}
	actions, err := market.AdminActions(view.State)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ManagedCourse{OwnedCourseView: view, Actions: actions})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	hash, err := crypto.ParseHash(req.Hash, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	verified, err := h.Market.VerifyByHash(r.Context(), req.Email, hash)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Hash: hash.Hex(), Verified: verified})
}

func (h *Handler) ChangeState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	hash, err := crypto.ParseHash(vars["hash"], true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	action, err := market.ParseAction(vars["action"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	claims := claimsFrom(r.Context())
	if err := h.Market.ChangeState(r.Context(), hash, action, claims.Account); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"hash": hash.Hex(), "requested": string(action)})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeError(w, status, err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
