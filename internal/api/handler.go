// Package api serves the leaderboard REST endpoints.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"rugal-dominion/internal/domain"
	"rugal-dominion/internal/leaderboard"
	"rugal-dominion/internal/observability"
)

// maxBodyBytes bounds request bodies; a profile picture data URL is the largest payload.
const maxBodyBytes = leaderboard.MaxPictureBytes + 64*1024

// Handler routes /api requests to the leaderboard service.
type Handler struct {
	svc    *leaderboard.Service
	logger *log.Logger
	mux    *http.ServeMux
}

// Option configures Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a Handler.
func NewHandler(svc *leaderboard.Service, opts ...Option) *Handler {
	h := &Handler{
		svc:    svc,
		logger: log.New(io.Discard, "", 0),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.handle("GET /api/leaderboard", "leaderboard", h.getLeaderboard)
	h.handle("POST /api/leaderboard", "leaderboard", h.postLeaderboard)
	h.handle("GET /api/profile", "profile", h.getProfile)
	h.handle("POST /api/profile", "profile", h.postProfile)
	h.handle("GET /api/username/available", "username_available", h.getUsernameAvailable)
	h.handle("POST /api/referral", "referral", h.postReferral)
	h.handle("GET /api/activity", "activity", h.getActivity)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) int

// handle registers fn and records its status code per route.
func (h *Handler) handle(pattern, route string, fn handlerFunc) {
	h.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		code := fn(w, r)
		observability.RecordHTTPRequest(route, code)
	})
}

type dataResponse struct {
	Data any `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
	return code
}

func writeData(w http.ResponseWriter, v any) int {
	return writeJSON(w, http.StatusOK, dataResponse{Data: v})
}

func writeError(w http.ResponseWriter, code int, msg string) int {
	return writeJSON(w, code, errorResponse{Error: msg})
}

// writeServiceError maps leaderboard errors to status codes. Unexpected errors are logged
// and reported with fallback as the message.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) int {
	switch {
	case errors.Is(err, leaderboard.ErrInvalidAction):
		return writeError(w, http.StatusBadRequest, "Invalid action")
	case errors.Is(err, leaderboard.ErrInvalidInput):
		return writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, leaderboard.ErrUsernameTaken):
		return writeError(w, http.StatusConflict, "This username is already taken!")
	case errors.Is(err, leaderboard.ErrReferralCodeTaken):
		return writeError(w, http.StatusConflict, "This referral code is already taken!")
	default:
		h.logger.Printf("%s: %v", fallback, err)
		return writeError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) int {
	entries, err := h.svc.Top(r.Context(), queryLimit(r))
	if err != nil {
		h.logger.Printf("fetch leaderboard: %v", err)
		return writeError(w, http.StatusInternalServerError, "Failed to fetch leaderboard")
	}
	return writeData(w, entries)
}

func (h *Handler) postLeaderboard(w http.ResponseWriter, r *http.Request) int {
	var award domain.PointsAward
	if err := decodeBody(w, r, &award); err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid request body")
	}
	if award.Wallet == "" || award.Action == "" {
		return writeError(w, http.StatusBadRequest, "Missing required fields")
	}

	entry, err := h.svc.Award(r.Context(), award)
	if err != nil {
		return h.writeServiceError(w, err, "Failed to update leaderboard")
	}
	return writeData(w, entry)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) int {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		return writeError(w, http.StatusBadRequest, "Missing required fields")
	}

	profile, err := h.svc.Profile(r.Context(), wallet)
	if err != nil {
		return h.writeServiceError(w, err, "Failed to fetch profile")
	}
	return writeData(w, profile)
}

type profileRequest struct {
	Wallet         string `json:"wallet"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

func (h *Handler) postProfile(w http.ResponseWriter, r *http.Request) int {
	var req profileRequest
	if err := decodeBody(w, r, &req); err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid request body")
	}
	if req.Wallet == "" || req.Username == "" {
		return writeError(w, http.StatusBadRequest, "Missing required fields")
	}

	entry, err := h.svc.SetProfile(r.Context(), req.Wallet, req.Username, req.ProfilePicture)
	if err != nil {
		return h.writeServiceError(w, err, "Failed to save profile")
	}
	return writeData(w, entry)
}

func (h *Handler) getUsernameAvailable(w http.ResponseWriter, r *http.Request) int {
	name := r.URL.Query().Get("username")
	if name == "" {
		return writeError(w, http.StatusBadRequest, "Missing required fields")
	}

	ok, err := h.svc.UsernameAvailable(r.Context(), name)
	if errors.Is(err, leaderboard.ErrInvalidInput) {
		return writeData(w, map[string]any{"available": false, "reason": err.Error()})
	}
	if err != nil {
		return h.writeServiceError(w, err, "Failed to check username")
	}
	return writeData(w, map[string]any{"available": ok})
}

type referralRequest struct {
	Wallet       string `json:"wallet"`
	ReferralCode string `json:"referralCode"`
}

func (h *Handler) postReferral(w http.ResponseWriter, r *http.Request) int {
	var req referralRequest
	if err := decodeBody(w, r, &req); err != nil {
		return writeError(w, http.StatusBadRequest, "Invalid request body")
	}
	if req.Wallet == "" || req.ReferralCode == "" {
		return writeError(w, http.StatusBadRequest, "Missing required fields")
	}

	entry, err := h.svc.SetReferralCode(r.Context(), req.Wallet, req.ReferralCode)
	if err != nil {
		return h.writeServiceError(w, err, "Failed to save referral code")
	}
	return writeData(w, entry)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) int {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		return writeError(w, http.StatusBadRequest, "Missing required fields")
	}

	events, err := h.svc.Activity(r.Context(), wallet, queryLimit(r))
	if err != nil {
		return h.writeServiceError(w, err, "Failed to fetch activity")
	}
	return writeData(w, events)
}
