// Package api exposes HTTP handlers for the training-log service.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"example.com/traininglog/internal/auth"
	"example.com/traininglog/internal/domain"
	"example.com/traininglog/internal/observability"
	"example.com/traininglog/internal/ratelimit"
)

const timestampLayout = "2006-01-02 15:04:05"

// Credentials holds the single configured account.
type Credentials struct {
	Username     string
	PasswordHash string // bcrypt
}

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service   *domain.Service
	sessions  *auth.Manager
	limiter   ratelimit.Limiter
	creds     Credentials
	syncToken string
	log       *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, sessions *auth.Manager, limiter ratelimit.Limiter, creds Credentials, syncToken string, log *zap.Logger) *Handler {
	return &Handler{
		service:   service,
		sessions:  sessions,
		limiter:   limiter,
		creds:     creds,
		syncToken: syncToken,
		log:       log,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/login", h.login)
	mux.HandleFunc("/api/logout", h.logout)
	mux.HandleFunc("/api/me", h.me)
	mux.HandleFunc("/api/csrf", h.csrf)
	mux.HandleFunc("/api/sessions", h.trainingSessions)
	mux.HandleFunc("/api/sync", h.sync)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

/* ----------------------------------------------------------------------
   Auth endpoints
   ---------------------------------------------------------------------- */

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	key := clientKey(r)
	if !h.limiter.Allow(key) {
		writeError(w, http.StatusTooManyRequests, "too many attempts")
		return
	}

	// Same generic failure for unknown user and wrong password.
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.creds.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.creds.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		h.limiter.RecordFailure(key)
		observability.RecordLoginFailure()
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.sessions.Establish(w, r, req.Username)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ident, ok := h.requireAuth(w, r)
	if !ok {
		return
	}
	if !h.requireCSRF(w, r, ident) {
		return
	}
	h.sessions.Destroy(w, r)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := h.requireAuth(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) csrf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ident, ok := h.requireAuth(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": ident.CSRFToken})
}

/* ----------------------------------------------------------------------
   Primary API: /api/sessions
   ---------------------------------------------------------------------- */

func (h *Handler) trainingSessions(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.listSessions(w, r)
	case http.MethodPost:
		if !h.requireCSRF(w, r, ident) {
			return
		}
		h.upsertSessions(w, r)
	case http.MethodDelete:
		if !h.requireCSRF(w, r, ident) {
			return
		}
		h.deleteSession(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	since := r.URL.Query().Get("since")

	// Day overview (explicit user intent).
	if date != "" && domain.IsISODate(date) {
		recs, err := h.service.ListByDate(r.Context(), date)
		if err != nil {
			h.storageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionViews(recs))
		return
	}

	// Incremental pull for the analytics tool.
	if since != "" && domain.IsISODate(since) {
		cursor, err := time.Parse("2006-01-02", since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
		recs, err := h.service.ListSince(r.Context(), cursor)
		if err != nil {
			h.storageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSessionViews(recs))
		return
	}

	// Default: recent sessions.
	recs, err := h.service.ListRecent(r.Context())
	if err != nil {
		h.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionViews(recs))
}

func (h *Handler) upsertSessions(w http.ResponseWriter, r *http.Request) {
	var body upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	// Batch mode: { items: [...] }.
	if body.Items != nil {
		recs := make([]domain.TrainingSession, 0, len(body.Items))
		for _, item := range body.Items {
			recs = append(recs, item.toDomain())
		}
		count, err := h.service.ImportBatch(r.Context(), recs)
		if err != nil {
			h.storageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "upserted": count})
		return
	}

	// Single record from the browser form.
	if err := h.service.Upsert(r.Context(), body.toDomain()); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		h.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UUID string `json:"uuid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if err := h.service.Delete(r.Context(), req.UUID); err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, domain.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "not found")
		default:
			h.storageError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

/* ----------------------------------------------------------------------
   Sync API: /api/sync
   ---------------------------------------------------------------------- */

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Sync-Token")
	if h.syncToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.syncToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.syncUpsert(w, r)
	case http.MethodGet:
		h.syncPull(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) syncUpsert(w http.ResponseWriter, r *http.Request) {
	var body upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Items == nil {
		writeError(w, http.StatusBadRequest, "no items")
		return
	}

	recs := make([]domain.TrainingSession, 0, len(body.Items))
	for _, item := range body.Items {
		recs = append(recs, item.toDomain())
	}
	count, err := h.service.SyncBatch(r.Context(), recs)
	if err != nil {
		h.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "upserted": count})
}

func (h *Handler) syncPull(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		raw = "1970-01-01 00:00:00"
	}

	cursor, err := parseSince(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid since")
		return
	}

	recs, err := h.service.ListSince(r.Context(), cursor)
	if err != nil {
		h.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSyncViews(recs))
}

func parseSince(raw string) (time.Time, error) {
	if ts, err := time.Parse(timestampLayout, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}

/* ----------------------------------------------------------------------
   Guards and helpers
   ---------------------------------------------------------------------- */

func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return ident, true
}

func (h *Handler) requireCSRF(w http.ResponseWriter, r *http.Request, ident *auth.Identity) bool {
	if !auth.VerifyCSRF(r, ident) {
		writeError(w, http.StatusForbidden, "invalid csrf token")
		return false
	}
	return true
}

func (h *Handler) storageError(w http.ResponseWriter, err error) {
	h.log.Error("storage failure", zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, "storage unavailable")
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

/* ----------------------------------------------------------------------
   Request / response types
   ---------------------------------------------------------------------- */

// sessionPayload mirrors one training-session record on the wire. Duration
// is a pointer so an absent field is rejected instead of defaulting to the
// valid value 0.
type sessionPayload struct {
	SessionDate     string  `json:"session_date"`
	ActivityType    string  `json:"activity_type"`
	DurationMinutes *int    `json:"duration_minutes"`
	EnergyLevel     int     `json:"energy_level"`
	SessionEmphasis string  `json:"session_emphasis"`
	RPE             *int    `json:"rpe"`
	Notes           *string `json:"notes"`
	UUID            string  `json:"uuid"`
	Deleted         int     `json:"deleted"`
}

func (p sessionPayload) toDomain() domain.TrainingSession {
	duration := -1
	if p.DurationMinutes != nil {
		duration = *p.DurationMinutes
	}
	return domain.TrainingSession{
		SessionDate:     p.SessionDate,
		ActivityType:    p.ActivityType,
		DurationMinutes: duration,
		EnergyLevel:     p.EnergyLevel,
		SessionEmphasis: p.SessionEmphasis,
		RPE:             p.RPE,
		Notes:           p.Notes,
		UUID:            p.UUID,
		Deleted:         p.Deleted,
	}
}

// upsertRequest accepts either a bare record or a batch under "items".
type upsertRequest struct {
	sessionPayload
	Items []sessionPayload `json:"items"`
}

// SessionView is the browser-facing row representation.
type SessionView struct {
	ID              int64   `json:"id"`
	SessionDate     string  `json:"session_date"`
	ActivityType    string  `json:"activity_type"`
	DurationMinutes int     `json:"duration_minutes"`
	EnergyLevel     int     `json:"energy_level"`
	SessionEmphasis string  `json:"session_emphasis"`
	RPE             *int    `json:"rpe"`
	Notes           *string `json:"notes"`
	UUID            string  `json:"uuid"`
	Deleted         int     `json:"deleted"`
	UpdatedAt       string  `json:"updated_at"`
}

// SyncSessionView omits the surrogate id; sync consumers key on uuid.
type SyncSessionView struct {
	SessionDate     string  `json:"session_date"`
	ActivityType    string  `json:"activity_type"`
	DurationMinutes int     `json:"duration_minutes"`
	EnergyLevel     int     `json:"energy_level"`
	SessionEmphasis string  `json:"session_emphasis"`
	RPE             *int    `json:"rpe"`
	Notes           *string `json:"notes"`
	UUID            string  `json:"uuid"`
	Deleted         int     `json:"deleted"`
	UpdatedAt       string  `json:"updated_at"`
}

func toSessionViews(recs []domain.TrainingSession) []SessionView {
	views := make([]SessionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, SessionView{
			ID:              rec.ID,
			SessionDate:     rec.SessionDate,
			ActivityType:    rec.ActivityType,
			DurationMinutes: rec.DurationMinutes,
			EnergyLevel:     rec.EnergyLevel,
			SessionEmphasis: rec.SessionEmphasis,
			RPE:             rec.RPE,
			Notes:           rec.Notes,
			UUID:            rec.UUID,
			Deleted:         rec.Deleted,
			UpdatedAt:       rec.UpdatedAt.UTC().Format(timestampLayout),
		})
	}
	return views
}

func toSyncViews(recs []domain.TrainingSession) []SyncSessionView {
	views := make([]SyncSessionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, SyncSessionView{
			SessionDate:     rec.SessionDate,
			ActivityType:    rec.ActivityType,
			DurationMinutes: rec.DurationMinutes,
			EnergyLevel:     rec.EnergyLevel,
			SessionEmphasis: rec.SessionEmphasis,
			RPE:             rec.RPE,
			Notes:           rec.Notes,
			UUID:            rec.UUID,
			Deleted:         rec.Deleted,
			UpdatedAt:       rec.UpdatedAt.UTC().Format(timestampLayout),
		})
	}
	return views
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
