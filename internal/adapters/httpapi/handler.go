// Package httpapi exposes the HSE service over a JSON HTTP API. Every request
// under /api/v1 carries HTTP Basic credentials that are checked against the
// stored users; routes are gated by the tab that owns the data.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"hsecore/internal/blob"
	"hsecore/internal/core"
	"hsecore/pkg/domain"
)

// Handler serves the HSE API.
type Handler struct {
	svc      *core.Service
	exports  ExportScheduler
	notifier *core.Notifier
	logger   core.Logger
	ready    func(context.Context) error
	mux      *http.ServeMux
}

// Option configures optional handler collaborators.
type Option func(*Handler)

// WithExports enables the admin export routes.
func WithExports(exports ExportScheduler) Option {
	return func(h *Handler) { h.exports = exports }
}

// WithNotifier sets the notifier that success and error messages are pushed to.
func WithNotifier(n *core.Notifier) Option {
	return func(h *Handler) {
		if n != nil {
			h.notifier = n
		}
	}
}

// WithLogger sets the logger for unexpected errors.
func WithLogger(logger core.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithReadiness adds a check consulted by /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(h *Handler) { h.ready = check }
}

// NewHandler builds the API around svc.
func NewHandler(svc *core.Service, opts ...Option) *Handler {
	h := &Handler{
		svc:      svc,
		notifier: core.NewNotifier(core.ClockFunc(svc.Now)),
		logger:   discardLogger{},
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.routes()
	return h
}

// Notifier returns the notifier messages are pushed to.
func (h *Handler) Notifier() *core.Notifier { return h.notifier }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	h.mux.HandleFunc("GET /readyz", h.handleReady)

	authenticated := func(core.User) error { return nil }
	h.mux.HandleFunc("GET /api/v1/session", h.guard(authenticated, h.handleSession))
	h.mux.HandleFunc("GET /api/v1/notifications", h.guard(authenticated, h.handleNotifications))
	h.mux.HandleFunc("DELETE /api/v1/notifications/{id}", h.guard(authenticated, h.handleDismiss))
	h.mux.HandleFunc("POST /api/v1/dates/clamp", h.guard(authenticated, h.handleClampDate))

	h.personnelRoutes(tab(domain.TabOccupationalMedicine))
	h.treatmentRoutes(tab(domain.TabTreatment))
	h.safetyRoutes(tab(domain.TabSafety))
	h.fireRoutes(tab(domain.TabFireDepartment))
	h.adminRoutes(core.RequireAdmin)
}

// ownerKey carries the authenticated username that notifications are addressed to.
type ownerKey struct{}

func ownerOf(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey{}).(string)
	return owner
}

type authedFunc func(w http.ResponseWriter, r *http.Request, user core.User)

// guard authenticates the request and applies gate before calling next.
func (h *Handler) guard(gate func(core.User) error, next authedFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="hse"`)
			h.writeError(w, r, core.ErrInvalidCredentials)
			return
		}
		user, err := h.svc.Authenticate(r.Context(), username, password)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="hse"`)
			h.writeError(w, r, err)
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), ownerKey{}, user.Username))
		if err := gate(user); err != nil {
			h.writeError(w, r, err)
			return
		}
		next(w, r, user)
	}
}

func tab(t domain.Tab) func(core.User) error {
	return func(u core.User) error { return core.RequireTab(u, t) }
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.ListUsers(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
		return
	}
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request, user core.User) {
	initial, err := core.InitialTab(user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        user,
		"tabs":        core.VisibleTabs(user),
		"initial_tab": initial,
		"today":       h.svc.Today().String(),
	})
}

func (h *Handler) handleNotifications(w http.ResponseWriter, _ *http.Request, user core.User) {
	writeJSON(w, http.StatusOK, map[string]any{"notifications": h.notifier.Active(user.Username)})
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request, user core.User) {
	if !h.notifier.Dismiss(user.Username, r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, map[string]any{"dismissed": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dismissed": true})
}

func (h *Handler) handleClampDate(w http.ResponseWriter, r *http.Request, _ core.User) {
	var req struct {
		Input string `json:"input"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": domain.ClampJalaliInput(req.Input)})
}

type violationView struct {
	Rule     string            `json:"rule"`
	Severity domain.Severity   `json:"severity"`
	Message  string            `json:"message"`
	Entity   domain.EntityType `json:"entity"`
	EntityID string            `json:"entity_id,omitempty"`
}

func warningsOf(res core.Result) []violationView {
	warnings := res.Warnings()
	if len(warnings) == 0 {
		return nil
	}
	out := make([]violationView, 0, len(warnings))
	for _, v := range warnings {
		out = append(out, violationView{Rule: v.Rule, Severity: v.Severity, Message: v.Message, Entity: v.Entity, EntityID: v.EntityID})
	}
	return out
}

// mutated writes a successful mutation, pushing message as a success
// notification. Rule warnings are reported alongside.
func (h *Handler) mutated(w http.ResponseWriter, r *http.Request, status int, key string, value any, res core.Result, message string) {
	body := map[string]any{key: value}
	if warnings := warningsOf(res); warnings != nil {
		body["warnings"] = warnings
	}
	body["notification"] = h.notifier.Push(ownerOf(r), core.NotificationSuccess, message)
	writeJSON(w, status, body)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"notification": core.Notification{Kind: core.NotificationError, Message: "invalid request payload"},
		})
		return false
	}
	return true
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var validation core.ValidationError
	var notFound core.ErrNotFound
	var exists core.ErrAlreadyExists
	var violation core.RuleViolationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &violation), errors.As(err, &exists):
		return http.StatusConflict
	case errors.Is(err, core.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrExportQueueFull):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError replies with {"notification": ...}. Errors of authenticated
// requests are also pushed to the caller's notifications.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	note := core.NotificationFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		note.Message = "internal error"
	}
	if owner := ownerOf(r); owner != "" && status != http.StatusUnauthorized {
		note = h.notifier.Push(owner, note.Kind, note.Message)
	}
	writeJSON(w, status, map[string]any{"notification": note})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
