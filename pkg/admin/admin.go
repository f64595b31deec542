// Package admin provides the /_admin/* control plane of the Shopify twin:
// state management, fault injection, request inspection and clock control.
// It lives outside /admin because that namespace belongs to the simulated API.
package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wondertwin-ai/shopkit/pkg/store"
	"github.com/wondertwin-ai/shopkit/pkg/twincore"
)

// Prefix is the mount point of the control plane.
const Prefix = "/_admin"

// StateStore is the interface a twin must implement to support admin state management.
type StateStore interface {
	// Snapshot returns the full state as a JSON-serializable value.
	Snapshot() any
	// LoadState replaces the full state from a JSON body.
	LoadState(data []byte) error
	// Reset clears all state and reloads seed data.
	Reset()
}

// Seeder is implemented by state stores that accept fixture files on top
// of the current state.
type Seeder interface {
	LoadSeed(data []byte) error
}

// TokenIssuer is implemented by state stores that mint access tokens, the
// way a finished OAuth install would. scope is a comma separated list; the
// granted scope is returned normalized.
type TokenIssuer interface {
	IssueAccessToken(shop, scope string) (token, granted string, err error)
}

// ConfigProvider exposes runtime-tunable twin settings (latency, fail rate, verbosity).
type ConfigProvider interface {
	GetConfig() map[string]any
	UpdateConfig(updates map[string]any) error
}

// Handler provides the shared admin endpoints.
type Handler struct {
	state  StateStore
	config ConfigProvider
	mw     *twincore.Middleware
	clock  *store.Clock
}

// NewHandler creates a new admin handler.
func NewHandler(state StateStore, mw *twincore.Middleware, clock *store.Clock) *Handler {
	return &Handler{
		state: state,
		mw:    mw,
		clock: clock,
	}
}

// SetConfigProvider enables the /config endpoints.
func (h *Handler) SetConfigProvider(c ConfigProvider) {
	h.config = c
}

// Routes mounts the admin endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route(Prefix, func(r chi.Router) {
		r.Post("/reset", h.handleReset)
		r.Get("/state", h.handleGetState)
		r.Post("/state", h.handleLoadState)
		r.Post("/seed", h.handleSeed)
		r.Post("/tokens", h.handleIssueToken)
		r.Post("/fault/*", h.handleInjectFault)
		r.Delete("/fault/*", h.handleRemoveFault)
		r.Get("/faults", h.handleListFaults)
		r.Get("/requests", h.handleGetRequests)
		r.Post("/time/advance", h.handleTimeAdvance)
		r.Get("/time", h.handleGetTime)
		r.Get("/config", h.handleGetConfig)
		r.Put("/config", h.handleUpdateConfig)
		r.Get("/health", h.handleHealth)
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.state.Reset()
	h.mw.ReqLog.Clear()
	h.mw.Faults.Reset()
	h.mw.Calls.Reset()
	if h.clock != nil {
		h.clock.Reset()
	}
	twincore.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.state.Snapshot())
}

// readBody returns the request body, answering 400 itself on failure.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		twincore.Error(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return nil, false
	}
	return body, true
}

func (h *Handler) handleLoadState(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := h.state.LoadState(body); err != nil {
		twincore.Error(w, http.StatusBadRequest, "failed to load state: "+err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	seeder, ok := h.state.(Seeder)
	if !ok {
		twincore.Error(w, http.StatusNotImplemented, "seeding not supported")
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := seeder.LoadSeed(body); err != nil {
		twincore.Error(w, http.StatusBadRequest, "failed to load seed: "+err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]string{"status": "seeded"})
}

// handleIssueToken answers like Shopify's OAuth token exchange:
// {"access_token": "...", "scope": "read_orders,write_orders"}.
func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	issuer, ok := h.state.(TokenIssuer)
	if !ok {
		twincore.Error(w, http.StatusNotImplemented, "token issuing not supported")
		return
	}
	var req struct {
		Shop  string `json:"shop"`
		Scope string `json:"scope"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		twincore.Error(w, http.StatusBadRequest, "invalid token request: "+err.Error())
		return
	}
	token, granted, err := issuer.IssueAccessToken(req.Shop, req.Scope)
	if err != nil {
		twincore.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]string{"access_token": token, "scope": granted})
}

// faultPath recovers the API path from the wildcard, e.g.
// POST /_admin/fault/admin/orders.json targets /admin/orders.json.
func faultPath(r *http.Request) string {
	return "/" + chi.URLParam(r, "*")
}

func (h *Handler) handleInjectFault(w http.ResponseWriter, r *http.Request) {
	endpoint := faultPath(r)

	var fault twincore.FaultConfig
	if err := json.NewDecoder(r.Body).Decode(&fault); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid fault config: "+err.Error())
		return
	}
	h.mw.Faults.Set(endpoint, fault)
	twincore.JSON(w, http.StatusOK, map[string]any{
		"status":   "injected",
		"endpoint": endpoint,
		"fault":    fault,
	})
}

func (h *Handler) handleRemoveFault(w http.ResponseWriter, r *http.Request) {
	endpoint := faultPath(r)
	if !h.mw.Faults.Remove(endpoint) {
		twincore.Error(w, http.StatusNotFound, "no fault registered for "+endpoint)
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"status": "removed", "endpoint": endpoint})
}

func (h *Handler) handleListFaults(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.mw.Faults.All())
}

func (h *Handler) handleGetRequests(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.mw.ReqLog.Entries())
}

func (h *Handler) handleTimeAdvance(w http.ResponseWriter, r *http.Request) {
	if h.clock == nil {
		twincore.Error(w, http.StatusBadRequest, "simulated clock not configured")
		return
	}

	var req struct {
		Duration string `json:"duration"` // Go duration string, e.g., "24h", "30m"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid duration: "+err.Error())
		return
	}

	h.clock.Advance(d)
	twincore.JSON(w, http.StatusOK, map[string]any{
		"status":    "advanced",
		"duration":  d.String(),
		"offset":    h.clock.Offset().String(),
		"simulated": h.clock.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleGetTime(w http.ResponseWriter, r *http.Request) {
	if h.clock == nil {
		twincore.JSON(w, http.StatusOK, map[string]any{
			"real": time.Now().Format(time.RFC3339),
		})
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{
		"real":      time.Now().Format(time.RFC3339),
		"simulated": h.clock.Now().Format(time.RFC3339),
		"offset":    h.clock.Offset().String(),
	})
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if h.config == nil {
		twincore.Error(w, http.StatusNotImplemented, "runtime config not available")
		return
	}
	twincore.JSON(w, http.StatusOK, h.config.GetConfig())
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	if h.config == nil {
		twincore.Error(w, http.StatusNotImplemented, "runtime config not available")
		return
	}
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid config: "+err.Error())
		return
	}
	if err := h.config.UpdateConfig(updates); err != nil {
		twincore.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, h.config.GetConfig())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
