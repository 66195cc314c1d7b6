package api

import (
	"encoding/json"
	"net/http"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIHandler serves the publisher and admin website APIs.
type APIHandler struct {
	websites     ports.WebsiteService
	verification ports.VerificationService
	moderation   ports.ModerationService
	keys         ports.APIKeyRepository
	limiter      *CheckLimiter
}

func NewAPIHandler(websites ports.WebsiteService, verification ports.VerificationService, moderation ports.ModerationService, keys ports.APIKeyRepository, limiter *CheckLimiter) *APIHandler {
	if limiter == nil {
		limiter = NewCheckLimiter(0)
	}
	return &APIHandler{
		websites:     websites,
		verification: verification,
		moderation:   moderation,
		keys:         keys,
		limiter:      limiter,
	}
}

// RegisterRoutes registers the API routes with the provided ServeMux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	// Public Routes
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	auth := AuthMiddleware(h.keys)
	member := RequireRole(domain.RolePublisher, domain.RoleAdmin)
	admin := RequireRole(domain.RoleAdmin)
	protected := func(fn http.HandlerFunc) http.Handler { return auth(member(fn)) }

	// Publisher routes (scoped by publisher_id from the API key)
	mux.Handle("POST /websites", protected(h.CreateWebsite))
	mux.Handle("GET /websites", protected(h.ListWebsites))
	mux.Handle("GET /websites/stats", protected(h.WebsiteStats))
	mux.Handle("GET /websites/{id}", protected(h.GetWebsite))
	mux.Handle("PATCH /websites/{id}", protected(h.UpdateWebsite))
	mux.Handle("DELETE /websites/{id}", protected(h.DeleteWebsite))
	mux.Handle("GET /websites/{id}/ad-code", protected(h.AdCode))
	mux.Handle("POST /websites/{id}/verification/initiate", protected(h.InitiateVerification))
	mux.Handle("POST /websites/{id}/verification/check", auth(member(h.limiter.Middleware(http.HandlerFunc(h.CheckVerification)))))
	mux.Handle("GET /websites/{id}/verification", protected(h.VerificationStatus))

	// Admin routes
	mux.Handle("GET /admin/websites", auth(admin(http.HandlerFunc(h.AdminListWebsites))))
	mux.Handle("GET /admin/websites/stats", auth(admin(http.HandlerFunc(h.WebsiteStats))))
	mux.Handle("GET /admin/websites/{id}", auth(admin(http.HandlerFunc(h.GetWebsite))))
	mux.Handle("PUT /admin/websites/{id}", auth(admin(http.HandlerFunc(h.UpdateWebsite))))
	mux.Handle("PATCH /admin/websites/{id}/status", auth(admin(http.HandlerFunc(h.AdminToggleStatus))))
	mux.Handle("POST /admin/websites/{id}/verification", auth(admin(http.HandlerFunc(h.AdminModerate))))
	mux.Handle("DELETE /admin/websites/{id}", auth(admin(http.HandlerFunc(h.DeleteWebsite))))
	mux.Handle("GET /admin/audit-logs", auth(admin(http.HandlerFunc(h.AdminAuditLogs))))
}

// HealthCheck handles health check requests.
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	details := make(map[string]string)
	for name, checkErr := range h.websites.HealthCheck(r.Context()) {
		if checkErr != nil {
			status = "DEGRADED"
			details[name] = checkErr.Error()
		} else {
			details[name] = "OK"
		}
	}

	code := http.StatusOK
	if status == "DEGRADED" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "details": details})
}

func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing publisher context")
	}
	return p, ok
}

type createWebsiteRequest struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
}

func (h *APIHandler) CreateWebsite(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	site, err := h.websites.CreateWebsite(r.Context(), p, req.Domain, req.Category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Website added successfully", site)
}

func (h *APIHandler) ListWebsites(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.websites.ListWebsites(r.Context(), p, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", page)
}

func (h *APIHandler) GetWebsite(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	site, err := h.websites.GetWebsite(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", site)
}

type updateWebsiteRequest struct {
	Category string `json:"category"`
}

func (h *APIHandler) UpdateWebsite(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req updateWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	site, err := h.websites.UpdateCategory(r.Context(), p, r.PathValue("id"), req.Category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Website updated successfully", site)
}

func (h *APIHandler) DeleteWebsite(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.websites.DeleteWebsite(r.Context(), p, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Website deleted successfully", nil)
}

func (h *APIHandler) AdCode(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	code, err := h.websites.AdCode(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]string{"websiteId": id, "adCode": code})
}

type initiateRequest struct {
	Method string `json:"method"`
}

func (h *APIHandler) InitiateVerification(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	method, err := domain.ParseMethod(req.Method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := h.verification.Initiate(r.Context(), p, r.PathValue("id"), method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, snap.Message, snap)
}

// CheckVerification always answers 200 once a check ran; the outcome is in the
// payload. Only precondition failures are reported as errors.
func (h *APIHandler) CheckVerification(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	snap, err := h.verification.Check(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: snap.Result != nil && snap.Result.Outcome == domain.OutcomeSuccess,
		Message: snap.Message,
		Data:    snap,
	})
}

func (h *APIHandler) VerificationStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	snap, err := h.verification.Status(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", snap)
}
