package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
)

// parseFilter reads listing filters from query parameters. Unknown sort fields
// fall back to the default ordering.
func parseFilter(q url.Values) (domain.WebsiteFilter, error) {
	f := domain.WebsiteFilter{
		PublisherID: q.Get("publisherId"),
		Search:      q.Get("search"),
		SortBy:      domain.SortField(q.Get("sortBy")),
		SortDesc:    !strings.EqualFold(q.Get("sortOrder"), "asc"),
	}
	if s := q.Get("status"); s != "" {
		st := domain.WebsiteStatus(strings.ToLower(s))
		if !st.Valid() {
			return f, domain.NewError(domain.ErrValidation, "INVALID_STATUS", "unknown status "+s)
		}
		f.Status = st
	}
	if c := q.Get("category"); c != "" {
		cat, err := domain.ParseCategory(c)
		if err != nil {
			return f, err
		}
		f.Category = cat
	}
	if v := q.Get("isVerified"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, domain.NewError(domain.ErrValidation, "INVALID_FILTER", "isVerified must be true or false")
		}
		f.IsVerified = &b
	}
	var err error
	if f.Page, err = intParam(q, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(q, "limit"); err != nil {
		return f, err
	}
	return f, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.NewError(domain.ErrValidation, "INVALID_FILTER", name+" must be a positive integer")
	}
	return n, nil
}

func (h *APIHandler) AdminListWebsites(w http.ResponseWriter, r *http.Request) {
	h.ListWebsites(w, r)
}

// WebsiteStats serves both dashboards; admins get global counts, publishers
// their own.
func (h *APIHandler) WebsiteStats(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	stats, err := h.websites.Stats(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", stats)
}

type moderateRequest struct {
	Action string `json:"action"`
}

// moderationAliases maps dashboard wording onto the three moderation actions.
var moderationAliases = map[string]ports.ModerationAction{
	"approve":    ports.ActionApprove,
	"reactivate": ports.ActionApprove,
	"reject":     ports.ActionReject,
	"suspend":    ports.ActionReject,
	"reset":      ports.ActionReset,
}

func (h *APIHandler) AdminModerate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req moderateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	action, known := moderationAliases[strings.ToLower(req.Action)]
	if !known {
		writeError(w, r, domain.NewError(domain.ErrValidation, domain.CodeInvalidAction, "action must be approve, reject or reset"))
		return
	}
	site, err := h.moderation.Moderate(r.Context(), p, r.PathValue("id"), action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Website "+string(action)+" applied", site)
}

func (h *APIHandler) AdminToggleStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	site, err := h.moderation.Moderate(r.Context(), p, r.PathValue("id"), ports.ActionToggle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Website status changed to "+string(site.Status), site)
}

func (h *APIHandler) AdminAuditLogs(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	logs, err := h.websites.ListAuditLogs(r.Context(), p, r.URL.Query().Get("publisherId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []domain.AuditLog{}
	}
	writeSuccess(w, http.StatusOK, "", logs)
}
