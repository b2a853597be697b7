package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/seivahq/painel/modules/proposal/domain/ports"
	"github.com/seivahq/painel/modules/proposal/domain/types"
	"github.com/seivahq/painel/modules/proposal/infrastructure/autentique"
	"github.com/seivahq/painel/modules/proposal/services"
)

type TenantGetter func(ctx context.Context) (types.TenantProfile, bool)

// BrandingStorage mints a short-lived signed URL for a tenant logo
// object. Implemented by the object-storage adapter; nil disables
// logo resolution.
type BrandingStorage interface {
	SignedURL(ctx context.Context, objectPath string) (string, error)
}

// ProposalController serves the unauthenticated public endpoint. The
// proposal token carried in the query string is the entire access
// control; there is no session and no staff identity here.
type ProposalController struct {
	Tenant    TenantGetter
	Proposals ports.ProposalStore
	Parties   ports.PartyStore
	Service   services.ProposalService
	Branding  BrandingStorage
}

type proposalActionRequest struct {
	Action string `json:"action"`
}

func (c ProposalController) HandleProposalAPI(w http.ResponseWriter, r *http.Request) {
	tenant, ok := c.Tenant(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "tenant_missing", "")
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "token is required")
		return
	}

	prop, found, err := c.Proposals.GetByToken(r.Context(), tenant.ID, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "proposal_not_found", "")
		return
	}

	switch r.Method {
	case http.MethodGet:
		c.handleGet(w, r, tenant, prop)
	case http.MethodPost:
		c.handlePost(w, r, tenant, prop)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}

func (c ProposalController) handleGet(w http.ResponseWriter, r *http.Request, tenant types.TenantProfile, prop types.Proposal) {
	// Every read is a chance to notice an external state change; a
	// failed poll must never fail the read itself.
	prop = c.Service.Reconcile(r.Context(), tenant, prop)

	party, found, err := c.Parties.GetParty(r.Context(), tenant.ID, prop.PartyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "party_not_found", "")
		return
	}

	scope, err := c.Service.Scope.Resolve(r.Context(), tenant.ID, prop.SelectedIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	tenantOut := map[string]any{
		"slug": tenant.Slug,
		"name": tenant.Name,
	}
	if c.Branding != nil && tenant.LogoPath != "" {
		if u, err := c.Branding.SignedURL(r.Context(), tenant.LogoPath); err == nil && u != "" {
			tenantOut["logo_url"] = u
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"tenant": tenantOut,
		"party":  party,
		"proposal": map[string]any{
			"id":              prop.ID,
			"status":          prop.Status,
			"approved_at":     prop.ApprovedAt,
			"selected_ids":    prop.SelectedIDs,
			"signing_link":    prop.Signing.SigningLink,
			"external_status": prop.Signing.ExternalStatus,
		},
		"scope": map[string]any{
			"commitments": scope.Commitments,
			"items":       scope.Items,
			"offerings":   scope.Offerings,
			"templates":   scope.Templates,
			"lines":       scope.Lines,
		},
	})
}

func (c ProposalController) handlePost(w http.ResponseWriter, r *http.Request, tenant types.TenantProfile, prop types.Proposal) {
	var req proposalActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "")
		return
	}

	switch strings.TrimSpace(req.Action) {
	case "approve":
		meta := types.ApprovalMeta{
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
		}
		res, err := c.Service.Approve(r.Context(), tenant, prop, meta)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "")
			return
		}
		if res.Already {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "already": true, "approved_at": res.ApprovedAt})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case "sign":
		res, err := c.Service.Sign(r.Context(), tenant, prop)
		if err != nil {
			status, code, detail := signErrorResponse(err)
			writeError(w, status, code, detail)
			return
		}
		out := map[string]any{"ok": true, "signing_link": res.SigningLink, "document_id": res.DocumentID}
		if res.Already {
			out["already"] = true
		}
		writeJSON(w, http.StatusOK, out)

	default:
		writeError(w, http.StatusBadRequest, "invalid_action", "action must be approve or sign")
	}
}

// signErrorResponse maps sign failures to stable codes: precondition
// errors stay 4xx and recoverable, provider errors surface the
// provider's own code verbatim because they need operator attention.
func signErrorResponse(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrScopeNotApproved):
		return http.StatusForbidden, services.ErrScopeNotApproved.Error(), ""
	case errors.Is(err, services.ErrMissingCustomerEmail):
		return http.StatusBadRequest, services.ErrMissingCustomerEmail.Error(), ""
	case errors.Is(err, services.ErrPartyNotFound):
		return http.StatusNotFound, services.ErrPartyNotFound.Error(), ""
	}
	var pe *autentique.HTTPError
	if errors.As(err, &pe) {
		return http.StatusInternalServerError, pe.Code(), pe.Message
	}
	var me *autentique.MalformedResponseError
	if errors.As(err, &me) {
		return http.StatusInternalServerError, "autentique_malformed_response", me.Detail
	}
	return http.StatusInternalServerError, "internal_error", ""
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, detail string) {
	out := map[string]any{"ok": false, "error": code}
	if detail != "" {
		out["detail"] = detail
	}
	writeJSON(w, status, out)
}
