package company

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/company-management/internal"
	"github.com/frahmantamala/company-management/internal/auth"
	"github.com/frahmantamala/company-management/internal/transport"
	"github.com/frahmantamala/company-management/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type ServiceAPI interface {
	Create(ctx context.Context, userID int64, dto CompanyDTO) (*Company, error)
	Get(companyID uuid.UUID) (*Company, []*Partner, error)
	Update(ctx context.Context, companyID uuid.UUID, actorID int64, dto CompanyDTO) (*Company, error)
	Deactivate(ctx context.Context, companyID uuid.UUID, actorID int64) error
	Reactivate(ctx context.Context, companyID uuid.UUID, actorID int64) error
	SwitchCompany(userID int64, companyID uuid.UUID) (*Membership, error)
	ListMembers(companyID uuid.UUID) ([]*Member, error)
	AddMember(ctx context.Context, companyID uuid.UUID, actorID int64, dto AddMemberDTO) (*Membership, error)
	SetMemberActive(ctx context.Context, companyID, membershipID uuid.UUID, actorID int64, active bool) error
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Sessions SessionStore
}

func NewHandler(svc ServiceAPI, sessions SessionStore) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Sessions:    sessions,
	}
}

// Create handles POST /companies: the onboarding flow. On success the new
// company becomes the session's current company.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), 0)
	defer cancel()

	c, err := h.Service.Create(ctx, user.ID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := h.Sessions.SetCurrentCompany(w, r, c.ID); err != nil {
		h.Logger.Warn("create company: failed to persist session company", "error", err)
	}

	_, partners, err := h.Service.Get(c.ID)
	if err != nil {
		h.Logger.Error("create company: reload failed", "error", err, "company_id", c.ID)
		h.WriteJSON(w, http.StatusCreated, CompanyResponse{Company: *c})
		return
	}

	h.WriteJSON(w, http.StatusCreated, CompanyResponse{Company: *c, Partners: partners})
}

// GetCurrent handles GET /companies/current
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	tc, ok := TenantFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusForbidden, "no company bound")
		return
	}

	c, partners, err := h.Service.Get(tc.Company.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CompanyResponse{Company: *c, Partners: partners})
}

// UpdateCurrent handles PUT /companies/current
func (h *Handler) UpdateCurrent(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	tc, ok := TenantFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusForbidden, "no company bound")
		return
	}

	var dto CompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), 0)
	defer cancel()

	c, err := h.Service.Update(ctx, tc.Company.ID, user.ID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	_, partners, err := h.Service.Get(c.ID)
	if err != nil {
		h.WriteJSON(w, http.StatusOK, CompanyResponse{Company: *c})
		return
	}

	h.WriteJSON(w, http.StatusOK, CompanyResponse{Company: *c, Partners: partners})
}

// DeactivateCurrent handles DELETE /companies/current: the soft delete. The
// session pointer is cleared so the next request re-resolves.
func (h *Handler) DeactivateCurrent(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	tc, ok := TenantFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusForbidden, "no company bound")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), 0)
	defer cancel()

	if err := h.Service.Deactivate(ctx, tc.Company.ID, user.ID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := h.Sessions.ClearCurrentCompany(w, r); err != nil {
		h.Logger.Warn("deactivate company: failed to clear session", "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reactivate handles POST /companies/{id}/reactivate. It lives outside the
// tenant-bound group because a deactivated company can never be the bound
// tenant; the service checks the actor holds an admin seat there.
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	companyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), 0)
	defer cancel()

	if err := h.Service.Reactivate(ctx, companyID, user.ID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Switch handles POST /companies/switch
func (h *Handler) Switch(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto SwitchCompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	companyID, err := dto.Parse()
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.Service.SwitchCompany(user.ID, companyID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := h.Sessions.SetCurrentCompany(w, r, m.CompanyID); err != nil {
		h.Logger.Error("switch company: failed to persist session", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"company_id": m.CompanyID.String()})
}

// ListMembers handles GET /companies/current/members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	tc, ok := TenantFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusForbidden, "no company bound")
		return
	}

	members, err := h.Service.ListMembers(tc.Company.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, members)
}

// AddMember handles POST /companies/current/members
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	tc, ok := TenantFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusForbidden, "no company bound")
		return
	}

	var dto AddMemberDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), 0)
	defer cancel()

	m, err := h.Service.AddMember(ctx, tc.Company.ID, user.ID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, m)
}

// DeactivateMember handles PATCH /companies/current/members/{id}/deactivate
func (h *Handler) DeactivateMember(w http.ResponseWriter, r *http.Request) {
	h.setMemberActive(w, r, false)
}

// ReactivateMember handles PATCH /companies/current/members/{id}/reactivate
func (h *Handler) ReactivateMember(w http.ResponseWriter, r *http.Request) {
	h.setMemberActive(w, r, true)
}

func (h *Handler) setMemberActive(w http.ResponseWriter, r *http.Request, active bool) {
	user, _ := auth.UserFromContext(r.Context())
	tc, ok := TenantFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusForbidden, "no company bound")
		return
	}

	membershipID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid membership id")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), 0)
	defer cancel()

	if err := h.Service.SetMemberActive(ctx, tc.Company.ID, membershipID, user.ID, active); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch err {
	case ErrDuplicateRegistration:
		h.HandleError(w, internal.NewConflictError(err.Error(), internal.ErrCodeDuplicateRegistration))
	case ErrAlreadyHasCompany:
		h.HandleError(w, internal.NewConflictError(err.Error(), internal.ErrCodeAlreadyMemberElsewhere))
	case ErrDuplicateMembership:
		h.HandleError(w, internal.NewConflictError(err.Error(), internal.ErrCodeDuplicateMembership))
	case ErrCompanyNotFound:
		h.HandleError(w, internal.NewNotFoundError(err.Error(), internal.ErrCodeCompanyNotFound))
	case ErrMembershipNotFound:
		h.HandleError(w, internal.NewNotFoundError(err.Error(), internal.ErrCodeMembershipNotFound))
	case ErrUserNotFound:
		h.HandleError(w, internal.NewNotFoundError(err.Error(), internal.ErrCodeUserNotFound))
	case ErrNotCompanyAdmin:
		h.HandleError(w, internal.ErrRoleDenied)
	default:
		if _, ok := err.(interface{ Timeout() bool }); ok {
			h.WriteError(w, http.StatusGatewayTimeout, "request timed out")
			return
		}
		// validation errors from DTOs arrive as plain errors
		if isValidationError(err) {
			h.HandleError(w, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed))
			return
		}
		h.Logger.Error("company handler: unexpected error", "error", err)
		h.HandleError(w, internal.NewInternalError("internal server error", err))
	}
}
