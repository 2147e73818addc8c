package user

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/company-management/internal"
	"github.com/frahmantamala/company-management/internal/auth"
	"github.com/frahmantamala/company-management/internal/company"
	"github.com/frahmantamala/company-management/internal/transport"
	"github.com/frahmantamala/company-management/pkg/logger"
)

type ServiceAPI interface {
	Register(dto SignupDTO) (*User, error)
	GetByID(userID int64) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Signup handles POST /auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var dto SignupDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Service.Register(dto)
	if err != nil {
		if err == ErrDuplicateEmail {
			h.HandleError(w, internal.NewConflictError("email already registered", internal.ErrCodeDuplicateEmail))
			return
		}
		h.Logger.Error("signup failed", "error", err)
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.WriteJSON(w, http.StatusCreated, u.ToResponse())
}

type currentUserResponse struct {
	UserResponse
	CurrentCompany *currentCompanyView `json:"current_company,omitempty"`
}

type currentCompanyView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	authUser, ok := auth.UserFromContext(r.Context())
	if !ok || authUser == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.Service.GetByID(authUser.ID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: lookup failed", "user_id", authUser.ID, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := currentUserResponse{UserResponse: u.ToResponse()}
	if tc, ok := company.TenantFromContext(r.Context()); ok {
		resp.CurrentCompany = &currentCompanyView{
			ID:   tc.Company.ID.String(),
			Name: tc.Company.DisplayName(),
			Role: string(tc.Membership.Role),
		}
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
