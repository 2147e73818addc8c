package company

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/company-management/internal"
	"github.com/frahmantamala/company-management/internal/auth"
	"github.com/google/uuid"
)

// TenantContext is the company a request operates as, with the caller's seat
// in it. It is bound once per request by the TenantBinder and consumed by
// the role gate and the handlers.
type TenantContext struct {
	Company    *Company
	Membership *Membership
}

type tenantCtxKey string

const contextTenantKey tenantCtxKey = "tenantContext"

func TenantFromContext(ctx context.Context) (*TenantContext, bool) {
	tc, ok := ctx.Value(contextTenantKey).(*TenantContext)
	return tc, ok
}

func ContextWithTenant(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, contextTenantKey, tc)
}

// TenantResolver is the slice of the repository the binder needs.
type TenantResolver interface {
	ActiveMembership(userID int64, companyID uuid.UUID) (*Membership, *Company, error)
	FirstActiveMembership(userID int64) (*Membership, *Company, error)
}

// TenantBinder resolves which company an authenticated request acts within.
//
// Resolution order: the session pointer if it still refers to an active
// membership in an active company; otherwise the user's earliest-joined
// active membership (writing it back to the session); otherwise a redirect
// to onboarding. Stale session pointers are cleared, never surfaced.
type TenantBinder struct {
	repo           TenantResolver
	sessions       SessionStore
	exemptPrefixes []string
	onboardingPath string
	logger         *slog.Logger
}

func NewTenantBinder(repo TenantResolver, sessions SessionStore, cfg internal.TenancyConfig, logger *slog.Logger) *TenantBinder {
	cfg.ApplyDefaults()
	return &TenantBinder{
		repo:           repo,
		sessions:       sessions,
		exemptPrefixes: cfg.ExemptPathPrefixes,
		onboardingPath: cfg.OnboardingPath,
		logger:         logger,
	}
}

// exempt reports whether the binder should skip the path. Entries ending in
// "/" match by prefix, the rest match exactly, so the onboarding path does
// not swallow routes nested under it.
func (b *TenantBinder) exempt(path string) bool {
	for _, p := range b.exemptPrefixes {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

func (b *TenantBinder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.exempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		user, ok := auth.UserFromContext(r.Context())
		if !ok || user == nil {
			// binder is mounted behind the auth middleware; no user here
			// means the route was wired wrong
			b.logger.Error("tenant binder: no authenticated user in context", "path", r.URL.Path)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var membership *Membership
		var current *Company

		if companyID, found := b.sessions.CurrentCompanyID(r); found {
			m, c, err := b.repo.ActiveMembership(user.ID, companyID)
			switch {
			case err == nil:
				membership, current = m, c
			case errors.Is(err, ErrMembershipNotFound):
				// revoked seat, deactivated or deleted company: self-heal
				b.logger.Info("tenant binder: clearing stale session company",
					"user_id", user.ID, "company_id", companyID)
				if clearErr := b.sessions.ClearCurrentCompany(w, r); clearErr != nil {
					b.logger.Warn("tenant binder: failed to clear session", "error", clearErr)
				}
			default:
				b.logger.Error("tenant binder: membership lookup failed", "error", err, "user_id", user.ID)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
		}

		if membership == nil {
			m, c, err := b.repo.FirstActiveMembership(user.ID)
			switch {
			case err == nil:
				membership, current = m, c
				if saveErr := b.sessions.SetCurrentCompany(w, r, c.ID); saveErr != nil {
					b.logger.Warn("tenant binder: failed to persist session company", "error", saveErr)
				}
			case errors.Is(err, ErrMembershipNotFound):
				// user belongs to no active company
			default:
				b.logger.Error("tenant binder: fallback lookup failed", "error", err, "user_id", user.ID)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
		}

		if membership == nil {
			http.Redirect(w, r, b.onboardingPath, http.StatusTemporaryRedirect)
			return
		}

		ctx := ContextWithTenant(r.Context(), &TenantContext{
			Company:    current,
			Membership: membership,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
