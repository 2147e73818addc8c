package company

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/company-management/internal"
)

// RequireRole guards an operation with a role allow-list, checked against
// the membership bound by the TenantBinder. A request without a bound
// membership is denied outright; the response never reveals anything about
// other companies or memberships.
func RequireRole(logger *slog.Logger, allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := TenantFromContext(r.Context())
			if !ok || tc.Membership == nil {
				logger.Warn("access denied: no tenant bound on guarded route", "path", r.URL.Path)
				writeRoleDenied(w)
				return
			}

			for _, role := range allowed {
				if tc.Membership.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("access denied: role not in allow-list",
				"user_id", tc.Membership.UserID,
				"company_id", tc.Membership.CompanyID,
				"role", tc.Membership.Role,
				"path", r.URL.Path)
			writeRoleDenied(w)
		})
	}
}

func writeRoleDenied(w http.ResponseWriter) {
	status, body := internal.ErrRoleDenied.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
