package company_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/company-management/internal"
	"github.com/frahmantamala/company-management/internal/auth"
	"github.com/frahmantamala/company-management/internal/company"
	"github.com/google/uuid"
)

// fakeSessionStore keeps the current-company pointer in memory.
type fakeSessionStore struct {
	companyID uuid.UUID
	has       bool
	setCalls  []uuid.UUID
	clears    int
}

func (s *fakeSessionStore) CurrentCompanyID(r *http.Request) (uuid.UUID, bool) {
	return s.companyID, s.has
}

func (s *fakeSessionStore) SetCurrentCompany(w http.ResponseWriter, r *http.Request, id uuid.UUID) error {
	s.companyID = id
	s.has = true
	s.setCalls = append(s.setCalls, id)
	return nil
}

func (s *fakeSessionStore) ClearCurrentCompany(w http.ResponseWriter, r *http.Request) error {
	s.companyID = uuid.Nil
	s.has = false
	s.clears++
	return nil
}

// fakeResolver serves memberships out of fixed maps.
type fakeResolver struct {
	active map[uuid.UUID]*company.Membership // keyed by company id, for user 1
	first  *company.Membership
	err    error
}

func companyFor(m *company.Membership) *company.Company {
	return &company.Company{ID: m.CompanyID, LegalName: "Fixture LTDA", IsActive: true}
}

func (f *fakeResolver) ActiveMembership(userID int64, companyID uuid.UUID) (*company.Membership, *company.Company, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	m, ok := f.active[companyID]
	if !ok || m.UserID != userID {
		return nil, nil, company.ErrMembershipNotFound
	}
	return m, companyFor(m), nil
}

func (f *fakeResolver) FirstActiveMembership(userID int64) (*company.Membership, *company.Company, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if f.first == nil || f.first.UserID != userID {
		return nil, nil, company.ErrMembershipNotFound
	}
	return f.first, companyFor(f.first), nil
}

var _ = Describe("TenantBinder", func() {
	var (
		resolver *fakeResolver
		sessions *fakeSessionStore
		binder   *company.TenantBinder
		logger   *slog.Logger
		bound    *company.TenantContext
		handler  http.Handler
		user     = &auth.User{ID: 1, Email: "ana@mail.com", IsActive: true}
	)

	newRequest := func(path string, withUser bool) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if withUser {
			req = req.WithContext(auth.ContextWithUser(req.Context(), user))
		}
		return req
	}

	membership := func(companyID uuid.UUID, joined time.Time) *company.Membership {
		return &company.Membership{
			ID:         uuid.New(),
			UserID:     1,
			CompanyID:  companyID,
			Role:       company.RoleAdmin,
			IsActive:   true,
			DateJoined: joined,
		}
	}

	BeforeEach(func() {
		resolver = &fakeResolver{active: map[uuid.UUID]*company.Membership{}}
		sessions = &fakeSessionStore{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		binder = company.NewTenantBinder(resolver, sessions, internal.TenancyConfig{}, logger)

		bound = nil
		handler = binder.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := company.TenantFromContext(r.Context())
			if ok {
				bound = tc
			}
			w.WriteHeader(http.StatusOK)
		}))
	})

	It("skips exempt paths without touching the session", func() {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest("/api/v1/companies", false))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(bound).To(BeNil())
		Expect(sessions.setCalls).To(BeEmpty())
	})

	It("does not treat nested company routes as exempt", func() {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest("/api/v1/companies/current", false))

		// non-exempt without a user is a wiring error, not a pass-through
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("binds the company the session points at", func() {
		companyID := uuid.New()
		m := membership(companyID, time.Now())
		resolver.active[companyID] = m
		sessions.companyID = companyID
		sessions.has = true

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest("/api/v1/users/me", true))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(bound).ToNot(BeNil())
		Expect(bound.Company.ID).To(Equal(companyID))
		Expect(bound.Membership.ID).To(Equal(m.ID))
		// valid pointer, nothing rewritten
		Expect(sessions.setCalls).To(BeEmpty())
	})

	It("clears a stale pointer and falls back to the earliest membership", func() {
		staleID := uuid.New()
		sessions.companyID = staleID
		sessions.has = true

		fallbackID := uuid.New()
		resolver.first = membership(fallbackID, time.Now().Add(-time.Hour))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest("/api/v1/users/me", true))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sessions.clears).To(Equal(1))
		Expect(bound).ToNot(BeNil())
		Expect(bound.Company.ID).To(Equal(fallbackID))
		// self-healed pointer written back
		Expect(sessions.setCalls).To(ConsistOf(Equal(fallbackID)))
	})

	It("redirects to onboarding when the user has no usable company", func() {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest("/api/v1/users/me", true))

		Expect(rec.Code).To(Equal(http.StatusTemporaryRedirect))
		Expect(rec.Header().Get("Location")).To(Equal(internal.DefaultOnboardingPath))
		Expect(bound).To(BeNil())
	})

	It("redirects after clearing a stale pointer with no fallback", func() {
		sessions.companyID = uuid.New()
		sessions.has = true

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest("/api/v1/users/me", true))

		Expect(rec.Code).To(Equal(http.StatusTemporaryRedirect))
		Expect(sessions.clears).To(Equal(1))
	})

	It("fails closed on repository errors", func() {
		sessions.companyID = uuid.New()
		sessions.has = true
		resolver.err = context.DeadlineExceeded

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest("/api/v1/users/me", true))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
	})
})

var _ = Describe("RequireRole", func() {
	var (
		logger *slog.Logger
		next   http.Handler
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	request := func(role company.Role) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/current", nil)
		tc := &company.TenantContext{
			Company:    &company.Company{ID: uuid.New(), IsActive: true},
			Membership: &company.Membership{ID: uuid.New(), UserID: 1, Role: role, IsActive: true},
		}
		return req.WithContext(company.ContextWithTenant(req.Context(), tc))
	}

	It("passes a role on the allow-list", func() {
		rec := httptest.NewRecorder()
		guard := company.RequireRole(logger, company.RoleAdmin, company.RoleFinancial)
		guard(next).ServeHTTP(rec, request(company.RoleFinancial))

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("denies a role outside the allow-list", func() {
		rec := httptest.NewRecorder()
		guard := company.RequireRole(logger, company.RoleAdmin)
		guard(next).ServeHTTP(rec, request(company.RoleBroker))

		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("denies a request with no tenant bound", func() {
		rec := httptest.NewRecorder()
		guard := company.RequireRole(logger, company.RoleAdmin)
		guard(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/companies/current", nil))

		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})
})
