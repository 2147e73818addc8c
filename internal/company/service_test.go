package company_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/company-management/internal/company"
	"github.com/frahmantamala/company-management/internal/core/events"
	"github.com/google/uuid"
)

func TestCompany(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Company Module Suite")
}

// Mock repository for testing
type mockCompanyRepository struct {
	companies   map[uuid.UUID]*company.Company
	memberships map[uuid.UUID]*company.Membership
	partners    map[uuid.UUID][]*company.Partner

	createError           error
	deactivateError       error
	membershipLookupError error
}

func newMockCompanyRepository() *mockCompanyRepository {
	return &mockCompanyRepository{
		companies:   make(map[uuid.UUID]*company.Company),
		memberships: make(map[uuid.UUID]*company.Membership),
		partners:    make(map[uuid.UUID][]*company.Partner),
	}
}

func (m *mockCompanyRepository) CreateWithAdmin(c *company.Company, mem *company.Membership, partners []*company.Partner) error {
	if m.createError != nil {
		return m.createError
	}
	m.companies[c.ID] = c
	m.memberships[mem.ID] = mem
	m.partners[c.ID] = partners
	return nil
}

func (m *mockCompanyRepository) GetByID(id uuid.UUID) (*company.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, company.ErrCompanyNotFound
	}
	return c, nil
}

func (m *mockCompanyRepository) GetPartners(companyID uuid.UUID) ([]*company.Partner, error) {
	return m.partners[companyID], nil
}

func (m *mockCompanyRepository) UpdateWithPartners(c *company.Company, partners []*company.Partner) error {
	m.companies[c.ID] = c
	m.partners[c.ID] = partners
	return nil
}

func (m *mockCompanyRepository) RegistrationNumberExists(regNumber string, exclude uuid.UUID) (bool, error) {
	for id, c := range m.companies {
		if c.RegistrationNumber == regNumber && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCompanyRepository) Deactivate(companyID uuid.UUID, actorID int64, at time.Time) (int64, error) {
	if m.deactivateError != nil {
		return 0, m.deactivateError
	}
	c, ok := m.companies[companyID]
	if !ok {
		return 0, company.ErrCompanyNotFound
	}
	c.IsActive = false
	c.DeactivatedAt = &at
	c.DeactivatedBy = &actorID

	var count int64
	for _, mem := range m.memberships {
		if mem.CompanyID == companyID && mem.IsActive {
			mem.IsActive = false
			count++
		}
	}
	return count, nil
}

func (m *mockCompanyRepository) Reactivate(companyID uuid.UUID, actorID int64) error {
	c, ok := m.companies[companyID]
	if !ok {
		return company.ErrCompanyNotFound
	}
	c.IsActive = true
	c.DeactivatedAt = nil
	c.DeactivatedBy = nil
	c.UpdatedBy = &actorID
	return nil
}

func (m *mockCompanyRepository) GetMembership(userID int64, companyID uuid.UUID) (*company.Membership, error) {
	if m.membershipLookupError != nil {
		return nil, m.membershipLookupError
	}
	for _, mem := range m.memberships {
		if mem.UserID == userID && mem.CompanyID == companyID {
			return mem, nil
		}
	}
	return nil, company.ErrMembershipNotFound
}

func (m *mockCompanyRepository) ActiveMembership(userID int64, companyID uuid.UUID) (*company.Membership, *company.Company, error) {
	c, ok := m.companies[companyID]
	if !ok || !c.IsActive {
		return nil, nil, company.ErrMembershipNotFound
	}
	for _, mem := range m.memberships {
		if mem.UserID == userID && mem.CompanyID == companyID && mem.IsActive {
			return mem, c, nil
		}
	}
	return nil, nil, company.ErrMembershipNotFound
}

func (m *mockCompanyRepository) FirstActiveMembership(userID int64) (*company.Membership, *company.Company, error) {
	var candidates []*company.Membership
	for _, mem := range m.memberships {
		c, ok := m.companies[mem.CompanyID]
		if mem.UserID == userID && mem.IsActive && ok && c.IsActive {
			candidates = append(candidates, mem)
		}
	}
	if len(candidates) == 0 {
		return nil, nil, company.ErrMembershipNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DateJoined.Equal(candidates[j].DateJoined) {
			return candidates[i].ID.String() < candidates[j].ID.String()
		}
		return candidates[i].DateJoined.Before(candidates[j].DateJoined)
	})
	first := candidates[0]
	return first, m.companies[first.CompanyID], nil
}

func (m *mockCompanyRepository) HasActiveMembership(userID int64) (bool, error) {
	_, _, err := m.FirstActiveMembership(userID)
	if err == company.ErrMembershipNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *mockCompanyRepository) ListMembers(companyID uuid.UUID) ([]*company.Member, error) {
	var members []*company.Member
	for _, mem := range m.memberships {
		if mem.CompanyID == companyID {
			members = append(members, &company.Member{Membership: *mem})
		}
	}
	return members, nil
}

func (m *mockCompanyRepository) CreateMembership(mem *company.Membership) error {
	m.memberships[mem.ID] = mem
	return nil
}

func (m *mockCompanyRepository) SetMembershipActive(companyID, membershipID uuid.UUID, active bool) error {
	mem, ok := m.memberships[membershipID]
	if !ok || mem.CompanyID != companyID {
		return company.ErrMembershipNotFound
	}
	mem.IsActive = active
	return nil
}

// Mock user directory for membership grants
type mockUserDirectory struct {
	usersByEmail map[string]int64
}

func (d *mockUserDirectory) ActiveUserIDByEmail(email string) (int64, error) {
	id, ok := d.usersByEmail[email]
	if !ok {
		return 0, company.ErrUserNotFound
	}
	return id, nil
}

var _ = Describe("CompanyService", func() {
	var (
		svc       *company.Service
		mockRepo  *mockCompanyRepository
		directory *mockUserDirectory
		bus       *events.EventBus
		published []string
		logger    *slog.Logger
		ctx       context.Context
	)

	newService := func(singleCompany bool) *company.Service {
		return company.NewService(mockRepo, directory, bus, logger, singleCompany)
	}

	validDTO := func() company.CompanyDTO {
		return company.CompanyDTO{
			RegistrationNumber: "12345678000190",
			LegalName:          "Imobiliaria Exemplo LTDA",
			TradeName:          "Exemplo Imoveis",
			City:               "Sao Paulo",
			State:              "sp",
			Partners: []company.PartnerDTO{
				{Name: "Ana", TaxID: "12345678901"},
			},
		}
	}

	BeforeEach(func() {
		mockRepo = newMockCompanyRepository()
		directory = &mockUserDirectory{usersByEmail: map[string]int64{}}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
		published = nil
		for _, t := range []string{
			events.CompanyCreated, events.CompanyUpdated, events.CompanyDeactivated,
			events.CompanyReactivated, events.MemberAdded, events.MemberDeactivated,
			events.MemberReactivated,
		} {
			eventType := t
			bus.Subscribe(eventType, func(ctx context.Context, e events.Event) error {
				published = append(published, eventType)
				return nil
			})
		}
		svc = newService(true)
		ctx = context.Background()
	})

	Describe("Create", func() {
		It("creates the company with an admin membership and partners", func() {
			c, err := svc.Create(ctx, 1, validDTO())

			Expect(err).ToNot(HaveOccurred())
			Expect(c.IsActive).To(BeTrue())
			Expect(c.State).To(Equal("SP"))

			mem, err := mockRepo.GetMembership(1, c.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(mem.Role).To(Equal(company.RoleAdmin))
			Expect(mem.IsActive).To(BeTrue())

			partners, _ := mockRepo.GetPartners(c.ID)
			Expect(partners).To(HaveLen(1))
			Expect(partners[0].Name).To(Equal("Ana"))

			Expect(published).To(ContainElement(events.CompanyCreated))
		})

		It("rejects a duplicate registration number", func() {
			_, err := svc.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())

			dto := validDTO()
			_, err = newService(false).Create(ctx, 2, dto)
			Expect(err).To(Equal(company.ErrDuplicateRegistration))
		})

		It("rejects a second company when one per user is enforced", func() {
			_, err := svc.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())

			dto := validDTO()
			dto.RegistrationNumber = "98765432000110"
			_, err = svc.Create(ctx, 1, dto)
			Expect(err).To(Equal(company.ErrAlreadyHasCompany))
		})

		It("allows a second company when the limit is disabled", func() {
			multi := newService(false)

			_, err := multi.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())

			dto := validDTO()
			dto.RegistrationNumber = "98765432000110"
			_, err = multi.Create(ctx, 1, dto)
			Expect(err).ToNot(HaveOccurred())
		})

		It("rejects an unknown state code", func() {
			dto := validDTO()
			dto.State = "XX"
			_, err := svc.Create(ctx, 1, dto)
			Expect(err).To(HaveOccurred())
		})

		It("rejects a partner without a tax id", func() {
			dto := validDTO()
			dto.Partners = []company.PartnerDTO{{Name: "Ana"}}
			_, err := svc.Create(ctx, 1, dto)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Update", func() {
		var created *company.Company

		BeforeEach(func() {
			var err error
			created, err = svc.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())
		})

		It("replaces the stored partner set with the submitted one", func() {
			dto := validDTO()
			dto.Partners = []company.PartnerDTO{
				{Name: "Bruno", TaxID: "98765432109"},
				{Name: "Carla", TaxID: "11122233344"},
			}

			_, err := svc.Update(ctx, created.ID, 1, dto)
			Expect(err).ToNot(HaveOccurred())

			partners, _ := mockRepo.GetPartners(created.ID)
			Expect(partners).To(HaveLen(2))
			names := []string{partners[0].Name, partners[1].Name}
			Expect(names).To(ConsistOf("Bruno", "Carla"))
		})

		It("rejects changing to a registration number already in use", func() {
			other := validDTO()
			other.RegistrationNumber = "98765432000110"
			_, err := newService(false).Create(ctx, 2, other)
			Expect(err).ToNot(HaveOccurred())

			dto := validDTO()
			dto.RegistrationNumber = "98765432000110"
			_, err = svc.Update(ctx, created.ID, 1, dto)
			Expect(err).To(Equal(company.ErrDuplicateRegistration))
		})

		It("records who performed the update", func() {
			actorID := int64(42)
			mem := &company.Membership{ID: uuid.New(), UserID: actorID, CompanyID: created.ID, Role: company.RoleFinancial, IsActive: true, DateJoined: time.Now()}
			Expect(mockRepo.CreateMembership(mem)).To(Succeed())

			updated, err := svc.Update(ctx, created.ID, actorID, validDTO())
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.UpdatedBy).ToNot(BeNil())
			Expect(*updated.UpdatedBy).To(Equal(actorID))
		})
	})

	Describe("Deactivate", func() {
		var created *company.Company

		BeforeEach(func() {
			var err error
			created, err = svc.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())

			mem := &company.Membership{ID: uuid.New(), UserID: 2, CompanyID: created.ID, Role: company.RoleBroker, IsActive: true, DateJoined: time.Now()}
			Expect(mockRepo.CreateMembership(mem)).To(Succeed())
		})

		It("deactivates the company and every membership", func() {
			err := svc.Deactivate(ctx, created.ID, 1)
			Expect(err).ToNot(HaveOccurred())

			Expect(created.IsActive).To(BeFalse())
			Expect(created.DeactivatedAt).ToNot(BeNil())
			Expect(*created.DeactivatedBy).To(Equal(int64(1)))

			for _, mem := range mockRepo.memberships {
				if mem.CompanyID == created.ID {
					Expect(mem.IsActive).To(BeFalse())
				}
			}
			Expect(published).To(ContainElement(events.CompanyDeactivated))
		})
	})

	Describe("Reactivate", func() {
		var created *company.Company

		BeforeEach(func() {
			var err error
			created, err = svc.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())
			Expect(svc.Deactivate(ctx, created.ID, 1)).To(Succeed())
		})

		It("allows the admin whose membership the cascade deactivated", func() {
			err := svc.Reactivate(ctx, created.ID, 1)
			Expect(err).ToNot(HaveOccurred())

			Expect(created.IsActive).To(BeTrue())
			Expect(created.DeactivatedAt).To(BeNil())
			Expect(created.DeactivatedBy).To(BeNil())
		})

		It("does not restore memberships", func() {
			Expect(svc.Reactivate(ctx, created.ID, 1)).To(Succeed())

			mem, err := mockRepo.GetMembership(1, created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(mem.IsActive).To(BeFalse())
		})

		It("is idempotent", func() {
			Expect(svc.Reactivate(ctx, created.ID, 1)).To(Succeed())
			Expect(svc.Reactivate(ctx, created.ID, 1)).To(Succeed())
			Expect(created.IsActive).To(BeTrue())
		})

		It("denies a non-admin member", func() {
			mem := &company.Membership{ID: uuid.New(), UserID: 3, CompanyID: created.ID, Role: company.RoleBroker, IsActive: false, DateJoined: time.Now()}
			Expect(mockRepo.CreateMembership(mem)).To(Succeed())

			err := svc.Reactivate(ctx, created.ID, 3)
			Expect(err).To(Equal(company.ErrNotCompanyAdmin))
		})

		It("denies a user with no membership at all", func() {
			err := svc.Reactivate(ctx, created.ID, 99)
			Expect(err).To(Equal(company.ErrNotCompanyAdmin))
		})
	})

	Describe("SwitchCompany", func() {
		It("returns the membership when the caller holds an active seat", func() {
			created, err := svc.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())

			mem, err := svc.SwitchCompany(1, created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(mem.CompanyID).To(Equal(created.ID))
		})

		It("answers not-found for a company the caller has no seat in", func() {
			created, err := svc.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.SwitchCompany(2, created.ID)
			Expect(err).To(Equal(company.ErrMembershipNotFound))
		})

		It("answers not-found for a deactivated company", func() {
			created, err := svc.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())
			Expect(svc.Deactivate(ctx, created.ID, 1)).To(Succeed())

			_, err = svc.SwitchCompany(1, created.ID)
			Expect(err).To(Equal(company.ErrMembershipNotFound))
		})
	})

	Describe("AddMember", func() {
		var created *company.Company

		BeforeEach(func() {
			var err error
			created, err = svc.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())
			directory.usersByEmail["bruno@mail.com"] = 2
		})

		It("grants a seat defaulting to the broker role", func() {
			mem, err := svc.AddMember(ctx, created.ID, 1, company.AddMemberDTO{Email: "Bruno@Mail.com"})
			Expect(err).ToNot(HaveOccurred())
			Expect(mem.UserID).To(Equal(int64(2)))
			Expect(mem.Role).To(Equal(company.RoleBroker))
			Expect(published).To(ContainElement(events.MemberAdded))
		})

		It("rejects a second seat for the same user", func() {
			_, err := svc.AddMember(ctx, created.ID, 1, company.AddMemberDTO{Email: "bruno@mail.com"})
			Expect(err).ToNot(HaveOccurred())

			_, err = svc.AddMember(ctx, created.ID, 1, company.AddMemberDTO{Email: "bruno@mail.com", Role: company.RoleFinancial})
			Expect(err).To(Equal(company.ErrDuplicateMembership))
		})

		It("rejects an email with no active account", func() {
			_, err := svc.AddMember(ctx, created.ID, 1, company.AddMemberDTO{Email: "nobody@mail.com"})
			Expect(err).To(Equal(company.ErrUserNotFound))
		})

		It("rejects an unknown role", func() {
			_, err := svc.AddMember(ctx, created.ID, 1, company.AddMemberDTO{Email: "bruno@mail.com", Role: "owner"})
			Expect(err).To(HaveOccurred())
		})

		It("surfaces a membership lookup failure instead of inserting", func() {
			mockRepo.membershipLookupError = errors.New("connection reset")

			_, err := svc.AddMember(ctx, created.ID, 1, company.AddMemberDTO{Email: "bruno@mail.com"})
			Expect(err).To(MatchError("connection reset"))
			Expect(err).ToNot(Equal(company.ErrDuplicateMembership))
		})
	})

	Describe("SetMemberActive", func() {
		It("re-grants one seat after a company reactivation", func() {
			created, err := svc.Create(ctx, 1, validDTO())
			Expect(err).ToNot(HaveOccurred())
			Expect(svc.Deactivate(ctx, created.ID, 1)).To(Succeed())
			Expect(svc.Reactivate(ctx, created.ID, 1)).To(Succeed())

			mem, err := mockRepo.GetMembership(1, created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(mem.IsActive).To(BeFalse())

			Expect(svc.SetMemberActive(ctx, created.ID, mem.ID, 1, true)).To(Succeed())
			Expect(mem.IsActive).To(BeTrue())
			Expect(published).To(ContainElement(events.MemberReactivated))
		})
	})
})
