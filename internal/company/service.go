package company

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/company-management/internal/core/events"
	"github.com/google/uuid"
)

// Repository defines the data access methods for companies, memberships and
// partners. Multi-row writes are transactional: either every row lands or
// none do.
type Repository interface {
	CreateWithAdmin(c *Company, m *Membership, partners []*Partner) error
	GetByID(id uuid.UUID) (*Company, error)
	GetPartners(companyID uuid.UUID) ([]*Partner, error)
	UpdateWithPartners(c *Company, partners []*Partner) error
	RegistrationNumberExists(regNumber string, exclude uuid.UUID) (bool, error)
	Deactivate(companyID uuid.UUID, actorID int64, at time.Time) (membersDeactivated int64, err error)
	Reactivate(companyID uuid.UUID, actorID int64) error

	GetMembership(userID int64, companyID uuid.UUID) (*Membership, error)
	ActiveMembership(userID int64, companyID uuid.UUID) (*Membership, *Company, error)
	FirstActiveMembership(userID int64) (*Membership, *Company, error)
	HasActiveMembership(userID int64) (bool, error)
	ListMembers(companyID uuid.UUID) ([]*Member, error)
	CreateMembership(m *Membership) error
	SetMembershipActive(companyID, membershipID uuid.UUID, active bool) error
}

// UserDirectory resolves user accounts when granting memberships. Declared
// here so the company package stays decoupled from the user package.
type UserDirectory interface {
	ActiveUserIDByEmail(email string) (int64, error)
}

type Service struct {
	repo                 Repository
	users                UserDirectory
	bus                  *events.EventBus
	logger               *slog.Logger
	singleCompanyPerUser bool
}

func NewService(repo Repository, users UserDirectory, bus *events.EventBus, logger *slog.Logger, singleCompanyPerUser bool) *Service {
	return &Service{
		repo:                 repo,
		users:                users,
		bus:                  bus,
		logger:               logger,
		singleCompanyPerUser: singleCompanyPerUser,
	}
}

// Create onboards a new company: the company row, an admin membership for
// the creator and the partner list are written in one transaction. The
// caller is responsible for pointing the session at the returned company.
func (s *Service) Create(ctx context.Context, userID int64, dto CompanyDTO) (*Company, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.repo.RegistrationNumberExists(dto.RegistrationNumber, uuid.Nil)
	if err != nil {
		s.logger.Error("create company: registration lookup failed", "error", err)
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateRegistration
	}

	// Current product rule: one active company per user. Toggleable for
	// multi-company deployments.
	if s.singleCompanyPerUser {
		has, err := s.repo.HasActiveMembership(userID)
		if err != nil {
			s.logger.Error("create company: membership lookup failed", "error", err, "user_id", userID)
			return nil, err
		}
		if has {
			return nil, ErrAlreadyHasCompany
		}
	}

	now := time.Now()
	c := &Company{
		ID:                 uuid.New(),
		RegistrationNumber: dto.RegistrationNumber,
		LegalName:          dto.LegalName,
		TradeName:          dto.TradeName,
		StateRegistration:  dto.StateRegistration,
		Phone:              dto.Phone,
		Phone2:             dto.Phone2,
		Email:              dto.Email,
		Website:            dto.Website,
		ZipCode:            dto.ZipCode,
		Address:            dto.Address,
		Number:             dto.Number,
		Complement:         dto.Complement,
		Neighborhood:       dto.Neighborhood,
		City:               dto.City,
		State:              dto.State,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
		UpdatedBy:          &userID,
	}

	m := &Membership{
		ID:         uuid.New(),
		UserID:     userID,
		CompanyID:  c.ID,
		Role:       RoleAdmin,
		IsActive:   true,
		DateJoined: now,
	}

	partners := buildPartners(c.ID, dto.Partners)

	if err := s.repo.CreateWithAdmin(c, m, partners); err != nil {
		s.logger.Error("create company: transaction failed", "error", err, "user_id", userID)
		return nil, err
	}

	s.logger.Info("company created",
		"company_id", c.ID,
		"user_id", userID,
		"partners", len(partners))

	_ = s.bus.PublishSync(ctx, events.NewCompanyCreated(c.ID, userID))

	return c, nil
}

// Get returns a company with its partner list.
func (s *Service) Get(companyID uuid.UUID) (*Company, []*Partner, error) {
	c, err := s.repo.GetByID(companyID)
	if err != nil {
		return nil, nil, err
	}
	partners, err := s.repo.GetPartners(companyID)
	if err != nil {
		return nil, nil, err
	}
	return c, partners, nil
}

// Update rewrites the company fields and replaces the stored partner set
// with the submitted one, atomically.
func (s *Service) Update(ctx context.Context, companyID uuid.UUID, actorID int64, dto CompanyDTO) (*Company, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(companyID)
	if err != nil {
		return nil, err
	}

	if dto.RegistrationNumber != c.RegistrationNumber {
		exists, err := s.repo.RegistrationNumberExists(dto.RegistrationNumber, c.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateRegistration
		}
	}

	c.RegistrationNumber = dto.RegistrationNumber
	c.LegalName = dto.LegalName
	c.TradeName = dto.TradeName
	c.StateRegistration = dto.StateRegistration
	c.Phone = dto.Phone
	c.Phone2 = dto.Phone2
	c.Email = dto.Email
	c.Website = dto.Website
	c.ZipCode = dto.ZipCode
	c.Address = dto.Address
	c.Number = dto.Number
	c.Complement = dto.Complement
	c.Neighborhood = dto.Neighborhood
	c.City = dto.City
	c.State = dto.State
	c.UpdatedAt = time.Now()
	c.UpdatedBy = &actorID

	partners := buildPartners(c.ID, dto.Partners)

	if err := s.repo.UpdateWithPartners(c, partners); err != nil {
		s.logger.Error("update company: transaction failed", "error", err, "company_id", companyID)
		return nil, err
	}

	s.logger.Info("company updated", "company_id", companyID, "actor_id", actorID)
	_ = s.bus.PublishSync(ctx, events.NewCompanyUpdated(c.ID, actorID))

	return c, nil
}

// Deactivate soft-deletes the company and every one of its memberships in
// one transaction. Hard deletes are not exposed anywhere.
func (s *Service) Deactivate(ctx context.Context, companyID uuid.UUID, actorID int64) error {
	membersDeactivated, err := s.repo.Deactivate(companyID, actorID, time.Now())
	if err != nil {
		s.logger.Error("deactivate company failed", "error", err, "company_id", companyID, "actor_id", actorID)
		return err
	}

	s.logger.Info("company deactivated",
		"company_id", companyID,
		"actor_id", actorID,
		"members_deactivated", membersDeactivated)

	_ = s.bus.PublishSync(ctx, events.NewCompanyDeactivated(companyID, actorID, membersDeactivated))
	return nil
}

// Reactivate clears the deactivation fields. Memberships stay inactive on
// purpose: access is re-granted per member, not restored wholesale.
func (s *Service) Reactivate(ctx context.Context, companyID uuid.UUID, actorID int64) error {
	// The actor's own membership was deactivated by the cascade, so the
	// admin check ignores the is_active flags.
	m, err := s.repo.GetMembership(actorID, companyID)
	if err != nil {
		return ErrNotCompanyAdmin
	}
	if m.Role != RoleAdmin {
		return ErrNotCompanyAdmin
	}

	if err := s.repo.Reactivate(companyID, actorID); err != nil {
		s.logger.Error("reactivate company failed", "error", err, "company_id", companyID)
		return err
	}

	s.logger.Info("company reactivated", "company_id", companyID, "actor_id", actorID)
	_ = s.bus.PublishSync(ctx, events.NewCompanyReactivated(companyID, actorID))
	return nil
}

// SwitchCompany validates that the caller holds an active seat in an active
// target company. The handler persists the returned company id to the
// session. A miss never reveals whether the company exists.
func (s *Service) SwitchCompany(userID int64, companyID uuid.UUID) (*Membership, error) {
	m, _, err := s.repo.ActiveMembership(userID, companyID)
	if err != nil {
		return nil, ErrMembershipNotFound
	}
	return m, nil
}

func (s *Service) ListMembers(companyID uuid.UUID) ([]*Member, error) {
	return s.repo.ListMembers(companyID)
}

// AddMember grants a user a seat in the company. Each user holds at most one
// membership per company.
func (s *Service) AddMember(ctx context.Context, companyID uuid.UUID, actorID int64, dto AddMemberDTO) (*Membership, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	userID, err := s.users.ActiveUserIDByEmail(dto.Email)
	if err != nil {
		return nil, err
	}

	_, err = s.repo.GetMembership(userID, companyID)
	if err == nil {
		return nil, ErrDuplicateMembership
	}
	if !errors.Is(err, ErrMembershipNotFound) {
		s.logger.Error("add member: membership lookup failed", "error", err, "company_id", companyID)
		return nil, err
	}

	m := &Membership{
		ID:         uuid.New(),
		UserID:     userID,
		CompanyID:  companyID,
		Role:       dto.Role,
		IsActive:   true,
		DateJoined: time.Now(),
	}

	if err := s.repo.CreateMembership(m); err != nil {
		s.logger.Error("add member failed", "error", err, "company_id", companyID)
		return nil, err
	}

	s.logger.Info("member added", "company_id", companyID, "membership_id", m.ID, "role", m.Role)
	_ = s.bus.PublishSync(ctx, events.NewMemberEvent(events.MemberAdded, companyID, actorID, m.ID))

	return m, nil
}

// SetMemberActive flips one membership on or off inside the company. This is
// the explicit per-member re-grant required after a company reactivation.
func (s *Service) SetMemberActive(ctx context.Context, companyID, membershipID uuid.UUID, actorID int64, active bool) error {
	if err := s.repo.SetMembershipActive(companyID, membershipID, active); err != nil {
		return err
	}

	eventType := events.MemberDeactivated
	if active {
		eventType = events.MemberReactivated
	}
	_ = s.bus.PublishSync(ctx, events.NewMemberEvent(eventType, companyID, actorID, membershipID))

	return nil
}

func buildPartners(companyID uuid.UUID, dtos []PartnerDTO) []*Partner {
	partners := make([]*Partner, len(dtos))
	for i, p := range dtos {
		partners[i] = &Partner{
			ID:        uuid.New(),
			CompanyID: companyID,
			Name:      p.Name,
			TaxID:     p.TaxID,
			Email:     p.Email,
			Phone:     p.Phone,
		}
	}
	return partners
}
