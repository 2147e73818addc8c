package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/company-management/internal/company"
	companyDatamodel "github.com/frahmantamala/company-management/internal/core/datamodel/company"
	"github.com/google/uuid"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithAdmin writes the company, the creator's admin membership and the
// partner rows in a single transaction.
func (r *Repository) CreateWithAdmin(c *company.Company, m *company.Membership, partners []*company.Partner) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company.ToDataModel(c)).Error; err != nil {
			return err
		}
		if err := tx.Create(company.MembershipToDataModel(m)).Error; err != nil {
			return err
		}
		for _, p := range partners {
			if err := tx.Create(company.PartnerToDataModel(p)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetByID(id uuid.UUID) (*company.Company, error) {
	var dm companyDatamodel.Company
	if err := r.db.Where("id = ?", id).First(&dm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, err
	}
	return company.FromDataModel(&dm), nil
}

func (r *Repository) GetPartners(companyID uuid.UUID) ([]*company.Partner, error) {
	var dms []*companyDatamodel.Partner
	if err := r.db.Where("company_id = ?", companyID).Order("name ASC").Find(&dms).Error; err != nil {
		return nil, err
	}
	return company.PartnersFromDataModel(dms), nil
}

// UpdateWithPartners rewrites the company row and replaces its partner set.
// The submitted list is authoritative: missing partners are removed.
func (r *Repository) UpdateWithPartners(c *company.Company, partners []*company.Partner) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(company.ToDataModel(c)).Error; err != nil {
			return err
		}
		if err := tx.Where("company_id = ?", c.ID).Delete(&companyDatamodel.Partner{}).Error; err != nil {
			return err
		}
		for _, p := range partners {
			if err := tx.Create(company.PartnerToDataModel(p)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) RegistrationNumberExists(regNumber string, exclude uuid.UUID) (bool, error) {
	var count int64
	q := r.db.Model(&companyDatamodel.Company{}).Where("registration_number = ?", regNumber)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Deactivate soft-deletes the company and cascades to every active
// membership in one transaction. Partner rows are untouched. Running it on
// an already inactive company is a no-op for the company row but still
// sweeps any memberships left active.
func (r *Repository) Deactivate(companyID uuid.UUID, actorID int64, at time.Time) (int64, error) {
	var membersDeactivated int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&companyDatamodel.Company{}).
			Where("id = ? AND is_active = ?", companyID, true).
			Updates(map[string]any{
				"is_active":      false,
				"deactivated_at": at,
				"deactivated_by": actorID,
				"updated_at":     at,
				"updated_by":     actorID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&companyDatamodel.Company{}).Where("id = ?", companyID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return company.ErrCompanyNotFound
			}
		}

		res = tx.Model(&companyDatamodel.Membership{}).
			Where("company_id = ? AND is_active = ?", companyID, true).
			Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		membersDeactivated = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return membersDeactivated, nil
}

// Reactivate clears the deactivation marks on the company row only.
// Memberships stay exactly as the deactivation cascade left them. An
// already-active company reads as success without touching the row.
func (r *Repository) Reactivate(companyID uuid.UUID, actorID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&companyDatamodel.Company{}).
			Where("id = ? AND is_active = ?", companyID, false).
			Updates(map[string]any{
				"is_active":      true,
				"deactivated_at": nil,
				"deactivated_by": nil,
				"updated_at":     time.Now(),
				"updated_by":     actorID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&companyDatamodel.Company{}).Where("id = ?", companyID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return company.ErrCompanyNotFound
			}
		}
		return nil
	})
}

// GetMembership looks a membership up regardless of active flags. Used where
// history matters, like the admin check on reactivation.
func (r *Repository) GetMembership(userID int64, companyID uuid.UUID) (*company.Membership, error) {
	var dm companyDatamodel.Membership
	err := r.db.Where("user_id = ? AND company_id = ?", userID, companyID).First(&dm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, company.ErrMembershipNotFound
		}
		return nil, err
	}
	return company.MembershipFromDataModel(&dm), nil
}

// ActiveMembership returns the user's seat in the given company only if both
// the seat and the company are active. Any other state reads as not found.
func (r *Repository) ActiveMembership(userID int64, companyID uuid.UUID) (*company.Membership, *company.Company, error) {
	var m companyDatamodel.Membership
	err := r.db.Where("user_id = ? AND company_id = ? AND is_active = ?", userID, companyID, true).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, company.ErrMembershipNotFound
		}
		return nil, nil, err
	}

	var c companyDatamodel.Company
	err = r.db.Where("id = ? AND is_active = ?", companyID, true).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, company.ErrMembershipNotFound
		}
		return nil, nil, err
	}

	return company.MembershipFromDataModel(&m), company.FromDataModel(&c), nil
}

// FirstActiveMembership picks the user's fallback company: the active seat in
// an active company joined earliest, membership id breaking ties.
func (r *Repository) FirstActiveMembership(userID int64) (*company.Membership, *company.Company, error) {
	var m companyDatamodel.Membership
	err := r.db.Model(&companyDatamodel.Membership{}).
		Joins("JOIN companies ON companies.id = memberships.company_id AND companies.is_active = ?", true).
		Where("memberships.user_id = ? AND memberships.is_active = ?", userID, true).
		Order("memberships.date_joined ASC, memberships.id ASC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, company.ErrMembershipNotFound
		}
		return nil, nil, err
	}

	var c companyDatamodel.Company
	if err := r.db.Where("id = ?", m.CompanyID).First(&c).Error; err != nil {
		return nil, nil, err
	}

	return company.MembershipFromDataModel(&m), company.FromDataModel(&c), nil
}

func (r *Repository) HasActiveMembership(userID int64) (bool, error) {
	var count int64
	err := r.db.Model(&companyDatamodel.Membership{}).
		Joins("JOIN companies ON companies.id = memberships.company_id AND companies.is_active = ?", true).
		Where("memberships.user_id = ? AND memberships.is_active = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type memberRow struct {
	companyDatamodel.Membership
	UserEmail string
	UserName  string
}

func (r *Repository) ListMembers(companyID uuid.UUID) ([]*company.Member, error) {
	var rows []memberRow
	err := r.db.Model(&companyDatamodel.Membership{}).
		Select("memberships.*, users.email AS user_email, users.name AS user_name").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.company_id = ?", companyID).
		Order("memberships.date_joined ASC, memberships.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	members := make([]*company.Member, len(rows))
	for i, row := range rows {
		members[i] = &company.Member{
			Membership: *company.MembershipFromDataModel(&row.Membership),
			UserEmail:  row.UserEmail,
			UserName:   row.UserName,
		}
	}
	return members, nil
}

func (r *Repository) CreateMembership(m *company.Membership) error {
	return r.db.Create(company.MembershipToDataModel(m)).Error
}

func (r *Repository) SetMembershipActive(companyID, membershipID uuid.UUID, active bool) error {
	res := r.db.Model(&companyDatamodel.Membership{}).
		Where("id = ? AND company_id = ?", membershipID, companyID).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return company.ErrMembershipNotFound
	}
	return nil
}

// UserDirectory resolves active user accounts by email for membership grants.
type UserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) ActiveUserIDByEmail(email string) (int64, error) {
	var userID int64
	err := d.db.Raw(`SELECT id FROM users WHERE email = ? AND is_active = true`, email).Scan(&userID).Error
	if err != nil {
		return 0, err
	}
	if userID == 0 {
		return 0, company.ErrUserNotFound
	}
	return userID, nil
}
