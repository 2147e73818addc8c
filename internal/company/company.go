package company

import (
	"errors"
	"time"

	companyDatamodel "github.com/frahmantamala/company-management/internal/core/datamodel/company"
	"github.com/google/uuid"
)

// Role is the seat a user holds inside one company. It gates operations via
// RequireRole; a user may hold different roles in different companies.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleFinancial Role = "financial"
	RoleBroker    Role = "broker"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFinancial, RoleBroker:
		return true
	}
	return false
}

type Company struct {
	ID                 uuid.UUID  `json:"id"`
	RegistrationNumber string     `json:"registration_number"`
	LegalName          string     `json:"legal_name"`
	TradeName          string     `json:"trade_name,omitempty"`
	StateRegistration  string     `json:"state_registration,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	Phone2             string     `json:"phone_2,omitempty"`
	Email              string     `json:"email,omitempty"`
	Website            string     `json:"website,omitempty"`
	ZipCode            string     `json:"zip_code,omitempty"`
	Address            string     `json:"address,omitempty"`
	Number             string     `json:"number,omitempty"`
	Complement         string     `json:"complement,omitempty"`
	Neighborhood       string     `json:"neighborhood,omitempty"`
	City               string     `json:"city,omitempty"`
	State              string     `json:"state,omitempty"`
	IsActive           bool       `json:"is_active"`
	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty"`
	DeactivatedBy      *int64     `json:"deactivated_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	UpdatedBy          *int64     `json:"updated_by,omitempty"`
}

// DisplayName prefers the trade name, falling back to the legal name.
func (c *Company) DisplayName() string {
	if c.TradeName != "" {
		return c.TradeName
	}
	return c.LegalName
}

type Membership struct {
	ID         uuid.UUID `json:"id"`
	UserID     int64     `json:"user_id"`
	CompanyID  uuid.UUID `json:"company_id"`
	Role       Role      `json:"role"`
	IsActive   bool      `json:"is_active"`
	DateJoined time.Time `json:"date_joined"`
}

type Partner struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
}

// Member is a membership joined with user identity, for admin listings.
type Member struct {
	Membership
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

var (
	ErrCompanyNotFound       = errors.New("company not found")
	ErrMembershipNotFound    = errors.New("membership not found")
	ErrDuplicateRegistration = errors.New("registration number already in use")
	ErrDuplicateMembership   = errors.New("user is already a member of this company")
	ErrAlreadyHasCompany     = errors.New("user already belongs to an active company")
	ErrUserNotFound          = errors.New("no active user with that email")
	ErrNotCompanyAdmin       = errors.New("actor is not an admin of this company")
)

// brazilianStates is the fixed set of two-letter state codes accepted on the
// company address.
var brazilianStates = map[string]struct{}{
	"AC": {}, "AL": {}, "AP": {}, "AM": {}, "BA": {}, "CE": {}, "DF": {},
	"ES": {}, "GO": {}, "MA": {}, "MT": {}, "MS": {}, "MG": {}, "PA": {},
	"PB": {}, "PR": {}, "PE": {}, "PI": {}, "RJ": {}, "RN": {}, "RS": {},
	"RO": {}, "RR": {}, "SC": {}, "SP": {}, "SE": {}, "TO": {},
}

func ValidState(code string) bool {
	_, ok := brazilianStates[code]
	return ok
}

func ToDataModel(c *Company) *companyDatamodel.Company {
	return &companyDatamodel.Company{
		ID:                 c.ID,
		RegistrationNumber: c.RegistrationNumber,
		LegalName:          c.LegalName,
		TradeName:          c.TradeName,
		StateRegistration:  c.StateRegistration,
		Phone:              c.Phone,
		Phone2:             c.Phone2,
		Email:              c.Email,
		Website:            c.Website,
		ZipCode:            c.ZipCode,
		Address:            c.Address,
		Number:             c.Number,
		Complement:         c.Complement,
		Neighborhood:       c.Neighborhood,
		City:               c.City,
		State:              c.State,
		IsActive:           c.IsActive,
		DeactivatedAt:      c.DeactivatedAt,
		DeactivatedBy:      c.DeactivatedBy,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		UpdatedBy:          c.UpdatedBy,
	}
}

func FromDataModel(c *companyDatamodel.Company) *Company {
	return &Company{
		ID:                 c.ID,
		RegistrationNumber: c.RegistrationNumber,
		LegalName:          c.LegalName,
		TradeName:          c.TradeName,
		StateRegistration:  c.StateRegistration,
		Phone:              c.Phone,
		Phone2:             c.Phone2,
		Email:              c.Email,
		Website:            c.Website,
		ZipCode:            c.ZipCode,
		Address:            c.Address,
		Number:             c.Number,
		Complement:         c.Complement,
		Neighborhood:       c.Neighborhood,
		City:               c.City,
		State:              c.State,
		IsActive:           c.IsActive,
		DeactivatedAt:      c.DeactivatedAt,
		DeactivatedBy:      c.DeactivatedBy,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		UpdatedBy:          c.UpdatedBy,
	}
}

func MembershipToDataModel(m *Membership) *companyDatamodel.Membership {
	return &companyDatamodel.Membership{
		ID:         m.ID,
		UserID:     m.UserID,
		CompanyID:  m.CompanyID,
		Role:       string(m.Role),
		IsActive:   m.IsActive,
		DateJoined: m.DateJoined,
	}
}

func MembershipFromDataModel(m *companyDatamodel.Membership) *Membership {
	return &Membership{
		ID:         m.ID,
		UserID:     m.UserID,
		CompanyID:  m.CompanyID,
		Role:       Role(m.Role),
		IsActive:   m.IsActive,
		DateJoined: m.DateJoined,
	}
}

func PartnerToDataModel(p *Partner) *companyDatamodel.Partner {
	return &companyDatamodel.Partner{
		ID:        p.ID,
		CompanyID: p.CompanyID,
		Name:      p.Name,
		TaxID:     p.TaxID,
		Email:     p.Email,
		Phone:     p.Phone,
	}
}

func PartnerFromDataModel(p *companyDatamodel.Partner) *Partner {
	return &Partner{
		ID:        p.ID,
		CompanyID: p.CompanyID,
		Name:      p.Name,
		TaxID:     p.TaxID,
		Email:     p.Email,
		Phone:     p.Phone,
	}
}

func PartnersFromDataModel(partners []*companyDatamodel.Partner) []*Partner {
	result := make([]*Partner, len(partners))
	for i, p := range partners {
		result[i] = PartnerFromDataModel(p)
	}
	return result
}
