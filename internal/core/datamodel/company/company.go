package company

import (
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RegistrationNumber string    `gorm:"column:registration_number;uniqueIndex;not null"`
	LegalName          string    `gorm:"column:legal_name;not null"`
	TradeName          string    `gorm:"column:trade_name"`
	StateRegistration  string    `gorm:"column:state_registration"`
	Phone              string    `gorm:"column:phone"`
	Phone2             string    `gorm:"column:phone_2"`
	Email              string    `gorm:"column:email"`
	Website            string    `gorm:"column:website"`
	ZipCode            string    `gorm:"column:zip_code"`
	Address            string    `gorm:"column:address"`
	Number             string    `gorm:"column:number"`
	Complement         string    `gorm:"column:complement"`
	Neighborhood       string    `gorm:"column:neighborhood"`
	City               string    `gorm:"column:city"`
	State              string    `gorm:"column:state;size:2"`
	IsActive           bool      `gorm:"column:is_active;index;default:true"`
	DeactivatedAt      *time.Time `gorm:"column:deactivated_at"`
	DeactivatedBy      *int64     `gorm:"column:deactivated_by"`
	CreatedAt          time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;default:now()"`
	UpdatedBy          *int64     `gorm:"column:updated_by"`
}

func (Company) TableName() string {
	return "companies"
}

type Membership struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID     int64     `gorm:"column:user_id;not null;uniqueIndex:idx_memberships_user_company"`
	CompanyID  uuid.UUID `gorm:"column:company_id;type:uuid;not null;uniqueIndex:idx_memberships_user_company"`
	Role       string    `gorm:"column:role;not null;default:broker"`
	IsActive   bool      `gorm:"column:is_active;default:true"`
	DateJoined time.Time `gorm:"column:date_joined;default:now()"`
}

func (Membership) TableName() string {
	return "memberships"
}

type Partner struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	TaxID     string    `gorm:"column:tax_id;not null"`
	Email     string    `gorm:"column:email"`
	Phone     string    `gorm:"column:phone"`
}

func (Partner) TableName() string {
	return "partners"
}
