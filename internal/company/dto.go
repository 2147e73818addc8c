package company

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError marks a request payload problem so the transport layer can
// answer 400 instead of 500.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

func isValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// PartnerDTO is one legal stakeholder row submitted with a company.
type PartnerDTO struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (p PartnerDTO) Validate(idx int) error {
	if strings.TrimSpace(p.Name) == "" {
		return validationErrorf("partner %d: name is required", idx+1)
	}
	if strings.TrimSpace(p.TaxID) == "" {
		return validationErrorf("partner %d: tax_id is required", idx+1)
	}
	return nil
}

// CompanyDTO carries the company fields shared by create and update. The
// submitted partner list is authoritative: on update it replaces the stored
// set.
type CompanyDTO struct {
	RegistrationNumber string       `json:"registration_number"`
	LegalName          string       `json:"legal_name"`
	TradeName          string       `json:"trade_name,omitempty"`
	StateRegistration  string       `json:"state_registration,omitempty"`
	Phone              string       `json:"phone,omitempty"`
	Phone2             string       `json:"phone_2,omitempty"`
	Email              string       `json:"email,omitempty"`
	Website            string       `json:"website,omitempty"`
	ZipCode            string       `json:"zip_code,omitempty"`
	Address            string       `json:"address,omitempty"`
	Number             string       `json:"number,omitempty"`
	Complement         string       `json:"complement,omitempty"`
	Neighborhood       string       `json:"neighborhood,omitempty"`
	City               string       `json:"city,omitempty"`
	State              string       `json:"state,omitempty"`
	Partners           []PartnerDTO `json:"partners"`
}

func (dto *CompanyDTO) Normalize() {
	dto.RegistrationNumber = strings.TrimSpace(dto.RegistrationNumber)
	dto.LegalName = strings.TrimSpace(dto.LegalName)
	dto.TradeName = strings.TrimSpace(dto.TradeName)
	dto.State = strings.ToUpper(strings.TrimSpace(dto.State))
}

func (dto CompanyDTO) Validate() error {
	if dto.RegistrationNumber == "" {
		return validationErrorf("registration_number is required")
	}
	if len(dto.RegistrationNumber) > 20 {
		return validationErrorf("registration_number must be at most 20 characters")
	}
	if dto.LegalName == "" {
		return validationErrorf("legal_name is required")
	}
	if dto.State != "" && !ValidState(dto.State) {
		return validationErrorf("state %q is not a valid state code", dto.State)
	}
	for i, p := range dto.Partners {
		if err := p.Validate(i); err != nil {
			return err
		}
	}
	return nil
}

// AddMemberDTO grants a user a seat in the current company.
type AddMemberDTO struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (dto *AddMemberDTO) Normalize() {
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	if dto.Role == "" {
		dto.Role = RoleBroker
	}
}

func (dto AddMemberDTO) Validate() error {
	if dto.Email == "" {
		return validationErrorf("email is required")
	}
	if !dto.Role.Valid() {
		return validationErrorf("role %q is not one of admin, financial, broker", dto.Role)
	}
	return nil
}

// SwitchCompanyDTO selects which of the caller's companies the session
// should point at.
type SwitchCompanyDTO struct {
	CompanyID string `json:"company_id"`
}

func (dto SwitchCompanyDTO) Parse() (uuid.UUID, error) {
	if dto.CompanyID == "" {
		return uuid.Nil, validationErrorf("company_id is required")
	}
	id, err := uuid.Parse(dto.CompanyID)
	if err != nil {
		return uuid.Nil, validationErrorf("company_id is not a valid UUID")
	}
	return id, nil
}

// CompanyResponse is the API view of a company with its partner list.
type CompanyResponse struct {
	Company
	Partners []*Partner `json:"partners"`
}
