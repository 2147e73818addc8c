package user

import (
	"errors"
	"strings"
)

// SignupDTO is the self-service registration payload.
type SignupDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
}

// Normalize lowercases the email and collapses duplicate whitespace in the
// display name.
func (dto *SignupDTO) Normalize() {
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	dto.Name = strings.Join(strings.Fields(dto.Name), " ")
}

func (dto SignupDTO) Validate() error {
	if dto.Email == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(dto.Email, "@") {
		return errors.New("email is invalid")
	}
	if len(dto.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(dto.Name) < 3 {
		return errors.New("name must be at least 3 characters")
	}
	return nil
}

// UserResponse is the API view of a user.
type UserResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	IsActive bool   `json:"is_active"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Phone:    u.Phone,
		IsActive: u.IsActive,
	}
}
