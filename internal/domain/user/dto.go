package user

import (
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/validator"
)

// UserResponse represents user data in API responses
type UserResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         Role        `json:"role"`
	AccessLevel  AccessLevel `json:"access_level"`
	Department   string      `json:"department"`
	Designation  *string     `json:"designation,omitempty"`
	EmployeeCode *string     `json:"employee_code,omitempty"`
	Phone        *string     `json:"phone,omitempty"`
	IsActive     bool        `json:"is_active"`
	LastLoginAt  *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ToResponse maps the entity to its API shape
func (u User) ToResponse() UserResponse {
	return UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		AccessLevel:  u.Role.AccessLevel(),
		Department:   u.Department,
		Designation:  u.Designation,
		EmployeeCode: u.EmployeeCode,
		Phone:        u.Phone,
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}

// CreateUserRequest represents request to create a new user
type CreateUserRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Role         string  `json:"role"`
	Department   string  `json:"department"`
	Designation  *string `json:"designation,omitempty"`
	EmployeeCode *string `json:"employee_code,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	JoiningDate  *string `json:"joining_date,omitempty"`
}

func (r *CreateUserRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name is required",
		})
	}

	if validator.IsEmpty(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email is required",
		})
	} else if !validator.IsValidEmail(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "invalid email format",
		})
	}

	if validator.IsEmpty(r.Password) {
		errs = append(errs, validator.ValidationError{
			Field:   "password",
			Message: "password is required",
		})
	} else if len(r.Password) < 8 {
		errs = append(errs, validator.ValidationError{
			Field:   "password",
			Message: "password must be at least 8 characters",
		})
	}

	if !Role(r.Role).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "role",
			Message: "role must be one of teacher, hod, principal, director, registrar, hr",
		})
	}

	if validator.IsEmpty(r.Department) {
		errs = append(errs, validator.ValidationError{
			Field:   "department",
			Message: "department is required",
		})
	}

	if r.JoiningDate != nil {
		if _, ok := validator.IsValidDate(*r.JoiningDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "joining_date",
				Message: "joining_date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// UpdateUserRequest is a partial update, nil fields are left unchanged
type UpdateUserRequest struct {
	Name         *string `json:"name,omitempty"`
	Role         *string `json:"role,omitempty"`
	Department   *string `json:"department,omitempty"`
	Designation  *string `json:"designation,omitempty"`
	EmployeeCode *string `json:"employee_code,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

func (r *UpdateUserRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Name != nil && validator.IsEmpty(*r.Name) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name cannot be empty",
		})
	}

	if r.Role != nil && !Role(*r.Role).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "role",
			Message: "role must be one of teacher, hod, principal, director, registrar, hr",
		})
	}

	if r.Department != nil && validator.IsEmpty(*r.Department) {
		errs = append(errs, validator.ValidationError{
			Field:   "department",
			Message: "department cannot be empty",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Deactivates reports whether the request switches the account off
func (r UpdateUserRequest) Deactivates() bool {
	return r.IsActive != nil && !*r.IsActive
}
