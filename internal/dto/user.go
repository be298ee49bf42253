package dto

import "github.com/vnpt-kd/kpi-plan-api/internal/models"

// CreateUserRequest registers a new account.
type CreateUserRequest struct {
	EmployeeID string          `json:"employee_id" validate:"required"`
	FullName   string          `json:"full_name" validate:"required"`
	Password   string          `json:"password" validate:"required,min=6"`
	Role       models.UserRole `json:"role" validate:"required,oneof=admin manager employee"`
	Position   string          `json:"position"`
	Area       string          `json:"area"`
}

// UpdateUserRequest edits an existing account's profile fields.
type UpdateUserRequest struct {
	FullName string          `json:"full_name" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=admin manager employee"`
	Position string          `json:"position"`
	Area     string          `json:"area"`
	Active   *bool           `json:"active"`
}

// UserResponse is the public projection of a user record.
type UserResponse struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employee_id"`
	FullName   string          `json:"full_name"`
	Role       models.UserRole `json:"role"`
	Position   string          `json:"position"`
	Area       string          `json:"area"`
	Active     bool            `json:"active"`
}

// ToUserResponse projects a user model into its public shape.
func ToUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		EmployeeID: u.EmployeeID,
		FullName:   u.FullName,
		Role:       u.Role,
		Position:   u.Position,
		Area:       u.Area,
		Active:     u.Active,
	}
}
