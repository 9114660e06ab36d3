package accounts

import "time"

type CreateUserRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=50"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     string  `json:"role" validate:"required,oneof=admin user"`
	Status   string  `json:"status" validate:"required,oneof=active inactive"`
	Avatar   *string `json:"avatar,omitempty"`
}

type UpdateUserRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Role   *string `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	Avatar *string `json:"avatar,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// AccountResponse is the wire form of an account. The password hash never
// appears here.
type AccountResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	Status    string  `json:"status"`
	Avatar    *string `json:"avatar,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// ToResponse converts a domain account to its wire form.
func ToResponse(a *Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      string(a.Role),
		Status:    a.Status(),
		Avatar:    a.Avatar,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
