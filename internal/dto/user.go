package dto

import "github.com/itops-hq/asset-custody-api/internal/models"

// CreateUserRequest registers a new user (admin only).
type CreateUserRequest struct {
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required,min=6"`
	FullName string          `json:"full_name" binding:"required"`
	Group    string          `json:"group" binding:"required"`
	Role     models.UserRole `json:"role"`
}

// UpdateUserRequest mutates profile fields; nil pointers leave fields alone.
type UpdateUserRequest struct {
	FullName *string          `json:"full_name"`
	Group    *string          `json:"group"`
	Role     *models.UserRole `json:"role"`
	Password *string          `json:"password"`
}
