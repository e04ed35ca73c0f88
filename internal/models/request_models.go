package models

import "encoding/json"

// CreateResumeRequest represents the request body for creating a blank resume.
type CreateResumeRequest struct {
	Title string `json:"title,omitempty"`
}

// RegisterRequest represents the request body for account registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents the request body for PUT /users/me.
// Pointers distinguish "not provided" from "clear".
type UpdateProfileRequest struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// SetUserStatusRequest toggles a user's active flag.
type SetUserStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// SetUserRoleRequest changes a user's role.
type SetUserRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin user"`
}

// ExportRequest selects the theme for a PDF export. Custom is only read when Theme is "custom".
type ExportRequest struct {
	Theme    string         `json:"theme" binding:"required"`
	FileName string         `json:"fileName,omitempty"`
	Custom   *ThemeSettings `json:"custom,omitempty"`
}

// LegacyImportRequest carries the JSON arrays of a legacy local store.
type LegacyImportRequest struct {
	Users   json.RawMessage `json:"users,omitempty"`
	Resumes json.RawMessage `json:"resumes" binding:"required"`
}
