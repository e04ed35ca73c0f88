package api

import (
	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/export"
	"github.com/example/resumehub/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

// ThemesResponse lists the predefined export themes and the custom theme defaults.
type ThemesResponse struct {
	Themes []export.Theme       `json:"themes"`
	Custom models.ThemeSettings `json:"custom"`
}

// InitializeResponse is returned by POST /users/initialize.
type InitializeResponse struct {
	User    *models.User `json:"user"`
	Created bool         `json:"created"`
}
