package handler

import (
	"net/http"
	"strings"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"go.uber.org/zap"
)

// AuthUserDTO is the authenticated caller
type AuthUserDTO struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
	Initials string   `json:"initials,omitempty"`
	IsAdmin  bool     `json:"isAdmin"`
}

// PermissionDTO is one resource:action pair granted to the caller
type PermissionDTO struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

type PermissionsResponseDTO struct {
	Permissions []PermissionDTO `json:"permissions"`
	Roles       []string        `json:"roles"`
}

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	logger *zap.Logger
}

func NewAuthHandler(logger *zap.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

// Me godoc
// @Summary Get current authenticated user
// @Description Returns the current authenticated user with roles
// @Tags Auth
// @Produce json
// @Success 200 {object} AuthUserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	respondJSON(w, http.StatusOK, AuthUserDTO{
		ID:       userCtx.UserID.String(),
		Name:     userCtx.DisplayName,
		Email:    userCtx.Email,
		Roles:    userCtx.RolesAsStrings(),
		Initials: initials(userCtx.DisplayName),
		IsAdmin:  userCtx.IsAdmin(),
	})
}

// Permissions godoc
// @Summary Get current user's permissions
// @Description Returns the permissions granted by the current user's roles
// @Tags Auth
// @Produce json
// @Success 200 {object} PermissionsResponseDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/permissions [get]
func (h *AuthHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	granted := userCtx.Permissions()
	dtos := make([]PermissionDTO, 0, len(granted))
	for _, p := range granted {
		resource, action, _ := strings.Cut(string(p), ":")
		dtos = append(dtos, PermissionDTO{Resource: resource, Action: action})
	}

	respondJSON(w, http.StatusOK, PermissionsResponseDTO{
		Permissions: dtos,
		Roles:       userCtx.RolesAsStrings(),
	})
}

// initials returns up to two uppercase initials of a display name
func initials(name string) string {
	parts := strings.Fields(name)
	var out []rune
	for _, p := range parts {
		out = append(out, []rune(strings.ToUpper(p))[0])
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
