package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/xelth-com/eckdocs/internal/middleware"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/utils"
	"go.uber.org/zap"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// RefreshRequest exchanges a refresh token for a new pair
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r *Router) issueTokens(w http.ResponseWriter, status int, user *models.UserAuth, extra map[string]interface{}) {
	accessToken, refreshToken, err := utils.GenerateTokens(user, r.cfg.JWTSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}
	response := map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"user": user,
	}
	for k, v := range extra {
		response[k] = v
	}
	respondJSON(w, status, response)
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if !decodeJSON(w, req, &loginReq) {
		return
	}

	// 1. Find User
	var user models.UserAuth
	email := strings.ToLower(strings.TrimSpace(loginReq.Email))
	if err := r.db.WithContext(req.Context()).Where("email = ?", email).First(&user).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 2. Check Password
	if !user.IsActive || !utils.CheckPasswordHash(loginReq.Password, user.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 3. Update Last Login
	now := time.Now().UTC()
	user.LastLogin = &now
	if err := r.db.WithContext(req.Context()).Model(&user).UpdateColumn("last_login", now).Error; err != nil {
		r.log.Warn("failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	// 4. Generate Tokens
	r.issueTokens(w, http.StatusOK, &user, nil)
}

// register creates a user. The first user becomes admin without a token;
// afterwards only admins may register others.
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var regReq RegisterRequest
	if !decodeJSON(w, req, &regReq) {
		return
	}

	var count int64
	if err := r.db.WithContext(req.Context()).Model(&models.UserAuth{}).Count(&count).Error; err != nil {
		r.respondServiceError(w, req, err)
		return
	}

	role := models.RoleAdmin
	if count > 0 {
		claims, status, msg := r.requireAdmin(req)
		if claims == nil {
			respondError(w, status, msg)
			return
		}
		role = regReq.Role
		if role == "" {
			role = models.RoleViewer
		}
		if role != models.RoleAdmin && role != models.RoleManager && role != models.RoleViewer {
			respondError(w, http.StatusBadRequest, "Invalid role")
			return
		}
	}

	email := strings.ToLower(strings.TrimSpace(regReq.Email))
	if email == "" || regReq.Username == "" || len(regReq.Password) < 8 {
		respondError(w, http.StatusBadRequest, "Username, email and a password of at least 8 characters are required")
		return
	}

	// 1. Hash Password
	hashedPassword, err := utils.HashPassword(regReq.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	// 2. Create User
	user := models.UserAuth{
		Username: regReq.Username,
		Email:    email,
		Password: hashedPassword,
		Name:     regReq.Name,
		Role:     role,
		IsActive: true,
	}
	if err := r.db.WithContext(req.Context()).Create(&user).Error; err != nil {
		respondError(w, http.StatusBadRequest, "Failed to create user (email or username might exist)")
		return
	}
	r.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", user.Role))

	// 3. Generate Tokens for immediate login
	r.issueTokens(w, http.StatusCreated, &user, map[string]interface{}{
		"message": "User registered successfully",
	})
}

// requireAdmin validates the bearer token of a request outside the Auth chain
func (r *Router) requireAdmin(req *http.Request) (map[string]interface{}, int, string) {
	parts := strings.SplitN(req.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, http.StatusUnauthorized, "Authorization header required"
	}
	claims, err := utils.ValidateToken(parts[1], r.cfg.JWTSecret)
	if err != nil || claims["type"] != "access" {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}
	if claims["role"] != models.RoleAdmin {
		return nil, http.StatusForbidden, "Insufficient permissions"
	}
	return claims, 0, ""
}

// refresh issues a new token pair for a valid refresh token
func (r *Router) refresh(w http.ResponseWriter, req *http.Request) {
	var body RefreshRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	claims, err := utils.ValidateToken(body.RefreshToken, r.cfg.JWTSecret)
	if err != nil || claims["type"] != "refresh" {
		respondError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	id, ok := utils.ClaimsUserID(claims)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	// Role changes and deactivation take effect on refresh
	var user models.UserAuth
	if err := r.db.WithContext(req.Context()).First(&user, id).Error; err != nil || !user.IsActive {
		respondError(w, http.StatusUnauthorized, "User not found or inactive")
		return
	}
	r.issueTokens(w, http.StatusOK, &user, nil)
}

// me returns the authenticated user
func (r *Router) me(w http.ResponseWriter, req *http.Request) {
	id := middleware.UserID(req.Context())
	if id == nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var user models.UserAuth
	if err := r.db.WithContext(req.Context()).First(&user, *id).Error; err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// logout handles user logout
func (r *Router) logout(w http.ResponseWriter, req *http.Request) {
	// Tokens are stateless; the client discards them
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
