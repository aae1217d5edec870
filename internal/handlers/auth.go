package handlers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"healthcare-portal-server/internal/config"
	"healthcare-portal-server/internal/middleware"
	"healthcare-portal-server/internal/models"
	"healthcare-portal-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Store models.AccountStore
	Cfg   *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store models.AccountStore, cfg *config.Config) *AuthHandler {
	return &AuthHandler{Store: store, Cfg: cfg}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	FirstName    string `json:"firstName" binding:"required"`
	LastName     string `json:"lastName" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	Role         string `json:"role" binding:"omitempty,oneof=patient doctor hospital admin"`
	Organization string `json:"organization" binding:"max=255"`
}

// Register handles user registration. Accounts default to the patient role;
// admin accounts cannot be self-registered.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role := models.RolePatient
	if req.Role != "" {
		role = models.Role(req.Role)
	}
	if role == models.RoleAdmin {
		utils.Forbidden(c, "Admin accounts cannot be self-registered")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := h.Store.FindUserByEmail(c.Request.Context(), email); err == nil {
		utils.Conflict(c, "User with this email already exists")
		return
	} else if !errors.Is(err, models.ErrNotFound) {
		h.serverError(c, "Database error", err)
		return
	}

	user := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		Role:         role,
		Organization: req.Organization,
	}
	if err := user.SetPassword(req.Password); err != nil {
		h.serverError(c, "Failed to hash password", err)
		return
	}

	if err := h.Store.CreateUser(c.Request.Context(), &user); err != nil {
		h.serverError(c, "Failed to create user", err)
		return
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Store.FindUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			h.serverError(c, "Database error", err)
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	accessToken, refreshToken, ok := h.issueTokens(c, user)
	if !ok {
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken exchanges a refresh token for a new token pair. The presented
// token is revoked, so each refresh token works once.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		presented = req.RefreshToken
	}

	claims, err := utils.ValidateToken(presented, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	stored, err := h.Store.FindRefreshToken(ctx, presented)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		} else {
			h.serverError(c, "Database error checking refresh token", err)
		}
		return
	}
	if stored.UserID != claims.UserID || !stored.Usable(time.Now()) {
		utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		return
	}

	user, err := h.Store.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.Unauthorized(c, "User no longer exists")
		} else {
			h.serverError(c, "Failed to find user associated with token", err)
		}
		return
	}

	stored.IsRevoked = true
	if err := h.Store.SaveRefreshToken(ctx, stored); err != nil {
		h.serverError(c, "Failed to revoke refresh token", err)
		return
	}

	accessToken, refreshToken, ok := h.issueTokens(c, user)
	if !ok {
		return
	}

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the caller's refresh token and clears the cookie. Unknown
// or already revoked tokens are not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, "Invalid request payload: "+err.Error())
			return
		}
	}
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookie)
	}
	if token == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	h.setRefreshCookie(c, "", -1)

	ctx := c.Request.Context()
	stored, err := h.Store.FindRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.Success(c, "Logout successful", nil)
		} else {
			h.serverError(c, "Database error during logout", err)
		}
		return
	}
	if callerID, ok := middleware.GetUserIDFromContext(c); ok && stored.UserID != callerID {
		utils.Forbidden(c, "Refresh token belongs to another user")
		return
	}

	if !stored.IsRevoked {
		stored.IsRevoked = true
		stored.ExpiresAt = time.Now()
		if err := h.Store.SaveRefreshToken(ctx, stored); err != nil {
			h.serverError(c, "Failed to revoke refresh token", err)
			return
		}
	}

	utils.Success(c, "Logout successful", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
// Email and role cannot be changed here.
type UpdateProfileRequest struct {
	FirstName    string `json:"firstName" binding:"max=100"`
	LastName     string `json:"lastName" binding:"max=100"`
	PhoneNumber  string `json:"phoneNumber" binding:"max=50"`
	Address      string `json:"address" binding:"max=255"`
	Organization string `json:"organization" binding:"max=255"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
// Empty fields are left unchanged.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		user.Address = req.Address
	}
	if req.Organization != "" {
		user.Organization = req.Organization
	}

	if err := h.Store.SaveUser(c.Request.Context(), user); err != nil {
		h.serverError(c, "Failed to update profile", err)
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

func (h *AuthHandler) currentUser(c *gin.Context) (*models.User, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return nil, false
	}

	user, err := h.Store.FindUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.NotFound(c, "User profile not found")
		} else {
			h.serverError(c, "Database error", err)
		}
		return nil, false
	}
	return user, true
}

// issueTokens signs a token pair, stores the refresh token and sets it as an
// HTTP-only cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (string, string, bool) {
	accessToken, refreshToken, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		h.serverError(c, "Failed to generate tokens", err)
		return "", "", false
	}

	ttl := time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour
	stored := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := h.Store.CreateRefreshToken(c.Request.Context(), &stored); err != nil {
		h.serverError(c, "Failed to store refresh token", err)
		return "", "", false
	}

	h.setRefreshCookie(c, refreshToken, int(ttl.Seconds()))
	return accessToken, refreshToken, true
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetCookie(refreshCookie, value, maxAge, "/", "", !h.Cfg.IsDevelopment(), true)
}

func (h *AuthHandler) serverError(c *gin.Context, msg string, err error) {
	log.Printf("auth: %s: %v", msg, err)
	utils.InternalServerError(c, msg)
}
