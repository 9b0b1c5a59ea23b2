package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/entitlement"
	"github.com/clipscribe/clipscribe/internal/logger"
	"github.com/clipscribe/clipscribe/internal/server"
	"github.com/clipscribe/clipscribe/internal/validation"
)

const sessionCookie = "token"

type registerRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name,omitempty"`
	Role               string     `json:"role"`
	Plan               string     `json:"plan"`
	SubscriptionStatus string     `json:"subscriptionStatus,omitempty"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type meResponse struct {
	User  userResponse              `json:"user"`
	Usage entitlement.UsageSnapshot `json:"usage"`
}

func userResponseFrom(u *database.User) userResponse {
	return userResponse{
		ID:                 u.ID.String(),
		Email:              u.Email,
		Name:               u.Name,
		Role:               u.Role,
		Plan:               u.Plan,
		SubscriptionStatus: u.SubscriptionStatus,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
	}
}

func (h *Handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	hash, err := h.deps.Hasher.Hash(req.Password)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	user := &database.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		PasswordHash: hash,
		Role:         "user",
		Plan:         database.PlanFree,
	}
	if err := h.deps.Users.Create(c.Request.Context(), user); err != nil {
		server.RespondWithError(c, err)
		return
	}

	token, err := h.issueSession(c, user)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.log.Info("user registered", logger.Fields("user_id", user.ID.String()))
	server.RespondCreated(c, sessionResponse{User: userResponseFrom(user), Token: token})
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	user, err := h.deps.Users.ByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		// Do not reveal whether the account exists.
		server.RespondWithError(c, apperrors.Unauthorized("invalid email or password"))
		return
	}
	if err := h.deps.Hasher.Verify(req.Password, user.PasswordHash); err != nil {
		server.RespondWithError(c, apperrors.Unauthorized("invalid email or password"))
		return
	}

	now := time.Now().UTC()
	if err := h.deps.Users.RecordLogin(c.Request.Context(), user.ID, now); err != nil {
		h.log.Warn("record login failed", logger.Fields(
			"user_id", user.ID.String(),
			"error", err.Error(),
		))
	} else {
		user.LastLoginAt = &now
	}

	token, err := h.issueSession(c, user)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, sessionResponse{User: userResponseFrom(user), Token: token})
}

func (h *Handlers) logout(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	server.RespondNoContent(c)
}

func (h *Handlers) me(c *gin.Context) {
	user, err := h.currentUser(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	usage, err := h.deps.Usage.Usage(c.Request.Context(), user)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, meResponse{User: userResponseFrom(user), Usage: usage})
}

// issueSession signs a token for the user and sets the session cookie.
// The token is also returned in the body for clients that prefer the
// Authorization header.
func (h *Handlers) issueSession(c *gin.Context, user *database.User) (string, error) {
	token, err := h.deps.Tokens.Issue(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return "", err
	}
	c.SetCookie(sessionCookie, token, int(h.deps.Tokens.TokenTTL().Seconds()), "/", "", false, true)
	return token, nil
}
