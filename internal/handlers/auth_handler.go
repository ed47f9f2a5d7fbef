package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-todo/internal/auth"
	"ai-todo/internal/model"
)

type AuthHandler struct {
	users  UserService
	issuer *auth.Issuer
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func NewAuthHandler(users UserService, issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{users: users, issuer: issuer}
}

// Login identifies the user by name, creating the account on first use,
// and returns an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username is required")
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Username, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
}
