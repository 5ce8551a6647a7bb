package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	auth "bizdesk-system/internal/auth/handler"
)

type AuthHTTPHandler struct {
	auth *auth.AuthHandler
}

func NewAuthHTTPHandler(authHandler *auth.AuthHandler) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		auth: authHandler,
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHTTPHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	session, err := h.auth.Register(ctx, auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if err == auth.ErrDuplicateUser {
			c.JSON(http.StatusConflict, errorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Registration failed"))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Registration successful", map[string]interface{}{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       session.User,
	}))
}

func (h *AuthHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	session, err := h.auth.Login(ctx, auth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if err == auth.ErrInvalidCredentials {
			c.JSON(http.StatusUnauthorized, errorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Authentication failed"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Login successful", map[string]interface{}{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       session.User,
	}))
}
