package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edgard/roastme/internal/auth"
	"github.com/edgard/roastme/internal/database"
)

type registerRequest struct {
	Name     string `json:"name"     binding:"required,min=2,max=50"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      *database.User `json:"user"`
}

func (r *registerRequest) trim() { trimAll(&r.Name, &r.Email) }

// NewRegisterHandler serves POST /api/auth/register.
func NewRegisterHandler(deps HandlerDeps) gin.HandlerFunc {
	log := deps.Logger.With("handler", "register")

	return func(c *gin.Context) {
		var req registerRequest
		if err := bindTrimmed(c, &req); err != nil {
			bindFailed(c, err)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			log.ErrorContext(c.Request.Context(), "Failed to hash password", "error", err)
			fail(c, http.StatusInternalServerError, "Server error")
			return
		}

		user := &database.User{Name: req.Name, Email: req.Email, PasswordHash: hash}
		if err := deps.Store.CreateUser(c.Request.Context(), user); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				fail(c, http.StatusConflict, "User already exists")
				return
			}
			fail(c, http.StatusInternalServerError, "Server error")
			return
		}

		token, expires, err := deps.Tokens.Issue(user.ID, user.Name)
		if err != nil {
			log.ErrorContext(c.Request.Context(), "Failed to issue token", "error", err)
			fail(c, http.StatusInternalServerError, "Server error")
			return
		}

		log.InfoContext(c.Request.Context(), "User registered", "user_id", user.ID)
		c.JSON(http.StatusCreated, authResponse{Token: token, ExpiresAt: expires, User: user})
	}
}

// NewLoginHandler serves POST /api/auth/login.
func NewLoginHandler(deps HandlerDeps) gin.HandlerFunc {
	log := deps.Logger.With("handler", "login")

	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err)
			return
		}

		user, err := deps.Store.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			fail(c, http.StatusInternalServerError, "Server error")
			return
		}
		if user == nil {
			fail(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
		if err != nil {
			log.ErrorContext(c.Request.Context(), "Stored password hash is unreadable", "user_id", user.ID, "error", err)
		}
		if !ok {
			fail(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, expires, err := deps.Tokens.Issue(user.ID, user.Name)
		if err != nil {
			log.ErrorContext(c.Request.Context(), "Failed to issue token", "error", err)
			fail(c, http.StatusInternalServerError, "Server error")
			return
		}

		c.JSON(http.StatusOK, authResponse{Token: token, ExpiresAt: expires, User: user})
	}
}

// NewCurrentUserHandler serves GET /api/auth/user.
func NewCurrentUserHandler(HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, currentUser(c))
	}
}
