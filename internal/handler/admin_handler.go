package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quickblog/internal/service"
)

const (
	adminUsernameKey = "admin_username"
	adminIDKey       = "admin_id"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 校验管理员账号并签发访问令牌。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "Username and password are required") {
		return
	}

	token, expiresAt, err := a.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		a.respondServiceError(c, "login", err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

// AuthRequired 校验 Authorization 头中的管理员令牌。
// Accepts "Bearer <token>" and the bare token the admin panel sends.
// A rejected token answers 401; a failed user lookup is a server error.
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			respondError(c, http.StatusUnauthorized, msgUnauthorized)
			c.Abort()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		claims, err := a.auth.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				respondError(c, http.StatusUnauthorized, msgUnauthorized)
			} else {
				a.respondServiceError(c, "authenticate", err)
			}
			c.Abort()
			return
		}

		c.Set(adminUsernameKey, claims.Subject)
		c.Set(adminIDKey, claims.UserID)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 {
		if !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return header
}
