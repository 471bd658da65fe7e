package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
	"github.com/noah-isme/lms-grades-api/pkg/response"
)

// SelfParam is the route parameter compared against the token subject when
// RBAC is given "SELF".
const SelfParam = "userId"

// RBAC enforces role-based access control for routes. "SELF" lets a user
// through when the route's user id matches their own.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if a == "SELF" {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf {
			if target := c.Param(SelfParam); target != "" && target == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireStaff only admits staff tokens.
func RequireStaff() gin.HandlerFunc {
	return RBAC(string(models.RoleStaff))
}

// StaffOrSelf admits staff and the user named by the route.
func StaffOrSelf() gin.HandlerFunc {
	return RBAC(string(models.RoleStaff), "SELF")
}
