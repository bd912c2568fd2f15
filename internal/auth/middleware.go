package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims the API expects. CompanyID scopes every query;
// Role gates the approval and override endpoints.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

const (
	RoleAdmin          string = "admin"
	RoleProjectManager string = "project_manager"
	RoleViewer         string = "viewer"
)

const (
	ctxUserID    = "auth.user_id"
	ctxCompanyID = "auth.company_id"
	ctxRole      = "auth.role"
)

// RequireAuth validates the bearer token and stashes the identity on the gin
// context. Fails closed: no token, no access.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}
		companyID, err := uuid.Parse(claims.CompanyID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token company"})
			return
		}

		SetIdentity(c, userID, companyID, claims.Role)
		c.Next()
	}
}

// SetIdentity stashes the authenticated identity on the gin context. Handler
// tests use it to establish an identity without minting tokens.
func SetIdentity(c *gin.Context, userID, companyID uuid.UUID, role string) {
	c.Set(ctxUserID, userID)
	c.Set(ctxCompanyID, companyID)
	c.Set(ctxRole, role)
}

// RequireRole allows the request through only for the listed roles. Admin is
// always allowed.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		if role == RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func CompanyID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxCompanyID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func Role(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// CanApprove reports whether the role may approve or reject exceptions and
// override verdicts.
func CanApprove(role string) bool {
	return role == RoleAdmin || role == RoleProjectManager
}
