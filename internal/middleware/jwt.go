package middleware

import (
	"coin_wallet/internal/utils" // JWT utility functions
	"net/http"                   // HTTP status codes
	"strings"                    // String manipulation

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by JWTAuthMiddleware
const (
	CtxEmployeeID = "employeeID"
	CtxTenantID   = "tenantID"
	CtxRole       = "role"
)

// JWTAuthMiddleware validates JWT tokens and extracts the caller's identity
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		// Every request is scoped to the tenant carried in the token
		c.Set(CtxEmployeeID, claims.EmployeeID)
		c.Set(CtxTenantID, claims.TenantID)
		c.Set(CtxRole, claims.Role)
		c.Next() // Proceed to the next handler
	}
}

// Identity returns the employee and tenant set by JWTAuthMiddleware
func Identity(c *gin.Context) (employeeID, tenantID uint, ok bool) {
	e, ok1 := c.Get(CtxEmployeeID)
	t, ok2 := c.Get(CtxTenantID)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	employeeID, ok1 = e.(uint)
	tenantID, ok2 = t.(uint)
	return employeeID, tenantID, ok1 && ok2
}
