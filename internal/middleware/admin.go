package middleware

import (
	"coin_wallet/internal/domain" // Importing domain models
	"net/http"                    // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// AdminOnlyMiddleware checks the caller's role from the database on each
// request, so a demoted administrator loses access before the token expires
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeID, tenantID, ok := Identity(c) // Get identity from context
		// Check if the identity exists in context
		if !ok {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var employee domain.Employee // Fetch employee from database
		err := db.WithContext(c.Request.Context()).
			Where("id = ? AND tenant_id = ?", employeeID, tenantID).
			First(&employee).Error
		if err != nil {
			// If employee not found or any error, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// Check if employee role is admin
		if !employee.IsAdmin() {
			// If not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
