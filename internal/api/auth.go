package api

import (
	"coin_wallet/internal/domain" // Importing domain models
	"coin_wallet/internal/utils"  // Utility functions
	"errors"                      // Error inspection
	"net/http"                    // HTTP status codes
	"regexp"                      // Regular expressions
	"strings"                     // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// RegisterRequest registers an employee of a restaurant
type RegisterRequest struct {
	TenantID uint   `json:"tenant_id" binding:"required"` // Restaurant the employee works for
	Username string `json:"username" binding:"required"`  // Username must be provided
	Password string `json:"password" binding:"required"`  // Password must be provided
}

// Request struct for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z]+$`)

// isValidUsername checks if the username contains only alphabetic characters
func isValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// isValidPassword checks if the password length is between 8 and 15 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 15 // Return true if length is valid
}

// RegisterHandler creates an employee account. Every account starts with the
// employee role; administrators are promoted with cmd/migrate -promote.
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Validate username and password
		if !isValidUsername(req.Username) {
			// If username is invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be alphabetic only"})
			return
		}
		// Validate password length
		if !isValidPassword(req.Password) {
			// If password is invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-15 characters"})
			return
		}
		// Hash the password and create the employee
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			// If hashing fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		// Create employee with lowercase username to ensure uniqueness
		employee := domain.Employee{
			TenantID: req.TenantID,
			Username: strings.ToLower(req.Username),
			Password: string(hash),
			Role:     domain.RoleEmployee,
		}
		// Attempt to create the employee in the database
		if err := db.WithContext(c.Request.Context()).Create(&employee).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
				return
			}
			respondError(c, err, "Registration")
			return
		}
		logrus.WithFields(logrus.Fields{
			"tenant_id":   employee.TenantID, // Restaurant
			"employee_id": employee.ID,       // New employee
		}).Info("Employee registered")
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Employee registered successfully", "employee": employee})
	}
}

// LoginHandler authenticates an employee and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var employee domain.Employee // Fetch employee from database
		if err := db.WithContext(c.Request.Context()).
			Where("username = ?", strings.ToLower(req.Username)).
			First(&employee).Error; err != nil {
			// If employee not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(employee.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(employee.ID, employee.TenantID, employee.Role, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}
