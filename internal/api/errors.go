package api

import (
	"coin_wallet/internal/domain" // Importing domain models
	"coin_wallet/internal/lock"   // Wallet lock errors
	"errors"                      // Error inspection
	"net/http"                    // HTTP status codes
	"strconv"                     // String conversion

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// respondError maps a service error onto an HTTP response
func respondError(c *gin.Context, err error, action string) {
	var notEligible *domain.NotEligibleError
	var shortfall *domain.InsufficientBalanceError
	switch {
	case errors.As(err, &notEligible):
		// Redemption rules failed, report which one
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": notEligible.Reason})
	case errors.As(err, &shortfall):
		// Not enough coins for a direct debit
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"reason":    domain.ReasonInsufficientBalance,
			"available": shortfall.Available,
			"requested": shortfall.Requested,
		})
	case errors.Is(err, domain.ErrVoucherNotFound), errors.Is(err, domain.ErrEmployeeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrWalletTenantMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case domain.IsClientError(err):
		// Invalid amount or voucher definition
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, lock.ErrTimeout):
		// The wallet is busy, the caller may retry
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Wallet is busy, try again"})
	default:
		// Log the error with context
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route
			"error": err.Error(),  // Error message
		}).Error(action + " failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": action + " failed"})
	}
}

// pagination reads page and page_size from the query, defaulting to 1 and 20
func pagination(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page
	pageSize = 20 // Default page size
	// If page exists in query
	if p := c.Query("page"); p != "" {
		// Convert page to integer
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// If page_size exists in query
	if ps := c.Query("page_size"); ps != "" {
		// Convert page_size to integer
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size if valid
		}
	}
	return page, pageSize
}

// uintParam parses a positive numeric path parameter
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}
