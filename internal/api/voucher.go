package api

import (
	"coin_wallet/internal/middleware" // Caller identity
	"coin_wallet/internal/voucher"    // Voucher catalog and redemption
	"net/http"                        // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// ListVouchersHandler returns the vouchers the caller can see, each flagged
// with whether it was redeemed and whether it can be redeemed now
func ListVouchersHandler(redeemer *voucher.Redeemer) gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeID, tenantID, ok := middleware.Identity(c) // Get identity from context
		// Check if identity exists in context
		if !ok {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		vouchers, err := redeemer.ListForEmployee(c.Request.Context(), tenantID, employeeID)
		if err != nil {
			respondError(c, err, "Fetching vouchers")
			return
		}
		c.JSON(http.StatusOK, gin.H{"vouchers": vouchers})
	}
}

// RedeemVoucherHandler spends the caller's coins on a voucher
func RedeemVoucherHandler(redeemer *voucher.Redeemer) gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeID, tenantID, ok := middleware.Identity(c) // Get identity from context
		// Check if identity exists in context
		if !ok {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		voucherID, ok := uintParam(c, "id") // Voucher from path
		if !ok {
			return
		}
		// Eligibility, balance check and debit run as one unit
		receipt, err := redeemer.Redeem(c.Request.Context(), tenantID, employeeID, voucherID)
		if err != nil {
			respondError(c, err, "Redemption")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Voucher redeemed successfully", "redemption": receipt})
	}
}
