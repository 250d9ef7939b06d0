package api

import (
	"coin_wallet/internal/middleware" // Caller identity
	"coin_wallet/internal/wallet"     // Wallet manager
	"net/http"                        // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// GetWalletHandler returns the caller's balance and most recent transactions
func GetWalletHandler(wallets *wallet.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeID, tenantID, ok := middleware.Identity(c) // Get identity from context
		// Check if identity exists in context
		if !ok {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Read through the wallet cache; a missing wallet reads as zero
		summary, err := wallets.Summary(c.Request.Context(), tenantID, employeeID)
		if err != nil {
			respondError(c, err, "Fetching wallet")
			return
		}
		c.JSON(http.StatusOK, gin.H{"wallet": summary}) // Return wallet info
	}
}

// GetTransactionHistoryHandler returns the caller's ledger entries, newest first
func GetTransactionHistoryHandler(wallets *wallet.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeID, tenantID, ok := middleware.Identity(c) // Get identity from context
		// Check if identity exists in context
		if !ok {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page, pageSize := pagination(c) // Page and page size from query
		// Fetch the page, cached per page and size
		history, err := wallets.History(c.Request.Context(), tenantID, employeeID, page, pageSize)
		if err != nil {
			respondError(c, err, "Fetching transactions")
			return
		}
		c.JSON(http.StatusOK, history) // Return transaction history
	}
}
