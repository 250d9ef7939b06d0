package api

import (
	"coin_wallet/internal/middleware" // Auth middleware
	"coin_wallet/internal/voucher"    // Voucher catalog and redemption
	"coin_wallet/internal/wallet"     // Wallet manager

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Deps are the services the HTTP handlers call
type Deps struct {
	DB        *gorm.DB
	JWTSecret string
	Wallets   *wallet.Manager
	Catalog   *voucher.Catalog
	Redeemer  *voucher.Redeemer
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r gin.IRouter, d Deps) {
	// Auth routes
	auth := r.Group("/auth")
	auth.POST("/register", RegisterHandler(d.DB))        // Registration endpoint
	auth.POST("/login", LoginHandler(d.DB, d.JWTSecret)) // Login endpoint

	// Employee routes (protected by JWT)
	employee := r.Group("")
	employee.Use(middleware.JWTAuthMiddleware(d.JWTSecret))
	employee.GET("/wallet", GetWalletHandler(d.Wallets))                          // Wallet summary endpoint
	employee.GET("/wallet/transactions", GetTransactionHistoryHandler(d.Wallets)) // Transaction history endpoint
	employee.GET("/vouchers", ListVouchersHandler(d.Redeemer))                    // Vouchers visible to the caller
	employee.POST("/vouchers/:id/redeem", RedeemVoucherHandler(d.Redeemer))       // Redemption endpoint

	// Admin routes (protected, admin only)
	admin := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware
	admin.Use(middleware.JWTAuthMiddleware(d.JWTSecret), middleware.AdminOnlyMiddleware(d.DB))
	admin.POST("/vouchers", CreateVoucherHandler(d.Catalog))                               // Create voucher
	admin.GET("/vouchers", ListAdminVouchersHandler(d.Catalog))                            // List vouchers
	admin.GET("/vouchers/:id", GetVoucherHandler(d.Catalog))                               // Get voucher
	admin.PUT("/vouchers/:id", UpdateVoucherHandler(d.Catalog))                            // Update voucher
	admin.PATCH("/vouchers/:id/status", SetVoucherStatusHandler(d.Catalog))                // Activate or deactivate
	admin.DELETE("/vouchers/:id", DeleteVoucherHandler(d.Catalog))                         // Delete voucher
	admin.POST("/wallets/:employee_id/credit", CreditWalletHandler(d.DB, d.Wallets))       // Award coins
	admin.POST("/wallets/:employee_id/reconcile", ReconcileWalletHandler(d.DB, d.Wallets)) // Repair wallet totals
	admin.GET("/employees", ListEmployeesHandler(d.DB))                                    // List employees
	admin.GET("/transactions", ListTransactionsHandler(d.Wallets))                         // Tenant ledger
}
