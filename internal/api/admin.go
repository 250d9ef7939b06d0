package api

import (
	"coin_wallet/internal/domain"     // Importing domain models
	"coin_wallet/internal/middleware" // Caller identity
	"coin_wallet/internal/voucher"    // Voucher catalog
	"coin_wallet/internal/wallet"     // Wallet manager
	"context"                         // Request context
	"errors"                          // Error inspection
	"fmt"                             // Error wrapping
	"net/http"                        // HTTP status codes
	"strconv"                         // String conversion
	"time"                            // Active windows

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// VoucherRequest is the body of voucher create and update
type VoucherRequest struct {
	Title       string               `json:"title" binding:"required"` // Display title
	Description string               `json:"description"`              // Optional details
	CoinCost    int64                `json:"coin_cost"`                // Price in coins, must be positive
	Scope       domain.Scope         `json:"scope"`                    // ALL (default) or SPECIFIC
	EmployeeIDs []uint               `json:"employee_ids"`             // Assignees of a SPECIFIC voucher
	StartsAt    time.Time            `json:"starts_at"`                // Window start, inclusive
	EndsAt      time.Time            `json:"ends_at"`                  // Window end, inclusive
	Status      domain.VoucherStatus `json:"status"`                   // Active or Inactive; omitted keeps the current status
}

func (r VoucherRequest) input() (voucher.Input, error) {
	in := voucher.Input{
		Title:       r.Title,
		Description: r.Description,
		CoinCost:    r.CoinCost,
		Window:      domain.Window{Start: r.StartsAt, End: r.EndsAt},
		Status:      r.Status,
	}
	switch r.Scope {
	case "", domain.ScopeAll:
		if len(r.EmployeeIDs) > 0 {
			return in, fmt.Errorf("%w: employee_ids require scope %s", domain.ErrInvalidVoucher, domain.ScopeSpecific)
		}
		in.Assignment = domain.AssignAll()
	case domain.ScopeSpecific:
		a, err := domain.AssignTo(r.EmployeeIDs...)
		if err != nil {
			return in, err
		}
		in.Assignment = a
	default:
		return in, fmt.Errorf("%w: unknown scope %q", domain.ErrInvalidVoucher, r.Scope)
	}
	return in, nil
}

// VoucherResponse is a voucher as administrators see it
type VoucherResponse struct {
	domain.Voucher
	EmployeeIDs []uint `json:"employee_ids,omitempty"` // Assignees of a SPECIFIC voucher
}

func voucherResponse(v *domain.Voucher) VoucherResponse {
	return VoucherResponse{Voucher: *v, EmployeeIDs: v.Assignment().Employees()}
}

// StatusRequest activates or deactivates a voucher
type StatusRequest struct {
	Status domain.VoucherStatus `json:"status" binding:"required"` // Active or Inactive
}

// CreditRequest awards coins to an employee
type CreditRequest struct {
	Amount      int64  `json:"amount"`      // Coins to add, must be positive
	Description string `json:"description"` // Shown in the employee's history
}

// EmployeeAdminResponse represents the employee data returned to admin
type EmployeeAdminResponse struct {
	ID               uint           `json:"id"`                // Employee ID
	Username         string         `json:"username"`          // Username
	Role             string         `json:"role"`              // Employee role
	Wallet           *domain.Wallet `json:"wallet,omitempty"`  // Wallet, absent until the first credit
	AvailableBalance int64          `json:"available_balance"` // Spendable coins
}

// CreateVoucherHandler adds a voucher to the caller's restaurant
func CreateVoucherHandler(catalog *voucher.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, tenantID, _ := middleware.Identity(c) // Identity checked by the admin middleware
		var req VoucherRequest                         // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		in, err := req.input()
		if err != nil {
			respondError(c, err, "Creating voucher")
			return
		}
		v, err := catalog.Create(c.Request.Context(), tenantID, adminID, in)
		if err != nil {
			respondError(c, err, "Creating voucher")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"voucher": voucherResponse(v)})
	}
}

// ListAdminVouchersHandler lists the restaurant's vouchers, optionally
// filtered by status, scope and an instant inside the active window
func ListAdminVouchersHandler(catalog *voucher.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID, _ := middleware.Identity(c) // Identity checked by the admin middleware
		f := voucher.Filter{
			Status: domain.VoucherStatus(c.Query("status")), // Filter by status
			Scope:  domain.Scope(c.Query("scope")),          // Filter by scope
		}
		// Filter by an instant inside the window
		if at := c.Query("active_at"); at != "" {
			t, err := time.Parse(time.RFC3339, at)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "active_at must be RFC3339"})
				return
			}
			f.ActiveAt = &t
		}
		vs, err := catalog.List(c.Request.Context(), tenantID, f)
		if err != nil {
			respondError(c, err, "Fetching vouchers")
			return
		}
		resp := make([]VoucherResponse, len(vs))
		for i := range vs {
			resp[i] = voucherResponse(&vs[i])
		}
		c.JSON(http.StatusOK, gin.H{"vouchers": resp})
	}
}

// GetVoucherHandler returns one voucher of the restaurant
func GetVoucherHandler(catalog *voucher.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID, _ := middleware.Identity(c)
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		v, err := catalog.Get(c.Request.Context(), tenantID, id)
		if err != nil {
			respondError(c, err, "Fetching voucher")
			return
		}
		c.JSON(http.StatusOK, gin.H{"voucher": voucherResponse(v)})
	}
}

// UpdateVoucherHandler replaces a voucher's definition, assignees included
func UpdateVoucherHandler(catalog *voucher.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID, _ := middleware.Identity(c)
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		var req VoucherRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		in, err := req.input()
		if err != nil {
			respondError(c, err, "Updating voucher")
			return
		}
		v, err := catalog.Update(c.Request.Context(), tenantID, id, in)
		if err != nil {
			respondError(c, err, "Updating voucher")
			return
		}
		c.JSON(http.StatusOK, gin.H{"voucher": voucherResponse(v)})
	}
}

// SetVoucherStatusHandler activates or deactivates a voucher
func SetVoucherStatusHandler(catalog *voucher.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID, _ := middleware.Identity(c)
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		var req StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		v, err := catalog.SetStatus(c.Request.Context(), tenantID, id, req.Status)
		if err != nil {
			respondError(c, err, "Updating voucher status")
			return
		}
		c.JSON(http.StatusOK, gin.H{"voucher": voucherResponse(v)})
	}
}

// DeleteVoucherHandler removes a voucher; past redemptions stay in the ledger
func DeleteVoucherHandler(catalog *voucher.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID, _ := middleware.Identity(c)
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		if err := catalog.Delete(c.Request.Context(), tenantID, id); err != nil {
			respondError(c, err, "Deleting voucher")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Voucher deleted"})
	}
}

// findEmployee makes sure the employee belongs to the caller's restaurant
func findEmployee(ctx context.Context, db *gorm.DB, tenantID, employeeID uint) error {
	var employee domain.Employee
	err := db.WithContext(ctx).Select("id").
		Where("id = ? AND tenant_id = ?", employeeID, tenantID).
		First(&employee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrEmployeeNotFound
	}
	return err
}

// CreditWalletHandler awards coins to an employee of the restaurant
func CreditWalletHandler(db *gorm.DB, wallets *wallet.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID, _ := middleware.Identity(c)
		employeeID, ok := uintParam(c, "employee_id") // Employee from path
		if !ok {
			return
		}
		var req CreditRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		ctx := c.Request.Context()
		if err := findEmployee(ctx, db, tenantID, employeeID); err != nil {
			respondError(c, err, "Crediting wallet")
			return
		}
		if req.Description == "" {
			req.Description = "Coins awarded"
		}
		entry, err := wallets.ApplyCredit(ctx, tenantID, employeeID, req.Amount, req.Description)
		if err != nil {
			respondError(c, err, "Crediting wallet")
			return
		}
		w, err := wallets.Wallet(ctx, tenantID, employeeID)
		if err != nil {
			respondError(c, err, "Crediting wallet")
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": entry, "wallet": w, "available_balance": w.Available()})
	}
}

// ReconcileWalletHandler recomputes an employee's totals from the ledger
func ReconcileWalletHandler(db *gorm.DB, wallets *wallet.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID, _ := middleware.Identity(c)
		employeeID, ok := uintParam(c, "employee_id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		if err := findEmployee(ctx, db, tenantID, employeeID); err != nil {
			respondError(c, err, "Reconciling wallet")
			return
		}
		rec, err := wallets.Reconcile(ctx, tenantID, employeeID)
		if err != nil {
			respondError(c, err, "Reconciling wallet")
			return
		}
		c.JSON(http.StatusOK, gin.H{"reconciliation": rec})
	}
}

// ListEmployeesHandler returns the restaurant's employees with their wallet info
func ListEmployeesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID, _ := middleware.Identity(c)
		page, pageSize := pagination(c) // Page and page size from query
		offset := (page - 1) * pageSize // Calculate offset for pagination
		// Tenant's employees; the session makes the query reusable for count and fetch
		query := db.WithContext(c.Request.Context()).
			Model(&domain.Employee{}).
			Where("tenant_id = ?", tenantID).
			Session(&gorm.Session{})
		var total int64 // Total employee count
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Counting employees")
			return
		}
		var employees []domain.Employee // Slice to hold employees
		// Preload Wallet relation, apply offset and limit for pagination
		if err := query.Preload("Wallet").Order("id").Offset(offset).Limit(pageSize).Find(&employees).Error; err != nil {
			respondError(c, err, "Fetching employees")
			return
		}
		// Map employees to response format
		resp := make([]EmployeeAdminResponse, len(employees))
		for i, e := range employees {
			resp[i] = EmployeeAdminResponse{
				ID:               e.ID,                              // Employee ID
				Username:         e.Username,                        // Username
				Role:             e.Role,                            // Employee role
				Wallet:           e.Wallet,                          // Associated wallet
				AvailableBalance: wallet.AvailableBalance(e.Wallet), // Spendable coins
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"employees":   resp,                                   // List of employees
			"page":        page,                                   // Current page
			"page_size":   pageSize,                               // Page size
			"total":       total,                                  // Total number of employees
			"total_pages": (int(total) + pageSize - 1) / pageSize, // Total pages
		})
	}
}

// ListTransactionsHandler returns the restaurant's ledger, newest first,
// optionally narrowed to one employee
func ListTransactionsHandler(wallets *wallet.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID, _ := middleware.Identity(c)
		page, pageSize := pagination(c)
		var (
			result *wallet.Page
			err    error
		)
		if e := c.Query("employee_id"); e != "" {
			employeeID, perr := strconv.ParseUint(e, 10, 64)
			if perr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid employee_id"})
				return
			}
			result, err = wallets.History(c.Request.Context(), tenantID, uint(employeeID), page, pageSize)
		} else {
			result, err = wallets.TenantHistory(c.Request.Context(), tenantID, page, pageSize)
		}
		if err != nil {
			respondError(c, err, "Fetching transactions")
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
