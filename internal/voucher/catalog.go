package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coin_wallet/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Input is the administrator-editable part of a voucher
type Input struct {
	Title       string
	Description string
	CoinCost    int64
	Assignment  domain.Assignment
	Window      domain.Window
	Status      domain.VoucherStatus // empty: Active on create, unchanged on update
}

func (in *Input) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidVoucher)
	}
	if in.CoinCost <= 0 {
		return domain.ErrInvalidCoinCost
	}
	if !in.Window.Valid() {
		return domain.ErrInvalidWindow
	}
	if in.Status != "" && !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidVoucher, in.Status)
	}
	return nil
}

func (in Input) apply(v *domain.Voucher) {
	v.Title = strings.TrimSpace(in.Title)
	v.Description = in.Description
	v.CoinCost = in.CoinCost
	v.StartsAt = in.Window.Start
	v.EndsAt = in.Window.End
	if in.Status != "" {
		v.Status = in.Status
	}
	v.SetAssignment(in.Assignment)
}

// Filter narrows ListVouchers. Zero fields are ignored.
type Filter struct {
	Status   domain.VoucherStatus
	Scope    domain.Scope
	ActiveAt *time.Time // window contains this instant
}

// Catalog stores voucher definitions per tenant
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Create stores a new voucher owned by tenantID
func (c *Catalog) Create(ctx context.Context, tenantID, callerID uint, in Input) (*domain.Voucher, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	v := &domain.Voucher{TenantID: tenantID, CreatedBy: callerID, Status: domain.VoucherActive}
	in.apply(v)
	// The assignee rows are saved by gorm's association handling.
	if err := c.db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"voucher_id": v.ID,
		"created_by": callerID,
		"scope":      v.Scope,
		"coin_cost":  v.CoinCost,
	}).Info("Voucher created")
	return v, nil
}

// Get loads one voucher of the tenant with its assignees
func (c *Catalog) Get(ctx context.Context, tenantID, id uint) (*domain.Voucher, error) {
	return get(c.db.WithContext(ctx), tenantID, id)
}

func get(db *gorm.DB, tenantID, id uint) (*domain.Voucher, error) {
	var v domain.Voucher
	err := db.Preload("Assignees").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns the tenant's vouchers matching f, newest first
func (c *Catalog) List(ctx context.Context, tenantID uint, f Filter) ([]domain.Voucher, error) {
	q := c.db.WithContext(ctx).Preload("Assignees").Where("tenant_id = ?", tenantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Scope != "" {
		q = q.Where("scope = ?", f.Scope)
	}
	if f.ActiveAt != nil {
		q = q.Where("starts_at <= ? AND ends_at >= ?", *f.ActiveAt, *f.ActiveAt)
	}
	var vs []domain.Voucher
	if err := q.Order("created_at desc, id desc").Find(&vs).Error; err != nil {
		return nil, err
	}
	return vs, nil
}

// VisibleTo returns the tenant's Active vouchers the employee is targeted by
func (c *Catalog) VisibleTo(ctx context.Context, tenantID, employeeID uint) ([]domain.Voucher, error) {
	vs, err := c.List(ctx, tenantID, Filter{Status: domain.VoucherActive})
	if err != nil {
		return nil, err
	}
	out := vs[:0]
	for _, v := range vs {
		if v.Assignment().Includes(employeeID) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Update replaces the editable fields of a voucher, assignees included
func (c *Catalog) Update(ctx context.Context, tenantID, id uint, in Input) (*domain.Voucher, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var v *domain.Voucher
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if v, err = get(tx, tenantID, id); err != nil {
			return err
		}
		in.apply(v)
		if err := tx.Where("voucher_id = ?", v.ID).Delete(&domain.VoucherAssignee{}).Error; err != nil {
			return err
		}
		if len(v.Assignees) > 0 {
			if err := tx.Create(&v.Assignees).Error; err != nil {
				return err
			}
		}
		return tx.Omit("Assignees").Save(v).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"tenant_id": tenantID, "voucher_id": id}).Info("Voucher updated")
	return v, nil
}

// SetStatus activates or deactivates a voucher. Past redemptions are unaffected.
func (c *Catalog) SetStatus(ctx context.Context, tenantID, id uint, status domain.VoucherStatus) (*domain.Voucher, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidVoucher, status)
	}
	res := c.db.WithContext(ctx).Model(&domain.Voucher{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrVoucherNotFound
	}
	return c.Get(ctx, tenantID, id)
}

// Delete soft-deletes a voucher. Its ledger entries keep their voucher id.
func (c *Catalog) Delete(ctx context.Context, tenantID, id uint) error {
	res := c.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&domain.Voucher{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVoucherNotFound
	}
	logrus.WithFields(logrus.Fields{"tenant_id": tenantID, "voucher_id": id}).Info("Voucher deleted")
	return nil
}
