package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coin_wallet/internal/dbtest"
	"coin_wallet/internal/domain"
	"coin_wallet/internal/utils"
	"coin_wallet/internal/voucher"
	"coin_wallet/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

type server struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	admin  domain.Employee
	alice  domain.Employee
	bob    domain.Employee
	other  domain.Employee // belongs to another restaurant
}

func newServer(t *testing.T) *server {
	gin.SetMode(gin.TestMode)
	gdb := dbtest.New(t)
	wallets := wallet.NewManager(gdb, wallet.WithClock(func() time.Time { return testNow }))
	catalog := voucher.NewCatalog(gdb)

	r := gin.New()
	RegisterRoutes(r, Deps{
		DB:        gdb,
		JWTSecret: testSecret,
		Wallets:   wallets,
		Catalog:   catalog,
		Redeemer:  voucher.NewRedeemer(catalog, wallets),
	})

	s := &server{t: t, db: gdb, router: r}
	s.admin = s.employee(1, "boss", domain.RoleAdmin)
	s.alice = s.employee(1, "alice", domain.RoleEmployee)
	s.bob = s.employee(1, "bob", domain.RoleEmployee)
	s.other = s.employee(2, "carol", domain.RoleEmployee)
	return s
}

func (s *server) employee(tenantID uint, username, role string) domain.Employee {
	e := domain.Employee{TenantID: tenantID, Username: username, Password: "x", Role: role}
	require.NoError(s.t, s.db.Create(&e).Error)
	return e
}

func (s *server) token(e domain.Employee) string {
	tok, err := utils.GenerateJWT(e.ID, e.TenantID, e.Role, testSecret)
	require.NoError(s.t, err)
	return tok
}

// do sends a JSON request as e (nil for anonymous) and decodes the response body
func (s *server) do(e *domain.Employee, method, path string, body any) (int, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if e != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(*e))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (s *server) createVoucher(body map[string]any) uint {
	code, resp := s.do(&s.admin, http.MethodPost, "/admin/vouchers", body)
	require.Equal(s.t, http.StatusCreated, code, resp)
	return uint(resp["voucher"].(map[string]any)["id"].(float64))
}

func (s *server) credit(e domain.Employee, amount int64) {
	code, resp := s.do(&s.admin, http.MethodPost, path("/admin/wallets/%d/credit", e.ID), gin.H{"amount": amount})
	require.Equal(s.t, http.StatusOK, code, resp)
}

func path(format string, id uint) string {
	return fmt.Sprintf(format, id)
}

func lunch(cost int64) map[string]any {
	return map[string]any{
		"title":     "Free lunch",
		"coin_cost": cost,
		"starts_at": testNow.Add(-time.Hour),
		"ends_at":   testNow.Add(24 * time.Hour),
	}
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(nil, http.MethodPost, "/auth/register", gin.H{"tenant_id": 1, "username": "Dora", "password": "password1"})
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(nil, http.MethodPost, "/auth/register", gin.H{"tenant_id": 1, "username": "dora", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(nil, http.MethodPost, "/auth/register", gin.H{"tenant_id": 1, "username": "d0ra", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := s.do(nil, http.MethodPost, "/auth/login", gin.H{"username": "DORA", "password": "password1"})
	require.Equal(t, http.StatusOK, code)
	claims, err := utils.ParseJWT(resp["token"].(string), testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.TenantID)
	assert.Equal(t, domain.RoleEmployee, claims.Role)

	code, _ = s.do(nil, http.MethodPost, "/auth/login", gin.H{"username": "dora", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAccessControl(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(nil, http.MethodGet, "/wallet", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(&s.alice, http.MethodGet, "/admin/vouchers", nil)
	assert.Equal(t, http.StatusForbidden, code)

	// A token claiming admin is not enough; the role is read from the database.
	forged := s.alice
	forged.Role = domain.RoleAdmin
	code, _ = s.do(&forged, http.MethodGet, "/admin/employees", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRedeemFlow(t *testing.T) {
	s := newServer(t)
	s.credit(s.alice, 100)
	id := s.createVoucher(lunch(60))

	code, resp := s.do(&s.alice, http.MethodGet, "/vouchers", nil)
	require.Equal(t, http.StatusOK, code)
	list := resp["vouchers"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, true, list[0].(map[string]any)["can_redeem"])

	code, resp = s.do(&s.alice, http.MethodPost, path("/vouchers/%d/redeem", id), nil)
	require.Equal(t, http.StatusOK, code, resp)
	redemption := resp["redemption"].(map[string]any)
	assert.Equal(t, "committed", redemption["state"])
	assert.Equal(t, float64(40), redemption["remaining_balance"])

	code, resp = s.do(&s.alice, http.MethodPost, path("/vouchers/%d/redeem", id), nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(domain.ReasonAlreadyRedeemed), resp["reason"])

	code, resp = s.do(&s.alice, http.MethodGet, "/wallet", nil)
	require.Equal(t, http.StatusOK, code)
	w := resp["wallet"].(map[string]any)
	assert.Equal(t, float64(100), w["total_earned"])
	assert.Equal(t, float64(60), w["total_spent"])
	assert.Equal(t, float64(40), w["available_balance"])
	assert.Len(t, w["transactions"], 2)

	code, resp = s.do(&s.alice, http.MethodGet, "/wallet/transactions?page=1&page_size=1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), resp["total"])
	assert.Equal(t, float64(2), resp["total_pages"])
	assert.Len(t, resp["transactions"], 1)
}

func TestRedeem_Rejections(t *testing.T) {
	s := newServer(t)
	s.credit(s.alice, 50)

	body := lunch(10)
	body["scope"] = domain.ScopeSpecific
	body["employee_ids"] = []uint{s.bob.ID}
	bobOnly := s.createVoucher(body)
	pricey := s.createVoucher(lunch(500))

	code, resp := s.do(&s.alice, http.MethodPost, path("/vouchers/%d/redeem", bobOnly), nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(domain.ReasonNotAssigned), resp["reason"])

	code, resp = s.do(&s.alice, http.MethodPost, path("/vouchers/%d/redeem", pricey), nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(domain.ReasonInsufficientBalance), resp["reason"])

	code, _ = s.do(&s.alice, http.MethodPost, "/vouchers/9999/redeem", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(&s.other, http.MethodPost, path("/vouchers/%d/redeem", pricey), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(&s.alice, http.MethodPost, "/vouchers/abc/redeem", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminVoucherLifecycle(t *testing.T) {
	s := newServer(t)

	body := lunch(30)
	body["scope"] = domain.ScopeSpecific
	body["employee_ids"] = []uint{}
	code, _ := s.do(&s.admin, http.MethodPost, "/admin/vouchers", body)
	assert.Equal(t, http.StatusBadRequest, code)

	body = lunch(30)
	body["ends_at"] = testNow.Add(-2 * time.Hour)
	code, _ = s.do(&s.admin, http.MethodPost, "/admin/vouchers", body)
	assert.Equal(t, http.StatusBadRequest, code)

	id := s.createVoucher(lunch(30))

	body = lunch(45)
	body["scope"] = domain.ScopeSpecific
	body["employee_ids"] = []uint{s.bob.ID}
	code, resp := s.do(&s.admin, http.MethodPut, path("/admin/vouchers/%d", id), body)
	require.Equal(t, http.StatusOK, code, resp)
	v := resp["voucher"].(map[string]any)
	assert.Equal(t, float64(45), v["coin_cost"])
	assert.Equal(t, []any{float64(s.bob.ID)}, v["employee_ids"])

	code, resp = s.do(&s.admin, http.MethodPatch, path("/admin/vouchers/%d/status", id), gin.H{"status": domain.VoucherInactive})
	require.Equal(t, http.StatusOK, code, resp)

	code, resp = s.do(&s.admin, http.MethodGet, "/admin/vouchers?status=Inactive", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp["vouchers"], 1)

	code, _ = s.do(&s.admin, http.MethodGet, "/admin/vouchers?active_at=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(&s.admin, http.MethodDelete, path("/admin/vouchers/%d", id), nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(&s.admin, http.MethodGet, path("/admin/vouchers/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminWallets(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(&s.admin, http.MethodPost, path("/admin/wallets/%d/credit", s.alice.ID), gin.H{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(&s.admin, http.MethodPost, path("/admin/wallets/%d/credit", s.other.ID), gin.H{"amount": 10})
	assert.Equal(t, http.StatusNotFound, code)

	s.credit(s.alice, 70)
	s.credit(s.bob, 5)

	code, resp := s.do(&s.admin, http.MethodGet, "/admin/employees", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), resp["total"])
	byName := map[string]map[string]any{}
	for _, e := range resp["employees"].([]any) {
		m := e.(map[string]any)
		byName[m["username"].(string)] = m
	}
	assert.Equal(t, float64(70), byName["alice"]["available_balance"])
	assert.Equal(t, float64(0), byName["boss"]["available_balance"])
	assert.NotContains(t, byName, "carol")

	code, resp = s.do(&s.admin, http.MethodGet, "/admin/transactions", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), resp["total"])

	code, resp = s.do(&s.admin, http.MethodGet, path("/admin/transactions?employee_id=%d", s.bob.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), resp["total"])

	require.NoError(t, s.db.Model(&domain.Wallet{}).Where("employee_id = ?", s.alice.ID).Update("total_earned", 1).Error)
	code, resp = s.do(&s.admin, http.MethodPost, path("/admin/wallets/%d/reconcile", s.alice.ID), nil)
	require.Equal(t, http.StatusOK, code)
	rec := resp["reconciliation"].(map[string]any)
	assert.Equal(t, true, rec["drifted"])
	assert.Equal(t, float64(70), rec["after"].(map[string]any)["total_earned"])
}
