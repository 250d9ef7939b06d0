package wallet_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"coin_wallet/internal/dbtest"
	"coin_wallet/internal/domain"
	"coin_wallet/internal/wallet"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memRedis is an in-memory stand-in for the commands the wallet cache uses.
// beforeSet runs ahead of each SET, outside the store lock.
type memRedis struct {
	redis.UniversalClient

	mu        sync.Mutex
	data      map[string]string
	hits      int
	beforeSet func(key string)
}

func newMemRedis() *memRedis {
	return &memRedis{data: map[string]string{}}
}

func (r *memRedis) Get(_ context.Context, key string) *redis.StringCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	r.hits++
	return redis.NewStringResult(v, nil)
}

func (r *memRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if r.beforeSet != nil {
		r.beforeSet(key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		r.data[key] = string(v)
	case string:
		r.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (r *memRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := r.data[k]; ok {
			delete(r.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (r *memRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range r.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (r *memRedis) hitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits
}

func (r *memRedis) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.data))
	for k := range r.data {
		out = append(out, k)
	}
	return out
}

func newCachedManager(t *testing.T) (*wallet.Manager, *gorm.DB, *memRedis) {
	gdb := dbtest.New(t)
	rdb := newMemRedis()
	m := wallet.NewManager(gdb,
		wallet.WithNotifier(&recorder{}),
		wallet.WithClock(func() time.Time { return fixedNow }),
		wallet.WithCache(rdb, time.Minute),
	)
	return m, gdb, rdb
}

// =============================================================================
// CACHED READS
// =============================================================================

func TestSummaryCache_HitAfterFill(t *testing.T) {
	m, _, rdb := newCachedManager(t)
	ctx := context.Background()

	_, err := m.ApplyCredit(ctx, tenant, 10, 100, "award")
	require.NoError(t, err)

	first, err := m.Summary(ctx, tenant, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, rdb.hitCount())

	second, err := m.Summary(ctx, tenant, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, rdb.hitCount())
	assert.Equal(t, first.AvailableBalance, second.AvailableBalance)
	assert.Len(t, second.Transactions, 1)
}

func TestSummaryCache_CommitDuringFill(t *testing.T) {
	m, gdb, rdb := newCachedManager(t)
	ctx := context.Background()

	_, err := m.ApplyCredit(ctx, tenant, 10, 100, "award")
	require.NoError(t, err)

	// The debit commits, and invalidates, after the summary was read but
	// before it reaches Redis.
	var once sync.Once
	rdb.beforeSet = func(key string) {
		if !strings.Contains(key, ":summary:") {
			return
		}
		once.Do(func() {
			_, err := m.ApplyDebit(ctx, tenant, 10, 60, "lunch", nil)
			require.NoError(t, err)
		})
	}

	stale, err := m.Summary(ctx, tenant, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stale.AvailableBalance)

	assert.Equal(t, int64(40), loadWallet(t, gdb, 10).Available())
	s, err := m.Summary(ctx, tenant, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(40), s.AvailableBalance)
	assert.Equal(t, int64(60), s.TotalSpent)
	assert.Len(t, s.Transactions, 2)
}

func TestHistoryCache_CommitDuringFill(t *testing.T) {
	m, _, rdb := newCachedManager(t)
	ctx := context.Background()

	_, err := m.ApplyCredit(ctx, tenant, 10, 100, "award")
	require.NoError(t, err)

	var once sync.Once
	rdb.beforeSet = func(key string) {
		if !strings.HasPrefix(key, "txhistory:") {
			return
		}
		once.Do(func() {
			_, err := m.ApplyCredit(ctx, tenant, 10, 5, "bonus")
			require.NoError(t, err)
		})
	}

	stale, err := m.History(ctx, tenant, 10, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stale.Total)

	p, err := m.History(ctx, tenant, 10, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Total)
	require.Len(t, p.Transactions, 2)

	tp, err := m.TenantHistory(ctx, tenant, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tp.Total)
}

func TestSummaryCache_TenantChecked(t *testing.T) {
	m, _, _ := newCachedManager(t)
	ctx := context.Background()

	_, err := m.ApplyCredit(ctx, tenant, 10, 100, "award")
	require.NoError(t, err)
	_, err = m.Summary(ctx, tenant, 10)
	require.NoError(t, err)

	_, err = m.Summary(ctx, tenant+1, 10)
	assert.ErrorIs(t, err, domain.ErrWalletTenantMismatch)
}

func TestCommitDropsSupersededEntries(t *testing.T) {
	m, _, rdb := newCachedManager(t)
	ctx := context.Background()

	_, err := m.ApplyCredit(ctx, tenant, 10, 100, "award")
	require.NoError(t, err)
	_, err = m.Summary(ctx, tenant, 10)
	require.NoError(t, err)
	_, err = m.History(ctx, tenant, 10, 1, 10)
	require.NoError(t, err)
	require.Len(t, rdb.keys(), 2)

	_, err = m.ApplyDebit(ctx, tenant, 10, 10, "coffee", nil)
	require.NoError(t, err)
	assert.Empty(t, rdb.keys())
}
