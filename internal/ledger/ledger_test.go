package ledger

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"stocksim/internal/domain"
	"stocksim/internal/quote"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubProvider serves quotes from a fixed table, like the real provider
// would from the upstream API.
type stubProvider struct {
	quotes map[string]*quote.Quote
}

func newStubProvider() *stubProvider {
	return &stubProvider{quotes: make(map[string]*quote.Quote)}
}

func (p *stubProvider) set(symbol, name, price string) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		panic(err)
	}
	symbol = strings.ToUpper(symbol)
	p.quotes[symbol] = &quote.Quote{Symbol: symbol, Name: name, Price: d}
}

func (p *stubProvider) remove(symbol string) {
	delete(p.quotes, strings.ToUpper(symbol))
}

func (p *stubProvider) Lookup(_ context.Context, symbol string) (*quote.Quote, error) {
	q, ok := p.quotes[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return nil, quote.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func newTestLedger(t *testing.T, quotes quote.Provider) (*Ledger, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Holding{}, &domain.HistoryEntry{}))
	return New(db, quotes, decimal.NewFromInt(10000)), db
}

func fetchUser(t *testing.T, db *gorm.DB, id uint) domain.User {
	t.Helper()
	var user domain.User
	require.NoError(t, db.First(&user, id).Error)
	return user
}

func fetchHoldings(t *testing.T, db *gorm.DB, userID uint) []domain.Holding {
	t.Helper()
	var holdings []domain.Holding
	require.NoError(t, db.Where("user_id = ?", userID).Find(&holdings).Error)
	return holdings
}

func fetchHistory(t *testing.T, db *gorm.DB, userID uint) []domain.HistoryEntry {
	t.Helper()
	var entries []domain.HistoryEntry
	require.NoError(t, db.Where("user_id = ?", userID).Order("id asc").Find(&entries).Error)
	return entries
}

func TestRegister(t *testing.T) {
	l, db := newTestLedger(t, newStubProvider())
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.True(t, user.Cash.Equal(decimal.NewFromInt(10000)), "cash = %s, want 10000", user.Cash)

	// The stored password is a hash, not the plaintext
	stored := fetchUser(t, db, user.ID)
	assert.NotEqual(t, "hunter2pass", stored.Password)

	t.Run("empty fields", func(t *testing.T) {
		_, err := l.Register(ctx, "", "pass")
		assert.ErrorIs(t, err, ErrValidation)
		_, err = l.Register(ctx, "bob", "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := l.Register(ctx, "alice", "otherpass")
		assert.ErrorIs(t, err, ErrConflict)

		// First user's record is unaffected
		again := fetchUser(t, db, user.ID)
		assert.Equal(t, stored.Password, again.Password)
		assert.True(t, again.Cash.Equal(decimal.NewFromInt(10000)))
	})
}

func TestAuthenticate(t *testing.T) {
	l, _ := newTestLedger(t, newStubProvider())
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)

	got, err := l.Authenticate(ctx, "alice", "hunter2pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = l.Authenticate(ctx, "alice", "wrongpass")
	assert.ErrorIs(t, err, ErrAuth)

	_, err = l.Authenticate(ctx, "nobody", "hunter2pass")
	assert.ErrorIs(t, err, ErrAuth)

	_, err = l.Authenticate(ctx, "", "hunter2pass")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = l.Authenticate(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuy(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	l, db := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)

	entry, err := l.Buy(ctx, user.ID, "ABC", 10)
	require.NoError(t, err)
	assert.Equal(t, "ABC", entry.Symbol)
	assert.Equal(t, int64(10), entry.Shares)
	assert.True(t, entry.Price.Equal(decimal.NewFromInt(100)))

	// cash 10000 - 10*100 = 9000
	assert.True(t, fetchUser(t, db, user.ID).Cash.Equal(decimal.NewFromInt(9000)))

	holdings := fetchHoldings(t, db, user.ID)
	require.Len(t, holdings, 1)
	assert.Equal(t, "ABC", holdings[0].Symbol)
	assert.Equal(t, int64(10), holdings[0].Shares)

	history := fetchHistory(t, db, user.ID)
	require.Len(t, history, 1)
	assert.Equal(t, int64(10), history[0].Shares)
	assert.True(t, history[0].Price.Equal(decimal.NewFromInt(100)))
}

func TestBuyAccumulatesShares(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	l, db := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)

	_, err = l.Buy(ctx, user.ID, "ABC", 10)
	require.NoError(t, err)
	_, err = l.Buy(ctx, user.ID, "ABC", 5)
	require.NoError(t, err)

	// One holding with the summed count, two history rows
	holdings := fetchHoldings(t, db, user.ID)
	require.Len(t, holdings, 1)
	assert.Equal(t, int64(15), holdings[0].Shares)
	assert.Len(t, fetchHistory(t, db, user.ID), 2)
	assert.True(t, fetchUser(t, db, user.ID).Cash.Equal(decimal.NewFromInt(8500)))
}

func TestBuyNormalizesSymbolCase(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	l, db := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)

	_, err = l.Buy(ctx, user.ID, "abc", 3)
	require.NoError(t, err)
	_, err = l.Buy(ctx, user.ID, "AbC", 2)
	require.NoError(t, err)

	// Both buys land on the same uppercase holding
	holdings := fetchHoldings(t, db, user.ID)
	require.Len(t, holdings, 1)
	assert.Equal(t, "ABC", holdings[0].Symbol)
	assert.Equal(t, int64(5), holdings[0].Shares)

	// And a mixed-case sell finds it too
	_, err = l.Sell(ctx, user.ID, "aBc", 5)
	require.NoError(t, err)
	assert.Empty(t, fetchHoldings(t, db, user.ID))
}

func TestBuyInsufficientFunds(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	l, db := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)
	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", user.ID).
		UpdateColumn("cash", decimal.NewFromInt(50)).Error)

	_, err = l.Buy(ctx, user.ID, "ABC", 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing changed: cash intact, no holding, no history
	assert.True(t, fetchUser(t, db, user.ID).Cash.Equal(decimal.NewFromInt(50)))
	assert.Empty(t, fetchHoldings(t, db, user.ID))
	assert.Empty(t, fetchHistory(t, db, user.ID))
}

func TestBuyValidation(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	l, _ := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)

	_, err = l.Buy(ctx, user.ID, "ABC", 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = l.Buy(ctx, user.ID, "ABC", -5)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = l.Buy(ctx, user.ID, "", 1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = l.Buy(ctx, user.ID, "NOPE", 1)
	assert.ErrorIs(t, err, quote.ErrNotFound)
}

func TestBuyThenSellRoundTrip(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	l, db := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)

	_, err = l.Buy(ctx, user.ID, "ABC", 10)
	require.NoError(t, err)
	assert.True(t, fetchUser(t, db, user.ID).Cash.Equal(decimal.NewFromInt(9000)))

	// Price moves to 110 before the sell
	quotes.set("ABC", "Alpha Beta Corp", "110")
	entry, err := l.Sell(ctx, user.ID, "ABC", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(-10), entry.Shares)
	assert.True(t, entry.Price.Equal(decimal.NewFromInt(110)))

	// Holding gone, cash 9000 + 10*110 = 10100
	assert.Empty(t, fetchHoldings(t, db, user.ID))
	assert.True(t, fetchUser(t, db, user.ID).Cash.Equal(decimal.NewFromInt(10100)))

	history := fetchHistory(t, db, user.ID)
	require.Len(t, history, 2)
	assert.Equal(t, int64(10), history[0].Shares)
	assert.True(t, history[0].Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(-10), history[1].Shares)
	assert.True(t, history[1].Price.Equal(decimal.NewFromInt(110)))
}

func TestSellAtSamePriceIsNetNoOp(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "37.50")
	l, db := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)

	_, err = l.Buy(ctx, user.ID, "ABC", 4)
	require.NoError(t, err)
	_, err = l.Sell(ctx, user.ID, "ABC", 4)
	require.NoError(t, err)

	// Cash back where it started, holding removed, two log rows remain
	assert.True(t, fetchUser(t, db, user.ID).Cash.Equal(decimal.NewFromInt(10000)))
	assert.Empty(t, fetchHoldings(t, db, user.ID))
	assert.Len(t, fetchHistory(t, db, user.ID), 2)
}

func TestSellPartial(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	l, db := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)

	_, err = l.Buy(ctx, user.ID, "ABC", 10)
	require.NoError(t, err)
	_, err = l.Sell(ctx, user.ID, "ABC", 4)
	require.NoError(t, err)

	// Holding reduced, not deleted
	holdings := fetchHoldings(t, db, user.ID)
	require.Len(t, holdings, 1)
	assert.Equal(t, int64(6), holdings[0].Shares)
	assert.True(t, fetchUser(t, db, user.ID).Cash.Equal(decimal.NewFromInt(9400)))
}

func TestSellFailures(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	quotes.set("XYZ", "Xylophone Inc", "10")
	l, db := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)
	_, err = l.Buy(ctx, user.ID, "ABC", 10)
	require.NoError(t, err)

	t.Run("no holding", func(t *testing.T) {
		_, err := l.Sell(ctx, user.ID, "XYZ", 1)
		assert.ErrorIs(t, err, ErrNoHolding)
	})

	t.Run("more than owned", func(t *testing.T) {
		_, err := l.Sell(ctx, user.ID, "ABC", 11)
		assert.ErrorIs(t, err, ErrInsufficientShares)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		_, err := l.Sell(ctx, user.ID, "NOPE", 1)
		assert.ErrorIs(t, err, quote.ErrNotFound)
	})

	t.Run("non-positive shares", func(t *testing.T) {
		_, err := l.Sell(ctx, user.ID, "ABC", 0)
		assert.ErrorIs(t, err, ErrValidation)
	})

	// None of the failures touched any state
	assert.True(t, fetchUser(t, db, user.ID).Cash.Equal(decimal.NewFromInt(9000)))
	holdings := fetchHoldings(t, db, user.ID)
	require.Len(t, holdings, 1)
	assert.Equal(t, int64(10), holdings[0].Shares)
	assert.Len(t, fetchHistory(t, db, user.ID), 1)
}

func TestValuation(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	quotes.set("XYZ", "Xylophone Inc", "10")
	l, db := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)
	_, err = l.Buy(ctx, user.ID, "ABC", 10) // -1000
	require.NoError(t, err)
	_, err = l.Buy(ctx, user.ID, "XYZ", 5) // -50
	require.NoError(t, err)

	// Prices move after the buys
	quotes.set("ABC", "Alpha Beta Corp", "120")
	quotes.set("XYZ", "Xylophone Inc", "8")

	p, err := l.Valuation(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, p.Lines, 2)

	// Lines sorted by symbol, priced at the fresh rates
	assert.Equal(t, "ABC", p.Lines[0].Symbol)
	assert.True(t, p.Lines[0].Total.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, "XYZ", p.Lines[1].Symbol)
	assert.True(t, p.Lines[1].Total.Equal(decimal.NewFromInt(40)))

	// netWorth = cash + sum of line totals = 8950 + 1200 + 40
	assert.True(t, p.Cash.Equal(decimal.NewFromInt(8950)))
	assert.True(t, p.NetWorth.Equal(decimal.NewFromInt(10190)))

	// Denormalized cache columns were refreshed
	holdings := fetchHoldings(t, db, user.ID)
	for _, h := range holdings {
		switch h.Symbol {
		case "ABC":
			assert.True(t, h.Price.Equal(decimal.NewFromInt(120)))
			assert.True(t, h.Total.Equal(decimal.NewFromInt(1200)))
		case "XYZ":
			assert.True(t, h.Price.Equal(decimal.NewFromInt(8)))
			assert.True(t, h.Total.Equal(decimal.NewFromInt(40)))
		}
	}

	// Calling again changes nothing authoritative
	again, err := l.Valuation(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, again.NetWorth.Equal(p.NetWorth))
	assert.True(t, fetchUser(t, db, user.ID).Cash.Equal(decimal.NewFromInt(8950)))
	var abc domain.Holding
	require.NoError(t, db.Where("user_id = ? AND symbol = ?", user.ID, "ABC").First(&abc).Error)
	assert.Equal(t, int64(10), abc.Shares)
}

func TestValuationKeepsCachedPriceForDelistedSymbol(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	l, _ := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)
	_, err = l.Buy(ctx, user.ID, "ABC", 10)
	require.NoError(t, err)

	// Symbol disappears from the provider
	quotes.remove("ABC")

	p, err := l.Valuation(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, p.Lines, 1)
	assert.True(t, p.Lines[0].Price.Equal(decimal.NewFromInt(100)))
	assert.True(t, p.NetWorth.Equal(decimal.NewFromInt(10000)))
}

func TestHistory(t *testing.T) {
	quotes := newStubProvider()
	quotes.set("ABC", "Alpha Beta Corp", "100")
	quotes.set("XYZ", "Xylophone Inc", "10")
	l, _ := newTestLedger(t, quotes)
	ctx := context.Background()

	user, err := l.Register(ctx, "alice", "hunter2pass")
	require.NoError(t, err)
	_, err = l.Buy(ctx, user.ID, "ABC", 10)
	require.NoError(t, err)
	_, err = l.Buy(ctx, user.ID, "XYZ", 5)
	require.NoError(t, err)
	_, err = l.Sell(ctx, user.ID, "ABC", 3)
	require.NoError(t, err)

	entries, total, err := l.History(ctx, user.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 3)

	// Newest first: the sell comes back on top
	assert.Equal(t, int64(-3), entries[0].Shares)
	assert.Equal(t, "ABC", entries[0].Symbol)

	t.Run("pagination", func(t *testing.T) {
		page, total, err := l.History(ctx, user.ID, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, page, 1)
		assert.Equal(t, "XYZ", page[0].Symbol)
	})

	t.Run("other users invisible", func(t *testing.T) {
		other, err := l.Register(ctx, "bob", "hunter2pass")
		require.NoError(t, err)
		entries, total, err := l.History(ctx, other.ID, 0, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, entries)
	})
}
