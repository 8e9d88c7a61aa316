// Package ledger implements the account rules of the trading simulator:
// registration, authentication, buying, selling, portfolio valuation and
// trade history. Handlers stay thin; everything that touches cash, share
// counts or the history log lives here, and every buy or sell runs inside
// a single database transaction so no partial trade is ever visible.
package ledger

import (
	"context" // Request-scoped cancellation
	"errors"  // Sentinel error comparison
	"fmt"     // Error wrapping
	"strings" // Symbol normalization

	"stocksim/internal/domain" // Persistent record types
	"stocksim/internal/quote"  // Quote provider

	"github.com/shopspring/decimal" // Exact decimal arithmetic
	"golang.org/x/crypto/bcrypt"    // Password hashing
	"gorm.io/gorm"                  // GORM ORM library
)

// Ledger holds the store handle, the quote provider and the cash balance
// seeded into new accounts.
type Ledger struct {
	db           *gorm.DB        // Persistence store
	quotes       quote.Provider  // Live price source
	startingCash decimal.Decimal // Seed balance for new users
}

// New builds a Ledger over the given store and quote provider.
func New(db *gorm.DB, quotes quote.Provider, startingCash decimal.Decimal) *Ledger {
	return &Ledger{db: db, quotes: quotes, startingCash: startingCash}
}

// Register creates a new user with a hashed password and the starting cash
// balance. Returns ErrConflict when the username is taken.
func (l *Ledger) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationError("must provide username")
	}
	if password == "" {
		return nil, validationError("must provide password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var existing domain.User
	err = l.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	user := domain.User{Username: username, Password: string(hash), Cash: l.startingCash}
	if err := l.db.WithContext(ctx).Create(&user).Error; err != nil {
		// The unique constraint on username catches the race the check
		// above cannot.
		return nil, ErrConflict
	}
	return &user, nil
}

// Authenticate verifies a username/password pair. Returns ErrAuth for an
// unknown user or a non-matching password.
func (l *Ledger) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, validationError("must provide username")
	}
	if password == "" {
		return nil, validationError("must provide password")
	}

	var user domain.User
	err := l.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAuth
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrAuth
	}
	return &user, nil
}

// Quote resolves a symbol to a live quote. Pure delegation, no state change.
func (l *Ledger) Quote(ctx context.Context, symbol string) (*quote.Quote, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, validationError("must provide symbol")
	}
	return l.quotes.Lookup(ctx, symbol)
}

// Buy purchases shares of symbol at the current price. Cash debit, holding
// upsert and the history row are one transaction; the affordability check
// is folded into the debit statement so concurrent trades by the same user
// cannot overdraw the balance.
func (l *Ledger) Buy(ctx context.Context, userID uint, symbol string, shares int64) (*domain.HistoryEntry, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, validationError("must provide symbol")
	}
	if shares <= 0 {
		return nil, validationError("input a positive number of shares to buy")
	}

	q, err := l.quotes.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}
	cost := q.Price.Mul(decimal.NewFromInt(shares))

	var entry domain.HistoryEntry
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Debit cash only if the balance covers the cost. A zero row count
		// means the user cannot afford the trade (or does not exist).
		res := tx.Model(&domain.User{}).
			Where("id = ? AND cash >= ?", userID, cost).
			UpdateColumn("cash", gorm.Expr("cash - ?", cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var user domain.User
			if err := tx.First(&user, userID).Error; err != nil {
				return err
			}
			return ErrInsufficientFunds
		}

		// Upsert the holding: first buy of a symbol creates the row,
		// later buys increment the share count.
		var holding domain.Holding
		err := tx.Where("user_id = ? AND symbol = ?", userID, symbol).First(&holding).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			holding = domain.Holding{UserID: userID, Symbol: symbol, Shares: shares, Price: q.Price, Total: cost}
			if err := tx.Create(&holding).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&holding).UpdateColumn("shares", gorm.Expr("shares + ?", shares)).Error; err != nil {
				return err
			}
		}

		entry = domain.HistoryEntry{UserID: userID, Symbol: symbol, Shares: shares, Price: q.Price}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Sell disposes of shares of symbol at the current price. The holding
// decrement, cash credit and history row are one transaction; a holding
// that reaches zero shares is deleted, never kept as a zero row.
func (l *Ledger) Sell(ctx context.Context, userID uint, symbol string, shares int64) (*domain.HistoryEntry, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, validationError("must provide symbol")
	}
	if shares <= 0 {
		return nil, validationError("input a positive number of shares to sell")
	}

	q, err := l.quotes.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}
	proceeds := q.Price.Mul(decimal.NewFromInt(shares))

	var entry domain.HistoryEntry
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var holding domain.Holding
		err := tx.Where("user_id = ? AND symbol = ?", userID, symbol).First(&holding).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoHolding
		}
		if err != nil {
			return err
		}
		if holding.Shares < shares {
			return ErrInsufficientShares
		}

		// Guarded decrement: a zero row count means a concurrent sell
		// already took the shares.
		res := tx.Model(&domain.Holding{}).
			Where("id = ? AND shares >= ?", holding.ID, shares).
			UpdateColumn("shares", gorm.Expr("shares - ?", shares))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientShares
		}

		// A holding sold down to zero is removed rather than kept.
		if err := tx.Where("id = ? AND shares = 0", holding.ID).Delete(&domain.Holding{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.User{}).
			Where("id = ?", userID).
			UpdateColumn("cash", gorm.Expr("cash + ?", proceeds)).Error; err != nil {
			return err
		}

		entry = domain.HistoryEntry{UserID: userID, Symbol: symbol, Shares: -shares, Price: q.Price}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Line is one row of a portfolio view: a holding priced at the current
// market rate.
type Line struct {
	Symbol string          `json:"symbol"` // Ticker symbol
	Name   string          `json:"name"`   // Company name, empty if unavailable
	Shares int64           `json:"shares"` // Shares held
	Price  decimal.Decimal `json:"price"`  // Current unit price
	Total  decimal.Decimal `json:"total"`  // Shares * Price
}

// Portfolio is the full valuation of an account.
type Portfolio struct {
	Cash     decimal.Decimal `json:"cash"`      // Cash balance
	Lines    []Line          `json:"holdings"`  // Priced holdings, by symbol
	NetWorth decimal.Decimal `json:"net_worth"` // Cash plus all line totals
}

// Valuation prices every holding at the current market rate and returns
// cash, per-holding line totals and net worth. The cached price/total
// columns on each holding are refreshed as a side effect; share counts and
// cash are never touched. A symbol the provider no longer knows keeps its
// last cached price instead of failing the whole view.
func (l *Ledger) Valuation(ctx context.Context, userID uint) (*Portfolio, error) {
	var user domain.User
	if err := l.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	var holdings []domain.Holding
	if err := l.db.WithContext(ctx).Where("user_id = ?", userID).Order("symbol asc").Find(&holdings).Error; err != nil {
		return nil, fmt.Errorf("fetch holdings: %w", err)
	}

	p := &Portfolio{Cash: user.Cash, NetWorth: user.Cash, Lines: make([]Line, 0, len(holdings))}
	for i := range holdings {
		h := &holdings[i]

		price, name := h.Price, ""
		q, err := l.quotes.Lookup(ctx, h.Symbol)
		switch {
		case err == nil:
			price, name = q.Price, q.Name
		case !errors.Is(err, quote.ErrNotFound):
			return nil, err
		}

		total := price.Mul(decimal.NewFromInt(h.Shares))
		if err := l.db.WithContext(ctx).Model(h).
			UpdateColumns(map[string]any{"price": price, "total": total}).Error; err != nil {
			return nil, fmt.Errorf("refresh holding cache: %w", err)
		}

		p.Lines = append(p.Lines, Line{Symbol: h.Symbol, Name: name, Shares: h.Shares, Price: price, Total: total})
		p.NetWorth = p.NetWorth.Add(total)
	}
	return p, nil
}

// History returns the user's trade log, newest first, with the total row
// count for pagination. A non-positive limit returns everything.
func (l *Ledger) History(ctx context.Context, userID uint, offset, limit int) ([]domain.HistoryEntry, int64, error) {
	var total int64
	if err := l.db.WithContext(ctx).Model(&domain.HistoryEntry{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	q := l.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	var entries []domain.HistoryEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("fetch history: %w", err)
	}
	return entries, total, nil
}
