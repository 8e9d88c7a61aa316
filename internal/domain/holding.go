package domain

import "github.com/shopspring/decimal"

// Holding Model
//
// One row per (user, symbol). Shares is always > 0: a holding that reaches
// zero shares is deleted, not kept around. Price and Total are a display
// cache refreshed on portfolio views; share counts, user cash and the
// history log are the authoritative state.
type Holding struct {
	ID     uint            `gorm:"primaryKey" json:"id"`                             // Primary key
	UserID uint            `gorm:"not null;uniqueIndex:idx_user_symbol" json:"-"`    // Foreign key to User
	Symbol string          `gorm:"size:10;not null;uniqueIndex:idx_user_symbol" json:"symbol"` // Ticker symbol, stored uppercase
	Shares int64           `gorm:"not null" json:"shares"`                           // Share count, strictly positive
	Price  decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`                  // Last-known unit price (cache)
	Total  decimal.Decimal `gorm:"type:decimal(12,2)" json:"total"`                  // Last-computed line total (cache)
}
