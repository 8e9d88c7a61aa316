package domain

import "github.com/shopspring/decimal"

// HistoryEntry Model
//
// Append-only trade log. Shares is signed: positive for a buy, negative for
// a sell. Price is the unit price the trade executed at. Rows are never
// updated or deleted.
type HistoryEntry struct {
	ID        uint            `gorm:"primaryKey" json:"id"`                     // Primary key
	UserID    uint            `gorm:"not null;index" json:"-"`                  // Foreign key to User
	Symbol    string          `gorm:"size:10;not null" json:"symbol"`           // Ticker symbol, stored uppercase
	Shares    int64           `gorm:"not null" json:"shares"`                   // Signed share delta (+buy, -sell)
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"` // Unit price at trade time
	CreatedAt int64           `gorm:"autoCreateTime:milli" json:"created_at"`   // Timestamp of creation in milliseconds
}
