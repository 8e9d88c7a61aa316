package domain

import "github.com/shopspring/decimal"

// User Model
type User struct {
	ID       uint            `gorm:"primaryKey" json:"id"`                    // Primary key
	Username string          `gorm:"unique;not null" json:"username"`         // Unique username
	Password string          `gorm:"not null" json:"-"`                       // Hashed password, never serialized
	Cash     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cash"` // Cash balance in dollars
}
