package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Cache TTL

	"stocksim/internal/domain" // Persistent record types
	"stocksim/internal/ledger" // Account ledger core
	"stocksim/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// TradeRequest is the body of a buy or sell submission.
type TradeRequest struct {
	Symbol string `json:"symbol"` // Ticker symbol
	Shares int64  `json:"shares"` // Whole share count
}

// currentUserID pulls the authenticated user ID set by the JWT middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// invalidateHistoryCache drops a user's cached history pages after a trade.
// Simple version: delete the first 5 pages at the default page size.
func invalidateHistoryCache(ctx context.Context, rdb *redis.Client, userID uint) {
	if rdb == nil {
		return
	}
	prefix := "history:user:" + strconv.Itoa(int(userID))
	for i := 1; i <= 5; i++ {
		_ = utils.DeleteCache(ctx, rdb, prefix+":page:"+strconv.Itoa(i)+":size:20")
	}
}

// IndexHandler returns the portfolio valuation: every holding priced at
// the current market rate, cash, and net worth.
func IndexHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		p, err := l.Valuation(c.Request.Context(), userID)
		if err != nil {
			apology(c, err)
			return
		}
		holdings := make([]gin.H, 0, len(p.Lines))
		for _, line := range p.Lines {
			holdings = append(holdings, gin.H{
				"symbol": line.Symbol,           // Ticker symbol
				"name":   line.Name,             // Company name
				"shares": line.Shares,           // Shares held
				"price":  utils.USD(line.Price), // Current unit price
				"total":  utils.USD(line.Total), // Line total
			})
		}
		c.JSON(http.StatusOK, gin.H{
			"holdings":  holdings,              // Priced holdings
			"cash":      utils.USD(p.Cash),     // Cash balance
			"net_worth": utils.USD(p.NetWorth), // Cash plus all line totals
		})
	}
}

// QuoteHandler looks up the current price of a symbol. No state change.
func QuoteHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := l.Quote(c.Request.Context(), c.Query("symbol"))
		if err != nil {
			apology(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"symbol": q.Symbol,           // Ticker symbol
			"name":   q.Name,             // Company name
			"price":  q.Price,            // Raw decimal price
			"usd":    utils.USD(q.Price), // Formatted price
		})
	}
}

// BuyHandler purchases shares against the user's cash balance.
func BuyHandler(l *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		entry, err := l.Buy(c.Request.Context(), userID, req.Symbol, req.Shares)
		if err != nil {
			apology(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,
			"symbol":    entry.Symbol,
			"shares":    entry.Shares,
			"price":     entry.Price.String(),
			"type":      "buy",
			"timestamp": time.Now().Format(time.RFC3339),
		}).Info("Trade executed")
		invalidateHistoryCache(c.Request.Context(), rdb, userID)
		c.JSON(http.StatusOK, gin.H{"message": "Bought", "entry": entry})
	}
}

// SellHandler disposes of shares and credits the proceeds to cash.
func SellHandler(l *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		entry, err := l.Sell(c.Request.Context(), userID, req.Symbol, req.Shares)
		if err != nil {
			apology(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,
			"symbol":    entry.Symbol,
			"shares":    entry.Shares,
			"price":     entry.Price.String(),
			"type":      "sell",
			"timestamp": time.Now().Format(time.RFC3339),
		}).Info("Trade executed")
		invalidateHistoryCache(c.Request.Context(), rdb, userID)
		c.JSON(http.StatusOK, gin.H{"message": "Sold", "entry": entry})
	}
}

// HistoryHandler returns the user's trade log, newest first, paginated and
// cached in Redis for a short window.
func HistoryHandler(l *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v
			}
		}
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v
			}
		}
		offset := (page - 1) * pageSize

		cacheKey := "history:user:" + strconv.Itoa(int(userID)) +
			":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		ctx := c.Request.Context()
		var cached struct {
			Trades     []domain.HistoryEntry `json:"trades"`      // Trade log page
			Page       int                   `json:"page"`        // Current page
			PageSize   int                   `json:"page_size"`   // Page size
			Total      int64                 `json:"total"`       // Total trades
			TotalPages int                   `json:"total_pages"` // Total pages
		}
		if rdb != nil {
			if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
				c.JSON(http.StatusOK, gin.H{
					"trades":      cached.Trades,
					"page":        cached.Page,
					"page_size":   cached.PageSize,
					"total":       cached.Total,
					"total_pages": cached.TotalPages,
					"cached":      true,
				})
				return
			}
		}

		entries, total, err := l.History(ctx, userID, offset, pageSize)
		if err != nil {
			apology(c, err)
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"trades":      entries,    // Trade log page
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total trades
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Not from cache
		}
		if rdb != nil {
			_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		}
		c.JSON(http.StatusOK, resp)
	}
}
