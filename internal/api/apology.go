package api

import (
	"errors"   // Sentinel error comparison
	"net/http" // HTTP status codes

	"stocksim/internal/ledger" // Domain errors
	"stocksim/internal/quote"  // Quote provider errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// apology renders the uniform error response: a human message plus a
// status code. Business-rule failures all map to 403; anything
// unrecognized is a store or collaborator failure and maps to 500 with
// the detail kept out of the response.
func apology(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, quote.ErrNotFound),
		errors.Is(err, ledger.ErrConflict),
		errors.Is(err, ledger.ErrAuth),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrNoHolding),
		errors.Is(err, ledger.ErrInsufficientShares):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(),
			"error": err.Error(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	}
}
