package ledger

import "errors"

// Domain errors. Every business-rule failure surfaces as one of these (or
// as quote.ErrNotFound for unknown symbols) so the API layer can map them
// to a uniform apology response; anything else is a store failure.
var (
	// ErrValidation matches any malformed-input error via errors.Is.
	// Individual failures carry their own message (see validationError).
	ErrValidation = errors.New("invalid input")

	// ErrConflict is returned when a username is already taken.
	ErrConflict = errors.New("username already exists, try a different one")

	// ErrAuth is returned for any credential failure.
	ErrAuth = errors.New("invalid username and/or password")

	// ErrInsufficientFunds is returned when a buy costs more than the
	// user's cash balance.
	ErrInsufficientFunds = errors.New("you cannot afford this stock")

	// ErrNoHolding is returned when selling a symbol the user does not own.
	ErrNoHolding = errors.New("stock does not exist in your portfolio")

	// ErrInsufficientShares is returned when selling more shares than owned.
	ErrInsufficientShares = errors.New("you cannot sell more shares than you own")
)

// validationErr is a malformed-input error with a specific message that
// still matches ErrValidation under errors.Is.
type validationErr struct{ msg string }

func (e validationErr) Error() string        { return e.msg }
func (e validationErr) Is(target error) bool { return target == ErrValidation }

func validationError(msg string) error { return validationErr{msg: msg} }
