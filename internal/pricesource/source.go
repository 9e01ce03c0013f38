// Package pricesource resolves current prices for catalog items from the
// external product source.
package pricesource

import (
	"context"
	"errors"
	"fmt"
)

// Result is one successful product lookup
type Result struct {
	PriceCents int    // 0 when the product is unavailable
	Available  bool   // false for out-of-stock / delisted listings
	RawTitle   string // Product title as scraped, unnormalized
}

// ErrNoIdentifier means the affiliate link carries no recognizable product
// identifier. This is a data problem on the item, not a source failure.
var ErrNoIdentifier = errors.New("no product identifier in affiliate link")

// ErrNotFound means the source authoritatively reported the product gone.
// Callers treat it as a delisting signal, stronger than out-of-stock.
var ErrNotFound = errors.New("product not found at source")

// TransientError wraps timeouts, throttling, and parse failures that are
// worth retrying on a later cycle
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient source error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Source is the external price source collaborator
type Source interface {
	// Lookup resolves the current price and availability for the product
	// behind an affiliate link. Returns ErrNoIdentifier, ErrNotFound, or a
	// *TransientError on failure.
	Lookup(ctx context.Context, affiliateLink string) (*Result, error)
}
