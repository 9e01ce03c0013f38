// Package classifier decides whether an observed price change may be applied
// automatically or must be queued for human review. It is a pure function of
// its inputs: no I/O, no clock, no randomness.
package classifier

import (
	"fmt"
	"math"
)

// Validation layer names recorded on queue entries. The vocabulary matches
// what the admin dashboard renders.
const (
	LayerSanityChecks        = "sanity_checks"
	LayerExceptionHandling   = "exception_handling"
	LayerThresholdValidation = "threshold_validation"
)

// Verdict is the classifier's decision for one observed price change
type Verdict struct {
	Accept           bool    `json:"accept"`
	Reason           string  `json:"reason"`
	Layer            string  `json:"layer"`
	PercentageChange float64 `json:"percentage_change"`
	Details          Details `json:"details"`
}

// Details is the structured payload persisted with flagged entries and
// rendered verbatim during review
type Details struct {
	Category         string  `json:"category,omitempty"`
	PriceTier        string  `json:"price_tier,omitempty"` // high_value / medium_value / low_value / micro_value
	MaxChangePercent float64 `json:"max_change_percent,omitempty"`
	ActualChange     float64 `json:"actual_change_percent,omitempty"`
	ChangeMagnitude  string  `json:"change_magnitude,omitempty"`
	OldPriceCents    int     `json:"old_price_cents"`
	NewPriceCents    int     `json:"new_price_cents"`
	ChangeType       string  `json:"change_type,omitempty"`
}

// Config holds the threshold tables. Thresholds are maximum allowed absolute
// percentage changes; a change strictly greater than the threshold is
// flagged, a change equal to it is not.
type Config struct {
	// DefaultMaxChangePercent applies when the item's category has no
	// entry in CategoryMaxChangePercent.
	DefaultMaxChangePercent float64

	// CategoryMaxChangePercent overrides the ceiling per item category.
	CategoryMaxChangePercent map[string]float64

	// MaxPriceCents and MinPriceCents bound plausible prices; observations
	// outside the range are flagged as data-quality problems rather than
	// accepted.
	MaxPriceCents int
	MinPriceCents int
}

// DefaultConfig returns the production thresholds: a uniform 35% ceiling and
// a $1–$1000 plausible price range.
func DefaultConfig() Config {
	return Config{
		DefaultMaxChangePercent:  35,
		CategoryMaxChangePercent: map[string]float64{},
		MaxPriceCents:            100000,
		MinPriceCents:            100,
	}
}

// Threshold returns the ceiling for a category
func (c Config) Threshold(category string) float64 {
	if pct, ok := c.CategoryMaxChangePercent[category]; ok {
		return pct
	}
	return c.DefaultMaxChangePercent
}

// PriceUnknown marks a missing price observation. A change to or from an
// unknown price is never auto-accepted; it is flagged so data-quality issues
// cannot masquerade as legitimate price moves.
const PriceUnknown = -1

// Classify produces a verdict for an observed price change on an item in the
// given category. Prices are in cents; PriceUnknown (or any negative value)
// marks a missing observation.
//
// Layer order matters: the zero-baseline exception precedes the price-range
// checks, so a newly tracked item's first observation is always accepted as
// its baseline no matter the value.
func Classify(cfg Config, category string, oldPriceCents, newPriceCents int) Verdict {
	if oldPriceCents < 0 || newPriceCents < 0 {
		return Verdict{
			Accept: false,
			Reason: "missing baseline",
			Layer:  LayerSanityChecks,
			Details: Details{
				OldPriceCents: oldPriceCents,
				NewPriceCents: newPriceCents,
				ChangeType:    "missing_observation",
			},
		}
	}
	if v, done := exceptions(oldPriceCents, newPriceCents); done {
		return v
	}
	if v, done := sanityChecks(cfg, oldPriceCents, newPriceCents); done {
		return v
	}
	return thresholdCheck(cfg, category, oldPriceCents, newPriceCents)
}

func sanityChecks(cfg Config, oldPriceCents, newPriceCents int) (Verdict, bool) {
	details := Details{OldPriceCents: oldPriceCents, NewPriceCents: newPriceCents}

	if newPriceCents > cfg.MaxPriceCents {
		return Verdict{
			Accept:  false,
			Reason:  fmt.Sprintf("unreasonably_high_price_%d_cents", newPriceCents),
			Layer:   LayerSanityChecks,
			Details: details,
		}, true
	}
	if newPriceCents > 0 && newPriceCents < cfg.MinPriceCents {
		return Verdict{
			Accept:  false,
			Reason:  fmt.Sprintf("suspiciously_low_price_%d_cents", newPriceCents),
			Layer:   LayerSanityChecks,
			Details: details,
		}, true
	}
	return Verdict{}, false
}

func exceptions(oldPriceCents, newPriceCents int) (Verdict, bool) {
	details := Details{OldPriceCents: oldPriceCents, NewPriceCents: newPriceCents}

	switch {
	case oldPriceCents == 0 && newPriceCents > 0:
		// Newly tracked item: no percentage is defined against a zero
		// baseline, the first observed price is simply recorded.
		details.ChangeType = "baseline"
		return Verdict{
			Accept:  true,
			Reason:  "baseline price, no prior value",
			Layer:   LayerExceptionHandling,
			Details: details,
		}, true
	case oldPriceCents > 0 && newPriceCents == 0:
		details.ChangeType = "out_of_stock"
		return Verdict{
			Accept:           true,
			Reason:           "legitimate_out_of_stock",
			Layer:            LayerExceptionHandling,
			PercentageChange: -100,
			Details:          details,
		}, true
	case oldPriceCents == 0 && newPriceCents == 0:
		details.ChangeType = "no_change"
		return Verdict{
			Accept:  true,
			Reason:  "no_change_both_zero",
			Layer:   LayerExceptionHandling,
			Details: details,
		}, true
	}
	return Verdict{}, false
}

func thresholdCheck(cfg Config, category string, oldPriceCents, newPriceCents int) Verdict {
	pctChange := PercentChange(oldPriceCents, newPriceCents)
	absChange := math.Abs(pctChange)
	maxChange := cfg.Threshold(category)

	details := Details{
		Category:         category,
		PriceTier:        priceTier(oldPriceCents),
		MaxChangePercent: maxChange,
		ActualChange:     absChange,
		OldPriceCents:    oldPriceCents,
		NewPriceCents:    newPriceCents,
	}

	if absChange > maxChange {
		return Verdict{
			Accept:           false,
			Reason:           fmt.Sprintf("extreme_change_%.1fpct_exceeds_%.0fpct_limit", absChange, maxChange),
			Layer:            LayerThresholdValidation,
			PercentageChange: pctChange,
			Details:          details,
		}
	}

	details.ChangeMagnitude = changeMagnitude(absChange)
	return Verdict{
		Accept:           true,
		Reason:           "valid_price_change",
		Layer:            LayerThresholdValidation,
		PercentageChange: pctChange,
		Details:          details,
	}
}

// PercentChange computes the signed percentage change between two prices.
// Callers must not pass a zero old price; that case has no defined
// percentage and is short-circuited by the exception layer.
func PercentChange(oldPriceCents, newPriceCents int) float64 {
	return float64(newPriceCents-oldPriceCents) / float64(oldPriceCents) * 100
}

// priceTier buckets prices the way the review dashboard groups them
func priceTier(priceCents int) string {
	switch {
	case priceCents >= 5000:
		return "high_value"
	case priceCents >= 2000:
		return "medium_value"
	case priceCents >= 1000:
		return "low_value"
	default:
		return "micro_value"
	}
}

func changeMagnitude(absChangePercent float64) string {
	switch {
	case absChangePercent > 20:
		return "large"
	case absChangePercent > 10:
		return "moderate"
	default:
		return "normal"
	}
}
