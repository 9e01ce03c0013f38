package classifier

import (
	"math"
	"testing"
)

func TestClassifyThresholds(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name       string
		category   string
		oldCents   int
		newCents   int
		wantAccept bool
		wantLayer  string
	}{
		{"small increase accepted", "books", 1000, 1030, true, LayerThresholdValidation},
		{"3 percent change", "books", 1000, 1030, true, LayerThresholdValidation},
		{"extreme increase flagged", "books", 1000, 8500, false, LayerThresholdValidation},
		{"extreme drop flagged", "books", 1000, 100, false, LayerThresholdValidation},
		{"exactly at threshold accepted", "books", 1000, 1350, true, LayerThresholdValidation},
		{"just over threshold flagged", "books", 1000, 1351, false, LayerThresholdValidation},
		{"drop exactly at threshold accepted", "books", 1000, 650, true, LayerThresholdValidation},
		{"unreasonably high price flagged", "books", 1000, 150000, false, LayerSanityChecks},
		{"suspiciously low price flagged", "books", 1000, 50, false, LayerSanityChecks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Classify(cfg, tt.category, tt.oldCents, tt.newCents)
			if v.Accept != tt.wantAccept {
				t.Errorf("Classify(%d, %d).Accept = %v, want %v", tt.oldCents, tt.newCents, v.Accept, tt.wantAccept)
			}
			if v.Layer != tt.wantLayer {
				t.Errorf("Classify(%d, %d).Layer = %q, want %q", tt.oldCents, tt.newCents, v.Layer, tt.wantLayer)
			}
		})
	}
}

// A change is flagged iff |new-old|/old*100 strictly exceeds the category
// threshold. The boundary itself is non-flagging.
func TestClassifyFlagIffOverThreshold(t *testing.T) {
	cfg := DefaultConfig()
	old := 2000

	for newCents := 1; newCents <= 4000; newCents += 7 {
		pct := math.Abs(float64(newCents-old) / float64(old) * 100)
		v := Classify(cfg, "books", old, newCents)
		if newCents < cfg.MinPriceCents {
			continue // sanity layer owns this range
		}
		wantAccept := pct <= cfg.DefaultMaxChangePercent
		if v.Accept != wantAccept {
			t.Fatalf("Classify(%d, %d): accept = %v, want %v (%.2f%% change)", old, newCents, v.Accept, wantAccept, pct)
		}
	}
}

func TestClassifyZeroBaselineAlwaysAccepts(t *testing.T) {
	cfg := DefaultConfig()

	for _, newCents := range []int{1, 50, 1000, 99999, 500000} {
		v := Classify(cfg, "books", 0, newCents)
		if !v.Accept {
			t.Errorf("Classify(0, %d) flagged, want auto-accept", newCents)
		}
		if v.Reason != "baseline price, no prior value" {
			t.Errorf("Classify(0, %d) reason = %q", newCents, v.Reason)
		}
		if v.PercentageChange != 0 {
			t.Errorf("Classify(0, %d) has percentage %v, want none", newCents, v.PercentageChange)
		}
	}
}

func TestClassifyMissingObservation(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		oldCents int
		newCents int
	}{
		{"unknown new price", 1000, PriceUnknown},
		{"unknown old price", PriceUnknown, 1000},
		{"both unknown", PriceUnknown, PriceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Classify(cfg, "books", tt.oldCents, tt.newCents)
			if v.Accept {
				t.Errorf("missing observation auto-accepted")
			}
			if v.Reason != "missing baseline" {
				t.Errorf("reason = %q, want %q", v.Reason, "missing baseline")
			}
			if v.Layer != LayerSanityChecks {
				t.Errorf("layer = %q, want %q", v.Layer, LayerSanityChecks)
			}
		})
	}
}

func TestClassifyExceptions(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("out of stock transition accepted", func(t *testing.T) {
		v := Classify(cfg, "books", 1500, 0)
		if !v.Accept || v.Layer != LayerExceptionHandling {
			t.Errorf("positive to zero should be accepted by exception layer, got %+v", v)
		}
		if v.PercentageChange != -100 {
			t.Errorf("percentage = %v, want -100", v.PercentageChange)
		}
	})

	t.Run("both zero accepted", func(t *testing.T) {
		v := Classify(cfg, "books", 0, 0)
		if !v.Accept {
			t.Errorf("both zero should be accepted, got %+v", v)
		}
	})
}

func TestClassifyCategoryThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CategoryMaxChangePercent = map[string]float64{
		"accessories": 15,
	}

	// 20% change: fine for books (35% default), flagged for accessories
	if v := Classify(cfg, "books", 1000, 1200); !v.Accept {
		t.Errorf("20%% change in books flagged against default threshold")
	}
	if v := Classify(cfg, "accessories", 1000, 1200); v.Accept {
		t.Errorf("20%% change in accessories accepted against 15%% threshold")
	}
}

func TestClassifyFlagCarriesDetails(t *testing.T) {
	cfg := DefaultConfig()
	v := Classify(cfg, "books", 1000, 8500)

	if v.Accept {
		t.Fatalf("750%% change accepted")
	}
	if v.PercentageChange != 750 {
		t.Errorf("percentage = %v, want 750", v.PercentageChange)
	}
	if v.Details.MaxChangePercent != 35 {
		t.Errorf("details threshold = %v, want 35", v.Details.MaxChangePercent)
	}
	if v.Details.ActualChange != 750 {
		t.Errorf("details actual change = %v, want 750", v.Details.ActualChange)
	}
	if v.Details.Category != "books" {
		t.Errorf("details category = %q, want books", v.Details.Category)
	}
	if v.Reason != "extreme_change_750.0pct_exceeds_35pct_limit" {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	first := Classify(cfg, "books", 1234, 4321)
	for i := 0; i < 10; i++ {
		if got := Classify(cfg, "books", 1234, 4321); got != first {
			t.Fatalf("verdict differs across calls: %+v vs %+v", got, first)
		}
	}
}
