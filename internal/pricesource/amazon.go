package pricesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// asinPatterns match the product identifier in the affiliate link formats
// the catalog actually contains
var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`ASIN=([A-Z0-9]{10})`),
	regexp.MustCompile(`/([A-Z0-9]{10})/?$`),
}

// pricePatterns are tried in order; product pages render the price in
// several markups depending on the listing type
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`<span class="a-price-whole">([0-9,]+)</span><span class="a-price-fraction">([0-9]+)</span>`),
	regexp.MustCompile(`"priceAmount":([0-9]+\.?[0-9]*)`),
	regexp.MustCompile(`<span class="a-offscreen">\$([0-9,]+\.?[0-9]*)</span>`),
}

var outOfStockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Currently unavailable`),
	regexp.MustCompile(`(?i)Out of Stock`),
	regexp.MustCompile(`(?i)Temporarily out of stock`),
	regexp.MustCompile(`(?i)This item is not available`),
}

var titlePattern = regexp.MustCompile(`(?s)<span id="productTitle"[^>]*>(.*?)</span>`)

// AmazonConfig configures the product page client
type AmazonConfig struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerMinute float64
}

// DefaultAmazonConfig returns conservative production pacing
func DefaultAmazonConfig() AmazonConfig {
	return AmazonConfig{
		BaseURL:           "https://www.amazon.com",
		UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		Timeout:           15 * time.Second,
		RequestsPerMinute: 30,
	}
}

// AmazonSource looks up prices by fetching and scraping product pages.
// A shared token bucket paces all requests; the source bans aggressive
// clients, so pacing lives here rather than in each caller.
type AmazonSource struct {
	cfg     AmazonConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewAmazonSource creates a product page client
func NewAmazonSource(cfg AmazonConfig, logger zerolog.Logger) *AmazonSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAmazonConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultAmazonConfig().Timeout
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = DefaultAmazonConfig().RequestsPerMinute
	}
	return &AmazonSource{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1),
		logger:  logger.With().Str("component", "pricesource").Logger(),
	}
}

// ExtractASIN pulls the product identifier out of an affiliate link
func ExtractASIN(affiliateLink string) (string, error) {
	if affiliateLink == "" {
		return "", ErrNoIdentifier
	}
	for _, pattern := range asinPatterns {
		if m := pattern.FindStringSubmatch(affiliateLink); m != nil {
			return m[1], nil
		}
	}
	return "", ErrNoIdentifier
}

// Lookup implements Source
func (s *AmazonSource) Lookup(ctx context.Context, affiliateLink string) (*Result, error) {
	asin, err := ExtractASIN(affiliateLink)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &TransientError{Op: "throttle", Err: err}
	}

	url := fmt.Sprintf("%s/dp/%s", s.cfg.BaseURL, asin)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransientError{Op: "request", Err: err}
	}
	s.setBrowserHeaders(req)

	s.logger.Debug().Str("asin", asin).Msg("Fetching product page")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{Op: "fetch", Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &TransientError{Op: "fetch", Err: fmt.Errorf("unexpected HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &TransientError{Op: "read", Err: err}
	}

	return ParseProductPage(string(body))
}

// ParseProductPage extracts price, availability, and title from product page
// HTML. Split out from Lookup so it is testable against captured pages.
func ParseProductPage(content string) (*Result, error) {
	result := &Result{}

	if m := titlePattern.FindStringSubmatch(content); m != nil {
		result.RawTitle = strings.TrimSpace(m[1])
	}

	for _, pattern := range outOfStockPatterns {
		if pattern.MatchString(content) {
			return result, nil // Available stays false
		}
	}

	for _, pattern := range pricePatterns {
		m := pattern.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		var priceStr string
		if len(m) == 3 {
			// Separate whole and fraction spans
			priceStr = strings.ReplaceAll(m[1], ",", "") + "." + m[2]
		} else {
			priceStr = strings.ReplaceAll(m[1], ",", "")
		}
		cents, err := parseCents(priceStr)
		if err != nil {
			continue
		}
		if cents <= 0 {
			return result, nil // Zero price reads as unavailable
		}
		result.PriceCents = cents
		result.Available = true
		return result, nil
	}

	return nil, &TransientError{Op: "parse", Err: fmt.Errorf("no price found in page")}
}

func parseCents(priceStr string) (int, error) {
	value, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, err
	}
	return int(value*100 + 0.5), nil
}

func (s *AmazonSource) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
