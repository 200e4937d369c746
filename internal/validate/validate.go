package validate

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"buttergolf/internal/domain"
)

var (
	// UK-style postcode, loose enough for other countries
	rePostcode = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{1,9}$`)
	reEmail    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ        = regexp.MustCompile(`^[A-Za-z0-9 _'.&/\\-]{1,80}$`)
	reID       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reCountry  = regexp.MustCompile(`^[A-Z]{2}$`)
	reCarrier  = regexp.MustCompile(`^[a-z0-9-]{2,32}$`)
	reTracking = regexp.MustCompile(`^[A-Za-z0-9]{4,40}$`)
	rePush     = regexp.MustCompile(`^Expo(nent)?PushToken\[[A-Za-z0-9_-]{8,}\]$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return strings.ToLower(s), reEmail.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s, reQ.MatchString(s)
}

// ID validates a simple resource identifier (uuids, slugs, seeded ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

func Condition(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, oneOf(s, domain.Conditions)
}

func Category(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, oneOf(s, domain.Categories)
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Text trims s and enforces min/max length in runes.
func Text(s string, min, max int) (string, bool) {
	s = strings.TrimSpace(s)
	n := len([]rune(s))
	return s, n >= min && n <= max
}

// Price accepts positive amounts with at most two decimals.
func Price(f float64) bool {
	if f <= 0 || f > 100000 || math.IsNaN(f) {
		return false
	}
	return math.Abs(f*100-math.Round(f*100)) < 1e-6
}

func Postcode(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, rePostcode.MatchString(s)
}

// Country is an ISO 3166 alpha-2 code; empty means GB.
func Country(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "GB", true
	}
	return s, reCountry.MatchString(s)
}

func Carrier(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, reCarrier.MatchString(s)
}

func TrackingNumber(s string) (string, bool) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	return s, reTracking.MatchString(s)
}

func PushToken(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, rePush.MatchString(s)
}

// ImageURL only admits absolute https links.
func ImageURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "https" || u.Host == "" || len(s) > 500 {
		return "", false
	}
	return s, true
}

// Int parses a positive query integer, falling back to def and clamping to max.
func Int(s string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	} // clamp to avoid abuse
	return n
}

// Amount parses a decimal query/form amount; 0 when absent or malformed.
func Amount(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
