package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func CoalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Percentage returns round(value / max(1, base) * 100). A non-positive base
// means no denominator data and yields 0.
func Percentage(value, base int64) int64 {
	if base <= 0 {
		return 0
	}
	return int64(math.Round(float64(value) / float64(base) * 100))
}

// ClientIP prefers the first X-Forwarded-For hop and falls back to gin's
// remote address resolution.
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader(HeaderForwardedFor); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	return c.ClientIP()
}

// ParseLimit reads a positive limit, defaulting and capping as given.
func ParseLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return Min(n, max)
}
