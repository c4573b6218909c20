package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SessionKey derives an anonymous session identifier from client traits.
// It rotates every hour so analytics rows cannot be joined across days.
func SessionKey(clientIP, userAgent string, now time.Time) string {
	bucket := now.Unix() / 3600
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", clientIP, userAgent, bucket)))
	return hex.EncodeToString(sum[:])[:16]
}

// NormalizeQuery lowercases and collapses whitespace so equivalent
// queries share a popular-query row.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
