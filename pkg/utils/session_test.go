package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionKey_StableWithinHour(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)

	a := SessionKey("10.0.0.1", "curl/8", base)
	b := SessionKey("10.0.0.1", "curl/8", base.Add(20*time.Minute))
	c := SessionKey("10.0.0.1", "curl/8", base.Add(time.Hour))

	assert.Len(t, a, 16)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, SessionKey("10.0.0.2", "curl/8", base))
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "gaming laptop under 1000", NormalizeQuery("  Gaming   LAPTOP\tunder 1000 "))
	assert.Equal(t, "", NormalizeQuery("   "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "abc", Truncate("abc", 10))
}
