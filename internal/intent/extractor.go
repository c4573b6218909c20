// Package intent turns free text into slots and decides which
// follow-up questions are worth asking.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/samber/mo"
)

type keywordRule[T any] struct {
	value    T
	keywords []string
}

// Rules are checked in order and the first group with a hit wins.
var (
	useCaseRules = []keywordRule[models.UseCase]{
		{models.UseCaseProgramming, []string{"programming", "developer", "coding", "software dev"}},
		{models.UseCaseGaming, []string{"gaming", "gamer"}},
		{models.UseCaseEveryday, []string{"daily use", "everyday", "browsing", "office", "word", "excel"}},
		{models.UseCaseSocialMedia, []string{"social media", "tiktok", "instagram"}},
	}

	osRules = []keywordRule[models.OSPreference]{
		{models.OSWindows, []string{"windows"}},
		{models.OSApple, []string{"mac", "macos", "macbook", "ios"}},
		{models.OSAndroid, []string{"android"}},
		{models.OSChromeOS, []string{"chrome", "chromebook"}},
	}

	deviceRules = []keywordRule[models.DeviceType]{
		{models.DeviceLaptop, []string{"laptop", "notebook", "ultrabook", "macbook"}},
		{models.DevicePhone, []string{"phone", "smartphone", "iphone", "android"}},
		{models.DeviceTablet, []string{"tablet", "ipad", "galaxy tab"}},
	}

	weightKeywords = []string{"lightweight", "portable", "thin"}
)

var (
	educationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`what is ([a-z\s]+)\??`),
		regexp.MustCompile(`explain ([a-z\s]+)\??`),
	}

	ramPattern     = regexp.MustCompile(`(\d+)\s*gb\s*ram`)
	underPattern   = regexp.MustCompile(`under\s*\$?\s*(\d+)`)
	betweenPattern = regexp.MustCompile(`between\s*\$?\s*(\d+)\s*and\s*\$?\s*(\d+)`)
)

// ExtractSlots is pure and never fails; unrecognized text yields an
// empty SlotSet.
func ExtractSlots(text string) models.SlotSet {
	t := strings.ToLower(text)

	var slots models.SlotSet
	slots.EducationTerm = educationTerm(t)
	slots.UseCase = firstMatch(t, useCaseRules)
	slots.OS = firstMatch(t, osRules)
	slots.DeviceType = firstMatch(t, deviceRules)

	if containsAny(t, weightKeywords) {
		slots.Weight = models.WeightLight
	}

	if strings.Contains(t, "camera") {
		slots.Camera = models.CameraGreat
	}
	if strings.Contains(t, "video") {
		slots.Camera = models.CameraVideo
	}

	if m := ramPattern.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			slots.RAMGB = mo.Some(n)
		}
	}

	if m := underPattern.FindStringSubmatch(t); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			slots.BudgetMax = mo.Some(v)
		}
	}

	// A "between" range overrides an "under" bound found earlier.
	if m := betweenPattern.FindStringSubmatch(t); m != nil {
		lo, okLo := parseAmount(m[1])
		hi, okHi := parseAmount(m[2])
		if okLo && okHi {
			slots.BudgetMin = mo.Some(lo)
			slots.BudgetMax = mo.Some(hi)
		}
	}

	return slots
}

func educationTerm(t string) string {
	for _, pattern := range educationPatterns {
		if m := pattern.FindStringSubmatch(t); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func firstMatch[T any](t string, rules []keywordRule[T]) T {
	for _, rule := range rules {
		if containsAny(t, rule.keywords) {
			return rule.value
		}
	}
	var zero T
	return zero
}

func containsAny(t string, words []string) bool {
	for _, w := range words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

func parseAmount(digits string) (float64, bool) {
	n, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
