// Package ranker orders retrieved candidates with a bounded heuristic
// score that blends native relevance with slot matches.
package ranker

import (
	"math"
	"sort"
	"strings"

	"github.com/Ayash-Bera/device-advisor/internal/models"
)

const (
	deviceBoost      = 0.2
	osBoost          = 0.2
	portabilityBoost = 0.1
	memoryBoost      = 0.1
	cameraBoost      = 0.2
	budgetPenalty    = 0.3

	minProgrammingRAM = 16
)

var (
	portableTitleWords = []string{"air", "ultrabook", "thin", "light"}
	cameraWords        = []string{"stabilization", "4k", "1080p", "ois", "pro camera", "hdr"}
)

// Score computes the advisor score of a single candidate, in [0,1].
func Score(c models.Candidate, slots models.SlotSet) float64 {
	score := baseScore(c)

	title := strings.ToLower(c.DisplayTitle())
	categories := strings.ToLower(c.CategoryText())

	switch slots.DeviceType {
	case models.DeviceLaptop:
		if strings.Contains(categories+" "+title, "laptop") {
			score += deviceBoost
		}
	case models.DevicePhone:
		if strings.Contains(categories, "phone") || strings.Contains(title, "iphone") || strings.Contains(title, "android") {
			score += deviceBoost
		}
	}

	if slots.OS != models.OSNone {
		want := strings.ToLower(string(slots.OS))
		if strings.Contains(strings.ToLower(c.OS), want) || strings.Contains(title, want) {
			score += osBoost
		}
	}

	switch slots.UseCase {
	case models.UseCaseProgramming:
		if containsAny(title, portableTitleWords) {
			score += portabilityBoost
		}
		if ram, ok := c.RAMValue(); ok && ram >= minProgrammingRAM {
			score += memoryBoost
		}
	case models.UseCaseSocialMedia:
		camera := strings.ToLower(c.CameraText())
		if camera == "" {
			camera = title
		}
		if containsAny(camera, cameraWords) {
			score += cameraBoost
		}
	}

	if c.Price != nil {
		if min, ok := slots.BudgetMin.Get(); ok && *c.Price < min {
			score -= budgetPenalty
		}
		if max, ok := slots.BudgetMax.Get(); ok && *c.Price > max {
			score -= budgetPenalty
		}
	}

	return clamp01(score)
}

// baseScore reads whichever native relevance signal the backend sent.
func baseScore(c models.Candidate) float64 {
	if c.RankingInfo != nil {
		return 1.0 / float64(1+c.RankingInfo.NbExactWords+c.RankingInfo.Typo)
	}
	if c.Score != nil {
		return math.Min(1.0, *c.Score/10.0)
	}
	return 0
}

// Rerank attaches an AdvisorScore to every hit in place, then returns
// them sorted by score descending (ties keep input order) and cut to
// topK. topK <= 0 keeps everything. The order of hits is untouched.
func Rerank(hits []models.Candidate, slots models.SlotSet, query string, topK int) []models.Candidate {
	for i := range hits {
		hits[i].AdvisorScore = Score(hits[i], slots)
	}

	ranked := make([]models.Candidate, len(hits))
	copy(ranked, hits)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AdvisorScore > ranked[j].AdvisorScore
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
