package models

import (
	"fmt"
	"strconv"
	"strings"
)

// RankingInfo is the per-hit relevance breakdown returned by the
// remote index when ranking info is requested.
type RankingInfo struct {
	NbExactWords int `json:"nbExactWords"`
	Typo         int `json:"typo"`
}

// Candidate is one product record as it travels through the pipeline.
// RAM and Camera keep whatever shape the catalog used.
type Candidate struct {
	ObjectID         string       `json:"objectID,omitempty"`
	Name             string       `json:"name,omitempty"`
	Title            string       `json:"title,omitempty"`
	Price            *float64     `json:"price,omitempty"`
	URL              string       `json:"url,omitempty"`
	Image            string       `json:"image,omitempty"`
	Brand            string       `json:"brand,omitempty"`
	Categories       []string     `json:"categories,omitempty"`
	OS               string       `json:"os,omitempty"`
	RAM              any          `json:"ram,omitempty"`
	Camera           any          `json:"camera,omitempty"`
	Description      string       `json:"description,omitempty"`
	ShortDescription string       `json:"shortDescription,omitempty"`
	RankingInfo      *RankingInfo `json:"_rankingInfo,omitempty"`
	Score            *float64     `json:"_score,omitempty"`
	AdvisorScore     float64      `json:"_advisorScore"`
}

// DisplayTitle prefers the title, then the name.
func (c Candidate) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Name
}

// Summary prefers the short description.
func (c Candidate) Summary() string {
	if c.ShortDescription != "" {
		return c.ShortDescription
	}
	return c.Description
}

// CategoryText joins the category labels for substring checks.
func (c Candidate) CategoryText() string {
	return strings.Join(c.Categories, " ")
}

// RAMValue returns the RAM attribute when it is numeric.
func (c Candidate) RAMValue() (float64, bool) {
	switch v := c.RAM.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// CameraText renders the camera attribute as text, "" when absent.
func (c Candidate) CameraText() string {
	switch v := c.Camera.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// SearchResult is what every retrieval backend hands back.
type SearchResult struct {
	Hits   []Candidate `json:"hits"`
	NbHits int         `json:"nbHits"`
}
