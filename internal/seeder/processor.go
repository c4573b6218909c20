package seeder

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// ProductProcessor turns a product page into a catalog record. It reads
// schema.org Product JSON-LD first and falls back to Open Graph tags.
type ProductProcessor struct {
	multiWhitespace *regexp.Regexp
	ramPattern      *regexp.Regexp
	cameraPattern   *regexp.Regexp
	pricePattern    *regexp.Regexp
}

func NewProductProcessor() *ProductProcessor {
	return &ProductProcessor{
		multiWhitespace: regexp.MustCompile(`\s+`),
		ramPattern:      regexp.MustCompile(`(?i)(\d{1,3})\s*GB\s*(?:of\s+)?(?:RAM|memory|LPDDR\d*X?|DDR\d)`),
		cameraPattern:   regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d)?)\s*MP`),
		pricePattern:    regexp.MustCompile(`\d+(?:\.\d+)?`),
	}
}

// osKeywords maps page text onto the catalog's OS vocabulary. Order
// matters: "chromebook" must win over a stray "windows" mention.
var osKeywords = []struct {
	os       models.OSPreference
	keywords []string
}{
	{models.OSChromeOS, []string{"chromebook", "chrome os", "chromeos"}},
	{models.OSApple, []string{"macbook", "macos", "iphone", "ipad", "ios "}},
	{models.OSAndroid, []string{"android", "galaxy", "pixel"}},
	{models.OSWindows, []string{"windows"}},
}

var deviceKeywords = []struct {
	device   models.DeviceType
	keywords []string
}{
	{models.DeviceTablet, []string{"tablet", "ipad", "galaxy tab"}},
	{models.DeviceLaptop, []string{"laptop", "notebook", "ultrabook", "macbook", "chromebook"}},
	{models.DevicePhone, []string{"smartphone", "phone", "iphone"}},
}

// CleanText collapses whitespace.
func (p *ProductProcessor) CleanText(s string) string {
	return strings.TrimSpace(p.multiWhitespace.ReplaceAllString(s, " "))
}

type jsonLDProduct struct {
	Type        json.RawMessage `json:"@type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	Category    string          `json:"category"`
	Brand       json.RawMessage `json:"brand"`
	Image       json.RawMessage `json:"image"`
	Offers      json.RawMessage `json:"offers"`
	Graph       []jsonLDProduct `json:"@graph"`
}

type jsonLDOffer struct {
	Price json.RawMessage `json:"price"`
}

// ExtractProduct reads one product from a parsed page. ok is false when
// the page carries no recognizable product name.
func (p *ProductProcessor) ExtractProduct(doc *goquery.Selection, pageURL string) (models.Candidate, bool) {
	var c models.Candidate
	if product, found := p.findJSONLD(doc); found {
		c = models.Candidate{
			ObjectID:    product.SKU,
			Title:       p.CleanText(product.Name),
			Description: p.CleanText(product.Description),
			Brand:       p.CleanText(nameOf(product.Brand)),
			Image:       firstString(product.Image),
			Price:       p.offerPrice(product.Offers),
		}
		if product.Category != "" {
			c.Categories = append(c.Categories, p.CleanText(product.Category))
		}
	}

	if c.Title == "" {
		c.Title = p.CleanText(metaContent(doc, "og:title"))
	}
	if c.Title == "" {
		c.Title = p.CleanText(doc.Find("h1").First().Text())
	}
	if c.Title == "" {
		return models.Candidate{}, false
	}
	if c.Description == "" {
		c.Description = p.CleanText(metaContent(doc, "og:description"))
	}
	if c.Image == "" {
		c.Image = metaContent(doc, "og:image")
	}
	if c.Price == nil {
		c.Price = p.parsePrice(metaContent(doc, "product:price:amount"))
	}

	c.URL = pageURL
	if c.ObjectID == "" {
		c.ObjectID = pageURL
	}
	p.inferAttributes(&c)
	return c, true
}

func (p *ProductProcessor) findJSONLD(doc *goquery.Selection) (jsonLDProduct, bool) {
	var found jsonLDProduct
	var ok bool

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := []byte(strings.TrimSpace(s.Text()))

		var candidates []jsonLDProduct
		var single jsonLDProduct
		if err := json.Unmarshal(raw, &single); err == nil {
			candidates = append(candidates, single)
			candidates = append(candidates, single.Graph...)
		} else if err := json.Unmarshal(raw, &candidates); err != nil {
			return true
		}

		for _, c := range candidates {
			if isProduct(c.Type) && c.Name != "" {
				found, ok = c, true
				return false
			}
		}
		return true
	})

	return found, ok
}

func isProduct(raw json.RawMessage) bool {
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return single == "Product"
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		for _, t := range many {
			if t == "Product" {
				return true
			}
		}
	}
	return false
}

// nameOf accepts "Acme" or {"name": "Acme"}.
func nameOf(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Name
	}
	return ""
}

func firstString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

func (p *ProductProcessor) offerPrice(raw json.RawMessage) *float64 {
	var offers []jsonLDOffer
	var single jsonLDOffer
	if json.Unmarshal(raw, &single) == nil {
		offers = append(offers, single)
	} else if json.Unmarshal(raw, &offers) != nil {
		return nil
	}

	for _, o := range offers {
		var n float64
		if json.Unmarshal(o.Price, &n) == nil {
			return &n
		}
		var s string
		if json.Unmarshal(o.Price, &s) == nil {
			if price := p.parsePrice(s); price != nil {
				return price
			}
		}
	}
	return nil
}

// parsePrice reads "$1,299.99" style amounts.
func (p *ProductProcessor) parsePrice(s string) *float64 {
	match := p.pricePattern.FindString(strings.ReplaceAll(s, ",", ""))
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}

func metaContent(doc *goquery.Selection, property string) string {
	content, _ := doc.Find(`meta[property="` + property + `"]`).Attr("content")
	return strings.TrimSpace(content)
}

// inferAttributes fills os, ram, camera and a device category from the
// title and description so catalog filters line up with extracted slots.
func (p *ProductProcessor) inferAttributes(c *models.Candidate) {
	text := strings.ToLower(c.Title + " " + c.Description + " ")

	for _, rule := range osKeywords {
		if containsAny(text, rule.keywords) {
			c.OS = string(rule.os)
			break
		}
	}

	for _, rule := range deviceKeywords {
		if containsAny(text, rule.keywords) {
			c.Categories = appendUnique(c.Categories, string(rule.device))
			break
		}
	}

	if m := p.ramPattern.FindStringSubmatch(c.Title + " " + c.Description); m != nil {
		if ram, err := strconv.Atoi(m[1]); err == nil {
			c.RAM = ram
		}
	}

	if m := p.cameraPattern.FindStringSubmatch(c.Title + " " + c.Description); m != nil {
		c.Camera = m[1] + "MP"
	}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func appendUnique(items []string, item string) []string {
	for _, existing := range items {
		if strings.EqualFold(existing, item) {
			return items
		}
	}
	return append(items, item)
}
