package audit

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/seoblogy/seo-audit/report"
)

// Field extractors. Each one reads the parsed document and returns one
// report field. None of them fail: missing data degrades to the "Not
// Found" sentinel or a zero count.

func extractTitle(doc *goquery.Document) (string, int) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return report.NotFound, 0
	}
	return title, len([]rune(title))
}

func extractMetaDescription(doc *goquery.Document) (string, int) {
	content, ok := doc.Find(`meta[name="description"]`).First().Attr("content")
	content = strings.TrimSpace(content)
	if !ok || content == "" {
		return report.NotFound, 0
	}
	return content, len([]rune(content))
}

// extractHeadings joins the trimmed text of every heading at the given
// level with " | ", matching the report's compact single-line format.
func extractHeadings(doc *goquery.Document, tag string) string {
	var parts []string
	doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return report.NotFound
	}
	return strings.Join(parts, " | ")
}

func extractCanonical(doc *goquery.Document) string {
	href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href")
	if !ok || href == "" {
		return report.NotFound
	}
	return href
}

func extractRobots(doc *goquery.Document) string {
	content, ok := doc.Find(`meta[name="robots"]`).First().Attr("content")
	if !ok || content == "" {
		return report.NotFound
	}
	return content
}

func isHTTPS(pageURL string) bool {
	return strings.HasPrefix(pageURL, "https")
}

// hasMixedContent reports whether any sub-resource loads over plain HTTP.
// Only meaningful on HTTPS pages; callers skip it otherwise.
func hasMixedContent(doc *goquery.Document) bool {
	mixed := false
	doc.Find("img, script, link").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, ok := s.Attr("src")
		if !ok {
			src, ok = s.Attr("href")
		}
		if ok && strings.HasPrefix(src, "http://") {
			mixed = true
			return false
		}
		return true
	})
	return mixed
}

// visibleText walks the body and joins text nodes with single spaces,
// skipping script, style, and other non-rendered elements.
func visibleText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	nodes := doc.Find("body").Nodes
	if len(nodes) == 0 {
		nodes = doc.Nodes
	}
	for _, n := range nodes {
		walk(n)
	}
	return b.String()
}

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// extractParagraphs returns the first maxWords words of paragraph text.
func extractParagraphs(doc *goquery.Document, maxWords int) string {
	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	words := strings.Fields(strings.Join(parts, " "))
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}

func extractImageStats(doc *goquery.Document) (total, missingAlt int) {
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		total++
		alt, ok := s.Attr("alt")
		if !ok || strings.TrimSpace(alt) == "" {
			missingAlt++
		}
	})
	return total, missingAlt
}

var htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// extractSchemaMarkup parses every JSON-LD script block. A block that fails
// to parse gets one retry with HTML comment markers stripped; persistent
// failures are skipped rather than failing the field.
func extractSchemaMarkup(doc *goquery.Document) []any {
	var schemas []any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			cleaned := htmlCommentRe.ReplaceAllString(raw, "")
			if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
				return
			}
		}
		schemas = append(schemas, parsed)
	})
	return schemas
}

func extractFavicon(doc *goquery.Document) string {
	favicon := report.NotFound
	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !strings.Contains(strings.ToLower(rel), "icon") {
			return true
		}
		if href, ok := s.Attr("href"); ok && href != "" {
			favicon = href
			return false
		}
		return true
	})
	return favicon
}

func extractHreflangs(doc *goquery.Document) string {
	var hrefs []string
	doc.Find(`link[rel="alternate"][hreflang]`).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			hrefs = append(hrefs, href)
		}
	})
	if len(hrefs) == 0 {
		return report.NotFound
	}
	return strings.Join(hrefs, " | ")
}
