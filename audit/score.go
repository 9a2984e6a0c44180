package audit

import (
	"github.com/PuerkitoBio/goquery"
)

const headingSkipPenalty = 20

var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// HeadingStructureScore checks whether headings follow a proper hierarchy.
// The score starts at 100 and loses 20 points for every heading that skips
// more than one level below its predecessor (H1 followed directly by H3).
// A document without headings scores 0.
func HeadingStructureScore(doc *goquery.Document) int {
	score := 100
	last := 0
	seen := false

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level, ok := headingLevels[goquery.NodeName(s)]
		if !ok {
			return
		}
		if seen && level-last > 1 {
			score -= headingSkipPenalty
		}
		last = level
		seen = true
	})

	if !seen {
		return 0
	}
	if score < 0 {
		return 0
	}
	return score
}
