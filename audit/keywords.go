package audit

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/seoblogy/seo-audit/report"
)

// KeywordEngine extracts the most frequent content words from page text.
type KeywordEngine struct {
	stopwords map[string]struct{}
	topN      int
}

// NewKeywordEngine builds an engine with the given stopword list and
// result size.
func NewKeywordEngine(stopwords []string, topN int) *KeywordEngine {
	stop := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &KeywordEngine{stopwords: stop, topN: topN}
}

// CleanText normalizes text for tokenization: NFC normalization, every
// non-alphanumeric rune replaced with a space, lowercased.
func CleanText(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Top returns the topN most frequent tokens, excluding stopwords and
// tokens of length <= 2. Ties rank in first-encountered order.
func (e *KeywordEngine) Top(text string) report.CountMap {
	counts := make(map[string]int)
	first := make(map[string]int)

	for i, w := range strings.Fields(CleanText(text)) {
		if len([]rune(w)) <= 2 {
			continue
		}
		if _, ok := e.stopwords[w]; ok {
			continue
		}
		if _, seen := counts[w]; !seen {
			first[w] = i
		}
		counts[w]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return first[words[i]] < first[words[j]]
	})

	if len(words) > e.topN {
		words = words[:e.topN]
	}

	top := make(report.CountMap, 0, len(words))
	for _, w := range words {
		top = append(top, report.CountItem{Key: w, Count: counts[w]})
	}
	return top
}

// Density maps each top keyword to its share of the total word count as a
// two-decimal percentage string. Empty when totalWords is zero.
func (e *KeywordEngine) Density(top report.CountMap, totalWords int) report.StringMap {
	if totalWords == 0 {
		return report.StringMap{}
	}
	density := make(report.StringMap, 0, len(top))
	for _, it := range top {
		pct := float64(it.Count) / float64(totalWords) * 100
		density = append(density, report.StringItem{
			Key:   it.Key,
			Value: fmt.Sprintf("%.2f%%", pct),
		})
	}
	return density
}
