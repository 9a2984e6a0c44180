package semantic

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Phrase candidates are maximal runs of content words, split at stopwords,
// digits-only tokens, and very short tokens. A run of two to four words is
// one candidate; longer runs are chunked. This is a chunking heuristic in
// place of real noun-phrase parsing, which keeps the pass dependency-free
// and deterministic.
const (
	minPhraseWords = 2
	maxPhraseWords = 4
)

func (e *Engine) extractPhrases(sections []Section) []Phrase {
	type agg struct {
		text   string
		count  int
		weight float64
		first  int
	}
	byKey := make(map[string]*agg)
	order := 0

	for _, sec := range sections {
		weight := e.weights[sec.Tag]
		if weight == 0 {
			weight = 1.0
		}
		for _, run := range e.contentRuns(sec.Text) {
			for _, phrase := range chunk(run) {
				key := e.fold.String(strings.Join(phrase, " "))
				a, ok := byKey[key]
				if !ok {
					a = &agg{text: strings.Join(phrase, " "), first: order}
					byKey[key] = a
					order++
				}
				a.count++
				a.weight += weight
			}
		}
	}

	aggs := make([]*agg, 0, len(byKey))
	for _, a := range byKey {
		aggs = append(aggs, a)
	}
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].weight != aggs[j].weight {
			return aggs[i].weight > aggs[j].weight
		}
		return aggs[i].first < aggs[j].first
	})

	phrases := make([]Phrase, 0, len(aggs))
	for _, a := range aggs {
		phrases = append(phrases, Phrase{Text: a.text, Count: a.count, Weight: a.weight})
	}
	return phrases
}

// contentRuns tokenizes the text and splits it into runs of consecutive
// content words. Stopwords and tokens shorter than three characters
// delimit runs.
func (e *Engine) contentRuns(text string) [][]string {
	var runs [][]string
	var current []string

	flush := func() {
		if len(current) >= minPhraseWords {
			runs = append(runs, current)
		}
		current = nil
	}

	for _, tok := range tokenize(text) {
		if _, stop := e.stopwords[tok]; stop || len([]rune(tok)) <= 2 || isNumeric(tok) {
			flush()
			continue
		}
		current = append(current, tok)
	}
	flush()
	return runs
}

// chunk splits a run into candidate phrases of at most maxPhraseWords.
func chunk(run []string) [][]string {
	if len(run) <= maxPhraseWords {
		return [][]string{run}
	}
	var out [][]string
	for start := 0; start < len(run); start += maxPhraseWords {
		end := start + maxPhraseWords
		if end > len(run) {
			end = len(run)
		}
		if end-start >= minPhraseWords {
			out = append(out, run[start:end])
		}
	}
	return out
}

func tokenize(text string) []string {
	text = norm.NFC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
