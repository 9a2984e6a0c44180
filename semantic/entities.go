package semantic

import (
	"sort"
	"strings"
	"unicode"
)

// Entity extraction is a cue-based heuristic over capitalized token runs:
// a run is kept only when a cue word pins down its category. Uncued
// capitalized text (sentence starts, style choices) is ignored. This is a
// best-effort field, not a general NER pass.

var entityCategories = []string{"organization", "place", "product", "person", "event"}

// suffixCues categorize a run by its final token.
var suffixCues = map[string]string{
	"inc": "organization", "corp": "organization", "ltd": "organization",
	"llc": "organization", "company": "organization", "group": "organization",
	"university": "organization", "institute": "organization",
	"agency": "organization", "foundation": "organization",

	"city": "place", "county": "place", "island": "place", "valley": "place",
	"republic": "place", "kingdom": "place", "bay": "place",

	"pro": "product", "plus": "product", "suite": "product",
	"platform": "product", "edition": "product",

	"conference": "event", "summit": "event", "festival": "event",
	"cup": "event", "expo": "event", "olympics": "event",
}

// prefixCues categorize a run by the token immediately before it.
var prefixCues = map[string]string{
	"mr": "person", "mrs": "person", "ms": "person", "dr": "person",
	"prof": "person", "professor": "person", "president": "person",
	"ceo": "person", "founder": "person", "author": "person",

	"in": "place", "at": "place", "near": "place",
}

func (e *Engine) extractEntities(sections []Section) []EntityGroup {
	counts := make(map[string]map[string]int)

	for _, sec := range sections {
		words := strings.Fields(sec.Text)
		for i := 0; i < len(words); i++ {
			if !isCapitalized(words[i]) {
				continue
			}
			// Collect the maximal capitalized run starting here.
			j := i
			for j < len(words) && isCapitalized(words[j]) {
				j++
			}
			run := make([]string, 0, j-i)
			for _, w := range words[i:j] {
				run = append(run, strings.TrimFunc(w, func(r rune) bool {
					return !unicode.IsLetter(r) && !unicode.IsDigit(r)
				}))
			}
			// Long runs are almost always title-case styling, not names.
			if len(run) > 5 {
				i = j - 1
				continue
			}

			// An honorific is capitalized itself and lands inside the
			// run ("Dr Jane Doe"), so check the run's first token before
			// looking at the word preceding the run.
			category := ""
			if len(run) >= 2 {
				if c, ok := prefixCues[strings.ToLower(run[0])]; ok && c == "person" {
					category = c
					run = run[1:]
				}
			}
			if category == "" {
				if c, ok := suffixCues[strings.ToLower(run[len(run)-1])]; ok {
					category = c
				} else if i > 0 {
					prev := strings.ToLower(strings.Trim(words[i-1], ".,:;"))
					if c, ok := prefixCues[prev]; ok {
						category = c
					}
				}
			}

			if category != "" && len(run) >= 1 {
				name := strings.Join(run, " ")
				if counts[category] == nil {
					counts[category] = make(map[string]int)
				}
				counts[category][name]++
			}
			i = j - 1
		}
	}

	var groups []EntityGroup
	for _, cat := range entityCategories {
		names := counts[cat]
		if len(names) == 0 {
			continue
		}
		ranked := make([]string, 0, len(names))
		for n := range names {
			ranked = append(ranked, n)
		}
		sort.Slice(ranked, func(i, j int) bool {
			if names[ranked[i]] != names[ranked[j]] {
				return names[ranked[i]] > names[ranked[j]]
			}
			return ranked[i] < ranked[j]
		})
		if len(ranked) > e.topEntities {
			ranked = ranked[:e.topEntities]
		}
		groups = append(groups, EntityGroup{Category: cat, Names: ranked})
	}
	return groups
}

func isCapitalized(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}
