// Package semantic ranks a page's multi-word phrases, groups them into
// clusters by vector similarity, and picks out likely named entities. The
// vector capability is pluggable: a deterministic in-process vectorizer by
// default, or a remote embedding API.
package semantic

import (
	"errors"
	"sync"

	"golang.org/x/text/cases"
)

// ErrInsufficientContent reports that the page text yields no multi-word
// phrases to analyze. It is a distinct signal, not an empty success.
var ErrInsufficientContent = errors.New("insufficient content for semantic analysis")

// Section is a piece of page text labeled with the tag it came from, so
// occurrences can be weighted by the tag's SEO importance.
type Section struct {
	Tag  string
	Text string
}

// Phrase is a ranked multi-word phrase.
type Phrase struct {
	Text   string
	Count  int
	Weight float64
}

// Cluster groups a phrase with the other top phrases whose similarity to
// it exceeds the engine threshold.
type Cluster struct {
	Phrase  string
	Related []string
}

// EntityGroup is a category of named entities with its most frequent
// mentions.
type EntityGroup struct {
	Category string
	Names    []string
}

// Insights is the engine's complete output for one page.
type Insights struct {
	Phrases  []Phrase
	Clusters []Cluster
	Entities []EntityGroup
}

// Options configure an Engine.
type Options struct {
	Vectorizer          Vectorizer
	SimilarityThreshold float64
	MaxChars            int
	TopPhrases          int
	EntitiesPerCategory int
	TagWeights          map[string]float64
	Stopwords           []string
}

// Engine performs the semantic pass. It is read-only after construction
// and safe for concurrent use.
type Engine struct {
	vec         Vectorizer
	threshold   float64
	maxChars    int
	topN        int
	topEntities int
	weights     map[string]float64
	stopwords   map[string]struct{}
	fold        cases.Caser
}

// NewEngine builds an engine from options. Zero values fall back to
// conservative defaults.
func NewEngine(opts Options) *Engine {
	if opts.Vectorizer == nil {
		opts.Vectorizer = NewLocalVectorizer()
	}
	if opts.SimilarityThreshold == 0 {
		opts.SimilarityThreshold = 0.72
	}
	if opts.MaxChars == 0 {
		opts.MaxChars = 10000
	}
	if opts.TopPhrases == 0 {
		opts.TopPhrases = 10
	}
	if opts.EntitiesPerCategory == 0 {
		opts.EntitiesPerCategory = 5
	}
	if opts.TagWeights == nil {
		opts.TagWeights = map[string]float64{}
	}
	stop := make(map[string]struct{}, len(opts.Stopwords))
	for _, w := range opts.Stopwords {
		stop[w] = struct{}{}
	}
	return &Engine{
		vec:         opts.Vectorizer,
		threshold:   opts.SimilarityThreshold,
		maxChars:    opts.MaxChars,
		topN:        opts.TopPhrases,
		topEntities: opts.EntitiesPerCategory,
		weights:     opts.TagWeights,
		stopwords:   stop,
		fold:        cases.Fold(),
	}
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Init initializes the process-wide engine exactly once and returns it.
// Later calls return the already-initialized engine regardless of the
// options passed; the engine is never mutated after load.
func Init(opts Options) *Engine {
	defaultOnce.Do(func() {
		defaultEngine = NewEngine(opts)
	})
	return defaultEngine
}

// Analyze runs the full semantic pass over the page sections. It returns
// ErrInsufficientContent when the text yields no multi-word phrases.
func (e *Engine) Analyze(sections []Section) (*Insights, error) {
	sections = e.truncate(sections)

	phrases := e.extractPhrases(sections)
	if len(phrases) == 0 {
		return nil, ErrInsufficientContent
	}
	if len(phrases) > e.topN {
		phrases = phrases[:e.topN]
	}

	return &Insights{
		Phrases:  phrases,
		Clusters: e.cluster(phrases),
		Entities: e.extractEntities(sections),
	}, nil
}

// truncate caps the total text volume before vectorization. Sections are
// kept in order; the one that crosses the budget is cut and the rest
// dropped.
func (e *Engine) truncate(sections []Section) []Section {
	budget := e.maxChars
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		if budget <= 0 {
			break
		}
		runes := []rune(s.Text)
		if len(runes) > budget {
			s.Text = string(runes[:budget])
		}
		budget -= len([]rune(s.Text))
		out = append(out, s)
	}
	return out
}

// cluster groups each top phrase with the other top phrases whose cosine
// similarity exceeds the threshold. Phrases whose vectors cannot be
// computed, or are zero-norm, drop out of the comparison; the pass
// degrades rather than fails.
func (e *Engine) cluster(phrases []Phrase) []Cluster {
	type vecEntry struct {
		text string
		vec  []float64
	}
	entries := make([]vecEntry, 0, len(phrases))
	for _, p := range phrases {
		v, err := e.vec.Vector(p.Text)
		if err != nil || isZero(v) {
			continue
		}
		entries = append(entries, vecEntry{text: p.Text, vec: v})
	}

	var clusters []Cluster
	for i, a := range entries {
		var related []string
		seen := map[string]struct{}{e.fold.String(a.text): {}}
		for j, b := range entries {
			if i == j {
				continue
			}
			key := e.fold.String(b.text)
			if _, dup := seen[key]; dup {
				continue
			}
			if cosine(a.vec, b.vec) > e.threshold {
				related = append(related, b.text)
				seen[key] = struct{}{}
			}
		}
		if len(related) > 0 {
			clusters = append(clusters, Cluster{Phrase: a.text, Related: related})
		}
	}
	return clusters
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
