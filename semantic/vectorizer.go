package semantic

import (
	"hash/fnv"
	"math"
	"strings"
)

// Vectorizer turns a phrase into a dense vector for similarity scoring.
// Implementations must be safe for concurrent use.
type Vectorizer interface {
	Vector(text string) ([]float64, error)
}

const localDims = 512

// localVectorizer builds hashed character-trigram frequency vectors. It is
// deterministic, needs no model files or network, and captures enough
// lexical overlap for phrase clustering ("seo audit tools" vs "seo audit
// checklist" score high; unrelated phrases score near zero).
type localVectorizer struct {
	dims int
}

// NewLocalVectorizer returns the in-process trigram vectorizer.
func NewLocalVectorizer() Vectorizer {
	return &localVectorizer{dims: localDims}
}

func (l *localVectorizer) Vector(text string) ([]float64, error) {
	v := make([]float64, l.dims)
	s := " " + strings.ToLower(strings.TrimSpace(text)) + " "
	runes := []rune(s)
	for i := 0; i+3 <= len(runes); i++ {
		h := fnv.New32a()
		h.Write([]byte(string(runes[i : i+3])))
		v[h.Sum32()%uint32(l.dims)]++
	}
	return v, nil
}

// cosine computes cosine similarity. Mismatched lengths or a zero-norm
// side score 0, excluding that pair from clustering.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
