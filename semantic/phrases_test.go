package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentRunsSplitAtStopwords(t *testing.T) {
	t.Parallel()

	e := NewEngine(Options{Stopwords: testStopwords})
	runs := e.contentRuns("technical seo checklist for small business owners")

	require.Len(t, runs, 2)
	assert.Equal(t, []string{"technical", "seo", "checklist"}, runs[0])
	assert.Equal(t, []string{"small", "business", "owners"}, runs[1])
}

func TestContentRunsSplitAtShortAndNumericTokens(t *testing.T) {
	t.Parallel()

	e := NewEngine(Options{Stopwords: testStopwords})
	runs := e.contentRuns("page speed vs 2024 core web vitals")

	// "vs" (short) and "2024" (numeric) both delimit.
	require.Len(t, runs, 2)
	assert.Equal(t, []string{"page", "speed"}, runs[0])
	assert.Equal(t, []string{"core", "web", "vitals"}, runs[1])
}

func TestChunkLongRuns(t *testing.T) {
	t.Parallel()

	run := []string{"one", "two", "three", "four", "five", "six"}
	chunks := chunk(run)

	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"one", "two", "three", "four"}, chunks[0])
	assert.Equal(t, []string{"five", "six"}, chunks[1])

	// A trailing single word is dropped, phrases are multi-word by definition.
	chunks = chunk([]string{"one", "two", "three", "four", "five"})
	require.Len(t, chunks, 1)
}

func TestExtractEntitiesByCue(t *testing.T) {
	t.Parallel()

	e := NewEngine(Options{Stopwords: testStopwords})
	groups := e.extractEntities([]Section{
		{Tag: "p", Text: "The study by Acme Corp was presented at the Lisbon Summit. " +
			"Dr Jane Doe praised Acme Corp for its work in Porto."},
	})

	byCat := map[string][]string{}
	for _, g := range groups {
		byCat[g.Category] = g.Names
	}

	assert.Contains(t, byCat["organization"], "Acme Corp")
	assert.Contains(t, byCat["event"], "Lisbon Summit")
	assert.Contains(t, byCat["person"], "Jane Doe")
	assert.Contains(t, byCat["place"], "Porto")
}

func TestExtractEntitiesCapsPerCategory(t *testing.T) {
	t.Parallel()

	e := NewEngine(Options{EntitiesPerCategory: 2, Stopwords: testStopwords})
	groups := e.extractEntities([]Section{
		{Tag: "p", Text: "Alpha Corp leads. Beta Corp follows. Gamma Corp trails. Delta Corp exits."},
	})

	require.Len(t, groups, 1)
	assert.Equal(t, "organization", groups[0].Category)
	assert.Len(t, groups[0].Names, 2)
}

func TestExtractEntitiesIgnoresUncuedCapitals(t *testing.T) {
	t.Parallel()

	e := NewEngine(Options{Stopwords: testStopwords})
	groups := e.extractEntities([]Section{
		{Tag: "p", Text: "Search Engines Rank Pages Differently"},
	})
	assert.Empty(t, groups)
}
