package audit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLinksByHost(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<body>
		<a href="/about">About</a>
		<a href="https://example.com/contact">Contact</a>
		<a href="https://other.org/page">Elsewhere</a>
	</body>`)

	stats := classifyLinks(context.Background(), doc, "https://example.com/home", StaticResolver{}, 1)

	assert.Equal(t, 2, stats.InternalCount)
	assert.Equal(t, 1, stats.ExternalCount)
	require.Len(t, stats.Internal, 2)
	assert.Equal(t, "https://example.com/about", stats.Internal[0].URL)
	assert.Equal(t, "About", stats.Internal[0].Anchor)
	assert.Equal(t, "https://other.org/page", stats.External[0].URL)
}

func TestClassifyLinksSkipsNonNavigable(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<body>
		<a href="#section">Jump</a>
		<a href="#">Top</a>
		<a href="mailto:team@example.com">Mail</a>
		<a href="tel:+15551234">Call</a>
		<a href="">Empty</a>
		<a href="/kept">Kept</a>
	</body>`)

	stats := classifyLinks(context.Background(), doc, "https://example.com/", StaticResolver{}, 1)
	assert.Equal(t, 1, stats.InternalCount+stats.ExternalCount)
}

func TestClassifyLinksCountsEqualQualifyingAnchors(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<body>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, `<a href="/p%d">p%d</a>`, i, i)
	}
	for i := 0; i < 7; i++ {
		fmt.Fprintf(&b, `<a href="https://ext%d.com/">e%d</a>`, i, i)
	}
	b.WriteString(`<a href="#frag">skip</a><a href="mailto:x@y.z">skip</a></body>`)

	stats := classifyLinks(context.Background(), parseDoc(t, b.String()), "https://example.com/", StaticResolver{}, 1)

	assert.Equal(t, 37, stats.InternalCount+stats.ExternalCount)
	assert.Equal(t, 30, stats.InternalCount)
	assert.Equal(t, 7, stats.ExternalCount)

	// Detail lists cap at 20 while counts stay exact.
	assert.Len(t, capLinks(stats.Internal, 20), 20)
	assert.Len(t, capLinks(stats.External, 20), 7)
}

func TestStaticResolver(t *testing.T) {
	t.Parallel()

	r := StaticResolver{}
	assert.Equal(t, "example.com", r.Resolve(context.Background(), "https://example.com/x"))
	assert.Equal(t, "", r.Resolve(context.Background(), "://broken"))
}

func TestProbeResolverFollowsRedirects(t *testing.T) {
	t.Parallel()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer hop.Close()

	targetHost := mustHost(t, target.URL)

	r := NewProbeResolver(2*time.Second, time.Minute, "test-agent")
	got := r.Resolve(context.Background(), hop.URL)
	assert.Equal(t, targetHost, got)
}

func TestProbeResolverFallsBackOnFailure(t *testing.T) {
	t.Parallel()

	r := NewProbeResolver(200*time.Millisecond, time.Minute, "test-agent")
	got := r.Resolve(context.Background(), "http://unresolvable.invalid/page")
	assert.Equal(t, "unresolvable.invalid", got)
}

func TestProbeResolverFallsBackToGET(t *testing.T) {
	t.Parallel()

	var sawGet bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			http.Error(w, "no HEAD here", http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewProbeResolver(2*time.Second, time.Minute, "test-agent")
	got := r.Resolve(context.Background(), srv.URL)
	assert.Equal(t, mustHost(t, srv.URL), got)
	assert.True(t, sawGet)
}

func TestProbeResolverCachesHosts(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewProbeResolver(2*time.Second, time.Minute, "test-agent")
	r.Resolve(context.Background(), srv.URL)
	first := hits
	r.Resolve(context.Background(), srv.URL)
	assert.Equal(t, first, hits, "second resolve should hit the cache")
}

func mustHost(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Host
}
