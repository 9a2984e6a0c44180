package audit

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/seoblogy/seo-audit/report"
)

// HostResolver maps an absolute link URL to the host used for
// internal/external classification.
type HostResolver interface {
	Resolve(ctx context.Context, absURL string) string
}

// StaticResolver classifies by the href's own host without touching the
// network. This is the default: deterministic and free.
type StaticResolver struct{}

// Resolve returns the URL's host, or "" when it cannot be parsed.
func (StaticResolver) Resolve(_ context.Context, absURL string) string {
	u, err := url.Parse(absURL)
	if err != nil {
		return ""
	}
	return u.Host
}

type hostEntry struct {
	host      string
	timestamp time.Time
}

// ProbeResolver follows each link's redirects with a bounded network probe
// (HEAD first, GET fallback for servers that block HEAD) and classifies by
// the final host. Resolved hosts are cached with a TTL so repeated audits
// of link-heavy pages do not hammer the same targets.
type ProbeResolver struct {
	client    *http.Client
	userAgent string

	mu    sync.RWMutex
	cache map[string]hostEntry
	ttl   time.Duration
}

// NewProbeResolver creates a resolver whose probes are bounded by timeout
// and whose host cache expires after ttl.
func NewProbeResolver(timeout, ttl time.Duration, userAgent string) *ProbeResolver {
	return &ProbeResolver{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: userAgent,
		cache:     make(map[string]hostEntry),
		ttl:       ttl,
	}
}

// Resolve returns the link's final host after redirects, falling back to
// the unresolved host on any probe failure.
func (r *ProbeResolver) Resolve(ctx context.Context, absURL string) string {
	fallback := (StaticResolver{}).Resolve(ctx, absURL)

	r.mu.RLock()
	if e, ok := r.cache[absURL]; ok && time.Since(e.timestamp) < r.ttl {
		r.mu.RUnlock()
		return e.host
	}
	r.mu.RUnlock()

	host := r.probe(ctx, absURL)
	if host == "" {
		host = fallback
	}

	r.mu.Lock()
	r.cache[absURL] = hostEntry{host: host, timestamp: time.Now()}
	r.mu.Unlock()
	return host
}

func (r *ProbeResolver) probe(ctx context.Context, absURL string) string {
	if final := r.request(ctx, http.MethodHead, absURL); final != "" {
		return final
	}
	return r.request(ctx, http.MethodGet, absURL)
}

func (r *ProbeResolver) request(ctx context.Context, method, absURL string) string {
	req, err := http.NewRequestWithContext(ctx, method, absURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ""
	}
	return resp.Request.URL.Host
}

// LinkStats is the outcome of classifying every qualifying anchor.
// Counts are unbounded; the detail lists are capped by the auditor.
type LinkStats struct {
	Internal      []report.Link
	External      []report.Link
	InternalCount int
	ExternalCount int
}

// classifyLinks walks every anchor with a usable href, resolves it against
// the page URL, and classifies it as internal or external by comparing its
// resolved host with the page's host. Fragment-only, mailto: and tel:
// links are skipped. When the resolver probes the network, probes run
// concurrently but bounded, and link order is preserved.
func classifyLinks(ctx context.Context, doc *goquery.Document, pageURL string, resolver HostResolver, concurrency int) LinkStats {
	base, err := url.Parse(pageURL)
	if err != nil {
		return LinkStats{}
	}
	pageHost := base.Host

	type candidate struct {
		link report.Link
		host string
	}
	var candidates []*candidate

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		candidates = append(candidates, &candidate{
			link: report.Link{URL: abs.String(), Anchor: strings.TrimSpace(s.Text())},
		})
	})

	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			c.host = resolver.Resolve(gctx, c.link.URL)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // resolvers never return errors, they fall back

	var stats LinkStats
	for _, c := range candidates {
		if c.host == pageHost {
			stats.Internal = append(stats.Internal, c.link)
			stats.InternalCount++
		} else {
			stats.External = append(stats.External, c.link)
			stats.ExternalCount++
		}
	}
	return stats
}

func capLinks(links []report.Link, n int) []report.Link {
	if links == nil {
		return []report.Link{}
	}
	if len(links) > n {
		return links[:n]
	}
	return links
}
