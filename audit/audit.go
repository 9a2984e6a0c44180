// Package audit builds the SEO report for one fetched page: a sequence of
// independent extraction passes over the parsed document, assembled into
// one ordered record. Each pass degrades on missing data instead of
// failing; only a panic during assembly aborts the report.
package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seoblogy/seo-audit/config"
	"github.com/seoblogy/seo-audit/fetch"
	"github.com/seoblogy/seo-audit/report"
	"github.com/seoblogy/seo-audit/semantic"
)

// InsufficientContent is the sentinel the semantic fields degrade to when
// the page yields no multi-word phrases.
const InsufficientContent = "Insufficient Content"

// AnalysisError marks a failure inside report building, after a successful
// fetch. The HTTP layer maps it to a 500 instead of the 400 used for fetch
// failures.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string { return "analysis failed: " + e.Err.Error() }

func (e *AnalysisError) Unwrap() error { return e.Err }

// Auditor runs the audit pipeline. It holds no per-request state and is
// safe for concurrent use.
type Auditor struct {
	fetcher  *fetch.Client
	resolver HostResolver
	keywords *KeywordEngine
	semantic *semantic.Engine
	cfg      config.AuditConfig
	log      *slog.Logger
}

// New wires an auditor from the configuration. The host resolver is the
// static one unless link-host resolution is enabled.
func New(cfg *config.Config, sem *semantic.Engine, logger *slog.Logger) *Auditor {
	var resolver HostResolver = StaticResolver{}
	if cfg.Audit.ResolveLinkHosts {
		resolver = NewProbeResolver(
			cfg.Audit.LinkProbeTimeout.Duration,
			cfg.Audit.HostCacheTTL.Duration,
			cfg.Fetch.UserAgent,
		)
	}
	return &Auditor{
		fetcher:  fetch.New(cfg.Fetch.Timeout.Duration, cfg.Fetch.MaxBodyBytes, cfg.Fetch.UserAgent),
		resolver: resolver,
		keywords: NewKeywordEngine(cfg.Audit.Stopwords, cfg.Audit.TopKeywords),
		semantic: sem,
		cfg:      cfg.Audit,
		log:      logger,
	}
}

// Audit fetches the URL and builds its report. Fetch failures pass through
// untouched (the HTTP layer distinguishes timeout from the rest); any
// failure after the fetch comes back as *AnalysisError.
func (a *Auditor) Audit(ctx context.Context, rawURL string) (*report.Report, error) {
	start := time.Now()

	res, err := a.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, &AnalysisError{Err: fmt.Errorf("parsing HTML: %w", err)}
	}

	rep, err := a.BuildReport(ctx, rawURL, res.StatusCode, doc)
	if err != nil {
		return nil, err
	}

	a.log.Info("audit complete",
		"url", rawURL,
		"status", res.StatusCode,
		"bytes", len(res.Body),
		"duration", time.Since(start),
	)
	return rep, nil
}

// BuildReport assembles the ordered report from an already-parsed
// document. A panic in any extraction pass is recovered here and returned
// as *AnalysisError; re-running on the same document bytes is
// deterministic (with the static host resolver) and side-effect free.
func (a *Auditor) BuildReport(ctx context.Context, pageURL string, status int, doc *goquery.Document) (rep *report.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			rep = nil
			err = &AnalysisError{Err: fmt.Errorf("panic during report build: %v", r)}
		}
	}()

	rep = report.New()
	rep.Add("URL", report.String(pageURL))
	rep.Add("Status", report.Int(status))

	title, titleLen := extractTitle(doc)
	rep.Add("Title", report.String(title))
	rep.Add("Title Length", report.Int(titleLen))

	desc, descLen := extractMetaDescription(doc)
	rep.Add("Meta Description", report.String(desc))
	rep.Add("Meta Description Length", report.Int(descLen))

	rep.Add("H1", report.String(extractHeadings(doc, "h1")))
	rep.Add("H2", report.String(extractHeadings(doc, "h2")))
	rep.Add("H3", report.String(extractHeadings(doc, "h3")))

	fullText := visibleText(doc)
	rep.Add("Body Content (Preview)", report.String(truncateRunes(fullText, a.cfg.BodyPreviewChars)))
	rep.Add("Paragraphs", report.String(extractParagraphs(doc, a.cfg.ParagraphWords)))

	rep.Add("Canonical", report.String(extractCanonical(doc)))
	rep.Add("Robots", report.String(extractRobots(doc)))

	https := isHTTPS(pageURL)
	rep.Add("HTTPS", report.String(yesNo(https)))
	rep.Add("Mixed Content", report.String(yesNo(https && hasMixedContent(doc))))

	totalWords := len(strings.Fields(fullText))
	rep.Add("Word Count", report.Int(totalWords))

	links := classifyLinks(ctx, doc, pageURL, a.resolver, a.cfg.LinkProbeConcurrency)
	rep.Add("Internal Links Count", report.Int(links.InternalCount))
	rep.Add("External Links Count", report.Int(links.ExternalCount))
	rep.Add("Internal Links", report.Links(capLinks(links.Internal, a.cfg.LinkDetailCap)))
	rep.Add("External Links", report.Links(capLinks(links.External, a.cfg.LinkDetailCap)))

	totalImages, missingAlt := extractImageStats(doc)
	rep.Add("Total Images", report.Int(totalImages))
	rep.Add("Images Missing ALT", report.Int(missingAlt))

	if schemas := extractSchemaMarkup(doc); len(schemas) > 0 {
		rep.Add("Schema Markup", report.JSON(schemas))
	} else {
		rep.Add("Schema Markup", report.String(report.NotFound))
	}

	rep.Add("Favicon", report.String(extractFavicon(doc)))
	rep.Add("Hreflang Tags", report.String(extractHreflangs(doc)))

	topKeywords := a.keywords.Top(fullText)
	rep.Add("Top Keywords", report.Counts(topKeywords))
	rep.Add("Keyword Density", report.Strings(a.keywords.Density(topKeywords, totalWords)))

	rep.Add("Heading Structure Score", report.Int(HeadingStructureScore(doc)))

	a.addSemanticFields(rep, doc)
	return rep, nil
}

// addSemanticFields runs the semantic pass and degrades its three fields
// on failure instead of aborting the report.
func (a *Auditor) addSemanticFields(rep *report.Report, doc *goquery.Document) {
	insights, err := a.semantic.Analyze(collectSections(doc))
	switch {
	case errors.Is(err, semantic.ErrInsufficientContent):
		rep.Add("Semantic Topics", report.String(InsufficientContent))
		rep.Add("Topic Clusters", report.String(InsufficientContent))
		rep.Add("Named Entities", report.String(InsufficientContent))
		return
	case err != nil:
		a.log.Warn("semantic pass failed", "error", err)
		rep.Add("Semantic Topics", report.String(report.NotFound))
		rep.Add("Topic Clusters", report.String(report.NotFound))
		rep.Add("Named Entities", report.String(report.NotFound))
		return
	}

	topics := make(report.CountMap, 0, len(insights.Phrases))
	for _, p := range insights.Phrases {
		topics = append(topics, report.CountItem{Key: p.Text, Count: p.Count})
	}
	rep.Add("Semantic Topics", report.Counts(topics))

	clusters := make(report.GroupMap, 0, len(insights.Clusters))
	for _, c := range insights.Clusters {
		clusters = append(clusters, report.GroupItem{Key: c.Phrase, Members: c.Related})
	}
	rep.Add("Topic Clusters", report.Groups(clusters))

	entities := make(report.GroupMap, 0, len(insights.Entities))
	for _, g := range insights.Entities {
		entities = append(entities, report.GroupItem{Key: g.Category, Members: g.Names})
	}
	rep.Add("Named Entities", report.Groups(entities))
}

// semanticTags are the page regions fed to the semantic engine, heaviest
// first so truncation under the character budget favors important text.
var semanticTags = []string{"title", "h1", "h2", "h3", "b", "strong", "p", "li"}

func collectSections(doc *goquery.Document) []semantic.Section {
	var sections []semantic.Section
	for _, tag := range semanticTags {
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				sections = append(sections, semantic.Section{Tag: tag, Text: t})
			}
		})
	}
	return sections
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
