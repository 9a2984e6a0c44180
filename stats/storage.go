// Package stats collects service telemetry: per-month audit counters,
// popular audited hosts, and a rolling unique-visitor window. Counters are
// persisted to a JSON file in the data directory; visitors are ephemeral.
package stats

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// EnvDevMode gates the detailed snapshot. Outside development mode the
// statistics endpoint only exposes aggregate numbers.
const EnvDevMode = "DEV_MODE"

// Outcome classifies a finished audit for the counters.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeError   Outcome = "error"
	OutcomeTimeout Outcome = "timeout"
)

// MonthlyStats holds the audit counters for one calendar month. The
// running total is persisted alongside the average so reloaded counters
// keep averaging correctly.
type MonthlyStats struct {
	Audits         int       `json:"audits"`
	Errors         int       `json:"errors"`
	Timeouts       int       `json:"timeouts"`
	TotalAuditMs   float64   `json:"total_audit_ms"`
	AverageAuditMs float64   `json:"average_audit_ms"`
	LastUpdated    time.Time `json:"last_updated"`
}

// persisted is the on-disk shape of the statistics file.
type persisted struct {
	Months       map[string]*MonthlyStats `json:"months"`
	PopularHosts map[string]int           `json:"popular_hosts"`
}

// Storage tracks telemetry in memory and persists it to disk through a
// single background writer goroutine.
type Storage struct {
	mu           sync.RWMutex
	months       map[string]*MonthlyStats // key: "YYYY-MM"
	popularHosts map[string]int
	visitors     map[string]time.Time // IP -> last seen

	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
}

// NewStorage loads existing statistics from dataDir (creating it if
// needed) and starts the background writer.
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Storage{
		months:       make(map[string]*MonthlyStats),
		popularHosts: make(map[string]int),
		visitors:     make(map[string]time.Time),
		filePath:     filepath.Join(dataDir, "stats.json"),
		writeBuffer:  make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading stats: %w", err)
	}

	go s.backgroundWriter()
	return s, nil
}

// Close flushes pending counters and stops the background writer.
func (s *Storage) Close() error {
	close(s.done)
	return s.save()
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Months != nil {
		s.months = p.Months
	}
	if p.PopularHosts != nil {
		s.popularHosts = p.PopularHosts
	}
	return nil
}

// save writes the counters atomically: temp file first, then rename.
func (s *Storage) save() error {
	s.mu.RLock()
	data, err := json.Marshal(persisted{Months: s.months, PopularHosts: s.popularHosts})
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("writing temporary stats file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("renaming temporary stats file: %w", err)
	}
	return nil
}

func (s *Storage) backgroundWriter() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
			s.save()
		case <-ticker.C:
			s.save()
		case <-s.done:
			return
		}
	}
}

// requestWrite signals the background writer; a full buffer means a write
// is already pending.
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
	}
}

func currentMonth() string {
	return time.Now().Format("2006-01")
}

// RecordAudit updates the current month's counters and the popular-host
// tally for one finished audit.
func (s *Storage) RecordAudit(pageURL string, duration time.Duration, outcome Outcome) {
	month := currentMonth()
	host := auditedHost(pageURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.months[month]
	if !ok {
		m = &MonthlyStats{}
		s.months[month] = m
	}

	m.Audits++
	switch outcome {
	case OutcomeError:
		m.Errors++
	case OutcomeTimeout:
		m.Timeouts++
	}
	m.TotalAuditMs += float64(duration.Milliseconds())
	m.AverageAuditMs = m.TotalAuditMs / float64(m.Audits)
	m.LastUpdated = time.Now()

	if host != "" {
		s.popularHosts[host]++
	}

	if time.Since(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = time.Now()
	}
}

// auditedHost reduces a page URL to its host for the popularity tally.
// Local addresses are skipped so development traffic stays out of the data.
func auditedHost(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return ""
	}
	return host
}

// TrackVisitor records the last time an IP was seen and drops entries
// that have aged out of the 24-hour window, so the map stays bounded by
// the number of distinct recent visitors.
func (s *Storage) TrackVisitor(ip string) {
	now := time.Now()
	cutoff := now.Add(-24 * time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()

	for addr, last := range s.visitors {
		if last.Before(cutoff) {
			delete(s.visitors, addr)
		}
	}
	s.visitors[ip] = now
}

// UniqueVisitors24h counts IPs seen within the last 24 hours.
func (s *Storage) UniqueVisitors24h() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-24 * time.Hour)
	count := 0
	for _, last := range s.visitors {
		if last.After(cutoff) {
			count++
		}
	}
	return count
}

// PopularHosts returns the n most-audited hosts, most popular first.
// Ties break alphabetically so the ordering is stable.
func (s *Storage) PopularHosts(n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hosts := make([]string, 0, len(s.popularHosts))
	for h := range s.popularHosts {
		hosts = append(hosts, h)
	}
	sort.Slice(hosts, func(i, j int) bool {
		ci, cj := s.popularHosts[hosts[i]], s.popularHosts[hosts[j]]
		if ci != cj {
			return ci > cj
		}
		return hosts[i] < hosts[j]
	})
	if len(hosts) > n {
		hosts = hosts[:n]
	}
	return hosts
}

// CurrentMonth returns this month's counters.
func (s *Storage) CurrentMonth() MonthlyStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.months[currentMonth()]; ok {
		return *m
	}
	return MonthlyStats{}
}

// Month returns the counters for a specific "YYYY-MM" key.
func (s *Storage) Month(yearMonth string) (MonthlyStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.months[yearMonth]; ok {
		return *m, true
	}
	return MonthlyStats{}, false
}

// Months returns every month with data, newest first.
func (s *Storage) Months() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	months := make([]string, 0, len(s.months))
	for m := range s.months {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

// Cleanup drops every month except the current and previous one.
func (s *Storage) Cleanup() {
	now := time.Now()
	keep := map[string]bool{
		now.Format("2006-01"):                  true,
		now.AddDate(0, -1, 0).Format("2006-01"): true,
	}

	s.mu.Lock()
	for key := range s.months {
		if !keep[key] {
			delete(s.months, key)
		}
	}
	s.mu.Unlock()

	s.requestWrite()
}

// Snapshot returns the statistics payload for the HTTP endpoint. The
// detailed view (per-host popularity, month history) is only included in
// development mode.
func (s *Storage) Snapshot() map[string]any {
	cur := s.CurrentMonth()

	errorRate := 0.0
	if cur.Audits > 0 {
		errorRate = float64(cur.Errors) / float64(cur.Audits) * 100
	}

	out := map[string]any{
		"month":             currentMonth(),
		"audits":            cur.Audits,
		"errors":            cur.Errors,
		"timeouts":          cur.Timeouts,
		"errorRate":         errorRate,
		"averageAuditMs":    cur.AverageAuditMs,
		"uniqueVisitors24h": s.UniqueVisitors24h(),
	}

	if os.Getenv(EnvDevMode) == "true" {
		out["popularHosts"] = s.PopularHosts(5)
		out["months"] = s.Months()
	}
	return out
}
