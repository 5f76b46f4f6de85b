// Package uartlog scrapes the emulation performance summary that the
// simulator prints at the end of a run's UART log.
package uartlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultTailLines is the size of the window, counted from the end of the
// log, that is searched for metrics.
const DefaultTailLines = 10

// ErrLogNotFound is returned when the log file does not exist.
var ErrLogNotFound = errors.New("uart log not found")

// Metric labels as printed by the simulator.
const (
	WallclockTimeElapsed     = "Wallclock Time Elapsed"
	HostCyclesExecuted       = "Host Cycles Executed"
	HostFrequency            = "Host Frequency"
	TargetCyclesEmulated     = "Target Cycles Emulated"
	EffectiveTargetFrequency = "Effective Target Frequency"
	FMR                      = "FMR"
)

// Labels lists the scraped metrics in column order. In contains mode this is
// also the order in which a line is tested.
var Labels = []string{
	WallclockTimeElapsed,
	HostCyclesExecuted,
	HostFrequency,
	TargetCyclesEmulated,
	EffectiveTargetFrequency,
	FMR,
}

var columns = map[string]string{
	WallclockTimeElapsed:     "Wallclock Time Elapsed (s)",
	HostFrequency:            "Host Frequency (MHz)",
	EffectiveTargetFrequency: "Effective Target Frequency (MHz)",
}

// Column returns the results table header for label.
func Column(label string) string {
	if c, ok := columns[label]; ok {
		return c
	}
	return label
}

// Columns returns the results table headers for Labels, in order.
func Columns() []string {
	out := make([]string, len(Labels))
	for i, l := range Labels {
		out[i] = Column(l)
	}
	return out
}

// MatchMode selects how a line is tied to a label.
type MatchMode string

const (
	// MatchExact ties a line to a label when the text before the line's first
	// colon, trimmed, equals the label.
	MatchExact MatchMode = "exact"

	// MatchContains ties a line to the first label, in Labels order, that it
	// contains. Kept for logs whose summary lines carry a prefix.
	MatchContains MatchMode = "contains"
)

// IsValid reports whether m is a known mode.
func (m MatchMode) IsValid() bool {
	switch m {
	case MatchExact, MatchContains:
		return true
	}
	return false
}

// Metrics maps a label to the raw text scraped for it. Labels that were not
// found are absent.
type Metrics map[string]string

// Scraper extracts Metrics from a UART log.
type Scraper struct {
	TailLines int
	Mode      MatchMode

	// OnAmbiguous, when set, is called for every line in the window that
	// contains more than one label in contains mode.
	OnAmbiguous func(line string, labels []string)
}

// NewScraper returns a Scraper with the default window and exact matching.
func NewScraper() *Scraper {
	return &Scraper{TailLines: DefaultTailLines, Mode: MatchExact}
}

// ScrapeFile scrapes the log at path.
func (s *Scraper) ScrapeFile(path string) (Metrics, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLogNotFound, path)
		}
		return nil, fmt.Errorf("failed to open uart log: %w", err)
	}
	defer f.Close()
	return s.Scrape(f)
}

// Scrape reads r to the end and extracts metrics from its last TailLines lines.
func (s *Scraper) Scrape(r io.Reader) (Metrics, error) {
	window, err := tail(r, s.tailLines())
	if err != nil {
		return nil, fmt.Errorf("failed to read uart log: %w", err)
	}

	if s.Mode == MatchContains {
		return s.scrapeContains(window), nil
	}
	return scrapeExact(window), nil
}

func (s *Scraper) tailLines() int {
	if s.TailLines <= 0 {
		return DefaultTailLines
	}
	return s.TailLines
}

// scrapeExact scans the window once per label and keeps the first line whose
// key matches.
func scrapeExact(window []string) Metrics {
	out := make(Metrics)
	for _, label := range Labels {
		for _, line := range window {
			key, _, ok := strings.Cut(line, ":")
			if !ok || strings.TrimSpace(key) != label {
				continue
			}
			out[label] = valueAfterLastColon(line)
			break
		}
	}
	return out
}

func (s *Scraper) scrapeContains(window []string) Metrics {
	out := make(Metrics)
	for _, line := range window {
		var hits []string
		for _, label := range Labels {
			if strings.Contains(line, label) {
				hits = append(hits, label)
			}
		}
		if len(hits) == 0 {
			continue
		}
		if len(hits) > 1 && s.OnAmbiguous != nil {
			s.OnAmbiguous(line, hits)
		}
		if _, seen := out[hits[0]]; !seen {
			out[hits[0]] = valueAfterLastColon(line)
		}
	}
	return out
}

func valueAfterLastColon(line string) string {
	if i := strings.LastIndexByte(line, ':'); i >= 0 {
		line = line[i+1:]
	}
	return strings.TrimSpace(line)
}

// tail returns the last n lines of r, oldest first.
func tail(r io.Reader, n int) ([]string, error) {
	ring := make([]string, n)
	count := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		ring[count%n] = sc.Text()
		count++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if count <= n {
		return ring[:count], nil
	}
	start := count % n
	return append(ring[start:], ring[:start]...), nil
}
