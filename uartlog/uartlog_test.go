package uartlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summary = `Emulation Performance Summary
------------------------------
Wallclock Time Elapsed: 12.5 s
Host Frequency: 90.000 MHz
Target Cycles Emulated: 1234567
Effective Target Frequency: 0.098 MHz
FMR: 915.27
Host Cycles Executed: 1129964
Note: The latter three figures are based on the fastest target clock.
`

func bootNoise(lines int) string {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&b, "[    %d.000000] boot: line %d\n", i, i)
	}
	return b.String()
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uartlog")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestScraper_ScrapeFile(t *testing.T) {
	path := writeLog(t, bootNoise(200)+summary)

	metrics, err := NewScraper().ScrapeFile(path)
	require.NoError(t, err)

	assert.Equal(t, Metrics{
		WallclockTimeElapsed:     "12.5 s",
		HostFrequency:            "90.000 MHz",
		TargetCyclesEmulated:     "1234567",
		EffectiveTargetFrequency: "0.098 MHz",
		FMR:                      "915.27",
		HostCyclesExecuted:       "1129964",
	}, metrics)
}

func TestScraper_SingleLine(t *testing.T) {
	metrics, err := NewScraper().Scrape(strings.NewReader("Host Cycles Executed: 123456\n"))
	require.NoError(t, err)
	assert.Equal(t, Metrics{HostCyclesExecuted: "123456"}, metrics)
}

func TestScraper_OnlyTailWindowIsSearched(t *testing.T) {
	content := "FMR: 1.0\n" + bootNoise(10)

	metrics, err := NewScraper().Scrape(strings.NewReader(content))
	require.NoError(t, err)
	assert.Empty(t, metrics)

	wide := &Scraper{TailLines: 11, Mode: MatchExact}
	metrics, err = wide.Scrape(strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "1.0", metrics[FMR])
}

func TestScraper_ValueAfterLastColon(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "plain", line: "FMR: 915.27", want: "915.27"},
		{name: "surrounding whitespace", line: "FMR:    915.27   \r", want: "915.27"},
		{name: "several colons", line: "Wallclock Time Elapsed: 00:01:12", want: "12"},
		{name: "empty value", line: "FMR:", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics, err := NewScraper().Scrape(strings.NewReader(tt.line + "\n"))
			require.NoError(t, err)
			value, ok := metrics[strings.TrimSpace(strings.SplitN(tt.line, ":", 2)[0])]
			require.True(t, ok)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestScraper_FirstMatchingLineWins(t *testing.T) {
	content := "FMR: 1.0\nFMR: 2.0\n"

	for _, mode := range []MatchMode{MatchExact, MatchContains} {
		t.Run(string(mode), func(t *testing.T) {
			s := &Scraper{Mode: mode}
			metrics, err := s.Scrape(strings.NewReader(content))
			require.NoError(t, err)
			assert.Equal(t, "1.0", metrics[FMR])
		})
	}
}

func TestScraper_MatchModes(t *testing.T) {
	content := "[sim] Host Frequency: 90 MHz\nEffective Target Frequency: 1 MHz\n"

	t.Run("exact ignores prefixed lines", func(t *testing.T) {
		metrics, err := NewScraper().Scrape(strings.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, Metrics{EffectiveTargetFrequency: "1 MHz"}, metrics)
	})

	t.Run("contains accepts prefixed lines", func(t *testing.T) {
		s := &Scraper{Mode: MatchContains}
		metrics, err := s.Scrape(strings.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, "90 MHz", metrics[HostFrequency])
		assert.Equal(t, "1 MHz", metrics[EffectiveTargetFrequency])
	})

	t.Run("contains reports lines with several labels", func(t *testing.T) {
		var reported [][]string
		s := &Scraper{Mode: MatchContains, OnAmbiguous: func(line string, labels []string) {
			reported = append(reported, labels)
		}}

		metrics, err := s.Scrape(strings.NewReader("Host Frequency vs FMR: 3\n"))
		require.NoError(t, err)
		assert.Equal(t, Metrics{HostFrequency: "3"}, metrics)
		require.Len(t, reported, 1)
		assert.Equal(t, []string{HostFrequency, FMR}, reported[0])
	})
}

func TestScraper_MissingFile(t *testing.T) {
	_, err := NewScraper().ScrapeFile(filepath.Join(t.TempDir(), "uartlog"))
	assert.ErrorIs(t, err, ErrLogNotFound)
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{
		"Wallclock Time Elapsed (s)",
		"Host Cycles Executed",
		"Host Frequency (MHz)",
		"Target Cycles Emulated",
		"Effective Target Frequency (MHz)",
		"FMR",
	}, Columns())
}

func TestMatchMode_IsValid(t *testing.T) {
	assert.True(t, MatchExact.IsValid())
	assert.True(t, MatchContains.IsValid())
	assert.False(t, MatchMode("regex").IsValid())
}
