package results

import (
	"github.com/hairizuan-noorazman/firesweep/uartlog"
)

// Row is one scraped simulation run, tagged with the parameters that
// produced it. Metric values are kept as scraped text.
type Row struct {
	HWConfig string
	Workload string
	Run      int
	Metrics  uartlog.Metrics
}

// Tag column headers that follow the metric columns.
const (
	ColumnHWConfig = "HW Config"
	ColumnWorkload = "Workload"
	ColumnRun      = "Run"
)

// Header returns the results table header.
func Header() []string {
	return append(uartlog.Columns(), ColumnHWConfig, ColumnWorkload, ColumnRun)
}
