package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hairizuan-noorazman/firesweep/uartlog"
)

// WriteCSV writes the header and one record per row. Metrics that were not
// scraped for a row are written as empty cells.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, 0, len(uartlog.Labels)+3)
		for _, label := range uartlog.Labels {
			record = append(record, row.Metrics[label])
		}
		record = append(record, row.HWConfig, row.Workload, strconv.Itoa(row.Run))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes rows to path, replacing any existing file.
func WriteCSVFile(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses a table written by WriteCSV back into rows.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	for _, h := range []string{ColumnHWConfig, ColumnWorkload, ColumnRun} {
		if _, ok := index[h]; !ok {
			return nil, fmt.Errorf("missing column %q", h)
		}
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		run, err := strconv.Atoi(record[index[ColumnRun]])
		if err != nil {
			return nil, fmt.Errorf("invalid run index %q: %w", record[index[ColumnRun]], err)
		}
		row := Row{
			HWConfig: record[index[ColumnHWConfig]],
			Workload: record[index[ColumnWorkload]],
			Run:      run,
			Metrics:  make(uartlog.Metrics),
		}
		for _, label := range uartlog.Labels {
			i, ok := index[uartlog.Column(label)]
			if ok && record[i] != "" {
				row.Metrics[label] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
