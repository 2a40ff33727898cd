package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"vitrine/internal/dashboard"
)

// WriteCSV writes the daily series, a summary section and the top pages,
// separated by blank lines.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)

	rows := [][]string{{headerDate, headerSessions, headerClicks}}
	for _, p := range r.Series {
		rows = append(rows, []string{p.Date, strconv.Itoa(p.Sessions), strconv.Itoa(p.Clicks)})
	}
	if err := writeSection(w, cw, rows); err != nil {
		return err
	}

	rows = append([][]string{{sectionSummary}, {headerMetric, headerValue}}, r.summary()...)
	if err := writeSection(w, cw, rows); err != nil {
		return err
	}

	rows = [][]string{{sectionTopPages}, {headerPage, headerViews}}
	for _, p := range r.TopPages {
		rows = append(rows, []string{p.Path, strconv.FormatInt(p.Views, 10)})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write top pages: %w", err)
	}
	return nil
}

// writeSection writes rows followed by an empty separator line.
func writeSection(w io.Writer, cw *csv.Writer, rows [][]string) error {
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv section: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write csv separator: %w", err)
	}
	return nil
}

// ParseSeries reads back the daily series written by WriteCSV.
// Labels are returned as written; ISO dates are not part of the file.
func ParseSeries(rd io.Reader) ([]dashboard.SeriesPoint, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) != 3 || header[0] != headerDate {
		return nil, fmt.Errorf("unexpected csv header %q", header)
	}

	var points []dashboard.SeriesPoint
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		if len(record) != 3 || record[0] == sectionSummary {
			return points, nil
		}

		sessions, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("invalid sessions %q for %s: %w", record[1], record[0], err)
		}
		clicks, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("invalid clicks %q for %s: %w", record[2], record[0], err)
		}
		points = append(points, dashboard.SeriesPoint{Date: record[0], Sessions: sessions, Clicks: clicks})
	}
}
