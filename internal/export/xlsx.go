package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSeries   = "Série Diária"
	sheetSummary  = "Resumo"
	sheetTopPages = "Páginas"
)

// WriteXLSX writes the same sections as WriteCSV, one sheet each.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	series := [][]interface{}{{headerDate, headerSessions, headerClicks}}
	for _, p := range r.Series {
		series = append(series, []interface{}{p.Date, p.Sessions, p.Clicks})
	}

	summary := [][]interface{}{{headerMetric, headerValue}}
	summary = append(summary,
		[]interface{}{metricSessions, r.Sessions},
		[]interface{}{metricVisitors, r.Visitors},
		[]interface{}{metricPageViews, r.PageViews},
		[]interface{}{metricPagesSession, r.PagesPerSession},
		[]interface{}{metricClicks, r.WhatsAppClicks},
		[]interface{}{metricLeads, r.Leads},
		[]interface{}{metricConversionPct, r.ConversionRate},
	)

	pages := [][]interface{}{{headerPage, headerViews}}
	for _, p := range r.TopPages {
		pages = append(pages, []interface{}{p.Path, p.Views})
	}

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{sheetSeries, series},
		{sheetSummary, summary},
		{sheetTopPages, pages},
	}

	for _, sheet := range sheets {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet.name, err)
		}
		if err := writeRows(f, sheet.name, sheet.rows, headerStyle); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(sheetSeries)
	if err != nil {
		return fmt.Errorf("failed to find sheet %s: %w", sheetSeries, err)
	}
	f.SetActiveSheet(index)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
			}
			if rowIdx == 0 {
				if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
					return fmt.Errorf("failed to style %s!%s: %w", sheet, cell, err)
				}
			}
		}
	}
	return f.SetColWidth(sheet, "A", "C", 24)
}
