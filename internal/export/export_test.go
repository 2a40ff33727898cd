package export_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vitrine/internal/analytics"
	"vitrine/internal/dashboard"
	"vitrine/internal/export"
)

func sampleReport() export.Report {
	return export.Report{
		From: "2024-01-01",
		To:   "2024-01-03",
		Series: []dashboard.SeriesPoint{
			{Date: "01/01", Sessions: 4, Clicks: 0},
			{Date: "02/01", Sessions: 0, Clicks: 2},
			{Date: "03/01", Sessions: 0, Clicks: 0},
		},
		Sessions:        4,
		Visitors:        3,
		PageViews:       10,
		PagesPerSession: "2.5",
		WhatsAppClicks:  2,
		Leads:           1,
		ConversionRate:  25,
		TopPages: []analytics.PageCount{
			{Path: "/", Views: 6},
			{Path: "/servicos,design", Views: 4},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, sampleReport()))

	expected := strings.Join([]string{
		"Data,Sessões,Cliques WhatsApp",
		"01/01,4,0",
		"02/01,0,2",
		"03/01,0,0",
		"",
		"Resumo",
		"Métrica,Valor",
		"Sessões,4",
		"Visitantes Únicos,3",
		"Page Views,10",
		"Páginas por Sessão,2.5",
		"Cliques WhatsApp,2",
		"Leads,1",
		"Taxa de Conversão (%),25.0",
		"",
		"Páginas Mais Visitadas",
		"Página,Visualizações",
		"/,6",
		`"/servicos,design",4`,
		"",
	}, "\n")
	assert.Equal(t, expected, buf.String())
}

func TestCSVRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		series []dashboard.SeriesPoint
	}{
		{name: "mixed zero sides", series: sampleReport().Series},
		{name: "empty series", series: nil},
		{name: "large counts", series: []dashboard.SeriesPoint{{Date: "31/12", Sessions: 123456, Clicks: 7890}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			report := sampleReport()
			report.Series = tc.series

			var buf bytes.Buffer
			require.NoError(t, export.WriteCSV(&buf, report))

			parsed, err := export.ParseSeries(&buf)
			require.NoError(t, err)
			if len(tc.series) == 0 {
				assert.Empty(t, parsed)
				return
			}
			assert.Equal(t, tc.series, parsed)
		})
	}

	t.Run("rejects foreign files", func(t *testing.T) {
		_, err := export.ParseSeries(strings.NewReader("a,b\n1,2\n"))
		assert.Error(t, err)
	})
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Série Diária", "Resumo", "Páginas"}, f.GetSheetList())

	rows, err := f.GetRows("Série Diária")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Data", "Sessões", "Cliques WhatsApp"}, rows[0])
	assert.Equal(t, []string{"02/01", "0", "2"}, rows[2])

	value, err := f.GetCellValue("Resumo", "B5")
	require.NoError(t, err)
	assert.Equal(t, "2.5", value)

	value, err = f.GetCellValue("Páginas", "A3")
	require.NoError(t, err)
	assert.Equal(t, "/servicos,design", value)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "analytics_2024-01-01_2024-01-03.csv", export.Filename(sampleReport(), "csv"))
	assert.Equal(t, "analytics_2024-01-01_2024-01-03.xlsx", export.Filename(sampleReport(), "xlsx"))
}
