// Package export serialises a composed dashboard to CSV and XLSX downloads.
package export

import (
	"fmt"
	"strconv"

	"vitrine/internal/analytics"
	"vitrine/internal/dashboard"
)

// Section titles and headers shared by both formats.
const (
	headerDate          = "Data"
	headerSessions      = "Sessões"
	headerClicks        = "Cliques WhatsApp"
	sectionSummary      = "Resumo"
	headerMetric        = "Métrica"
	headerValue         = "Valor"
	sectionTopPages     = "Páginas Mais Visitadas"
	headerPage          = "Página"
	headerViews         = "Visualizações"
	metricSessions      = "Sessões"
	metricVisitors      = "Visitantes Únicos"
	metricPageViews     = "Page Views"
	metricPagesSession  = "Páginas por Sessão"
	metricClicks        = "Cliques WhatsApp"
	metricLeads         = "Leads"
	metricConversionPct = "Taxa de Conversão (%)"
)

// Report is everything an export contains.
type Report struct {
	From            string
	To              string
	Series          []dashboard.SeriesPoint
	Sessions        int64
	Visitors        int64
	PageViews       int64
	PagesPerSession string
	WhatsAppClicks  int64
	Leads           int64
	ConversionRate  float64
	TopPages        []analytics.PageCount
}

// FromDashboard takes the report figures from an already composed dashboard.
func FromDashboard(d *dashboard.Dashboard) Report {
	return Report{
		From:            d.From,
		To:              d.To,
		Series:          d.Series,
		Sessions:        d.Totals.Sessions,
		Visitors:        d.Totals.Visitors,
		PageViews:       d.Totals.PageViews,
		PagesPerSession: d.PagesPerSession,
		WhatsAppClicks:  d.WhatsApp.Total,
		Leads:           d.LeadCount,
		ConversionRate:  d.ConversionRate,
		TopPages:        d.TopPages,
	}
}

func (r Report) summary() [][]string {
	return [][]string{
		{metricSessions, strconv.FormatInt(r.Sessions, 10)},
		{metricVisitors, strconv.FormatInt(r.Visitors, 10)},
		{metricPageViews, strconv.FormatInt(r.PageViews, 10)},
		{metricPagesSession, r.PagesPerSession},
		{metricClicks, strconv.FormatInt(r.WhatsAppClicks, 10)},
		{metricLeads, strconv.FormatInt(r.Leads, 10)},
		{metricConversionPct, strconv.FormatFloat(r.ConversionRate, 'f', 1, 64)},
	}
}

// Filename names the download after the reporting period.
func Filename(r Report, ext string) string {
	return fmt.Sprintf("analytics_%s_%s.%s", r.From, r.To, ext)
}
