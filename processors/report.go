package processors

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cvdesk/taskq/job"
)

// Metric is one named figure in a placement report.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// StatsSource computes placement metrics for a reporting period.
type StatsSource interface {
	Metrics(ctx context.Context, from, to time.Time) ([]Metric, error)
}

// ReportPayload bounds the reporting period.
type ReportPayload struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// reportSheet is the sheet name used in report workbooks.
const reportSheet = "Report"

// GenerateReport returns the processor that builds a placement report
// workbook for the requested period and saves it to the sink.
func GenerateReport(src StatsSource, sink ExportSink) *job.Definition[ReportPayload] {
	return job.NewDefinition(job.TypeGenerateReport,
		func(ctx context.Context, p ReportPayload) (any, error) {
			if !p.To.After(p.From) {
				return nil, fmt.Errorf("processors: report: period %s..%s is empty", p.From.Format(time.DateOnly), p.To.Format(time.DateOnly))
			}

			metrics, err := src.Metrics(ctx, p.From, p.To)
			if err != nil {
				return nil, fmt.Errorf("processors: compute report metrics: %w", err)
			}

			data, err := buildReportWorkbook(p, metrics)
			if err != nil {
				return nil, err
			}

			name := fmt.Sprintf("report_%s_%s.xlsx", p.From.Format("20060102"), p.To.Format("20060102"))
			loc, err := sink.Save(ctx, name, data)
			if err != nil {
				return nil, fmt.Errorf("processors: save %s: %w", name, err)
			}

			return map[string]any{"metrics": len(metrics), "path": loc}, nil
		},
		job.WithPriority(job.PriorityLow),
	)
}

func buildReportWorkbook(p ReportPayload, metrics []Metric) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return nil, fmt.Errorf("processors: rename sheet: %w", err)
	}

	title := []any{"Period", p.From.Format(time.DateOnly), p.To.Format(time.DateOnly)}
	if err := f.SetSheetRow(reportSheet, "A1", &title); err != nil {
		return nil, fmt.Errorf("processors: write title: %w", err)
	}
	header := []any{"Metric", "Value"}
	if err := f.SetSheetRow(reportSheet, "A3", &header); err != nil {
		return nil, fmt.Errorf("processors: write header: %w", err)
	}

	for i, m := range metrics {
		row := []any{m.Name, m.Value}
		cell := fmt.Sprintf("A%d", i+4)
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("processors: write row %d: %w", i+4, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("processors: serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
