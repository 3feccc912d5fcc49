package processors

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cvdesk/taskq/job"
)

// ExportSink stores a generated document and returns its location.
type ExportSink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Renderer produces a single-CV document in the requested format.
type Renderer interface {
	RenderCV(ctx context.Context, cvID int64, format string) ([]byte, error)
}

// ExportCVPayload names the CVs to export and the document format.
type ExportCVPayload struct {
	CVIDs  []int64 `json:"cvIds"`
	Format string  `json:"format,omitempty"`
}

// ExportCV returns the processor that renders each requested CV and
// saves it to the sink. The result records how many documents were
// produced and where they landed.
func ExportCV(r Renderer, sink ExportSink) *job.Definition[ExportCVPayload] {
	return job.NewDefinition(job.TypeExportCV,
		func(ctx context.Context, p ExportCVPayload) (any, error) {
			format := p.Format
			if format == "" {
				format = "pdf"
			}

			files := make([]string, 0, len(p.CVIDs))
			for _, cvID := range p.CVIDs {
				data, err := r.RenderCV(ctx, cvID, format)
				if err != nil {
					return nil, fmt.Errorf("processors: render cv %d: %w", cvID, err)
				}
				name := fmt.Sprintf("cv_%d.%s", cvID, format)
				loc, err := sink.Save(ctx, name, data)
				if err != nil {
					return nil, fmt.Errorf("processors: save %s: %w", name, err)
				}
				files = append(files, loc)
			}

			return map[string]any{"count": len(files), "files": files}, nil
		},
		job.WithPriority(job.PriorityHigh),
	)
}

// CVSummary is one row of a bulk export spreadsheet.
type CVSummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Position  string    `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CVSource loads CV summaries for bulk export.
type CVSource interface {
	CVSummaries(ctx context.Context, ids []int64) ([]CVSummary, error)
}

// ExportBulkPayload names the CVs for a spreadsheet export. An empty
// CVIDs slice exports everything the source returns for it.
type ExportBulkPayload struct {
	CVIDs []int64 `json:"cvIds,omitempty"`
}

// exportSheet is the sheet name used in bulk export workbooks.
const exportSheet = "CVs"

// ExportBulk returns the processor that builds an xlsx workbook of CV
// summaries and saves it to the sink.
func ExportBulk(src CVSource, sink ExportSink) *job.Definition[ExportBulkPayload] {
	return job.NewDefinition(job.TypeExportBulk,
		func(ctx context.Context, p ExportBulkPayload) (any, error) {
			summaries, err := src.CVSummaries(ctx, p.CVIDs)
			if err != nil {
				return nil, fmt.Errorf("processors: load cv summaries: %w", err)
			}

			data, err := buildExportWorkbook(summaries)
			if err != nil {
				return nil, err
			}

			name := fmt.Sprintf("cv_export_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
			loc, err := sink.Save(ctx, name, data)
			if err != nil {
				return nil, fmt.Errorf("processors: save %s: %w", name, err)
			}

			return map[string]any{"count": len(summaries), "path": loc}, nil
		},
		job.WithPriority(job.PriorityNormal),
	)
}

func buildExportWorkbook(summaries []CVSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("processors: rename sheet: %w", err)
	}

	header := []any{"ID", "Name", "Email", "Position", "Updated"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("processors: write header: %w", err)
	}

	for i, s := range summaries {
		row := []any{s.ID, s.Name, s.Email, s.Position, s.UpdatedAt.Format(time.RFC3339)}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("processors: write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("processors: serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
