package processors

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cvdesk/taskq/job"
)

// FileSource reads an uploaded file by its storage path.
type FileSource interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// CandidateRow is one parsed row of an import spreadsheet.
type CandidateRow struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Position string `json:"position"`
}

// CandidateSink persists parsed candidate rows and returns how many
// were actually stored (duplicates may be skipped).
type CandidateSink interface {
	SaveCandidates(ctx context.Context, rows []CandidateRow) (int, error)
}

// ImportPayload points at an uploaded candidate spreadsheet.
type ImportPayload struct {
	Path string `json:"path"`
}

// ImportFile returns the processor that parses an uploaded xlsx of
// candidates and stores the rows. The first sheet is read; the first
// row is treated as a header. Rows without a name or email are skipped
// and counted separately.
func ImportFile(files FileSource, sink CandidateSink) *job.Definition[ImportPayload] {
	return job.NewDefinition(job.TypeImportFile,
		func(ctx context.Context, p ImportPayload) (any, error) {
			data, err := files.Read(ctx, p.Path)
			if err != nil {
				return nil, fmt.Errorf("processors: read %s: %w", p.Path, err)
			}

			candidates, skipped, err := parseCandidateSheet(data)
			if err != nil {
				return nil, fmt.Errorf("processors: parse %s: %w", p.Path, err)
			}

			stored, err := sink.SaveCandidates(ctx, candidates)
			if err != nil {
				return nil, fmt.Errorf("processors: store candidates from %s: %w", p.Path, err)
			}

			return map[string]any{
				"parsed":  len(candidates),
				"stored":  stored,
				"skipped": skipped,
			}, nil
		},
		job.WithPriority(job.PriorityNormal),
	)
}

// parseCandidateSheet reads the first sheet with columns
// Name, Email, Phone, Position.
func parseCandidateSheet(data []byte) ([]CandidateRow, int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	defer f.Close() //nolint:errcheck // read-only workbook

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, 0, err
	}
	if len(rows) < 2 {
		return nil, 0, nil
	}

	var (
		candidates []CandidateRow
		skipped    int
	)
	for _, row := range rows[1:] {
		c := CandidateRow{
			Name:     cell(row, 0),
			Email:    cell(row, 1),
			Phone:    cell(row, 2),
			Position: cell(row, 3),
		}
		if c.Name == "" || c.Email == "" {
			skipped++
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, skipped, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
