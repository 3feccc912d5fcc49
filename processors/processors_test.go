package processors_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/time/rate"

	"github.com/cvdesk/taskq/cache"
	kvmemory "github.com/cvdesk/taskq/kv/memory"
	"github.com/cvdesk/taskq/processors"
)

// memorySink captures saved documents.
type memorySink struct {
	files map[string][]byte
}

func newMemorySink() *memorySink {
	return &memorySink{files: make(map[string][]byte)}
}

func (s *memorySink) Save(_ context.Context, name string, data []byte) (string, error) {
	s.files[name] = data
	return "exports/" + name, nil
}

type stubRenderer struct{}

func (stubRenderer) RenderCV(_ context.Context, cvID int64, format string) ([]byte, error) {
	return fmt.Appendf(nil, "cv %d as %s", cvID, format), nil
}

func TestExportCV(t *testing.T) {
	sink := newMemorySink()
	def := processors.ExportCV(stubRenderer{}, sink)

	result, err := def.Handler(context.Background(), processors.ExportCVPayload{
		CVIDs: []int64{101, 102},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	res := result.(map[string]any)
	if res["count"] != 2 {
		t.Errorf("count = %v, want 2", res["count"])
	}
	if len(sink.files) != 2 {
		t.Errorf("saved %d files, want 2", len(sink.files))
	}
	if got := string(sink.files["cv_101.pdf"]); got != "cv 101 as pdf" {
		t.Errorf("cv_101.pdf = %q", got)
	}
}

type stubCVSource struct {
	summaries []processors.CVSummary
}

func (s stubCVSource) CVSummaries(_ context.Context, _ []int64) ([]processors.CVSummary, error) {
	return s.summaries, nil
}

func TestExportBulk_BuildsWorkbook(t *testing.T) {
	sink := newMemorySink()
	src := stubCVSource{summaries: []processors.CVSummary{
		{ID: 1, Name: "Ada Quinn", Email: "ada@example.com", Position: "Go Developer", UpdatedAt: time.Now()},
		{ID: 2, Name: "Ben Okafor", Email: "ben@example.com", Position: "SRE", UpdatedAt: time.Now()},
	}}
	def := processors.ExportBulk(src, sink)

	result, err := def.Handler(context.Background(), processors.ExportBulkPayload{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	res := result.(map[string]any)
	if res["count"] != 2 {
		t.Errorf("count = %v, want 2", res["count"])
	}

	// The saved file must be a readable workbook with the data rows.
	if len(sink.files) != 1 {
		t.Fatalf("saved %d files, want 1", len(sink.files))
	}
	var data []byte
	for _, d := range sink.files {
		data = d
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open saved workbook: %v", err)
	}
	defer f.Close() //nolint:errcheck // read-only workbook

	rows, err := f.GetRows("CVs")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("sheet has %d rows, want 3 (header + 2)", len(rows))
	}
	if rows[1][1] != "Ada Quinn" {
		t.Errorf("row 2 name = %q, want %q", rows[1][1], "Ada Quinn")
	}
}

type memoryFileSource struct {
	files map[string][]byte
}

func (s memoryFileSource) Read(_ context.Context, path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

type captureCandidateSink struct {
	rows []processors.CandidateRow
}

func (s *captureCandidateSink) SaveCandidates(_ context.Context, rows []processors.CandidateRow) (int, error) {
	s.rows = rows
	return len(rows), nil
}

func candidateSheet(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook
	for i, row := range rows {
		if err := f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &row); err != nil {
			t.Fatalf("build sheet: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("serialize sheet: %v", err)
	}
	return buf.Bytes()
}

func TestImportFile_ParsesAndSkips(t *testing.T) {
	data := candidateSheet(t, [][]any{
		{"Name", "Email", "Phone", "Position"},
		{"Ada Quinn", "ada@example.com", "123", "Go Developer"},
		{"", "missing-name@example.com", "", ""},
		{"Ben Okafor", "ben@example.com", "456", "SRE"},
	})

	files := memoryFileSource{files: map[string][]byte{"uploads/candidates.xlsx": data}}
	sink := &captureCandidateSink{}
	def := processors.ImportFile(files, sink)

	result, err := def.Handler(context.Background(), processors.ImportPayload{Path: "uploads/candidates.xlsx"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	res := result.(map[string]any)
	if res["parsed"] != 2 {
		t.Errorf("parsed = %v, want 2", res["parsed"])
	}
	if res["skipped"] != 1 {
		t.Errorf("skipped = %v, want 1", res["skipped"])
	}
	if len(sink.rows) != 2 {
		t.Fatalf("stored %d rows, want 2", len(sink.rows))
	}
	if sink.rows[0].Email != "ada@example.com" {
		t.Errorf("row 0 email = %q", sink.rows[0].Email)
	}
}

func TestImportFile_CorruptFile(t *testing.T) {
	files := memoryFileSource{files: map[string][]byte{"uploads/bad.xlsx": []byte("not a workbook")}}
	def := processors.ImportFile(files, &captureCandidateSink{})

	_, err := def.Handler(context.Background(), processors.ImportPayload{Path: "uploads/bad.xlsx"})
	if err == nil {
		t.Fatal("expected error for corrupt workbook")
	}
}

type recordingMailer struct {
	sent [][]string
	fail map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, to []string, _, _ string) error {
	if len(to) == 1 && m.fail[to[0]] {
		return errors.New("rejected")
	}
	m.sent = append(m.sent, to)
	return nil
}

func TestSendEmail(t *testing.T) {
	mailer := &recordingMailer{}
	def := processors.SendEmail(mailer)

	result, err := def.Handler(context.Background(), processors.EmailPayload{
		To:      []string{"ada@example.com"},
		Subject: "Interview invitation",
		Body:    "Hello",
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.(map[string]any)["recipients"] != 1 {
		t.Errorf("recipients = %v, want 1", result.(map[string]any)["recipients"])
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mailer.sent))
	}
}

func TestSendEmail_NoRecipients(t *testing.T) {
	def := processors.SendEmail(&recordingMailer{})
	_, err := def.Handler(context.Background(), processors.EmailPayload{})
	if err == nil {
		t.Fatal("expected error for empty recipient list")
	}
}

func TestSendBulkEmail_CountsPartialFailures(t *testing.T) {
	mailer := &recordingMailer{fail: map[string]bool{"bad@example.com": true}}
	def := processors.SendBulkEmail(mailer, rate.NewLimiter(rate.Inf, 1))

	result, err := def.Handler(context.Background(), processors.BulkEmailPayload{
		Recipients: []string{"ada@example.com", "bad@example.com", "ben@example.com"},
		Subject:    "Newsletter",
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	res := result.(map[string]any)
	if res["sent"] != 2 {
		t.Errorf("sent = %v, want 2", res["sent"])
	}
	if res["failed"] != 1 {
		t.Errorf("failed = %v, want 1", res["failed"])
	}
}

func TestSendBulkEmail_AllFailed(t *testing.T) {
	mailer := &recordingMailer{fail: map[string]bool{"bad@example.com": true}}
	def := processors.SendBulkEmail(mailer, rate.NewLimiter(rate.Inf, 1))

	_, err := def.Handler(context.Background(), processors.BulkEmailPayload{
		Recipients: []string{"bad@example.com"},
	})
	if err == nil {
		t.Fatal("expected error when every delivery fails")
	}
}

func TestSendBulkEmail_PacesDeliveries(t *testing.T) {
	mailer := &recordingMailer{}
	// 1 immediate send, then one every 20ms.
	limiter := rate.NewLimiter(rate.Every(20*time.Millisecond), 1)
	def := processors.SendBulkEmail(mailer, limiter)

	start := time.Now()
	_, err := def.Handler(context.Background(), processors.BulkEmailPayload{
		Recipients: []string{"a@example.com", "b@example.com", "c@example.com"},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("3 paced sends finished in %s, expected at least 30ms of pacing", elapsed)
	}
}

func TestCleanup_ClearsPatterns(t *testing.T) {
	store := kvmemory.New()
	c := cache.New(store)
	ctx := context.Background()

	if err := c.Set(ctx, "image:1", "a", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "image:2", "b", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "stats:dashboard", "c", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	def := processors.Cleanup(c)
	result, err := def.Handler(ctx, processors.CleanupPayload{Patterns: []string{"image:*"}})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.(map[string]any)["removed"] != 2 {
		t.Errorf("removed = %v, want 2", result.(map[string]any)["removed"])
	}

	// Untouched entry survives.
	data, err := c.Get(ctx, "stats:dashboard", 0, nil)
	if err != nil || data == nil {
		t.Errorf("stats:dashboard evicted, want survivor (data=%v err=%v)", data, err)
	}
}

type stubStats struct{}

func (stubStats) Compute(_ context.Context) (map[string]any, error) {
	return map[string]any{"open_positions": 12, "active_candidates": 340}, nil
}

func TestUpdateStatistics_PrimesCache(t *testing.T) {
	store := kvmemory.New()
	c := cache.New(store)
	ctx := context.Background()

	def := processors.UpdateStatistics(stubStats{}, c)
	result, err := def.Handler(ctx, processors.UpdateStatisticsPayload{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.(map[string]any)["computed"] != 2 {
		t.Errorf("computed = %v, want 2", result.(map[string]any)["computed"])
	}

	data, err := c.Get(ctx, "stats:dashboard", 0, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if data == nil {
		t.Fatal("statistics were not cached")
	}
}

type stubArchiver struct{}

func (stubArchiver) Backup(_ context.Context, target string) (string, error) {
	return "backups/" + target + ".tar.gz", nil
}

func TestBackup_DefaultTarget(t *testing.T) {
	def := processors.Backup(stubArchiver{})
	result, err := def.Handler(context.Background(), processors.BackupPayload{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	res := result.(map[string]any)
	if res["target"] != "database" {
		t.Errorf("target = %v, want database", res["target"])
	}
	if res["path"] != "backups/database.tar.gz" {
		t.Errorf("path = %v", res["path"])
	}
}

func TestGenerateReport(t *testing.T) {
	sink := newMemorySink()
	src := metricsSource{metrics: []processors.Metric{
		{Name: "placements", Value: 7},
		{Name: "interviews", Value: 31},
	}}
	def := processors.GenerateReport(src, sink)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	result, err := def.Handler(context.Background(), processors.ReportPayload{From: from, To: to})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.(map[string]any)["metrics"] != 2 {
		t.Errorf("metrics = %v, want 2", result.(map[string]any)["metrics"])
	}

	var data []byte
	for _, d := range sink.files {
		data = d
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open saved workbook: %v", err)
	}
	defer f.Close() //nolint:errcheck // read-only workbook
	rows, err := f.GetRows("Report")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	// Title row, blank row, header row, two metric rows.
	if len(rows) != 5 {
		t.Fatalf("sheet has %d rows, want 5", len(rows))
	}
	if rows[3][0] != "placements" {
		t.Errorf("first metric = %q, want placements", rows[3][0])
	}
}

func TestGenerateReport_EmptyPeriod(t *testing.T) {
	def := processors.GenerateReport(metricsSource{}, newMemorySink())
	now := time.Now()
	_, err := def.Handler(context.Background(), processors.ReportPayload{From: now, To: now})
	if err == nil {
		t.Fatal("expected error for empty period")
	}
}

type metricsSource struct {
	metrics []processors.Metric
}

func (s metricsSource) Metrics(_ context.Context, _, _ time.Time) ([]processors.Metric, error) {
	return s.metrics, nil
}

type stubTransformer struct{}

func (stubTransformer) Resize(_ context.Context, path string, w, h int) (string, error) {
	return fmt.Sprintf("%s@%dx%d", path, w, h), nil
}

func (stubTransformer) Optimize(_ context.Context, path string) (string, error) {
	return path + ".opt", nil
}

func TestImageProcessors(t *testing.T) {
	resize := processors.ImageResize(stubTransformer{})
	result, err := resize.Handler(context.Background(), processors.ImagePayload{Path: "photos/1.jpg", Width: 200, Height: 200})
	if err != nil {
		t.Fatalf("resize handler: %v", err)
	}
	if result.(map[string]any)["path"] != "photos/1.jpg@200x200" {
		t.Errorf("resize path = %v", result.(map[string]any)["path"])
	}

	optimize := processors.ImageOptimize(stubTransformer{})
	result, err = optimize.Handler(context.Background(), processors.ImagePayload{Path: "photos/1.jpg"})
	if err != nil {
		t.Fatalf("optimize handler: %v", err)
	}
	if result.(map[string]any)["path"] != "photos/1.jpg.opt" {
		t.Errorf("optimize path = %v", result.(map[string]any)["path"])
	}
}

type stubSyncer struct{}

func (stubSyncer) Sync(_ context.Context, source string, _ *time.Time) (int, error) {
	if source == "job-board" {
		return 14, nil
	}
	return 0, errors.New("unknown source")
}

func TestSyncData(t *testing.T) {
	def := processors.SyncData(stubSyncer{})

	result, err := def.Handler(context.Background(), processors.SyncPayload{Source: "job-board"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.(map[string]any)["applied"] != 14 {
		t.Errorf("applied = %v, want 14", result.(map[string]any)["applied"])
	}

	if _, err := def.Handler(context.Background(), processors.SyncPayload{}); err == nil {
		t.Fatal("expected error for missing source")
	}
}
