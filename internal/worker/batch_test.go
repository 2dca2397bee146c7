package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/contextcruncher/internal/cache"
	"github.com/ppiankov/contextcruncher/internal/model"
)

// mockExtractor implements Extractor
type mockExtractor struct {
	failFor string
	slug    string // fixed slug; empty derives one from the audio bytes
	calls   atomic.Int32
}

func (m *mockExtractor) Run(ctx context.Context, audio model.AudioInput, policy model.IdentificationPolicy) (*model.ContextArtifact, error) {
	m.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	if audio.Name == m.failFor {
		return nil, &model.TransportError{Kind: model.TransportRateLimited, StatusCode: 429}
	}
	slug := m.slug
	if slug == "" {
		slug = "notes_" + string(audio.Data)
	}
	return &model.ContextArtifact{
		CapturedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Record:           model.ContextRecord{Slug: slug},
		MarkdownFilename: slug + ".md",
		JSONFilename:     slug + ".json",
	}, nil
}

// dirWriter implements ArtifactWriter with empty files under dir
type dirWriter struct {
	dir     string
	mu      sync.Mutex
	written []string
}

func newDirWriter(t *testing.T) *dirWriter {
	t.Helper()
	return &dirWriter{dir: t.TempDir()}
}

func (w *dirWriter) Dir() string { return w.dir }

func (w *dirWriter) Write(ctx context.Context, a *model.ContextArtifact) (*model.WrittenFiles, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	files := &model.WrittenFiles{
		MarkdownPath: filepath.Join(w.dir, a.MarkdownFilename),
		JSONPath:     filepath.Join(w.dir, a.JSONFilename),
	}
	for _, p := range []string{files.MarkdownPath, files.JSONPath} {
		if err := os.WriteFile(p, nil, 0644); err != nil {
			return nil, err
		}
	}
	w.written = append(w.written, a.MarkdownFilename)
	return files, nil
}

func writeAudioFiles(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte{byte('a' + i)}, 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return dir, paths
}

func TestBatchProcessor_ProcessPaths(t *testing.T) {
	_, paths := writeAudioFiles(t, "a.opus", "b.wav", "c.mp3")
	extractor := &mockExtractor{}
	writer := newDirWriter(t)
	processor := NewBatchProcessor(extractor, writer, 2, nil)

	results := processor.ProcessPaths(context.Background(), paths, model.GenericPolicy())

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Path != paths[i] {
			t.Errorf("result %d out of order: %s", i, res.Path)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Path, res.Error)
		}
		if res.Files == nil {
			t.Errorf("expected written files for %s", res.Path)
		}
	}
	if results[0].Slug != "notes_a" {
		t.Errorf("expected slug notes_a, got %s", results[0].Slug)
	}
	if len(writer.written) != 3 {
		t.Errorf("expected 3 writes, got %d", len(writer.written))
	}

	s := Summarize(results)
	if s.Total != 3 || s.Succeeded != 3 || s.Failed != 0 || s.Skipped != 0 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestBatchProcessor_FailuresAreIsolated(t *testing.T) {
	_, paths := writeAudioFiles(t, "a.opus", "b.opus", "c.txt")
	extractor := &mockExtractor{failFor: "b.opus"}
	writer := newDirWriter(t)
	processor := NewBatchProcessor(extractor, writer, 3, nil)

	results := processor.ProcessPaths(context.Background(), paths, model.GenericPolicy())

	if results[0].Error != nil {
		t.Errorf("expected a.opus to succeed, got %v", results[0].Error)
	}
	if !model.IsRetryable(results[1].Error) {
		t.Errorf("expected retryable transport error for b.opus, got %v", results[1].Error)
	}
	if !errors.Is(results[2].Error, model.ErrConfiguration) {
		t.Errorf("expected configuration error for unknown extension, got %v", results[2].Error)
	}
	if extractor.calls.Load() != 2 {
		t.Errorf("expected 2 extraction calls, got %d", extractor.calls.Load())
	}

	s := Summarize(results)
	if s.Succeeded != 1 || s.Failed != 2 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestBatchProcessor_LedgerSkipsRepeats(t *testing.T) {
	_, paths := writeAudioFiles(t, "a.opus", "b.opus")
	ledger := cache.NewLedger(cache.NewLayeredCache(time.Hour, t.TempDir(), time.Hour), 0)
	extractor := &mockExtractor{}
	writer := newDirWriter(t)

	processor := NewBatchProcessor(extractor, writer, 2, nil).WithLedger(ledger, "user|v2|test")

	first := processor.ProcessPaths(context.Background(), paths, model.GenericPolicy())
	if s := Summarize(first); s.Succeeded != 2 {
		t.Fatalf("expected 2 extractions on first run, got %+v", s)
	}

	second := processor.ProcessPaths(context.Background(), paths, model.GenericPolicy())
	if s := Summarize(second); s.Skipped != 2 {
		t.Fatalf("expected 2 skips on re-run, got %+v", s)
	}
	if extractor.calls.Load() != 2 {
		t.Errorf("expected no new requests on re-run, got %d total", extractor.calls.Load())
	}
	if second[0].Files == nil || second[0].Files.MarkdownPath != filepath.Join(writer.dir, "notes_a.md") {
		t.Errorf("expected ledger to report earlier artifacts, got %+v", second[0].Files)
	}

	// a different variant is a different submission
	other := NewBatchProcessor(extractor, writer, 2, nil).WithLedger(ledger, "name:Daniel|v2|test")
	third := other.ProcessPaths(context.Background(), paths[:1], model.NamedPolicy("Daniel"))
	if third[0].Skipped {
		t.Error("expected extraction under a different variant")
	}
}

func TestBatchProcessor_LedgerFollowsOutputDir(t *testing.T) {
	_, paths := writeAudioFiles(t, "a.opus")
	ledger := cache.NewLedger(cache.NewMemoryCache(time.Hour, time.Minute), 0)
	extractor := &mockExtractor{}

	dirA := newDirWriter(t)
	first := NewBatchProcessor(extractor, dirA, 1, nil).WithLedger(ledger, "user|v2|test")
	if s := Summarize(first.ProcessPaths(context.Background(), paths, model.GenericPolicy())); s.Succeeded != 1 {
		t.Fatalf("expected extraction into first dir, got %+v", s)
	}

	dirB := newDirWriter(t)
	second := NewBatchProcessor(extractor, dirB, 1, nil).WithLedger(ledger, "user|v2|test")
	results := second.ProcessPaths(context.Background(), paths, model.GenericPolicy())
	if results[0].Skipped || results[0].Error != nil {
		t.Fatalf("expected extraction into a new dir, got %+v", results[0])
	}
	if _, err := os.Stat(filepath.Join(dirB.dir, "notes_a.md")); err != nil {
		t.Errorf("expected artifacts in second dir: %v", err)
	}
	if extractor.calls.Load() != 2 {
		t.Errorf("expected 2 extraction calls, got %d", extractor.calls.Load())
	}
}

func TestBatchProcessor_LedgerReextractsDeletedOutputs(t *testing.T) {
	_, paths := writeAudioFiles(t, "a.opus")
	ledger := cache.NewLedger(cache.NewMemoryCache(time.Hour, time.Minute), 0)
	extractor := &mockExtractor{}
	writer := newDirWriter(t)
	processor := NewBatchProcessor(extractor, writer, 1, nil).WithLedger(ledger, "user|v2|test")

	first := processor.ProcessPaths(context.Background(), paths, model.GenericPolicy())
	if first[0].Error != nil {
		t.Fatalf("first run failed: %v", first[0].Error)
	}

	if err := os.Remove(first[0].Files.JSONPath); err != nil {
		t.Fatal(err)
	}

	second := processor.ProcessPaths(context.Background(), paths, model.GenericPolicy())
	if second[0].Skipped || second[0].Error != nil {
		t.Fatalf("expected re-extraction after outputs were deleted, got %+v", second[0])
	}
	if _, err := os.Stat(first[0].Files.JSONPath); err != nil {
		t.Errorf("expected JSON artifact to be rewritten: %v", err)
	}
	if extractor.calls.Load() != 2 {
		t.Errorf("expected 2 extraction calls, got %d", extractor.calls.Load())
	}

	third := processor.ProcessPaths(context.Background(), paths, model.GenericPolicy())
	if !third[0].Skipped {
		t.Error("expected skip once artifacts are back on disk")
	}
}

func TestBatchProcessor_DuplicateSlugFailsLaterItem(t *testing.T) {
	_, paths := writeAudioFiles(t, "a.opus", "b.opus")
	extractor := &mockExtractor{slug: "movie_preferences"}
	writer := newDirWriter(t)
	processor := NewBatchProcessor(extractor, writer, 1, nil)

	results := processor.ProcessPaths(context.Background(), paths, model.GenericPolicy())

	if results[0].Error != nil {
		t.Fatalf("expected first item to succeed, got %v", results[0].Error)
	}
	if results[1].Error == nil || !strings.Contains(results[1].Error.Error(), paths[0]) {
		t.Errorf("expected duplicate slug error naming %s, got %v", paths[0], results[1].Error)
	}
	if len(writer.written) != 1 {
		t.Errorf("expected one write, got %d", len(writer.written))
	}
	if s := Summarize(results); s.Succeeded != 1 || s.Failed != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestSlugClaims(t *testing.T) {
	var none *SlugClaims
	if err := none.Claim("x", "a"); err != nil {
		t.Errorf("nil claims should accept, got %v", err)
	}

	c := NewSlugClaims()
	if err := c.Claim("x", "a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Claim("x", "a"); err != nil {
		t.Errorf("same owner should re-claim, got %v", err)
	}
	if err := c.Claim("x", "b"); err == nil {
		t.Error("expected second owner to be refused")
	}
}

func TestBatchProcessor_CanceledBeforeStart(t *testing.T) {
	_, paths := writeAudioFiles(t, "a.opus", "b.opus")
	extractor := &mockExtractor{}
	processor := NewBatchProcessor(extractor, newDirWriter(t), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessPaths(ctx, paths, model.GenericPolicy())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("expected canceled error for %s, got %v", res.Path, res.Error)
		}
	}
	if extractor.calls.Load() != 0 {
		t.Errorf("expected no extraction calls, got %d", extractor.calls.Load())
	}
}

func TestBatchProcessor_ProcessPaths_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, newDirWriter(t), 2, nil)

	results := processor.ProcessPaths(context.Background(), []string{}, model.GenericPolicy())
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadPathsFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `memos/a.opus
# comment
/abs/b.wav

memos/a.opus
   memos/c.mp3   `

	listPath := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(listPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		t.Fatalf("ReadPathsFromFile failed: %v", err)
	}

	expected := []string{
		filepath.Join(dir, "memos/a.opus"),
		"/abs/b.wav",
		filepath.Join(dir, "memos/c.mp3"),
	}
	if len(paths) != len(expected) {
		t.Fatalf("expected %d paths, got %d: %v", len(expected), len(paths), paths)
	}
	for i, p := range paths {
		if p != expected[i] {
			t.Errorf("path %d: expected %s, got %s", i, expected[i], p)
		}
	}
}

func TestBatchProcessor_ProcessFile_Missing(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, newDirWriter(t), 1, nil)
	if _, err := processor.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), model.GenericPolicy()); err == nil {
		t.Error("expected error for missing list file")
	}
}
