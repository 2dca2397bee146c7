package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/contextcruncher/internal/cache"
	"github.com/ppiankov/contextcruncher/internal/model"
)

// Extractor runs one extraction for an audio payload
type Extractor interface {
	Run(ctx context.Context, audio model.AudioInput, policy model.IdentificationPolicy) (*model.ContextArtifact, error)
}

// ArtifactWriter persists an extracted artifact pair under Dir
type ArtifactWriter interface {
	Write(ctx context.Context, artifact *model.ContextArtifact) (*model.WrittenFiles, error)
	Dir() string
}

// ExtractJob is one audio file in a batch
type ExtractJob struct {
	Path      string
	Policy    model.IdentificationPolicy
	Extractor Extractor
	Writer    ArtifactWriter
	Ledger    *cache.Ledger // nil disables skip-on-rerun
	Variant   string        // ledger key qualifier
	Slugs     *SlugClaims   // nil allows slugs to repeat within a batch
}

// Execute extracts one file and writes its artifacts.
// Files already recorded in the ledger are skipped without a request as long
// as both recorded artifacts are still on disk.
func (j *ExtractJob) Execute(ctx context.Context) Result {
	start := time.Now()
	res := &ExtractResult{Path: j.Path}

	audio, err := model.ReadAudioFile(j.Path)
	if err != nil {
		res.Error = err
		return res
	}

	var key string
	if j.Ledger != nil {
		key = cache.AudioKey(audio.Data, j.Variant)
		if entry, found := j.Ledger.Lookup(key); found {
			if artifactsExist(entry) {
				if err := j.Slugs.Claim(entry.Slug, j.Path); err != nil {
					res.Error = err
					return res
				}
				res.Skipped = true
				res.Files = &model.WrittenFiles{MarkdownPath: entry.MarkdownFilename, JSONPath: entry.JSONFilename}
				res.Slug = entry.Slug
				return res
			}
			_ = j.Ledger.Forget(key)
		}
	}

	artifact, err := j.Extractor.Run(ctx, audio, j.Policy)
	if err != nil {
		res.Error = err
		res.Duration = time.Since(start)
		return res
	}

	if err := j.Slugs.Claim(artifact.Record.Slug, j.Path); err != nil {
		res.Slug = artifact.Record.Slug
		res.Error = err
		res.Duration = time.Since(start)
		return res
	}

	files, err := j.Writer.Write(ctx, artifact)
	if err != nil {
		res.Error = fmt.Errorf("write artifacts: %w", err)
		res.Duration = time.Since(start)
		return res
	}

	res.Slug = artifact.Record.Slug
	res.Files = files
	res.Duration = time.Since(start)

	if j.Ledger != nil {
		// the artifacts exist either way; a ledger miss only costs a re-run
		_ = j.Ledger.Record(key, cache.LedgerEntry{
			Source:           j.Path,
			Slug:             artifact.Record.Slug,
			MarkdownFilename: files.MarkdownPath,
			JSONFilename:     files.JSONPath,
			CapturedAt:       artifact.CapturedAt,
		})
	}
	return res
}

func artifactsExist(entry cache.LedgerEntry) bool {
	for _, path := range []string{entry.MarkdownFilename, entry.JSONFilename} {
		if path == "" {
			return false
		}
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// SlugClaims hands each slug to the first batch item that produces it, so a
// later item with the same slug fails instead of overwriting the earlier pair.
type SlugClaims struct {
	mu     sync.Mutex
	owners map[string]string
}

// NewSlugClaims creates an empty claim set
func NewSlugClaims() *SlugClaims {
	return &SlugClaims{owners: make(map[string]string)}
}

// Claim records path as the owner of slug. A nil receiver accepts every claim.
func (c *SlugClaims) Claim(slug, path string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner, taken := c.owners[slug]; taken && owner != path {
		return fmt.Errorf("slug %q already written by %s in this batch", slug, owner)
	}
	c.owners[slug] = path
	return nil
}

// ExtractResult is the outcome for one batch file
type ExtractResult struct {
	Path     string
	Slug     string
	Files    *model.WrittenFiles
	Skipped  bool
	Duration time.Duration
	Error    error
}

// GetError returns the error from the extraction
func (r *ExtractResult) GetError() error {
	return r.Error
}

// BatchSummary counts outcomes
type BatchSummary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
}

// Summarize tallies batch results
func Summarize(results []*ExtractResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Error != nil:
			s.Failed++
		case r.Skipped:
			s.Skipped++
		default:
			s.Succeeded++
		}
	}
	return s
}

// BatchProcessor extracts many audio files concurrently. Each file is an
// independent pipeline run; one failure never affects the others.
type BatchProcessor struct {
	extractor   Extractor
	writer      ArtifactWriter
	concurrency int
	ledger      *cache.Ledger
	variant     string
	logger      *slog.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(extractor Extractor, writer ArtifactWriter, concurrency int, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		extractor:   extractor,
		writer:      writer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// WithLedger enables skipping audio already extracted under the same variant.
// The writer's output directory is part of the variant, so a run into a new
// directory extracts again.
func (b *BatchProcessor) WithLedger(ledger *cache.Ledger, variant string) *BatchProcessor {
	dir := b.writer.Dir()
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	b.ledger = ledger
	b.variant = variant + "|" + dir
	return b
}

// ProcessPaths extracts the given files; results follow input order
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string, policy model.IdentificationPolicy) []*ExtractResult {
	if len(paths) == 0 {
		return []*ExtractResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	slugs := NewSlugClaims()
	for _, path := range paths {
		submitted := pool.Submit(&ExtractJob{
			Path:      path,
			Policy:    policy,
			Extractor: b.extractor,
			Writer:    b.writer,
			Ledger:    b.ledger,
			Variant:   b.variant,
			Slugs:     slugs,
		})
		if !submitted {
			// canceled: stop the workers, remaining paths report not started
			pool.Shutdown()
			break
		}
	}

	results := pool.Wait()

	out := make([]*ExtractResult, len(paths))
	for i := range paths {
		var res *ExtractResult
		if i < len(results) && results[i] != nil {
			res = results[i].(*ExtractResult)
		} else {
			res = &ExtractResult{Path: paths[i], Error: notRunError(ctx)}
		}
		out[i] = res
		b.logResult(res)
	}
	return out
}

// ProcessFile reads audio paths from a list file and extracts them
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string, policy model.IdentificationPolicy) ([]*ExtractResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read audio list: %w", err)
	}

	return b.ProcessPaths(ctx, paths, policy), nil
}

func (b *BatchProcessor) logResult(r *ExtractResult) {
	switch {
	case r.Error != nil:
		b.logger.Warn("batch item failed",
			"path", r.Path,
			"kind", model.ErrorKind(r.Error),
			"retryable", model.IsRetryable(r.Error),
			"error", r.Error,
		)
	case r.Skipped:
		b.logger.Info("batch item skipped, already extracted", "path", r.Path, "slug", r.Slug)
	default:
		b.logger.Info("batch item extracted", "path", r.Path, "slug", r.Slug, "elapsed", r.Duration.Round(time.Millisecond))
	}
}

func notRunError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		kind := model.TransportCanceled
		if errors.Is(err, context.DeadlineExceeded) {
			kind = model.TransportTimeout
		}
		return &model.TransportError{Kind: kind, Message: "not started", Err: err}
	}
	return errors.New("not started")
}

// ReadPathsFromFile reads audio paths from a file (one per line).
// Relative paths are resolved against the list file's directory.
func ReadPathsFromFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
