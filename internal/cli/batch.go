package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/contextcruncher/internal/cache"
	"github.com/ppiankov/contextcruncher/internal/pipeline"
	"github.com/ppiankov/contextcruncher/internal/worker"
)

var (
	batchPolicy    policyFlags
	concurrency    int
	batchOutputDir string
	batchTimeout   time.Duration
	noLedger       bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Extract many recordings listed in a file, in parallel",
	Long: `Batch processes multiple recordings concurrently:
- Read audio paths from the input file (one per line, # for comments)
- Each recording is one independent extraction and one request
- Recordings already extracted with the same settings are skipped
  (disable with --no-ledger)
- Artifacts are written as <slug>.md/.json in the output directory

Example:
  contextcruncher batch memos.txt
  contextcruncher batch memos.txt --concurrency 4 --output-dir ./context
  contextcruncher batch memos.txt --mode name --name Daniel --timeout 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchPolicy.register(batchCmd)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from batch.workers)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "output directory (default from output.dir)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 0, "total timeout for batch processing (default from batch.timeout)")
	batchCmd.Flags().BoolVar(&noLedger, "no-ledger", false, "re-extract recordings even if already processed")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	cfg := appConfig

	policy, err := batchPolicy.resolve(cmd, cfg)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Batch.Workers = concurrency
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Output.Dir = batchOutputDir
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Batch.Timeout = batchTimeout
	}
	if noLedger {
		cfg.Cache.Enabled = false
	}

	writer, err := pipeline.NewWriter(cfg.Output.Dir)
	if err != nil {
		return err
	}

	p, client, err := newPipeline(cfg.LLM)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  ContextCruncher Batch Extraction\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Batch.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", cfg.Batch.Timeout)
	fmt.Fprintf(os.Stderr, "  Provider:     %s/%s\n", client.Provider().Name(), client.Provider().Model())
	fmt.Fprintf(os.Stderr, "  Ledger:       %v\n", cfg.Cache.Enabled)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(p, writer, cfg.Batch.Workers, logger)
	if cfg.Cache.Enabled {
		store := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		processor.WithLedger(cache.NewLedger(store, cfg.Cache.DiskTTL), ledgerVariant(policy, client.Provider()))
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	if cfg.Batch.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.Batch.Timeout)
		defer cancelTimeout()
	}

	results, err := processor.ProcessFile(ctx, file, policy)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	for _, result := range results {
		switch {
		case result.Error != nil:
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
		case result.Skipped:
			fmt.Fprintf(os.Stderr, "↷ %s: already extracted (%s)\n", result.Path, result.Slug)
		default:
			fmt.Fprintf(os.Stderr, "✓ %s → %s\n", result.Path, result.Files.MarkdownPath)
		}
	}

	summary := worker.Summarize(results)

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d recordings\n", summary.Total)
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", summary.Succeeded)
	fmt.Fprintf(os.Stderr, "  Skipped:   %d\n", summary.Skipped)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d extractions failed", summary.Failed, summary.Total)
	}
	return nil
}
