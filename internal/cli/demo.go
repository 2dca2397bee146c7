package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/contextcruncher/internal/pipeline"
)

var (
	demoAudio     string
	demoOutputDir string
	demoDryRun    bool
)

// demoCmd represents the demo command
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the bundled sample recording through the pipeline",
	Long: `Demo extracts the sample recording with generic identification ("the user")
and writes both artifacts to the demo output directory, replacing any
earlier run.

With --dry-run the inference service is replaced by a fixed local reply,
so the harness runs end to end without a network or API key.

Example:
  contextcruncher demo
  contextcruncher demo --dry-run
  contextcruncher demo --audio ./example-data/movie-prefs.opus --output-dir ./demo-results`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().StringVar(&demoAudio, "audio", "", "sample audio file (default from demo.audio_path)")
	demoCmd.Flags().StringVar(&demoOutputDir, "output-dir", "", "output directory (default from demo.output_dir)")
	demoCmd.Flags().BoolVar(&demoDryRun, "dry-run", false, "use the static provider instead of the inference service")
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if cmd.Flags().Changed("audio") {
		cfg.Demo.AudioPath = demoAudio
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Demo.OutputDir = demoOutputDir
	}

	llmCfg := cfg.LLM
	if demoDryRun {
		llmCfg.Provider = "static"
	}

	p, client, err := newPipeline(llmCfg)
	if err != nil {
		return err
	}

	runner, err := pipeline.NewDemoRunner(p, cfg.Demo, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Running demo: %s via %s/%s\n", cfg.Demo.AudioPath, client.Provider().Name(), client.Provider().Model())

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ Extracted %q\n", result.Artifact.Record.Title)
	printArtifactPaths(result.Files)
	return nil
}
