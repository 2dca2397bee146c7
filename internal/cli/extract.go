package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/contextcruncher/internal/model"
	"github.com/ppiankov/contextcruncher/internal/pipeline"
)

var (
	extractPolicy    policyFlags
	extractOutputDir string
	extractTimeout   int
	extractPrint     bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <audio>",
	Short: "Extract context data from one recording",
	Long: `Extract sends one recording to the inference service in a single request:
- The instruction is rendered for the chosen identification (--mode/--name)
- The reply must be a JSON object with title, slug and markdownBody
- A Markdown document and a JSON record are written as <slug>.md/.json

Supported audio: mp3, wav, opus, ogg, webm, flac, aac, m4a.

Example:
  contextcruncher extract memo.opus
  contextcruncher extract memo.wav --mode name --name Daniel -o ./context
  GEMINI_API_KEY=... contextcruncher extract memo.mp3 --print`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractPolicy.register(extractCmd)
	extractCmd.Flags().StringVarP(&extractOutputDir, "output-dir", "o", "", "output directory (default from output.dir)")
	extractCmd.Flags().IntVar(&extractTimeout, "timeout", 0, "request timeout in seconds (default from llm.timeout)")
	extractCmd.Flags().BoolVar(&extractPrint, "print", false, "also print the Markdown document to stdout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := appConfig

	policy, err := extractPolicy.resolve(cmd, cfg)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("timeout") {
		cfg.LLM.Timeout = extractTimeout
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Output.Dir = extractOutputDir
	}

	writer, err := pipeline.NewWriter(cfg.Output.Dir)
	if err != nil {
		return err
	}

	audio, err := model.ReadAudioFile(args[0])
	if err != nil {
		return err
	}

	p, client, err := newPipeline(cfg.LLM)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Extracting: %s (%s, %d bytes)\n", audio.Name, audio.MIMEType, len(audio.Data))
		fmt.Fprintf(os.Stderr, "Provider: %s/%s\n", client.Provider().Name(), client.Provider().Model())
		fmt.Fprintln(os.Stderr)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	start := time.Now()
	artifact, err := p.Run(ctx, audio, policy)
	if err != nil {
		return err
	}

	files, err := writer.Write(context.WithoutCancel(ctx), artifact)
	if err != nil {
		return fmt.Errorf("write artifacts: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Extracted %q in %v\n", artifact.Record.Title, time.Since(start).Round(time.Millisecond))
	printArtifactPaths(files)

	if extractPrint {
		fmt.Fprint(cmd.OutOrStdout(), artifact.Markdown)
	}
	return nil
}
