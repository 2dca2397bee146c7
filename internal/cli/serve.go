package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/contextcruncher/internal/api"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extraction pipeline over HTTP",
	Long: `Serve exposes the pipeline as an upload endpoint:

  POST /api/v1/extract   multipart form: audio (file), mode (user|name), name
  GET  /health           add ?deep=1 to check the inference service

Each upload is one extraction. Nothing is written to disk; the response
carries the Markdown document, the JSON record and their filenames.

Example:
  contextcruncher serve
  contextcruncher serve --addr 127.0.0.1:8780
  curl -F audio=@memo.opus -F mode=name -F name=Daniel localhost:8780/api/v1/extract`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}

	p, client, err := newPipeline(cfg.LLM)
	if err != nil {
		return err
	}

	if client.Provider().RequiresAPIKey() && cfg.LLM.APIKey == "" {
		fmt.Fprintf(os.Stderr, "⚠️  No API key configured: uploads will fail until GEMINI_API_KEY is set\n")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	return api.NewServer(p, cfg.Server, logger).WithChecker(client.Provider()).Start(ctx)
}
