package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/contextcruncher/internal/llm"
	"github.com/ppiankov/contextcruncher/internal/model"
	"github.com/ppiankov/contextcruncher/internal/pipeline"
	"github.com/ppiankov/contextcruncher/internal/prompt"
)

// identification flags shared by extract, batch and prompt
type policyFlags struct {
	mode string
	name string
}

func (f *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "", "identification mode: user (\"the user\") or name")
	cmd.Flags().StringVar(&f.name, "name", "", "speaker name, required with --mode name")
}

// resolve applies flags over the configured policy and validates the result
func (f *policyFlags) resolve(cmd *cobra.Command, cfg *model.Config) (model.IdentificationPolicy, error) {
	policy := cfg.Identification
	if cmd.Flags().Changed("mode") {
		mode, err := model.ParseIdentificationMode(f.mode)
		if err != nil {
			return model.IdentificationPolicy{}, err
		}
		policy.Mode = mode
	}
	if cmd.Flags().Changed("name") {
		policy.Name = f.name
		// a bare --name implies identification by name
		if !cmd.Flags().Changed("mode") {
			policy.Mode = model.ModeByName
		}
	}
	if err := policy.Validate(); err != nil {
		return model.IdentificationPolicy{}, err
	}
	return policy, nil
}

// newPipeline wires provider, client and pipeline from configuration
func newPipeline(cfg model.LLMConfig) (*pipeline.Pipeline, *llm.Client, error) {
	llmConfig := llm.ConfigFromModel(cfg)

	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		return nil, nil, err
	}

	client, err := llm.NewClient(llmConfig, provider, logger)
	if err != nil {
		return nil, nil, err
	}

	return pipeline.New(client, pipeline.WithLogger(logger)), client, nil
}

// ledgerVariant qualifies ledger keys so a different policy, template or
// model re-extracts the same audio. The batch processor adds the output dir.
func ledgerVariant(policy model.IdentificationPolicy, provider llm.Provider) string {
	address, _ := policy.Address()
	return strings.Join([]string{
		string(policy.Mode),
		address,
		prompt.TemplateVersion,
		provider.Name(),
		provider.Model(),
	}, "|")
}

func printArtifactPaths(files *model.WrittenFiles) {
	fmt.Fprintf(os.Stderr, "✓ Markdown written to %s\n", files.MarkdownPath)
	fmt.Fprintf(os.Stderr, "✓ JSON written to %s\n", files.JSONPath)
}
