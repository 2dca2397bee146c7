package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/contextcruncher/internal/prompt"
)

var (
	promptPolicy policyFlags
	promptSchema bool
)

// promptCmd represents the prompt command
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the instruction sent with each recording",
	Long: `Prompt renders the extraction instruction exactly as it is sent to the
inference service, for the given identification.

Example:
  contextcruncher prompt
  contextcruncher prompt --mode name --name Daniel
  contextcruncher prompt --schema`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if promptSchema {
			fmt.Fprintln(cmd.OutOrStdout(), prompt.ResponseJSONSchema)
			return nil
		}

		policy, err := promptPolicy.resolve(cmd, appConfig)
		if err != nil {
			return err
		}
		text, err := prompt.Build(policy)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)

	promptPolicy.register(promptCmd)
	promptCmd.Flags().BoolVar(&promptSchema, "schema", false, "print the response JSON Schema instead")
}
