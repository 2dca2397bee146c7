package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/contextcruncher/internal/logging"
	"github.com/ppiankov/contextcruncher/internal/model"
)

// Version is set at build time
var Version = "0.3.0"

var (
	cfgFile string
	verbose bool

	// appConfig is loaded once per invocation, before any command runs
	appConfig *model.Config
	logger    *slog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "contextcruncher",
	Short: "ContextCruncher - turn rambling voice memos into structured context data",
	Long: `ContextCruncher sends a spoken recording to a multimodal model and turns
the reply into de-duplicated, third-person "context data": a Markdown
document and a JSON record, ready to ground downstream AI personalization.

It performs no transcription or summarization of its own. All audio and
language understanding is delegated to the inference service.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return model.NewConfigurationError("log.format", err.Error())
		}
		appConfig = cfg
		logger = l
		return nil
	},
}

// Execute runs the root command. The returned error has already been logged.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		slog.Error("command failed",
			"kind", model.ErrorKind(err),
			"retryable", model.IsRetryable(err),
			"error", err,
		)
	}
	return err
}

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, model.ErrConfiguration):
		return 2
	case errors.Is(err, model.ErrTransport):
		return 3
	case errors.Is(err, model.ErrSchemaViolation):
		return 4
	default:
		return 1
	}
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of ContextCruncher.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "contextcruncher v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.contextcruncher/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("provider", "", "inference provider (gemini, static)")
	rootCmd.PersistentFlags().String("model", "", "model name")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			// Search for config in home directory
			viper.AddConfigPath(filepath.Join(home, ".contextcruncher"))
			viper.SetConfigType("yaml")
			viper.SetConfigName("config")
		}
	}

	setDefaults(viper.GetViper(), model.DefaultConfig())

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Read in environment variables that match CONTEXTCRUNCHER_*
	viper.SetEnvPrefix("CONTEXTCRUNCHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The service's own variable names are honored as fallbacks
	_ = viper.BindEnv("llm.api_key", "CONTEXTCRUNCHER_LLM_API_KEY", "GEMINI_API_KEY", "GEMINI_API")

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key so env variables can override it
func setDefaults(v *viper.Viper, d *model.Config) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.requests_per_minute", d.LLM.RequestsPerMinute)
	v.SetDefault("llm.static_response_path", d.LLM.StaticResponsePath)
	v.SetDefault("llm.http_proxy", d.LLM.HTTPProxy)
	v.SetDefault("llm.https_proxy", d.LLM.HTTPSProxy)
	v.SetDefault("llm.no_proxy", d.LLM.NoProxy)

	v.SetDefault("identification.mode", string(d.Identification.Mode))
	v.SetDefault("identification.name", d.Identification.Name)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.verbose", d.Output.Verbose)

	v.SetDefault("demo.audio_path", d.Demo.AudioPath)
	v.SetDefault("demo.output_dir", d.Demo.OutputDir)

	v.SetDefault("batch.workers", d.Batch.Workers)
	v.SetDefault("batch.timeout", d.Batch.Timeout)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_ttl", d.Cache.MemoryTTL)
	v.SetDefault("cache.disk_ttl", d.Cache.DiskTTL)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// loadConfig resolves the effective configuration
// (flags > CONTEXTCRUNCHER_* env > GEMINI_API_KEY/GEMINI_API > config file > defaults)
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, model.NewConfigurationError("config", err.Error())
	}

	mode, err := model.ParseIdentificationMode(string(cfg.Identification.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Identification.Mode = mode
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)

	return cfg, nil
}
