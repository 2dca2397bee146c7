package model

import "time"

// Config is the complete contextcruncher configuration
type Config struct {
	LLM            LLMConfig            `yaml:"llm" mapstructure:"llm"`
	Identification IdentificationPolicy `yaml:"identification" mapstructure:"identification"`
	Output         OutputConfig         `yaml:"output" mapstructure:"output"`
	Demo           DemoConfig           `yaml:"demo" mapstructure:"demo"`
	Batch          BatchConfig          `yaml:"batch" mapstructure:"batch"`
	Cache          CacheConfig          `yaml:"cache" mapstructure:"cache"`
	Server         ServerConfig         `yaml:"server" mapstructure:"server"`
	Log            LogConfig            `yaml:"log" mapstructure:"log"`
}

// LLMConfig configures the inference service
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // gemini, static
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout  int    `yaml:"timeout" mapstructure:"timeout"` // seconds

	// RequestsPerMinute throttles outbound requests; 0 disables the gate
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`

	// StaticResponsePath is the payload file for the static provider
	StaticResponsePath string `yaml:"static_response_path,omitempty" mapstructure:"static_response_path"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// OutputConfig controls where extract writes artifacts
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DemoConfig configures the demo harness
type DemoConfig struct {
	AudioPath string `yaml:"audio_path" mapstructure:"audio_path"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// BatchConfig configures batch extraction
type BatchConfig struct {
	Workers int           `yaml:"workers" mapstructure:"workers"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig configures the batch submission ledger
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ServerConfig configures the HTTP upload endpoint
type ServerConfig struct {
	Addr           string `yaml:"addr" mapstructure:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "gemini",
			Model:             "gemini-2.5-flash",
			Timeout:           120,
			RequestsPerMinute: 0,
		},
		Identification: GenericPolicy(),
		Output: OutputConfig{
			Dir: "context-data",
		},
		Demo: DemoConfig{
			AudioPath: "example-data/movie-prefs.opus",
			OutputDir: "demo-results",
		},
		Batch: BatchConfig{
			Workers: 2,
			Timeout: 30 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".contextcruncher-cache",
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:           ":8780",
			MaxUploadBytes: 25 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
