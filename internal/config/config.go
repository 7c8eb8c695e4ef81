package config

import "time"

// Config represents the main application configuration.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Model     ModelConfig     `yaml:"model"`
	API       APIConfig       `yaml:"api"`
	Loop      LoopConfig      `yaml:"loop"`
	Logging   LoggingConfig   `yaml:"logging"`
	Trace     TraceConfig     `yaml:"trace"`
	Server    ServerConfig    `yaml:"server"`

	// Runtime version information
	Version string `yaml:"-"`
}

// WorkspaceConfig describes the sandbox every action runs in.
type WorkspaceConfig struct {
	Root            string        `yaml:"root"`
	ReadOnly        []string      `yaml:"read_only"` // Names or doublestar patterns relative to Root
	Interpreter     string        `yaml:"interpreter"`
	InterpreterArgs []string      `yaml:"interpreter_args"`
	ExecTimeout     time.Duration `yaml:"exec_timeout"` // 0 disables the deadline
	PassEnv         []string      `yaml:"pass_env"`     // Extra host variables visible to scripts
}

// ModelConfig holds model-related settings.
type ModelConfig struct {
	Provider        string  `yaml:"provider"` // gemini or ollama
	Name            string  `yaml:"name"`     // Used for code generation
	FastName        string  `yaml:"fast_name"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
	Temperature     float32 `yaml:"temperature"`
}

// APIConfig holds API-related settings.
type APIConfig struct {
	GeminiKey     string          `yaml:"gemini_key,omitempty"`
	OllamaBaseURL string          `yaml:"ollama_base_url,omitempty"`
	OllamaKey     string          `yaml:"ollama_key,omitempty"`
	Retry         RetryConfig     `yaml:"retry"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig throttles generation requests. RequestsPerMinute 0 disables it.
type RateLimitConfig struct {
	RequestsPerMinute int   `yaml:"requests_per_minute"`
	TokensPerMinute   int64 `yaml:"tokens_per_minute"`
	Burst             int   `yaml:"burst"`
}

// RetryConfig holds retry settings for API calls.
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// LoopConfig bounds the edit-execute-diagnose loop and the auxiliary actions.
type LoopConfig struct {
	MaxIterations         int `yaml:"max_iterations"`
	MaxGenerationAttempts int `yaml:"max_generation_attempts"`
	ObservationTokens     int `yaml:"observation_tokens"`
	InspectMaxLines       int `yaml:"inspect_max_lines"`
	UnderstandBlockChars  int `yaml:"understand_block_chars"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// TraceConfig controls where environment snapshots are written.
type TraceConfig struct {
	Dir string `yaml:"dir"` // Defaults to {logging.dir}/snapshots
}

// ServerConfig holds settings for the HTTP front end.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Root:        "workspace",
			Interpreter: DefaultInterpreter,
			ExecTimeout: DefaultExecTimeout,
		},
		Model: ModelConfig{
			Provider:        ProviderGemini,
			Name:            DefaultModel,
			FastName:        DefaultModel,
			MaxOutputTokens: DefaultMaxOutputTokens,
			Temperature:     DefaultTemperature,
		},
		API: APIConfig{
			OllamaBaseURL: DefaultOllamaBaseURL,
			Retry: RetryConfig{
				MaxRetries:  DefaultMaxRetries,
				RetryDelay:  DefaultRetryDelay,
				HTTPTimeout: DefaultHTTPTimeout,
			},
			RateLimit: RateLimitConfig{
				RequestsPerMinute: DefaultRequestsPerMinute,
				TokensPerMinute:   DefaultTokensPerMinute,
				Burst:             DefaultRateBurst,
			},
		},
		Loop: LoopConfig{
			MaxIterations:         DefaultMaxIterations,
			MaxGenerationAttempts: DefaultMaxGenerationAttempts,
			ObservationTokens:     DefaultObservationTokens,
			InspectMaxLines:       DefaultInspectMaxLines,
			UnderstandBlockChars:  DefaultUnderstandBlockChars,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "logs",
		},
		Server: ServerConfig{
			Addr: DefaultServerAddr,
		},
	}
}

// SnapshotDir returns the directory environment snapshots are written to.
func (c *Config) SnapshotDir() string {
	if c.Trace.Dir != "" {
		return c.Trace.Dir
	}
	return c.Logging.Dir + "/snapshots"
}
