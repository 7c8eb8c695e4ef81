package config

import "time"

// Default configuration values.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	DefaultModel           = "gemini-2.0-flash"
	DefaultMaxOutputTokens = 4000
	DefaultTemperature     = 0.2
	DefaultOllamaBaseURL   = "http://localhost:11434"

	// Retry settings
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultHTTPTimeout = 120 * time.Second

	// Rate limit
	DefaultRequestsPerMinute = 60
	DefaultTokensPerMinute   = 1000000
	DefaultRateBurst         = 10

	// Script execution
	DefaultInterpreter = "python"
	DefaultExecTimeout = 10 * time.Minute

	// Loop bounds
	DefaultMaxIterations         = 5
	DefaultMaxGenerationAttempts = 5
	DefaultObservationTokens     = 2000
	DefaultInspectMaxLines       = 100
	DefaultUnderstandBlockChars  = 10000

	DefaultServerAddr = ":8000"
)
