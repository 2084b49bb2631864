package models

import "time"

// Config holds every setting the router reads from the environment.
// It is parsed once at startup and passed explicitly to the services.
type Config struct {
	Port          string `env:"PORT" envDefault:"8000"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8000"`
	FilesDir      string `env:"FILES_DIR" envDefault:"files"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"180s"`

	OpenAI   OpenAIConfig   `envPrefix:"OPENAI_"`
	LocalLLM LocalLLMConfig `envPrefix:"ANYTHING_LLM_"`
	Discord  DiscordConfig  `envPrefix:"DISCORD_"`
}

// OpenAIConfig configures the hosted provider
type OpenAIConfig struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL"`
	Model   string `env:"MODEL" envDefault:"gpt-4o-mini"`
}

// LocalLLMConfig configures the local retrieval-augmented provider
type LocalLLMConfig struct {
	URL       string `env:"URL"`
	APIKey    string `env:"API_KEY"`
	Workspace string `env:"WORKSPACE" envDefault:"rag"`
}

// DiscordConfig represents Discord frontend configuration
type DiscordConfig struct {
	Token         string `env:"BOT_TOKEN"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!atom "`
	UseHosted     bool   `env:"USE_HOSTED" envDefault:"false"`
}
