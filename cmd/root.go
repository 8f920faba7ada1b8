package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/smartrecruit/internal/observability"
	"github.com/spigell/smartrecruit/internal/records"
	"github.com/spigell/smartrecruit/internal/server"
	"github.com/spigell/smartrecruit/internal/store"
)

const (
	app       = "smartrecruit"
	envPrefix = "SMARTRECRUIT"
)

type Config struct {
	CandidatesDir string                      `mapstructure:"candidates-dir"`
	JobsDir       string                      `mapstructure:"jobs-dir"`
	FeedbackDir   string                      `mapstructure:"feedback-dir"`
	TopK          int                         `mapstructure:"top-k"`
	Workers       int                         `mapstructure:"workers"`
	Scales        records.Scales              `mapstructure:"scales"`
	AI            *AIConfig                   `mapstructure:"ai"`
	Cache         *CacheConfig                `mapstructure:"cache"`
	Store         store.Config                `mapstructure:"store"`
	Tracing       observability.TracingConfig `mapstructure:"tracing"`
	Server        server.Config               `mapstructure:"server"`
}

type AIConfig struct {
	Provider          string        `mapstructure:"provider"`
	Fallback          string        `mapstructure:"fallback"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
	MaxLogLength      int           `mapstructure:"max-log-length"`
	Ollama            *OllamaConfig `mapstructure:"ollama"`
	Gemini            *GeminiConfig `mapstructure:"gemini"`
}

type OllamaConfig struct {
	URL            string        `mapstructure:"url"`
	Model          string        `mapstructure:"model"`
	EmbeddingModel string        `mapstructure:"embedding-model"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max-retries"`
}

type GeminiConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
}

type CacheConfig struct {
	RedisURL  string `mapstructure:"redis-url"`
	KeyPrefix string `mapstructure:"key-prefix"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "smartrecruit scores candidates against job descriptions and ranks the best matches",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is smartrecruit.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("candidates-dir", "./candidates")
	v.SetDefault("jobs-dir", "./jd")
	v.SetDefault("feedback-dir", "./feedback")
	v.SetDefault("top-k", 5)
	v.SetDefault("workers", 4)
	v.SetDefault("scales.candidate", string(records.ScalePercent))
	v.SetDefault("scales.job", string(records.ScaleFivePoint))

	v.SetDefault("ai.provider", "ollama")
	v.SetDefault("ai.fallback", "")
	v.SetDefault("ai.requests-per-second", 0)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.ollama.url", "http://localhost:11434")
	v.SetDefault("ai.ollama.model", "mistral")
	v.SetDefault("ai.ollama.embedding-model", "all-minilm")
	v.SetDefault("ai.ollama.timeout", 30*time.Second)
	v.SetDefault("ai.ollama.max-retries", 3)
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.embedding-model", "text-embedding-004")
	v.SetDefault("ai.gemini.max-retries", 3)

	v.SetDefault("cache.redis-url", "")
	v.SetDefault("cache.key-prefix", app)

	v.SetDefault("store.driver", store.DriverFile)
	v.SetDefault("store.path", "./scores")
	v.SetDefault("store.dsn", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service-name", app)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.protocol", "grpc")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample-rate", 1.0)

	v.SetDefault("server.addr", ":8080")
}

func initConfig() {
	// A missing .env is fine; variables may come from the environment itself.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Defaults are enough to run without a config file, but an explicit or broken one is fatal.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if err := config.Scales.Validate(); err != nil {
		return config, err
	}

	return config, nil
}
