// Package config provides configuration loading and validation.
// Settings come from a YAML config file merged with environment variables;
// the resulting Config struct is passed explicitly to each component so that
// nothing reads ambient global state.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ValidationError reports malformed configuration. It is fatal at startup.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config validation error: %s", e.Message)
}

// LLMConfig holds model parameters for the LLM provider.
type LLMConfig struct {
	APIKey         string  `mapstructure:"api_key" validate:"required"`
	ParsingModel   string  `mapstructure:"parsing_model"`
	RewriteModel   string  `mapstructure:"rewrite_model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int     `mapstructure:"max_tokens" validate:"gte=0"`
}

// GitHubConfig holds source-hosting credentials and the commit target.
type GitHubConfig struct {
	Token      string `mapstructure:"token"`
	Username   string `mapstructure:"username"`
	RepoOwner  string `mapstructure:"repo_owner"`
	RepoName   string `mapstructure:"repo_name"`
	Branch     string `mapstructure:"branch"`
	ResumeFile string `mapstructure:"resume_file"`
}

// ScholarConfig identifies the scholarly profile to scrape.
type ScholarConfig struct {
	AuthorID   string `mapstructure:"author_id"`
	AuthorName string `mapstructure:"author_name"`
}

// LinkedInConfig identifies the network profile page to scrape.
type LinkedInConfig struct {
	ProfileURL string `mapstructure:"profile_url"`
}

// AnalysisConfig holds the fixed alignment thresholds.
type AnalysisConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" validate:"gte=0,lte=1"`
	RewriteThreshold    float64 `mapstructure:"rewrite_threshold" validate:"gte=0,lte=1"`
	KeepThreshold       float64 `mapstructure:"keep_threshold" validate:"gte=0,lte=1"`
}

// Config is the full application configuration.
type Config struct {
	LLM         LLMConfig      `mapstructure:"llm"`
	GitHub      GitHubConfig   `mapstructure:"github"`
	Scholar     ScholarConfig  `mapstructure:"scholar"`
	LinkedIn    LinkedInConfig `mapstructure:"linkedin"`
	Analysis    AnalysisConfig `mapstructure:"analysis"`
	OutputDir   string         `mapstructure:"output_dir"`
	DatabaseURL string         `mapstructure:"database_url"`
	UseBrowser  bool           `mapstructure:"use_browser"`
	Verbose     bool           `mapstructure:"verbose"`
	JSONLogs    bool           `mapstructure:"json_logs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.parsing_model", "gemini-2.5-flash")
	v.SetDefault("llm.rewrite_model", "gemini-2.5-pro")
	v.SetDefault("llm.embedding_model", "text-embedding-004")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("github.branch", "main")
	v.SetDefault("github.resume_file", "main.tex")
	v.SetDefault("analysis.similarity_threshold", 0.6)
	v.SetDefault("analysis.rewrite_threshold", 0.4)
	v.SetDefault("analysis.keep_threshold", 0.75)
	v.SetDefault("output_dir", "output")
}

// Load reads configuration from the given YAML file (optional) and the
// environment, then validates it. Environment variables use the ATS_ prefix
// with underscores, e.g. ATS_LLM_API_KEY; GEMINI_API_KEY and GITHUB_TOKEN are
// also honored as conventional fallbacks.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional env var names used by the underlying services.
	_ = v.BindEnv("llm.api_key", "ATS_LLM_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("github.token", "ATS_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("github.username", "ATS_GITHUB_USERNAME", "GITHUB_USERNAME")
	_ = v.BindEnv("database_url", "ATS_DATABASE_URL", "DATABASE_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("failed to read config file %s: %v", path, err)}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("failed to parse config: %v", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required keys and numeric ranges.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return &ValidationError{
				Field:   first.Namespace(),
				Message: fmt.Sprintf("failed %q constraint", first.Tag()),
			}
		}
		return &ValidationError{Message: err.Error()}
	}

	// Threshold ordering: rewrite must sit below keep or every bullet
	// either keeps or de-emphasizes.
	if c.Analysis.RewriteThreshold > c.Analysis.KeepThreshold {
		return &ValidationError{
			Field:   "analysis.rewrite_threshold",
			Message: "must not exceed analysis.keep_threshold",
		}
	}

	return nil
}
