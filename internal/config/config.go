// Package config loads layered configuration (defaults < file < env, the
// viper precedence the teacher pack uses) via spf13/viper, with
// local .env loading via joho/godotenv, matching basegraphhq-basegraph and
// codeready-toolchain-tarsy.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`

	OracleProvider string `mapstructure:"oracle_provider"` // "anthropic" | "openai" | "bedrock"
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	AnthropicModel  string `mapstructure:"anthropic_model"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	OpenAIModel     string `mapstructure:"openai_model"`
	BedrockModelID  string `mapstructure:"bedrock_model_id"`
	BedrockRegion   string `mapstructure:"bedrock_region"`
	// BedrockAccessKeyID/BedrockSecretAccessKey are optional: when both are
	// set, they override the default AWS credential chain (useful outside
	// an EC2/ECS/EKS environment that already has IAM-role credentials).
	BedrockAccessKeyID     string `mapstructure:"bedrock_access_key_id"`
	BedrockSecretAccessKey string `mapstructure:"bedrock_secret_access_key"`

	PostgresDSN string `mapstructure:"postgres_dsn"`

	RedisAddr string        `mapstructure:"redis_addr"`
	RedisTTL  time.Duration `mapstructure:"redis_ttl"`

	MaxToolCalls      int `mapstructure:"max_tool_calls"`
	MaxIterations     int `mapstructure:"max_iterations"`
	MaxReprompts      int `mapstructure:"max_reprompts"`
	MaxQuestionLength int `mapstructure:"max_question_length"`

	ToolRatePerSecond float64 `mapstructure:"tool_rate_per_second"`
	ToolRateBurst     int     `mapstructure:"tool_rate_burst"`
}

func defaults() Config {
	return Config{
		HTTPAddr:          ":8080",
		OracleProvider:    "anthropic",
		AnthropicModel:    "claude-3-5-sonnet-latest",
		OpenAIModel:       "gpt-4o-mini",
		BedrockModelID:    "anthropic.claude-3-5-sonnet-20241022-v2:0",
		BedrockRegion:     "us-east-1",
		RedisTTL:          24 * time.Hour,
		MaxToolCalls:      5,
		MaxIterations:     10,
		MaxReprompts:      3,
		MaxQuestionLength: 1000,
		ToolRatePerSecond: 5,
		ToolRateBurst:     5,
	}
}

// Load reads configuration from (in increasing precedence) defaults, a
// config file named "docuqa-agent.yaml" in the current directory or
// /etc/docuqa-agent, and environment variables prefixed DOCUQA_. An optional
// .env file is first loaded into the process environment (variables already
// set are kept), so its DOCUQA_ entries rank with the environment variables.
func Load(configPath string) (Config, error) {
	// .env loading is best-effort: a missing file in production is normal.
	_ = godotenv.Load()

	v := viper.New()
	d := defaults()
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("oracle_provider", d.OracleProvider)
	v.SetDefault("anthropic_model", d.AnthropicModel)
	v.SetDefault("openai_model", d.OpenAIModel)
	v.SetDefault("bedrock_model_id", d.BedrockModelID)
	v.SetDefault("bedrock_region", d.BedrockRegion)
	v.SetDefault("redis_ttl", d.RedisTTL)
	v.SetDefault("max_tool_calls", d.MaxToolCalls)
	v.SetDefault("max_iterations", d.MaxIterations)
	v.SetDefault("max_reprompts", d.MaxReprompts)
	v.SetDefault("max_question_length", d.MaxQuestionLength)
	v.SetDefault("tool_rate_per_second", d.ToolRatePerSecond)
	v.SetDefault("tool_rate_burst", d.ToolRateBurst)

	v.SetEnvPrefix("DOCUQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("docuqa-agent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/docuqa-agent")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshalling: %w", err)
	}
	return cfg, nil
}
