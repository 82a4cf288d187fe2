package main

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openai/openai-go"
	"github.com/redis/go-redis/v9"

	"github.com/docuqa/agent-runtime/internal/config"
	"github.com/docuqa/agent-runtime/internal/docstore"
	"github.com/docuqa/agent-runtime/internal/docstore/pgstore"
	"github.com/docuqa/agent-runtime/internal/executor"
	"github.com/docuqa/agent-runtime/internal/oracle"
	oracleanthropic "github.com/docuqa/agent-runtime/internal/oracle/anthropic"
	oraclebedrock "github.com/docuqa/agent-runtime/internal/oracle/bedrock"
	oracleopenai "github.com/docuqa/agent-runtime/internal/oracle/openai"
	"github.com/docuqa/agent-runtime/internal/runstore"
	"github.com/docuqa/agent-runtime/internal/runstore/redisstore"
	"github.com/docuqa/agent-runtime/internal/telemetry"
)

// buildOracle selects an oracle.Client implementation from cfg.OracleProvider.
func buildOracle(ctx context.Context, cfg config.Config) (oracle.Client, error) {
	switch cfg.OracleProvider {
	case "", "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic_api_key is required for oracle_provider=anthropic")
		}
		return oracleanthropic.New(cfg.AnthropicAPIKey, anthropic.Model(cfg.AnthropicModel)), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai_api_key is required for oracle_provider=openai")
		}
		return oracleopenai.New(cfg.OpenAIAPIKey, openai.ChatModel(cfg.OpenAIModel)), nil
	case "bedrock":
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.BedrockRegion)}
		if cfg.BedrockAccessKeyID != "" && cfg.BedrockSecretAccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.BedrockAccessKeyID, cfg.BedrockSecretAccessKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return oraclebedrock.New(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), nil
	default:
		return nil, fmt.Errorf("unknown oracle_provider: %q", cfg.OracleProvider)
	}
}

// buildStore connects a Postgres-backed docstore.Store. Returns a close
// func the caller must invoke on shutdown.
func buildStore(ctx context.Context, cfg config.Config) (docstore.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		return nil, nil, fmt.Errorf("postgres_dsn is required")
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return pgstore.New(pool), func() { pool.Close() }, nil
}

func buildExecutorOptions(cfg config.Config) executor.Options {
	return executor.Options{
		MaxToolCalls:      cfg.MaxToolCalls,
		MaxIterations:     cfg.MaxIterations,
		MaxReprompts:      cfg.MaxReprompts,
		MaxQuestionLength: cfg.MaxQuestionLength,
		ToolRatePerSecond: cfg.ToolRatePerSecond,
		ToolRateBurst:     cfg.ToolRateBurst,
	}
}

func defaultLogger() telemetry.Logger {
	return telemetry.NewClueLogger()
}

// buildArchive connects a Redis-backed runstore.Store if cfg.RedisAddr is
// set. Archival is optional: a server with no Redis configured simply runs
// without post-hoc run inspection.
func buildArchive(cfg config.Config) runstore.Store {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return redisstore.New(client, cfg.RedisTTL)
}
