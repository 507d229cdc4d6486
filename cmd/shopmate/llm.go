package main

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate"
	"github.com/m-mizutani/shopmate/llm/claude"
	"github.com/m-mizutani/shopmate/llm/gemini"
	"github.com/m-mizutani/shopmate/llm/openai"
	"github.com/urfave/cli/v3"
)

func llmFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "llm",
			Value:   "openai",
			Sources: cli.EnvVars("SHOPMATE_LLM"),
			Usage:   "LLM provider (openai, claude, gemini)",
		},
		&cli.StringFlag{
			Name:    "model",
			Sources: cli.EnvVars("SHOPMATE_MODEL"),
			Usage:   "Model name, provider default if empty",
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Sources: cli.EnvVars("SHOPMATE_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Usage:   "OpenAI API key",
		},
		&cli.StringFlag{
			Name:    "openai-base-url",
			Sources: cli.EnvVars("SHOPMATE_OPENAI_BASE_URL"),
			Usage:   "OpenAI compatible API endpoint",
		},
		&cli.StringFlag{
			Name:    "anthropic-api-key",
			Sources: cli.EnvVars("SHOPMATE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"),
			Usage:   "Anthropic API key",
		},
		&cli.StringFlag{
			Name:    "gcp-project",
			Sources: cli.EnvVars("SHOPMATE_GCP_PROJECT"),
			Usage:   "Google Cloud project for Gemini",
		},
		&cli.StringFlag{
			Name:    "gcp-location",
			Value:   "us-central1",
			Sources: cli.EnvVars("SHOPMATE_GCP_LOCATION"),
			Usage:   "Google Cloud location for Gemini",
		},
		&cli.StringFlag{
			Name:    "gcp-credentials",
			Sources: cli.EnvVars("SHOPMATE_GCP_CREDENTIALS"),
			Usage:   "Service account key file for Gemini",
		},
	}
}

// newLLMClient builds the client chosen by --llm. The returned function
// releases it.
func newLLMClient(ctx context.Context, cmd *cli.Command) (shopmate.LLMClient, func(), error) {
	model := cmd.String("model")
	nop := func() {}

	switch provider := cmd.String("llm"); provider {
	case "openai":
		var options []openai.Option
		if model != "" {
			options = append(options, openai.WithModel(model))
		}
		if baseURL := cmd.String("openai-base-url"); baseURL != "" {
			options = append(options, openai.WithBaseURL(baseURL))
		}
		client, err := openai.New(ctx, cmd.String("openai-api-key"), options...)
		if err != nil {
			return nil, nil, err
		}
		return client, nop, nil

	case "claude":
		var options []claude.Option
		if model != "" {
			options = append(options, claude.WithModel(model))
		}
		client, err := claude.New(ctx, cmd.String("anthropic-api-key"), options...)
		if err != nil {
			return nil, nil, err
		}
		return client, nop, nil

	case "gemini":
		var options []gemini.Option
		if model != "" {
			options = append(options, gemini.WithModel(model))
		}
		if path := cmd.String("gcp-credentials"); path != "" {
			options = append(options, gemini.WithCredentialsFile(path))
		}
		client, err := gemini.New(ctx, cmd.String("gcp-project"), cmd.String("gcp-location"), options...)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil

	default:
		return nil, nil, goerr.New("unknown LLM provider", goerr.V("llm", provider))
	}
}
