package main

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/m-mizutani/shopmate"
	"github.com/m-mizutani/shopmate/internal/assistant"
	"github.com/m-mizutani/shopmate/internal/server"
	"github.com/urfave/cli/v3"
)

func assistantFlags() []cli.Flag {
	flags := slices.Concat(llmFlags(), backendFlags())
	return append(flags,
		ttlFlag(),
		&cli.IntFlag{
			Name:    "loop-limit",
			Value:   32,
			Sources: cli.EnvVars("SHOPMATE_LOOP_LIMIT"),
			Usage:   "Maximum LLM round trips per user message",
		},
	)
}

// newAssistant wires the LLM and both backends. The returned function
// releases everything.
func newAssistant(ctx context.Context, cmd *cli.Command, logger *slog.Logger) (*assistant.Assistant, func(), error) {
	llm, closeLLM, err := newLLMClient(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	shop, pay, closeBackends, err := newBackends(ctx, cmd, logger)
	if err != nil {
		closeLLM()
		return nil, nil, err
	}

	a := assistant.New(llm, shop, pay,
		assistant.WithLogger(logger),
		assistant.WithConversationTTL(cmd.Duration("conversation-ttl")),
		assistant.WithAgentOptions(shopmate.WithLoopLimit(int(cmd.Int("loop-limit")))),
	)
	return a, func() { closeBackends(); closeLLM() }, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the chat HTTP API",
		Flags: append(assistantFlags(),
			&cli.StringFlag{
				Name:    "addr",
				Value:   server.DefaultAddr,
				Sources: cli.EnvVars("SHOPMATE_ADDR"),
				Usage:   "Server listen address",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, release, err := newAssistant(ctx, cmd, slog.Default())
			if err != nil {
				return err
			}
			defer release()

			go a.RunEvictor(ctx, time.Minute)

			s := server.New(a,
				server.WithAddr(cmd.String("addr")),
				server.WithLogger(slog.Default()),
			)
			return s.Start(ctx)
		},
	}
}
