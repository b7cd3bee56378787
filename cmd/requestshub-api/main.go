package main

import (
	"context"
	"os"

	"github.com/fastorc/requestshub/pkg/cmd"
	"github.com/fastorc/requestshub/pkg/config"
	"github.com/fastorc/requestshub/pkg/lifecycle"
	"github.com/fastorc/requestshub/pkg/log"
	"github.com/fastorc/requestshub/pkg/otelhelper"
	"github.com/fastorc/requestshub/pkg/web"
	cli "github.com/urfave/cli/v3"
	"go.temporal.io/sdk/client"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	flags := append(cmd.CommonFlags(),
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
	)

	cmd := &cli.Command{
		Name:                  "requestshub-api",
		Usage:                 "Start request lifecycles and read their audit trail",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing requestshub API")

			if command.Bool("otel-enabled") {
				tp, err := otelhelper.InitTracer(ctx, "requestshub-api")
				if err != nil {
					return err
				}

				defer func() {
					if err := tp.Shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
					}
				}()
			}

			file, err := config.LoadOrDefault(command.String("config"))
			if err != nil {
				return err
			}

			schemas, err := file.Schemas()
			if err != nil {
				return err
			}

			temporalOpts := cmd.TemporalFromCommand(command)

			temporalClient, err := cmd.NewTemporalClient(ctx, temporalOpts, logger)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			auditClient := cmd.NewAuditClient(cmd.AuditFromCommand(command), schemas, logger)
			defer func() {
				if err := auditClient.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close audit store", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				lifecycle.NewStarter(temporalClient, temporalOpts.TaskQueueOrDefault(), logger),
				auditClient,
				map[string]web.HealthCheck{
					"temporal": func(ctx context.Context) error {
						_, err := temporalClient.CheckHealth(ctx, &client.CheckHealthRequest{})

						return err
					},
				},
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return err
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
