package main

import (
	"context"
	"os"

	"github.com/fastorc/requestshub/pkg/cmd"
	"github.com/fastorc/requestshub/pkg/log"
	"github.com/fastorc/requestshub/pkg/otelhelper"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	flags := append(cmd.CommonFlags(),
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Value:   "",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Request store URL (postgres:// or memory://); empty disables request lookups",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "notify-backend",
			Usage:   "Notification backend (log, gochannel, kafka, redis)",
			Value:   "log",
			Sources: cli.EnvVars("NOTIFY_BACKEND"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL used by the redis notifier and intake",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "intake",
			Usage:   "Source of request creation events (none, redis, kafka)",
			Value:   "none",
			Sources: cli.EnvVars("INTAKE"),
		},
		&cli.StringFlag{
			Name:    "intake-queue",
			Usage:   "Redis list or Kafka topic carrying creation events",
			Sources: cli.EnvVars("INTAKE_QUEUE"),
		},
	)

	cmd := &cli.Command{
		Name:                  "requestshub-worker",
		EnableShellCompletion: true,
		Usage:                 "Run request lifecycles and their activities",
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("requestshub-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing requestshub worker")

			if command.Bool("otel-enabled") {
				tp, err := otelhelper.InitTracer(ctx, "requestshub-worker")
				if err != nil {
					return err
				}

				defer func() {
					if err := tp.Shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
					}
				}()
			}

			manager, err := NewWorkerManager(ctx, workerID, Options{
				Temporal:      cmd.TemporalFromCommand(command),
				Audit:         cmd.AuditFromCommand(command),
				ConfigFile:    command.String("config"),
				DatabaseURL:   command.String("database-url"),
				NotifyBackend: command.String("notify-backend"),
				KafkaBrokers:  cmd.SplitList(command.String("kafka-brokers")),
				RedisURL:      command.String("redis-url"),
				Intake:        command.String("intake"),
				IntakeQueue:   command.String("intake-queue"),
			}, logger)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to initialize worker", "error", err)

				return err
			}

			defer manager.Close()

			err = manager.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to run worker", "error", err)
			}

			return err
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
