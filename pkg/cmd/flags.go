package cmd

import (
	"strings"
	"time"

	"github.com/fastorc/requestshub/pkg/audit"
	auditmongo "github.com/fastorc/requestshub/pkg/audit/mongo"
	"github.com/fastorc/requestshub/pkg/config"
	"github.com/fastorc/requestshub/pkg/lifecycle"
	cli "github.com/urfave/cli/v3"
)

// CommonFlags are shared by the worker and the API.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "temporal-address",
			Usage:   "Temporal frontend host:port",
			Value:   "localhost:7233",
			Sources: cli.EnvVars("TEMPORAL_ADDRESS"),
		},
		&cli.StringFlag{
			Name:    "temporal-namespace",
			Usage:   "Temporal namespace",
			Value:   "default",
			Sources: cli.EnvVars("TEMPORAL_NAMESPACE"),
		},
		&cli.StringFlag{
			Name:    "task-queue",
			Usage:   "Task queue shared by starters and workers",
			Value:   lifecycle.TaskQueue,
			Sources: cli.EnvVars("TASK_QUEUE"),
		},
		&cli.StringFlag{
			Name:    "audit-store-url",
			Usage:   "Audit document store connection string (mongodb://, redis://, memory://); empty disables auditing unless a Key Vault secret is configured",
			Sources: cli.EnvVars("AUDIT_STORE_URL", "COSMOS_CONN"),
		},
		&cli.StringFlag{
			Name:    "audit-database",
			Usage:   "Audit database name",
			Value:   auditmongo.DefaultDatabase,
			Sources: cli.EnvVars("COSMOS_DB"),
		},
		&cli.StringFlag{
			Name:    "audit-collection",
			Usage:   "Audit collection (container) name",
			Value:   auditmongo.DefaultCollection,
			Sources: cli.EnvVars("COSMOS_CONTAINER"),
		},
		&cli.StringFlag{
			Name:    "keyvault-url",
			Usage:   "Azure Key Vault URL holding the audit store connection string",
			Sources: cli.EnvVars("KEYVAULT_URL"),
		},
		&cli.StringFlag{
			Name:    "keyvault-secret",
			Usage:   "Name of the Key Vault secret holding the audit store connection string",
			Value:   "COSMOS_CONN",
			Sources: cli.EnvVars("KEYVAULT_COSMOS_SECRET"),
		},
		&cli.IntFlag{
			Name:    "audit-retries",
			Usage:   "Maximum audit write attempts",
			Value:   audit.DefaultMaxAttempts,
			Sources: cli.EnvVars("AUDIT_RETRIES"),
		},
		&cli.DurationFlag{
			Name:    "audit-backoff-base",
			Usage:   "Delay after the first failed audit write; doubles on each retry",
			Value:   audit.DefaultBackoffBase,
			Sources: cli.EnvVars("AUDIT_BACKOFF_BASE"),
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Optional YAML file with channel routes, policy overrides and audit schemas",
			Sources: cli.EnvVars("REQUESTSHUB_CONFIG"),
		},
		&cli.BoolFlag{
			Name:    "otel-enabled",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

// TemporalFromCommand reads the orchestration flags.
func TemporalFromCommand(command *cli.Command) TemporalOptions {
	return TemporalOptions{
		Address:   command.String("temporal-address"),
		Namespace: command.String("temporal-namespace"),
		TaskQueue: command.String("task-queue"),
	}
}

// AuditFromCommand reads the audit-store flags.
func AuditFromCommand(command *cli.Command) config.Audit {
	return config.Audit{
		ConnectionString: command.String("audit-store-url"),
		Database:         command.String("audit-database"),
		Collection:       command.String("audit-collection"),
		KeyVaultURL:      command.String("keyvault-url"),
		SecretName:       command.String("keyvault-secret"),
		MaxAttempts:      int(command.Int("audit-retries")),
		BackoffBase:      command.Duration("audit-backoff-base"),
	}
}

// SplitList splits a comma separated flag value, dropping blanks.
func SplitList(value string) []string {
	var out []string

	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// ShutdownTimeout bounds the graceful shutdown of the binaries.
const ShutdownTimeout = 10 * time.Second
