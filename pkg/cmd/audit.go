package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fastorc/requestshub/pkg/audit"
	"github.com/fastorc/requestshub/pkg/audit/memory"
	auditmongo "github.com/fastorc/requestshub/pkg/audit/mongo"
	auditredis "github.com/fastorc/requestshub/pkg/audit/redis"
	"github.com/fastorc/requestshub/pkg/config"
	"github.com/fastorc/requestshub/pkg/secrets"
)

var supportedAuditProviders = map[string]string{
	"mongodb":     "mongodb",
	"mongodb+srv": "mongodb",
	"redis":       "redis",
	"rediss":      "redis",
	"memory":      "memory",
}

// ParseAuditProvider returns the store backend named by the scheme of a
// connection string, or "" when the scheme is unsupported.
func ParseAuditProvider(connectionString string) string {
	scheme, _, found := strings.Cut(connectionString, "://")
	if !found {
		return ""
	}

	return supportedAuditProviders[strings.ToLower(scheme)]
}

// AuditConnector opens the store matching the scheme of the connection
// string. The scheme is only known at connect time because the string may
// come from the secret store.
func AuditConnector(cfg config.Audit, logger *slog.Logger) audit.Connector {
	mongoConnect := auditmongo.Connector(cfg.Database, cfg.Collection, logger)

	return func(ctx context.Context, connectionString string) (audit.Store, error) {
		switch ParseAuditProvider(connectionString) {
		case "mongodb":
			return mongoConnect(ctx, connectionString)
		case "redis":
			return auditredis.Connect(ctx, connectionString)
		case "memory":
			return memory.Connect(ctx, connectionString)
		default:
			return nil, fmt.Errorf("unsupported audit store connection string scheme in %q", redact(connectionString))
		}
	}
}

// NewAuditClient builds the process-wide audit client. Nothing is connected
// until first use; a Key Vault that cannot be set up only disables the
// secret fallback.
func NewAuditClient(cfg config.Audit, schemas *audit.Schemas, logger *slog.Logger) *audit.Client {
	opts := []audit.Option{audit.WithLogger(logger.With("module", "audit"))}

	if schemas != nil {
		opts = append(opts, audit.WithSchemas(schemas))
	}

	if cfg.ConnectionString == "" && cfg.KeyVaultURL != "" {
		vault, err := secrets.NewKeyVault(cfg.KeyVaultURL)
		if err != nil {
			logger.Warn("Key Vault unavailable, audit store stays unconfigured",
				"action", "secret_fetch_failed", "vault", cfg.KeyVaultURL, "error", err)
		} else {
			opts = append(opts, audit.WithSecretResolver(vault))
		}
	}

	return audit.NewClient(audit.Config{
		ConnectionString: cfg.ConnectionString,
		SecretName:       cfg.SecretName,
		MaxAttempts:      cfg.MaxAttempts,
		BackoffBase:      cfg.BackoffBase,
	}, AuditConnector(cfg, logger), opts...)
}

func redact(connectionString string) string {
	scheme, rest, found := strings.Cut(connectionString, "://")
	if !found {
		return "***"
	}

	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***" + rest[at:]
	}

	return scheme + "://" + rest
}
