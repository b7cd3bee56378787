package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fastorc/requestshub/pkg/config"
	"github.com/fastorc/requestshub/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "requestshub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
routes:
  slack: ops-requests
  escalations: ops-pager
lifecycle:
  critical_timeout: 45s
  best_effort_attempts: 2
audit_schemas:
  reassigned:
    type: object
    required: [assignee]
    properties:
      assignee:
        type: string
`)

	file, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ops-requests", file.NotifyRoutes().Resolve(lifecycle.ChannelCreated))
	assert.Equal(t, "ops-pager", file.NotifyRoutes().Resolve(lifecycle.ChannelEscalations))

	policy := file.Policy()
	assert.Equal(t, 45*time.Second, policy.CriticalTimeout)
	assert.Equal(t, int32(2), policy.BestEffortAttempts)
	assert.Equal(t, lifecycle.DefaultPolicy().AuditTimeout, policy.AuditTimeout)
	assert.Equal(t, lifecycle.DefaultPolicy().CriticalAttempts, policy.CriticalAttempts)

	schemas, err := file.Schemas()
	require.NoError(t, err)
	assert.Error(t, schemas.Validate("reassigned", map[string]any{}))
	assert.NoError(t, schemas.Validate("reassigned", map[string]any{"assignee": "ops"}))
	assert.Error(t, schemas.Validate("created", map[string]any{}))
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	_, err := config.Load(writeConfig(t, "routes: [unterminated"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "lifecycle:\n  audit_timeout: -5s\n"))
	assert.ErrorContains(t, err, "audit_timeout")

	_, err = config.Load(writeConfig(t, "lifecycle:\n  critical_attempts: -1\n"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	file, err := config.LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.DefaultPolicy(), file.Policy())

	file, err = config.LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, file.Routes)
}

func TestSchemas_BrokenSchema(t *testing.T) {
	t.Parallel()

	file := config.File{AuditSchemas: map[string]map[string]any{
		"broken": {"type": 12},
	}}

	_, err := file.Schemas()
	assert.Error(t, err)
}
