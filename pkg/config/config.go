// Package config loads the optional YAML file tuning the lifecycle: channel
// routes, activity policy overrides and extra audit payload schemas.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/fastorc/requestshub/pkg/audit"
	"github.com/fastorc/requestshub/pkg/lifecycle"
	"github.com/fastorc/requestshub/pkg/notify"
	"gopkg.in/yaml.v3"
)

// File is the structure of requestshub.yaml.
type File struct {
	// Routes maps logical channels (slack, escalations) to destinations.
	Routes       map[string]string         `yaml:"routes"`
	Lifecycle    LifecycleFile             `yaml:"lifecycle"`
	AuditSchemas map[string]map[string]any `yaml:"audit_schemas"`
}

// LifecycleFile overrides fields of lifecycle.DefaultPolicy. Zero values keep
// the default.
type LifecycleFile struct {
	CriticalTimeout    time.Duration `yaml:"critical_timeout"`
	NotifyTimeout      time.Duration `yaml:"notify_timeout"`
	AuditTimeout       time.Duration `yaml:"audit_timeout"`
	CriticalAttempts   int32         `yaml:"critical_attempts"`
	BestEffortAttempts int32         `yaml:"best_effort_attempts"`
	RetryInitial       time.Duration `yaml:"retry_initial"`
}

// Audit groups the audit-store settings read from the environment.
type Audit struct {
	ConnectionString string
	Database         string
	Collection       string
	KeyVaultURL      string
	SecretName       string
	MaxAttempts      int
	BackoffBase      time.Duration
}

// Load reads and validates the file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := file.Validate(); err != nil {
		return File{}, err
	}

	return file, nil
}

// LoadOrDefault is Load, except that an empty path or a missing file yields
// the zero File.
func LoadOrDefault(path string) (File, error) {
	if path == "" {
		return File{}, nil
	}

	file, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return File{}, nil
	}

	return file, err
}

// Validate rejects negative overrides.
func (f File) Validate() error {
	lc := f.Lifecycle

	for name, d := range map[string]time.Duration{
		"critical_timeout": lc.CriticalTimeout,
		"notify_timeout":   lc.NotifyTimeout,
		"audit_timeout":    lc.AuditTimeout,
		"retry_initial":    lc.RetryInitial,
	} {
		if d < 0 {
			return fmt.Errorf("lifecycle.%s must not be negative", name)
		}
	}

	if lc.CriticalAttempts < 0 || lc.BestEffortAttempts < 0 {
		return errors.New("lifecycle attempts must not be negative")
	}

	for eventType := range f.AuditSchemas {
		if eventType == "" {
			return errors.New("audit_schemas contains an empty event type")
		}
	}

	return nil
}

// Policy returns lifecycle.DefaultPolicy with the file's overrides applied.
func (f File) Policy() lifecycle.Policy {
	p := lifecycle.DefaultPolicy()
	lc := f.Lifecycle

	if lc.CriticalTimeout > 0 {
		p.CriticalTimeout = lc.CriticalTimeout
	}

	if lc.NotifyTimeout > 0 {
		p.NotifyTimeout = lc.NotifyTimeout
	}

	if lc.AuditTimeout > 0 {
		p.AuditTimeout = lc.AuditTimeout
	}

	if lc.CriticalAttempts > 0 {
		p.CriticalAttempts = lc.CriticalAttempts
	}

	if lc.BestEffortAttempts > 0 {
		p.BestEffortAttempts = lc.BestEffortAttempts
	}

	if lc.RetryInitial > 0 {
		p.RetryInitial = lc.RetryInitial
	}

	return p
}

// NotifyRoutes returns the configured channel routes.
func (f File) NotifyRoutes() notify.Routes {
	return notify.Routes(f.Routes)
}

// Schemas returns the built-in audit schemas extended with the file's.
func (f File) Schemas() (*audit.Schemas, error) {
	schemas := audit.NewSchemas()

	for eventType, schema := range f.AuditSchemas {
		if err := schemas.Register(audit.EventType(eventType), schema); err != nil {
			return nil, fmt.Errorf("invalid audit schema for %q: %w", eventType, err)
		}
	}

	return schemas, nil
}
