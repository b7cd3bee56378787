package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastorc/requestshub/pkg/audit"
	"github.com/fastorc/requestshub/pkg/cmd"
	"github.com/fastorc/requestshub/pkg/config"
	"github.com/fastorc/requestshub/pkg/intake"
	"github.com/fastorc/requestshub/pkg/lifecycle"
	"github.com/fastorc/requestshub/pkg/notify"
	"github.com/fastorc/requestshub/pkg/requests"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// Options collects the worker settings read from flags.
type Options struct {
	Temporal      cmd.TemporalOptions
	Audit         config.Audit
	ConfigFile    string
	DatabaseURL   string
	NotifyBackend string
	KafkaBrokers  []string
	RedisURL      string
	Intake        string
	IntakeQueue   string
}

type WorkerManager struct {
	id       string
	logger   *slog.Logger
	client   client.Client
	worker   worker.Worker
	repo     requests.Repository
	notifier notify.Notifier
	audit    *audit.Client
	intake   cmd.Runner
}

// NewWorkerManager connects every dependency and registers the lifecycle.
// Partially built dependencies are released when a later step fails.
func NewWorkerManager(ctx context.Context, id string, opts Options, logger *slog.Logger) (_ *WorkerManager, err error) {
	w := &WorkerManager{
		id:     id,
		logger: logger.With("module", "requestshub-worker"),
	}

	defer func() {
		if err != nil {
			w.Close()
		}
	}()

	file, err := config.LoadOrDefault(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	schemas, err := file.Schemas()
	if err != nil {
		return nil, err
	}

	w.repo, err = cmd.NewRequestRepository(ctx, opts.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open request store: %w", err)
	}

	w.notifier, err = cmd.NewNotifier(cmd.NotifierOptions{
		Backend:      opts.NotifyBackend,
		KafkaBrokers: opts.KafkaBrokers,
		RedisURL:     opts.RedisURL,
		Routes:       file.NotifyRoutes(),
	}, logger)
	if err != nil {
		return nil, err
	}

	w.audit = cmd.NewAuditClient(opts.Audit, schemas, logger)

	w.client, err = cmd.NewTemporalClient(ctx, opts.Temporal, logger)
	if err != nil {
		return nil, err
	}

	taskQueue := opts.Temporal.TaskQueueOrDefault()

	w.worker = worker.New(w.client, taskQueue, worker.Options{Identity: id})

	lifecycle.Register(
		w.worker,
		lifecycle.NewLifecycle(file.Policy()),
		lifecycle.NewActivities(w.repo, w.notifier, w.audit, logger),
	)

	starter := lifecycle.NewStarter(w.client, taskQueue, logger)

	w.intake, err = cmd.NewIntake(cmd.IntakeOptions{
		Kind:         opts.Intake,
		Queue:        opts.IntakeQueue,
		RedisURL:     opts.RedisURL,
		KafkaBrokers: opts.KafkaBrokers,
	}, intake.StartHandler(starter, logger), logger)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// Start polls the task queue until SIGINT or SIGTERM.
func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "worker_id", w.id)

	if err := w.worker.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	defer w.worker.Stop()

	if w.intake != nil {
		if err := w.intake.Start(ctx); err != nil {
			return fmt.Errorf("failed to start intake: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker...")

	if w.intake != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), cmd.ShutdownTimeout)
		defer cancel()

		if err := w.intake.Stop(stopCtx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to stop intake", "error", err)
		}

		w.intake = nil
	}

	return nil
}

// Close releases every dependency that was opened.
func (w *WorkerManager) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), cmd.ShutdownTimeout)
	defer cancel()

	var errs []error

	if w.intake != nil {
		errs = append(errs, w.intake.Stop(ctx))
	}

	if w.client != nil {
		w.client.Close()
	}

	if w.audit != nil {
		errs = append(errs, w.audit.Close(ctx))
	}

	if w.notifier != nil {
		errs = append(errs, w.notifier.Close())
	}

	if w.repo != nil {
		errs = append(errs, w.repo.Close())
	}

	if err := errors.Join(errs...); err != nil {
		w.logger.Error("Failed to release worker dependencies", "error", err)
	}
}
