package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

// ErrRunNotFound indicates no lifecycle run exists for a request.
var ErrRunNotFound = errors.New("lifecycle run not found")

// WorkflowClient is the part of client.Client used to start and inspect runs.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error)
	GetWorkflow(ctx context.Context, workflowID string, runID string) client.WorkflowRun
	DescribeWorkflowExecution(ctx context.Context, workflowID, runID string) (*workflowservice.DescribeWorkflowExecutionResponse, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...any) (converter.EncodedValue, error)
}

// StartResult identifies the run handling a request.
type StartResult struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
	// AlreadyStarted is set when the start attached to a run in progress.
	AlreadyStarted bool `json:"alreadyStarted"`
}

// RunStatus describes a lifecycle run as seen from outside.
type RunStatus struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
	Status     string `json:"status"`
	Phase      Phase  `json:"phase,omitempty"`
}

// Starter starts lifecycle runs. At most one run per request is in progress.
type Starter struct {
	client    WorkflowClient
	taskQueue string
	logger    *slog.Logger
}

func NewStarter(c WorkflowClient, taskQueue string, logger *slog.Logger) *Starter {
	if taskQueue == "" {
		taskQueue = TaskQueue
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Starter{client: c, taskQueue: taskQueue, logger: logger.With("module", "lifecycle_starter")}
}

// Start begins the lifecycle of requestID. A start for a request whose run is
// still in progress attaches to that run instead of creating another.
func (s *Starter) Start(ctx context.Context, requestID string, slaMinutes int) (StartResult, error) {
	in := NewInput(requestID, slaMinutes)
	if err := in.Validate(); err != nil {
		return StartResult{}, err
	}

	workflowID := WorkflowID(requestID)

	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                                       workflowID,
		TaskQueue:                                s.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		// A finished lifecycle does not block a new one for the same request;
		// only a run in progress does.
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_FAIL,
	}, WorkflowName, in)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) {
			return StartResult{}, fmt.Errorf("failed to start lifecycle of %s: %w", requestID, err)
		}

		existing := s.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)

		s.logger.InfoContext(ctx, "Lifecycle already running",
			"requestId", requestID, "workflowId", workflowID, "runId", existing.GetRunID())

		return StartResult{WorkflowID: workflowID, RunID: existing.GetRunID(), AlreadyStarted: true}, nil
	}

	s.logger.InfoContext(ctx, "Lifecycle started",
		"requestId", requestID, "workflowId", run.GetID(), "runId", run.GetRunID(), "slaMinutes", in.SLAMinutes)

	return StartResult{WorkflowID: run.GetID(), RunID: run.GetRunID()}, nil
}

// Status returns the latest run of requestID with its current phase. The
// phase is left empty when the run cannot answer queries.
func (s *Starter) Status(ctx context.Context, requestID string) (*RunStatus, error) {
	workflowID := WorkflowID(requestID)

	desc, err := s.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, requestID)
		}

		return nil, fmt.Errorf("failed to describe lifecycle of %s: %w", requestID, err)
	}

	info := desc.GetWorkflowExecutionInfo()
	status := &RunStatus{
		WorkflowID: workflowID,
		RunID:      info.GetExecution().GetRunId(),
		Status:     info.GetStatus().String(),
	}

	value, err := s.client.QueryWorkflow(ctx, workflowID, status.RunID, PhaseQuery)
	if err != nil {
		s.logger.WarnContext(ctx, "Phase query failed", "workflowId", workflowID, "error", err)

		return status, nil
	}

	if err := value.Get(&status.Phase); err != nil {
		s.logger.WarnContext(ctx, "Phase query returned an unreadable value", "workflowId", workflowID, "error", err)
	}

	return status, nil
}
