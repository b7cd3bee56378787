package lifecycle_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fastorc/requestshub/pkg/lifecycle"
	"github.com/fastorc/requestshub/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	workflowpb "go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
)

type phaseValue struct {
	phase lifecycle.Phase
}

func (v phaseValue) HasValue() bool { return true }

func (v phaseValue) Get(valuePtr any) error {
	raw, err := json.Marshal(v.phase)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, valuePtr)
}

func startOptions(workflowID string) any {
	return mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
		return opts.ID == workflowID &&
			opts.TaskQueue == lifecycle.TaskQueue &&
			opts.WorkflowExecutionErrorWhenAlreadyStarted &&
			opts.WorkflowIDReusePolicy == enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE &&
			opts.WorkflowIDConflictPolicy == enumspb.WORKFLOW_ID_CONFLICT_POLICY_FAIL
	})
}

func TestStarter_Start(t *testing.T) {
	t.Parallel()

	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("request-42")
	run.On("GetRunID").Return("run-1")

	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, startOptions("request-42"), lifecycle.WorkflowName, lifecycle.NewInput("42", 5)).
		Return(run, nil).Once()

	starter := lifecycle.NewStarter(c, "", log.Discard())

	result, err := starter.Start(context.Background(), "42", 5)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StartResult{WorkflowID: "request-42", RunID: "run-1"}, result)
	c.AssertExpectations(t)
}

func TestStarter_Start_DuplicateAttaches(t *testing.T) {
	t.Parallel()

	existing := &mocks.WorkflowRun{}
	existing.On("GetRunID").Return("run-0")

	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, startOptions("request-42"), lifecycle.WorkflowName, mock.Anything).
		Return(nil, serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "req-0", "run-0")).Once()
	c.On("GetWorkflow", mock.Anything, "request-42", "run-0").Return(existing).Once()

	starter := lifecycle.NewStarter(c, lifecycle.TaskQueue, log.Discard())

	result, err := starter.Start(context.Background(), "42", 0)
	require.NoError(t, err)
	assert.True(t, result.AlreadyStarted)
	assert.Equal(t, "run-0", result.RunID)
	assert.Equal(t, "request-42", result.WorkflowID)
	c.AssertExpectations(t)
}

func TestStarter_Start_Errors(t *testing.T) {
	t.Parallel()

	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, lifecycle.WorkflowName, mock.Anything).
		Return(nil, errors.New("connection refused")).Once()

	starter := lifecycle.NewStarter(c, "", log.Discard())

	_, err := starter.Start(context.Background(), "42", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = starter.Start(context.Background(), "", 0)
	assert.ErrorIs(t, err, lifecycle.ErrMissingRequestID)

	_, err = starter.Start(context.Background(), "7", 200_000_000)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidSLA)

	c.AssertNumberOfCalls(t, "ExecuteWorkflow", 1)
}

func TestStarter_Status(t *testing.T) {
	t.Parallel()

	c := &mocks.Client{}
	c.On("DescribeWorkflowExecution", mock.Anything, "request-7", "").Return(&workflowservice.DescribeWorkflowExecutionResponse{
		WorkflowExecutionInfo: &workflowpb.WorkflowExecutionInfo{
			Execution: &commonpb.WorkflowExecution{WorkflowId: "request-7", RunId: "run-7"},
			Status:    enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING,
		},
	}, nil).Once()
	c.On("QueryWorkflow", mock.Anything, "request-7", "run-7", lifecycle.PhaseQuery).
		Return(phaseValue{phase: lifecycle.PhaseAwaitingSla}, nil).Once()

	starter := lifecycle.NewStarter(c, "", log.Discard())

	status, err := starter.Status(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, &lifecycle.RunStatus{
		WorkflowID: "request-7",
		RunID:      "run-7",
		Status:     enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING.String(),
		Phase:      lifecycle.PhaseAwaitingSla,
	}, status)
	c.AssertExpectations(t)
}

func TestStarter_Status_QueryFailureKeepsDescription(t *testing.T) {
	t.Parallel()

	c := &mocks.Client{}
	c.On("DescribeWorkflowExecution", mock.Anything, "request-7", "").Return(&workflowservice.DescribeWorkflowExecutionResponse{
		WorkflowExecutionInfo: &workflowpb.WorkflowExecutionInfo{
			Execution: &commonpb.WorkflowExecution{WorkflowId: "request-7", RunId: "run-7"},
			Status:    enumspb.WORKFLOW_EXECUTION_STATUS_FAILED,
		},
	}, nil).Once()
	c.On("QueryWorkflow", mock.Anything, "request-7", "run-7", lifecycle.PhaseQuery).
		Return(nil, errors.New("no pollers")).Once()

	starter := lifecycle.NewStarter(c, "", log.Discard())

	status, err := starter.Status(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, enumspb.WORKFLOW_EXECUTION_STATUS_FAILED.String(), status.Status)
	assert.Empty(t, status.Phase)
}

func TestStarter_Status_NotFound(t *testing.T) {
	t.Parallel()

	c := &mocks.Client{}
	c.On("DescribeWorkflowExecution", mock.Anything, "request-9", "").
		Return(nil, serviceerror.NewNotFound("workflow not found")).Once()

	starter := lifecycle.NewStarter(c, "", log.Discard())

	_, err := starter.Status(context.Background(), "9")
	assert.ErrorIs(t, err, lifecycle.ErrRunNotFound)
}
