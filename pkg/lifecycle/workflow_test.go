package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fastorc/requestshub/pkg/audit"
	"github.com/fastorc/requestshub/pkg/lifecycle"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type LifecycleWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment

	mu     sync.Mutex
	calls  []string
	timers []time.Duration
	audits []audit.WriteRequest
}

func TestLifecycleWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(LifecycleWorkflowTestSuite))
}

func (s *LifecycleWorkflowTestSuite) SetupTest() {
	s.calls = nil
	s.timers = nil
	s.audits = nil

	s.env = s.NewTestWorkflowEnvironment()
	lifecycle.Register(s.env, lifecycle.NewLifecycle(lifecycle.DefaultPolicy()), &lifecycle.Activities{})

	s.env.SetOnTimerScheduledListener(func(_ string, d time.Duration) {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.timers = append(s.timers, d)
	})
}

func (s *LifecycleWorkflowTestSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func (s *LifecycleWorkflowTestSuite) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, call)
}

func (s *LifecycleWorkflowTestSuite) mockValidate(err error) {
	s.env.OnActivity(lifecycle.ValidateActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, requestID string) error {
			s.record("validate:" + requestID)

			return err
		})
}

func (s *LifecycleWorkflowTestSuite) mockNotify(err error) {
	s.env.OnActivity(lifecycle.NotifyActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in lifecycle.NotifyInput) error {
			s.record("notify:" + in.Channel)

			return err
		})
}

func (s *LifecycleWorkflowTestSuite) mockAudit(ok bool) {
	s.env.OnActivity(lifecycle.AuditActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, req audit.WriteRequest) (audit.Result, error) {
			s.record("audit:" + string(req.EventType))

			s.mu.Lock()
			s.audits = append(s.audits, req)
			s.mu.Unlock()

			if !ok {
				return audit.Result{OK: false, Reason: "503 service unavailable"}, nil
			}

			return audit.Result{OK: true, ID: req.RunID + "-" + string(req.EventType)}, nil
		})
}

func (s *LifecycleWorkflowTestSuite) mockCheckStatus(stillOpen bool) {
	s.env.OnActivity(lifecycle.CheckStatusActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, requestID string) (bool, error) {
			s.record("check:" + requestID)

			return stillOpen, nil
		})
}

func (s *LifecycleWorkflowTestSuite) mockEscalate(err error) {
	s.env.OnActivity(lifecycle.EscalateActivity, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in lifecycle.EscalateInput) error {
			s.record("escalate:" + in.RequestID)

			return err
		})
}

func (s *LifecycleWorkflowTestSuite) result() *lifecycle.LifecycleResult {
	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var result lifecycle.LifecycleResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))

	return &result
}

func (s *LifecycleWorkflowTestSuite) Test_ZeroSLA_ClosedRequest() {
	s.mockValidate(nil)
	s.mockNotify(nil)
	s.mockAudit(true)
	s.mockCheckStatus(false)

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, lifecycle.NewInput("42", 0))

	result := s.result()
	s.Equal([]string{"validate:42", "notify:slack", "audit:created", "check:42"}, s.calls)
	s.Empty(s.timers)
	s.Equal(lifecycle.PhaseCompleted, result.Phase)
	s.False(result.StillOpen)
	s.False(result.Escalated)
	s.Empty(result.EscalatedAuditID)

	s.Require().Len(s.audits, 1)
	created := s.audits[0]
	s.Equal("42", created.RequestID)
	s.NotEmpty(created.WorkflowID)
	s.NotEmpty(created.RunID)
	s.EqualValues(0, created.Payload["slaMinutes"])
	s.False(created.OccurredAt.IsZero())
	s.Equal(created.RunID+"-created", result.CreatedAuditID)
}

func (s *LifecycleWorkflowTestSuite) Test_OneMinuteSLA_OpenRequestEscalates() {
	s.mockValidate(nil)
	s.mockNotify(nil)
	s.mockAudit(true)
	s.mockCheckStatus(true)
	s.mockEscalate(nil)

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, lifecycle.NewInput("7", 1))

	result := s.result()
	s.Equal([]string{
		"validate:7", "notify:slack", "audit:created", "check:7", "escalate:7", "audit:escalated",
	}, s.calls)
	s.Equal([]time.Duration{60 * time.Second}, s.timers)
	s.True(result.StillOpen)
	s.True(result.Escalated)
	s.Equal(lifecycle.PhaseCompleted, result.Phase)

	s.Require().Len(s.audits, 2)
	s.Equal(s.audits[0].RunID, s.audits[1].RunID)
	s.Equal(lifecycle.EscalationReasonSLA, s.audits[1].Payload["reason"])
	s.False(s.audits[1].OccurredAt.Before(s.audits[0].OccurredAt.Add(time.Minute)))
}

func (s *LifecycleWorkflowTestSuite) Test_TimerLengthFollowsSLA() {
	s.mockValidate(nil)
	s.mockNotify(nil)
	s.mockAudit(true)
	s.mockCheckStatus(false)

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, lifecycle.NewInput("9", 45))

	s.result()
	s.Equal([]time.Duration{45 * time.Minute}, s.timers)
}

func (s *LifecycleWorkflowTestSuite) Test_OversizedSLAWaitsTheMaximum() {
	s.mockValidate(nil)
	s.mockNotify(nil)
	s.mockAudit(true)
	s.mockCheckStatus(true)
	s.mockEscalate(nil)

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, map[string]any{"requestId": "7", "slaMinutes": 200_000_000})

	result := s.result()
	s.True(result.Escalated)
	s.Equal([]time.Duration{lifecycle.MaxSLAMinutes * time.Minute}, s.timers)
	s.Equal([]string{"validate:7", "notify:slack", "audit:created", "check:7", "escalate:7", "audit:escalated"}, s.calls)
}

func (s *LifecycleWorkflowTestSuite) Test_PhaseQueryWhileAwaitingSLA() {
	s.mockValidate(nil)
	s.mockNotify(nil)
	s.mockAudit(true)
	s.mockCheckStatus(false)

	var during lifecycle.Phase

	s.env.RegisterDelayedCallback(func() {
		value, err := s.env.QueryWorkflow(lifecycle.PhaseQuery)
		s.Require().NoError(err)
		s.Require().NoError(value.Get(&during))
	}, 30*time.Second)

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, lifecycle.NewInput("7", 1))

	s.result()
	s.Equal(lifecycle.PhaseAwaitingSla, during)

	value, err := s.env.QueryWorkflow(lifecycle.PhaseQuery)
	s.Require().NoError(err)

	var final lifecycle.Phase
	s.Require().NoError(value.Get(&final))
	s.Equal(lifecycle.PhaseCompleted, final)
}

func (s *LifecycleWorkflowTestSuite) Test_ValidationFailureAbortsRun() {
	s.mockValidate(temporal.NewNonRetryableApplicationError("request not found", "RequestNotFound", nil))

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, lifecycle.NewInput("404", 0))

	s.True(s.env.IsWorkflowCompleted())

	err := s.env.GetWorkflowError()
	s.Require().Error(err)

	var appErr *temporal.ApplicationError
	s.Require().ErrorAs(err, &appErr)
	s.Equal("RequestNotFound", appErr.Type())
	s.Equal([]string{"validate:404"}, s.calls)
}

func (s *LifecycleWorkflowTestSuite) Test_InvalidInputFailsWithoutActivities() {
	s.env.ExecuteWorkflow(lifecycle.WorkflowName, lifecycle.LifecycleInput{SLAMinutes: 5})

	s.True(s.env.IsWorkflowCompleted())
	s.True(lifecycle.IsInvalidInput(s.env.GetWorkflowError()))
	s.Empty(s.calls)
}

func (s *LifecycleWorkflowTestSuite) Test_PositionalInputIsAccepted() {
	s.mockValidate(nil)
	s.mockNotify(nil)
	s.mockAudit(true)
	s.mockCheckStatus(false)

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, []any{"7", 1})

	result := s.result()
	s.Equal("7", result.RequestID)
	s.Equal([]time.Duration{time.Minute}, s.timers)
}

func (s *LifecycleWorkflowTestSuite) Test_NotifyFailureIsBestEffort() {
	s.mockValidate(nil)
	s.mockNotify(errors.New("slack unavailable"))
	s.mockAudit(true)
	s.mockCheckStatus(false)

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, lifecycle.NewInput("42", 0))

	s.result()
	s.Equal([]string{
		"validate:42", "notify:slack", "notify:slack", "notify:slack", "audit:created", "check:42",
	}, s.calls)
}

func (s *LifecycleWorkflowTestSuite) Test_AuditFailureIsBestEffort() {
	s.mockValidate(nil)
	s.mockNotify(nil)
	s.mockAudit(false)
	s.mockCheckStatus(true)
	s.mockEscalate(nil)

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, lifecycle.NewInput("7", 0))

	result := s.result()
	s.True(result.Escalated)
	s.Empty(result.CreatedAuditID)
	s.Empty(result.EscalatedAuditID)
	s.Contains(s.calls, "audit:escalated")
}

func (s *LifecycleWorkflowTestSuite) Test_EscalationFailureAbortsRun() {
	s.mockValidate(nil)
	s.mockNotify(nil)
	s.mockAudit(true)
	s.mockCheckStatus(true)
	s.mockEscalate(temporal.NewNonRetryableApplicationError("request not found", "RequestNotFound", nil))

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, lifecycle.NewInput("7", 0))

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
	s.NotContains(s.calls, "audit:escalated")
}

func (s *LifecycleWorkflowTestSuite) Test_CancelDuringSLA() {
	s.mockValidate(nil)
	s.mockNotify(nil)
	s.mockAudit(true)

	s.env.RegisterDelayedCallback(s.env.CancelWorkflow, 10*time.Minute)

	s.env.ExecuteWorkflow(lifecycle.WorkflowName, lifecycle.NewInput("7", 60))

	s.True(s.env.IsWorkflowCompleted())

	var canceled *temporal.CanceledError
	s.ErrorAs(s.env.GetWorkflowError(), &canceled)
	s.NotContains(s.calls, "check:7")
}
