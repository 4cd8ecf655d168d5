package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rentals/internal/setup"
	"github.com/odyssey-erp/odyssey-rentals/jobs"
)

type stubProvisioner struct {
	report setup.Report
}

func (s stubProvisioner) Run(context.Context) setup.Report { return s.report }

type stubQueue struct {
	triggered string
	window    int
	closed    bool
}

func (q *stubQueue) Trigger(_ context.Context, name string, windowDays int) (*asynq.TaskInfo, error) {
	if _, err := jobs.NewTaskByName(name, windowDays); err != nil {
		return nil, err
	}
	q.triggered, q.window = name, windowDays
	return &asynq.TaskInfo{ID: "t-1", Type: name, Queue: jobs.QueueDefault}, nil
}

func (q *stubQueue) InspectQueue(context.Context) (QueueStats, error) {
	return QueueStats{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}, nil
}

func (q *stubQueue) Close() error {
	q.closed = true
	return nil
}

type stubRuntime struct {
	report     setup.Report
	withSample bool
	queue      *stubQueue
}

func (r *stubRuntime) Provisioner(_ context.Context, withSample bool) (Provisioner, func(), error) {
	r.withSample = withSample
	return stubProvisioner{report: r.report}, func() {}, nil
}

func (r *stubRuntime) Jobs(context.Context) (JobQueue, error) { return r.queue, nil }

func run(t *testing.T, rt Runtime, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(rt)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetupPrintsReportAndAdminKey(t *testing.T) {
	rt := &stubRuntime{report: setup.Report{
		Steps: []setup.StepResult{
			{Step: "role Property Manager", Outcome: setup.OutcomeCreated},
			{Step: "workflow Landlord Onboarding", Outcome: setup.OutcomeSkipped},
		},
		AdminKey: "ody_secret",
	}}

	out, err := run(t, rt, "setup")
	require.NoError(t, err)
	require.True(t, rt.withSample)
	require.Contains(t, out, "role Property Manager")
	require.Contains(t, out, "1 created, 1 skipped, 0 failed")
	require.Contains(t, out, "ody_secret")
}

func TestSetupSkipSampleAndJSON(t *testing.T) {
	rt := &stubRuntime{report: setup.Report{Steps: []setup.StepResult{{Step: "module", Outcome: setup.OutcomeSkipped}}}}

	out, err := run(t, rt, "setup", "--skip-sample", "--json")
	require.NoError(t, err)
	require.False(t, rt.withSample)

	var report setup.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Steps, 1)
	require.Empty(t, report.AdminKey)
}

func TestSetupFailsWhenAStepFails(t *testing.T) {
	rt := &stubRuntime{report: setup.Report{Steps: []setup.StepResult{{Step: "module", Outcome: setup.OutcomeFailed, Error: "boom"}}}}

	out, err := run(t, rt, "setup")
	require.Error(t, err)
	require.Contains(t, out, "boom")
}

func TestJobsTrigger(t *testing.T) {
	queue := &stubQueue{}
	out, err := run(t, &stubRuntime{queue: queue}, "jobs", "trigger", jobs.TaskPaymentsSyncStatus, "--window", "3")
	require.NoError(t, err)
	require.Equal(t, jobs.TaskPaymentsSyncStatus, queue.triggered)
	require.Equal(t, 3, queue.window)
	require.True(t, queue.closed)
	require.Contains(t, out, "id=t-1")
}

func TestJobsTriggerUnknown(t *testing.T) {
	_, err := run(t, &stubRuntime{queue: &stubQueue{}}, "jobs", "trigger", "nope")
	var unknown *jobs.UnknownTaskError
	require.ErrorAs(t, err, &unknown)
}

func TestJobsInspect(t *testing.T) {
	out, err := run(t, &stubRuntime{queue: &stubQueue{}}, "jobs", "inspect")
	require.NoError(t, err)
	require.Contains(t, out, "pending=2")
	require.Contains(t, out, "retry=1")
}
