package jobs

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *asynq.Task) error { return nil }

func TestNewWorkerRejectsCronWithoutHandler(t *testing.T) {
	srv := miniredis.RunT(t)
	task, err := NewRiskAssessTask()
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: srv.Addr()},
		Logger:    discard(),
		Handlers:  []TaskHandler{{Type: TaskInvoicingCreateDue, Handler: noop}},
		Cron:      []CronRegistration{{Spec: CronRiskAssessAll, Task: task}},
	})
	require.ErrorContains(t, err, "has no handler")
}

func TestNewWorkerRejectsBadCronSpec(t *testing.T) {
	srv := miniredis.RunT(t)
	task, err := NewRiskAssessTask()
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: srv.Addr()},
		Logger:    discard(),
		Handlers:  []TaskHandler{{Type: TaskRiskAssessAll, Handler: noop}},
		Cron:      []CronRegistration{{Spec: "every morning", Task: task}},
	})
	require.ErrorContains(t, err, "register "+TaskRiskAssessAll)
}

func TestNewWorkerRegistersDailyTasks(t *testing.T) {
	srv := miniredis.RunT(t)
	j := newDailyJobs()
	var cron []CronRegistration
	for spec, build := range map[string]func() (*asynq.Task, error){
		CronInvoicingCreateDue: func() (*asynq.Task, error) { return NewInvoicingCreateDueTask("") },
		CronPaymentsSyncStatus: func() (*asynq.Task, error) { return NewPaymentsSyncTask("", 7) },
		CronRiskAssessAll:      NewRiskAssessTask,
	} {
		task, err := build()
		require.NoError(t, err)
		cron = append(cron, CronRegistration{Spec: spec, Task: task, Options: []asynq.Option{asynq.MaxRetry(DailyMaxRetry)}})
	}

	w, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: srv.Addr()},
		Logger:    discard(),
		Handlers:  j.Handlers(),
		Cron:      cron,
	})
	require.NoError(t, err)
	require.NotNil(t, w.scheduler)
}

func TestNewWorkerRejectsIncompleteHandler(t *testing.T) {
	_, err := NewWorker(WorkerConfig{Handlers: []TaskHandler{{Type: TaskRiskAssessAll}}})
	require.Error(t, err)
}
