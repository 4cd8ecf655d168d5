package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rentals/internal/app"
	"github.com/odyssey-erp/odyssey-rentals/jobs"
	_ "github.com/odyssey-erp/odyssey-rentals/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}

func TestDailySchedule(t *testing.T) {
	cron, err := dailySchedule(5)
	require.NoError(t, err)
	specs := map[string]string{}
	for _, c := range cron {
		specs[c.Task.Type()] = c.Spec
	}
	require.Equal(t, map[string]string{
		jobs.TaskPaymentsSyncStatus: "0 8 * * *",
		jobs.TaskRiskAssessAll:      "30 8 * * *",
		jobs.TaskInvoicingCreateDue: "0 9 * * *",
	}, specs)
}
