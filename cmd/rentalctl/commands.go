package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-rentals/internal/setup"
	"github.com/odyssey-erp/odyssey-rentals/jobs"
)

func newRootCmd(rt Runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "rentalctl",
		Short:         "Odyssey Rentals operations tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(setupCmd(rt), jobsCmd(rt))
	return root
}

func setupCmd(rt Runtime) *cobra.Command {
	var (
		skipSample bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Provision roles, workflow, scheduled jobs and sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			provisioner, closeFn, err := rt.Provisioner(cmd.Context(), !skipSample)
			if err != nil {
				return err
			}
			defer closeFn()

			report := provisioner.Run(cmd.Context())
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "STEP\tOUTCOME\tERROR")
				for _, s := range report.Steps {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Step, s.Outcome, s.Error)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%d created, %d skipped, %d failed\n",
					report.Count(setup.OutcomeCreated), report.Count(setup.OutcomeSkipped), report.Count(setup.OutcomeFailed))
				if report.AdminKey != "" {
					fmt.Fprintf(out, "\nadmin API key (shown once): %s\n", report.AdminKey)
				}
			}
			if report.Failed() {
				return errors.New("setup: one or more steps failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipSample, "skip-sample", false, "do not seed the sample property and landlord")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func jobsCmd(rt Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}
	cmd.AddCommand(triggerCmd(rt), inspectCmd(rt))
	return cmd
}

func triggerCmd(rt Runtime) *cobra.Command {
	var window int
	cmd := &cobra.Command{
		Use:       "trigger <job>",
		Short:     "Enqueue a scheduled job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.TaskInvoicingCreateDue, jobs.TaskPaymentsSyncStatus, jobs.TaskRiskAssessAll},
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := rt.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			defer queue.Close()

			info, err := queue.Trigger(cmd.Context(), args[0], window)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().IntVar(&window, "window", 0, "reminder window in days for "+jobs.TaskPaymentsSyncStatus)
	return cmd
}

func inspectCmd(rt Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show queue depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := rt.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			defer queue.Close()

			stats, err := queue.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
			return nil
		},
	}
}
