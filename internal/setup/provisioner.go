package setup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-rentals/internal/rbac"
	"github.com/odyssey-erp/odyssey-rentals/internal/workflow"
)

// AdminKeyName names the API key issued to the installer.
const AdminKeyName = "administrator"

// InvoicingJobName is the scheduled job record for the daily auto-invoicer.
const InvoicingJobName = "invoicing:create-due"

// InvoicingCron is the daily auto-invoicer schedule.
const InvoicingCron = "0 9 * * *"

// ModuleName is the application module record.
const ModuleName = "Odyssey Rentals"

// DocTypes lists the record types the service manages.
var DocTypes = []string{
	"Property", "Landlord", "Landlord Property Contract", "Landlord Payment Schedule",
	"Customer Invoicing Schedule", "Sales Order", "Sales Invoice", "Media Installation",
	"Risk Assessment",
}

// Store checks and inserts metadata records.
type Store interface {
	Exists(ctx context.Context, kind Kind, name string) (bool, error)
	Insert(ctx context.Context, rec Record) error
}

// Roles provisions roles and API keys.
type Roles interface {
	EnsureRole(ctx context.Context, role rbac.Role) (bool, error)
	IssueKey(ctx context.Context, name string, roles []string) (string, error)
}

// Seeder loads sample data. It reports whether it created anything.
type Seeder interface {
	Seed(ctx context.Context) (bool, error)
}

// Provisioner runs the installation steps.
type Provisioner struct {
	store  Store
	roles  Roles
	seeder Seeder
	logger *slog.Logger
}

// NewProvisioner builds a Provisioner. A nil seeder skips sample data.
func NewProvisioner(store Store, roles Roles, seeder Seeder, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{store: store, roles: roles, seeder: seeder, logger: logger}
}

type step struct {
	name string
	run  func(ctx context.Context) (bool, error)
}

// Run executes every step in order. A failing step is logged and recorded;
// later steps still run.
func (p *Provisioner) Run(ctx context.Context) Report {
	var report Report
	for _, s := range p.steps(&report) {
		created, err := s.run(ctx)
		res := StepResult{Step: s.name, Outcome: OutcomeSkipped}
		switch {
		case err != nil:
			res.Outcome = OutcomeFailed
			res.Error = err.Error()
			p.logger.Error("setup step failed", slog.String("step", s.name), slog.Any("error", err))
		case created:
			res.Outcome = OutcomeCreated
			p.logger.Info("setup step created", slog.String("step", s.name))
		default:
			p.logger.Debug("setup step skipped", slog.String("step", s.name))
		}
		report.Steps = append(report.Steps, res)
	}
	return report
}

func (p *Provisioner) steps(report *Report) []step {
	var steps []step
	for _, role := range rbac.DefaultRoles() {
		steps = append(steps, step{name: "role " + role.Name, run: func(ctx context.Context) (bool, error) {
			return p.roles.EnsureRole(ctx, role)
		}})
	}

	def := workflow.Landlord
	steps = append(steps, step{name: "workflow " + def.Name, run: func(ctx context.Context) (bool, error) {
		return p.ensure(ctx, KindWorkflow, def.Name, map[string]any{
			"doc_type":    def.DocType,
			"state_field": def.StateField,
			"transitions": def.Transitions,
		})
	}})
	for i, state := range def.States {
		steps = append(steps, step{name: "workflow state " + string(state), run: func(ctx context.Context) (bool, error) {
			return p.ensure(ctx, KindWorkflowState, def.Name+"/"+string(state), map[string]any{
				"workflow": def.Name,
				"state":    state,
				"position": i,
			})
		}})
	}

	steps = append(steps,
		step{name: "scheduled job " + InvoicingJobName, run: func(ctx context.Context) (bool, error) {
			return p.ensure(ctx, KindScheduledJob, InvoicingJobName, map[string]any{
				"task": InvoicingJobName, "cron": InvoicingCron, "frequency": "Cron",
			})
		}},
		step{name: "server script landlord contract validation", run: func(ctx context.Context) (bool, error) {
			return p.ensure(ctx, KindServerScript, "Landlord Contract Validation", map[string]any{
				"doc_type": "Landlord", "event": "before_save", "handler": "landlord.Service.Save",
			})
		}},
		step{name: "module " + ModuleName, run: func(ctx context.Context) (bool, error) {
			return p.ensure(ctx, KindModule, ModuleName, map[string]any{"app": "odyssey-rentals"})
		}},
	)
	for _, dt := range DocTypes {
		steps = append(steps, step{name: "doc type " + dt, run: func(ctx context.Context) (bool, error) {
			return p.ensure(ctx, KindDocType, dt, map[string]any{"module": ModuleName})
		}})
	}
	steps = append(steps,
		step{name: "dashboard page", run: func(ctx context.Context) (bool, error) {
			return p.ensure(ctx, KindDashboardPage, "rentals-dashboard", map[string]any{
				"title": "Rentals Dashboard", "module": ModuleName,
				"endpoints": []string{"/api/dashboard/stats", "/api/risk/analytics"},
			})
		}},
		step{name: "workspace", run: func(ctx context.Context) (bool, error) {
			return p.ensure(ctx, KindWorkspace, "Rentals", map[string]any{
				"module": ModuleName, "links": DocTypes, "dashboard": "rentals-dashboard",
			})
		}},
		step{name: "admin api key", run: func(ctx context.Context) (bool, error) {
			token, err := p.roles.IssueKey(ctx, AdminKeyName, []string{rbac.RoleSystemManager})
			if err != nil {
				return false, err
			}
			report.AdminKey = token
			return token != "", nil
		}},
	)
	if p.seeder != nil {
		steps = append(steps, step{name: "sample data", run: p.seeder.Seed})
	}
	return steps
}

func (p *Provisioner) ensure(ctx context.Context, kind Kind, name string, definition any) (bool, error) {
	exists, err := p.store.Exists(ctx, kind, name)
	if err != nil {
		return false, fmt.Errorf("setup: check %s %s: %w", kind, name, err)
	}
	if exists {
		return false, nil
	}
	raw, err := json.Marshal(definition)
	if err != nil {
		return false, fmt.Errorf("setup: encode %s %s: %w", kind, name, err)
	}
	if err := p.store.Insert(ctx, Record{Kind: kind, Name: name, Definition: raw}); err != nil {
		return false, fmt.Errorf("setup: insert %s %s: %w", kind, name, err)
	}
	return true, nil
}
