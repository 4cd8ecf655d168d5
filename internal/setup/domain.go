// Package setup provisions the metadata a fresh installation needs: roles,
// the landlord workflow, the scheduled invoicing job, module and doc type
// records, the dashboard page, the workspace, an admin API key and sample
// data. Every step is create-if-missing, so the run can be repeated.
package setup

import "encoding/json"

// Kind names a metadata table.
type Kind string

const (
	KindScheduledJob  Kind = "scheduled_jobs"
	KindServerScript  Kind = "server_scripts"
	KindModule        Kind = "app_modules"
	KindDocType       Kind = "doc_types"
	KindDashboardPage Kind = "dashboard_pages"
	KindWorkspace     Kind = "workspaces"
	KindWorkflow      Kind = "workflows"
	KindWorkflowState Kind = "workflow_states"
	KindMarker        Kind = "setup_markers"
)

// Kinds lists every metadata table the store accepts.
var Kinds = []Kind{
	KindScheduledJob, KindServerScript, KindModule, KindDocType, KindDashboardPage,
	KindWorkspace, KindWorkflow, KindWorkflowState, KindMarker,
}

// Record is one named metadata row with a free-form JSON definition.
type Record struct {
	Kind       Kind
	Name       string
	Definition json.RawMessage
}

// Outcome of a provisioning step.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// StepResult reports one step.
type StepResult struct {
	Step    string  `json:"step"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// Report summarises a provisioning run. AdminKey is only set on the run that
// created the key.
type Report struct {
	Steps    []StepResult `json:"steps"`
	AdminKey string       `json:"admin_key,omitempty"`
}

// Count returns the number of steps with the outcome.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == o {
			n++
		}
	}
	return n
}

// Failed reports whether any step failed.
func (r Report) Failed() bool {
	return r.Count(OutcomeFailed) > 0
}
