// Package workflow drives the landlord onboarding state machine:
// Draft → Pending Verification → Approved → Active.
package workflow

import (
	"github.com/odyssey-erp/odyssey-rentals/internal/rbac"
)

// State is a workflow state.
type State string

const (
	StateDraft               State = "Draft"
	StatePendingVerification State = "Pending Verification"
	StateApproved            State = "Approved"
	StateActive              State = "Active"
)

// Action names a transition a user can take.
type Action string

const (
	ActionSubmit   Action = "Submit"
	ActionVerify   Action = "Verify"
	ActionReject   Action = "Reject"
	ActionActivate Action = "Activate"
)

// Transition is one allowed edge of the state machine.
type Transition struct {
	Action Action `json:"action"`
	From   State  `json:"from_state"`
	To     State  `json:"to_state"`
	Role   string `json:"allowed_role"`
}

// Definition describes the workflow as provisioned by setup.
type Definition struct {
	Name        string
	DocType     string
	StateField  string
	States      []State
	Transitions []Transition
}

// Landlord is the onboarding workflow attached to landlord records.
var Landlord = Definition{
	Name:       "Landlord Onboarding",
	DocType:    "Landlord",
	StateField: "workflow_state",
	States:     []State{StateDraft, StatePendingVerification, StateApproved, StateActive},
	Transitions: []Transition{
		{Action: ActionSubmit, From: StateDraft, To: StatePendingVerification, Role: rbac.RoleLandlordManager},
		{Action: ActionVerify, From: StatePendingVerification, To: StateApproved, Role: rbac.RoleRentalApprover},
		{Action: ActionReject, From: StatePendingVerification, To: StateDraft, Role: rbac.RoleRentalApprover},
		{Action: ActionActivate, From: StateApproved, To: StateActive, Role: rbac.RoleRentalApprover},
	},
}

// Valid reports whether s is a state of the definition.
func (d Definition) Valid(s State) bool {
	for _, known := range d.States {
		if known == s {
			return true
		}
	}
	return false
}

// Actions lists the transitions available from state to a holder of roles.
func (d Definition) Actions(state State, roles []string) []Transition {
	p := rbac.Principal{Roles: roles}
	out := []Transition{}
	for _, t := range d.Transitions {
		if t.From == state && p.HasAny(t.Role) {
			out = append(out, t)
		}
	}
	return out
}

// Find returns the transition for action from state, ignoring roles.
func (d Definition) Find(state State, action Action) (Transition, bool) {
	for _, t := range d.Transitions {
		if t.From == state && t.Action == action {
			return t, true
		}
	}
	return Transition{}, false
}
