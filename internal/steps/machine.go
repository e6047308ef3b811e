// Package steps models an AI calling agent's progress through one lead as a closed
// state machine. The table is static; every function here is pure.
package steps

import (
	"fmt"

	"outreach-dialer/internal/calls"
)

type State string

const (
	Idle              State = "idle"
	LeadSelected      State = "lead-selected"
	Dialing           State = "dialing"
	Speaking          State = "speaking"
	Discovery         State = "discovery"
	ObjectionHandling State = "objection-handling"
	Negotiating       State = "negotiating"
	Booked            State = "booked"
	FollowUp          State = "follow-up"
	Rejected          State = "rejected"
	NoAnswer          State = "no-answer"
	Busy              State = "busy"
	Failed            State = "failed"
	Ended             State = "ended"
	Skipped           State = "skipped"
	NotesGenerated    State = "notes-generated"
	NextLead          State = "next-lead"
	Completed         State = "completed"
)

type entry struct {
	label string
	next  []State
}

// order is the canonical listing order; table holds the transitions.
var order = []State{
	Idle, LeadSelected, Dialing, Speaking, Discovery, ObjectionHandling, Negotiating,
	Booked, FollowUp, Rejected, NoAnswer, Busy, Failed, Ended, Skipped,
	NotesGenerated, NextLead, Completed,
}

var table = map[State]entry{
	Idle:              {"Idle", []State{LeadSelected}},
	LeadSelected:      {"Lead selected", []State{Dialing, Skipped}},
	Dialing:           {"Dialing", []State{Speaking, NoAnswer, Busy, Failed}},
	Speaking:          {"Speaking", []State{Discovery, ObjectionHandling, Rejected, Ended}},
	Discovery:         {"Discovery", []State{ObjectionHandling, Negotiating, Booked, FollowUp, Rejected, Ended}},
	ObjectionHandling: {"Handling objection", []State{Discovery, Negotiating, Booked, FollowUp, Rejected, Ended}},
	Negotiating:       {"Negotiating", []State{ObjectionHandling, Booked, FollowUp, Rejected, Ended}},
	Booked:            {"Meeting booked", []State{Ended}},
	FollowUp:          {"Follow-up scheduled", []State{Ended}},
	Rejected:          {"Rejected", []State{Ended}},
	NoAnswer:          {"No answer", []State{NotesGenerated}},
	Busy:              {"Busy", []State{NotesGenerated}},
	Failed:            {"Call failed", []State{NotesGenerated}},
	Ended:             {"Call ended", []State{NotesGenerated}},
	Skipped:           {"Skipped (DNC)", []State{NextLead}},
	NotesGenerated:    {"Notes generated", []State{NextLead}},
	NextLead:          {"Next lead", []State{LeadSelected, Completed}},
	Completed:         {"Completed", nil},
}

// Description is the public view of one state.
type Description struct {
	ID          State   `json:"id"`
	Label       string  `json:"label"`
	AllowedNext []State `json:"allowed_next"`
}

// States lists every state in canonical order.
func States() []State {
	out := make([]State, len(order))
	copy(out, order)
	return out
}

// Known reports whether s is in the table.
func Known(s State) bool {
	_, ok := table[s]
	return ok
}

// IsValidTransition reports whether to is a legal successor of from.
// Unknown states are never valid.
func IsValidTransition(from, to State) bool {
	e, ok := table[from]
	if !ok {
		return false
	}
	for _, n := range e.next {
		if n == to {
			return true
		}
	}
	return false
}

// Describe returns the state's label and successors; ok is false for unknown states.
func Describe(s State) (Description, bool) {
	e, ok := table[s]
	if !ok {
		return Description{}, false
	}
	next := make([]State, len(e.next))
	copy(next, e.next)
	return Description{ID: s, Label: e.label, AllowedNext: next}, true
}

// Validate checks table integrity: every listed state has an entry, no successor
// dangles, idle is the only state nothing leads to, and completed is the only sink.
func Validate() error {
	if len(order) != len(table) {
		return fmt.Errorf("steps: %d states listed, %d in table", len(order), len(table))
	}
	incoming := map[State]int{}
	for _, s := range order {
		e, ok := table[s]
		if !ok {
			return fmt.Errorf("steps: %q has no table entry", s)
		}
		if len(e.next) == 0 && s != Completed {
			return fmt.Errorf("steps: %q has no successors", s)
		}
		for _, n := range e.next {
			if _, ok := table[n]; !ok {
				return fmt.Errorf("steps: %q -> %q: unknown successor", s, n)
			}
			incoming[n]++
		}
	}
	if len(table[Completed].next) != 0 {
		return fmt.Errorf("steps: %q must be terminal", Completed)
	}
	for _, s := range order {
		if s != Idle && incoming[s] == 0 {
			return fmt.Errorf("steps: %q is unreachable", s)
		}
	}
	if incoming[Idle] != 0 {
		return fmt.Errorf("steps: %q must be the unique initial state", Idle)
	}
	return nil
}

// ForCallStatus suggests the agent step matching a telephony status.
// It returns "" when the status carries no step information.
func ForCallStatus(s calls.Status) State {
	switch s {
	case calls.StatusQueued, calls.StatusRinging:
		return Dialing
	case calls.StatusInProgress:
		return Speaking
	case calls.StatusCompleted:
		return Ended
	case calls.StatusNoAnswer:
		return NoAnswer
	case calls.StatusBusy:
		return Busy
	case calls.StatusFailed:
		return Failed
	default:
		return ""
	}
}
