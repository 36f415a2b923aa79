package model

import (
	"time"

	"immigration/internal/apperr"
)

// Status is the lifecycle state of a TravelDocument.
type Status string

const (
	StatusFilled   Status = "filled"
	StatusApproved Status = "approved"
	StatusPrinted  Status = "printed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusFilled, StatusApproved, StatusPrinted}

// successors is the allowed-successor table; printed is terminal.
var successors = map[Status][]Status{
	StatusFilled:   {StatusApproved},
	StatusApproved: {StatusPrinted},
	StatusPrinted:  {},
}

func (s Status) Valid() bool {
	_, ok := successors[s]
	return ok
}

// Successors returns the statuses reachable from s in one step.
func (s Status) Successors() []Status {
	return successors[s]
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range successors[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Label is the Somali display label shown on printed documents and exports.
func (s Status) Label() string {
	switch s {
	case StatusFilled:
		return "Waa la Buxiyay"
	case StatusApproved:
		return "Waa la Ogolaaday"
	case StatusPrinted:
		return "Waa la Daabacay"
	}
	return string(s)
}

// Color is the badge colour used by the office front-end.
func (s Status) Color() string {
	switch s {
	case StatusFilled:
		return "#FFA500"
	case StatusApproved:
		return "#00FF00"
	case StatusPrinted:
		return "#0000FF"
	}
	return "#000000"
}

// TransitionTo moves doc to target when the lifecycle allows it and stamps
// UpdatedAt. It returns the previous status. The document is left untouched
// on failure.
func TransitionTo(doc *TravelDocument, target Status, now time.Time) (Status, error) {
	old := doc.Status
	if !old.CanTransitionTo(target) {
		return old, apperr.NewInvalidTransition(string(old), string(target))
	}
	doc.Status = target
	doc.UpdatedAt = now
	return old, nil
}
