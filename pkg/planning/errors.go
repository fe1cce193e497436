package planning

import "errors"

var (
	// ErrInvalidDemand indicates a demand that is zero or negative.
	ErrInvalidDemand = errors.New("demand must be positive")
	// ErrEmptyMachineSet indicates a run was requested with no machines.
	ErrEmptyMachineSet = errors.New("machine set cannot be empty")
	// ErrUnknownMachine indicates an allocation references a machine that is
	// not part of the machine set.
	ErrUnknownMachine = errors.New("allocation references unknown machine")
	// ErrCapacityExceeded indicates an allocation assigns more units to a
	// machine than its capacity allows.
	ErrCapacityExceeded = errors.New("allocation exceeds machine capacity")
	// ErrNoFeasibleCandidate indicates the optimizer produced no candidate
	// allocation that satisfies demand and capacity constraints.
	ErrNoFeasibleCandidate = errors.New("no feasible candidate allocation")
	// ErrCollaboratorUnavailable indicates an external proposal or review
	// round-trip failed or returned unusable data.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)
