// Package collaborator defines the external decision sources the engine
// consults: a proposer that suggests candidate allocations and reviewers
// that evaluate priced attempts. Collaborator output is untrusted; the
// engine always routes proposals through feasibility repair before pricing.
package collaborator

import (
	"context"
	"time"

	"github.com/mfgplan/allocator/pkg/costmodel"
	"github.com/mfgplan/allocator/pkg/feedback"
	"github.com/mfgplan/allocator/pkg/planning"
)

// ProposalRequest carries the context a proposer needs: the problem, the
// current iteration, and formatted summaries of prior attempts and
// feedback.
type ProposalRequest struct {
	Machines      planning.MachineSet
	Demand        int
	Iteration     int
	PriorAttempts []string
	PriorFeedback []string
}

// Proposal is a raw candidate allocation plus free-text rationale. It may
// violate capacity or demand constraints.
type Proposal struct {
	Allocation planning.Allocation
	Rationale  string
}

// Proposer supplies raw candidate allocations.
type Proposer interface {
	Propose(ctx context.Context, req ProposalRequest) (Proposal, error)
}

// ReviewRequest carries a priced attempt for evaluation.
type ReviewRequest struct {
	Machines   planning.MachineSet
	Demand     int
	Allocation planning.Allocation
	Cost       costmodel.Breakdown
	Rationale  string
}

// Reviewer evaluates priced attempts and returns a feedback record.
type Reviewer interface {
	Role() string
	Review(ctx context.Context, req ReviewRequest) (feedback.Record, error)
}

// ProposeWithTimeout bounds a proposal round-trip. Collaborator calls are
// blocking synchronous round-trips; the timeout turns expiry into an
// ordinary error the engine degrades from instead of blocking the run
// indefinitely.
func ProposeWithTimeout(ctx context.Context, proposer Proposer, req ProposalRequest, timeout time.Duration) (Proposal, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return proposer.Propose(ctx, req)
}
