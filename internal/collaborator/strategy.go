package collaborator

import (
	"context"
	"fmt"

	"github.com/mfgplan/allocator/internal/optimizer"
	"github.com/mfgplan/allocator/pkg/feedback"
	"github.com/mfgplan/allocator/pkg/planning"
)

// broadStrategies are proposed before the narrower single-machine and
// pairwise menu entries.
var broadStrategies = map[string]bool{
	"equal_distribution": true,
	"capacity_weighted":  true,
	"greedy_fill":        true,
}

// StrategyProposer is the deterministic local proposer. It walks the
// strategic candidate menu one entry per iteration, broad strategies first,
// so offline runs explore the same candidate space the oracle scores.
type StrategyProposer struct{}

// Propose returns the menu entry for the request's iteration. Entries may
// be capacity-infeasible on purpose; feasibility repair normalizes them.
func (StrategyProposer) Propose(_ context.Context, req ProposalRequest) (Proposal, error) {
	if len(req.Machines) == 0 {
		return Proposal{}, planning.ErrEmptyMachineSet
	}
	menu := optimizer.StrategicCandidates(req.Machines, req.Demand)
	ordered := make([]optimizer.Candidate, 0, len(menu))
	for _, candidate := range menu {
		if broadStrategies[candidate.Strategy] {
			ordered = append(ordered, candidate)
		}
	}
	for _, candidate := range menu {
		if !broadStrategies[candidate.Strategy] {
			ordered = append(ordered, candidate)
		}
	}
	pick := ordered[req.Iteration%len(ordered)]
	return Proposal{
		Allocation: pick.Allocation,
		Rationale:  fmt.Sprintf("candidate strategy %s for iteration %d", pick.Strategy, req.Iteration),
	}, nil
}

// FallbackProposal is the locally computed substitute when an external
// proposer fails: a greedy efficiency-ranked fill.
func FallbackProposal(machines planning.MachineSet, demand int) Proposal {
	return Proposal{
		Allocation: optimizer.GreedyFill(machines, demand, planning.FullCapacityAmortized),
		Rationale:  "fallback greedy fill after proposer failure",
	}
}

// ScriptReviewer is the deterministic local reviewer. It prices the greedy
// efficiency-ranked fill as a reference and rates the attempt by how close
// it comes, the way the original evaluator re-ran the calculator against
// the oracle's answer.
type ScriptReviewer struct {
	role   string
	oracle *optimizer.Oracle
}

// NewScriptReviewer constructs a reviewer with the given role name. oracle
// may be nil; the reviewer then skips the mathematically-verified claim.
func NewScriptReviewer(role string, oracle *optimizer.Oracle) *ScriptReviewer {
	return &ScriptReviewer{role: role, oracle: oracle}
}

// Role identifies the reviewer in feedback records.
func (r *ScriptReviewer) Role() string { return r.role }

// Review rates the attempt against the oracle reference. Within 0.1% of the
// reference it is optimal, within 10% acceptable, otherwise poor.
func (r *ScriptReviewer) Review(_ context.Context, req ReviewRequest) (feedback.Record, error) {
	if r.oracle == nil {
		return feedback.DefaultRecord(r.role), nil
	}
	reference, err := r.oracle.Optimize(req.Machines, req.Demand)
	if err != nil {
		return feedback.Record{}, fmt.Errorf("%w: reference optimization failed: %v",
			planning.ErrCollaboratorUnavailable, err)
	}

	record := feedback.Record{Role: r.role, AlternativesTested: true}
	switch {
	case req.Cost.Total <= reference.Cost.Total*1.001:
		record.Assessment = "optimal"
		// A grid search actually visited the alternatives; the strategic
		// menu only approximates them.
		record.MathematicallyVerified = reference.Feasible && reference.Mode == optimizer.ModeExhaustive
	case req.Cost.Total <= reference.Cost.Total*1.10:
		record.Assessment = "acceptable"
		record.Recommendations = []string{
			fmt.Sprintf("shift volume toward the cheapest machines, reference cost is %.2f", reference.Cost.Total),
		}
	default:
		record.Assessment = "poor"
		record.Recommendations = []string{
			fmt.Sprintf("reference strategy %s costs %.2f", reference.Strategy, reference.Cost.Total),
		}
		record.Concerns = []string{"allocation is far from the reference optimum"}
	}
	return record, nil
}
