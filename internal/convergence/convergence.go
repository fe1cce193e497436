// Package convergence decides when an iterative optimization run may stop.
// The decision function is pure: it holds no state beyond fixed policy
// constants and inspects only the accumulated cost history and the latest
// feedback round.
package convergence

import (
	"github.com/mfgplan/allocator/pkg/feedback"
	"github.com/mfgplan/allocator/pkg/mathutil"
)

// Reason explains a convergence decision.
type Reason string

const (
	// ReasonMinimumIterations indicates the minimum iteration count has not
	// been reached yet.
	ReasonMinimumIterations Reason = "minimum_iterations"
	// ReasonMaxIterationsReached indicates the hard iteration cap was hit.
	ReasonMaxIterationsReached Reason = "max_iterations_reached"
	// ReasonMathematicalOptimalityProven indicates a reviewer verified the
	// allocation as mathematically optimal.
	ReasonMathematicalOptimalityProven Reason = "mathematical_optimality_proven"
	// ReasonAlternativesNeedTesting indicates heuristic signals are not yet
	// trusted because alternatives were not explicitly explored.
	ReasonAlternativesNeedTesting Reason = "alternatives_need_testing"
	// ReasonCostImprovementBelowThreshold indicates the relative cost
	// improvement between the last two attempts fell below the threshold.
	ReasonCostImprovementBelowThreshold Reason = "cost_improvement_below_threshold"
	// ReasonStrategistApprovalAchieved indicates a single reviewer approved
	// the allocation.
	ReasonStrategistApprovalAchieved Reason = "strategist_approval_achieved"
	// ReasonExpertConsensusAchieved indicates a quorum of reviewers approved
	// the allocation.
	ReasonExpertConsensusAchieved Reason = "expert_consensus_achieved"
	// ReasonContinueOptimization indicates no stop criterion matched.
	ReasonContinueOptimization Reason = "continue_optimization"
)

// Decision is the controller's verdict for one iteration.
type Decision struct {
	Converged bool   `json:"converged"`
	Reason    Reason `json:"reason"`
}

// Policy holds the fixed convergence constants.
type Policy struct {
	MaxIterations   int
	MinIterations   int
	CostThreshold   float64
	ConsensusQuorum int
}

// DefaultPolicy returns the standard policy: at most five iterations, at
// least two, a 2% cost-improvement threshold, and a three-of-five reviewer
// quorum.
func DefaultPolicy() Policy {
	return Policy{
		MaxIterations:   5,
		MinIterations:   2,
		CostThreshold:   0.02,
		ConsensusQuorum: 3,
	}
}

// Check evaluates the stop criteria in strict priority order: the hard
// iteration cap always wins, mathematical proof trumps heuristic signals,
// and unverified improvement or approval are only trusted as a fallback
// once alternatives were explored. costs holds the total cost of every
// attempt so far, oldest first; round is the feedback for the latest
// attempt.
func (p Policy) Check(iteration int, costs []float64, round feedback.Round) Decision {
	if iteration < p.MinIterations {
		return Decision{Converged: false, Reason: ReasonMinimumIterations}
	}
	if iteration >= p.MaxIterations {
		return Decision{Converged: true, Reason: ReasonMaxIterationsReached}
	}
	if round.MathematicallyVerified() {
		return Decision{Converged: true, Reason: ReasonMathematicalOptimalityProven}
	}
	if !round.AlternativesTested() {
		return Decision{Converged: false, Reason: ReasonAlternativesNeedTesting}
	}
	if p.costConverged(costs) {
		return Decision{Converged: true, Reason: ReasonCostImprovementBelowThreshold}
	}
	if len(round) > 1 {
		if round.Approvals() >= p.ConsensusQuorum {
			return Decision{Converged: true, Reason: ReasonExpertConsensusAchieved}
		}
	} else if round.Approvals() == 1 {
		return Decision{Converged: true, Reason: ReasonStrategistApprovalAchieved}
	}
	return Decision{Converged: false, Reason: ReasonContinueOptimization}
}

func (p Policy) costConverged(costs []float64) bool {
	if len(costs) < 2 {
		return false
	}
	prev := costs[len(costs)-2]
	curr := costs[len(costs)-1]
	if prev <= 0 {
		return false
	}
	return mathutil.Improvement(prev, curr) < p.CostThreshold
}
