// Package engine drives the iterative optimization run: proposal, repair,
// pricing, review, and the convergence decision, recording every attempt in
// an append-only history.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/mfgplan/allocator/internal/collaborator"
	"github.com/mfgplan/allocator/internal/convergence"
	"github.com/mfgplan/allocator/internal/optimizer"
	"github.com/mfgplan/allocator/internal/repair"
	"github.com/mfgplan/allocator/pkg/costmodel"
	"github.com/mfgplan/allocator/pkg/feedback"
	"github.com/mfgplan/allocator/pkg/mathutil"
	"github.com/mfgplan/allocator/pkg/planning"
	"go.uber.org/zap"
)

// Problem is the validated input of one optimization run.
type Problem struct {
	Machines planning.MachineSet
	Demand   int
}

// Validate enforces the input contract checked before the loop starts.
// These are the only violations that abort a run outright.
func (p Problem) Validate() error {
	if p.Demand <= 0 {
		return fmt.Errorf("%w: got %d", planning.ErrInvalidDemand, p.Demand)
	}
	if len(p.Machines) == 0 {
		return planning.ErrEmptyMachineSet
	}
	return nil
}

// Attempt is one recorded iteration. Attempts are immutable once appended
// to the history.
type Attempt struct {
	Iteration  int                 `json:"iteration"`
	Allocation planning.Allocation `json:"allocation"`
	Cost       costmodel.Breakdown `json:"cost"`
	Rationale  string              `json:"rationale"`
	Feedback   feedback.Round      `json:"feedback"`
}

// History is the append-only ordered sequence of attempts for one run. It
// is owned exclusively by the run loop and discarded at run end.
type History []Attempt

func (h History) costs() []float64 {
	costs := make([]float64, len(h))
	for i, attempt := range h {
		costs[i] = attempt.Cost.Total
	}
	return costs
}

// Best returns the minimum-cost attempt across the whole history, which is
// not necessarily the last one.
func (h History) Best() Attempt {
	best := h[0]
	for _, attempt := range h[1:] {
		if attempt.Cost.Total < best.Cost.Total {
			best = attempt
		}
	}
	return best
}

// Trace records per-run collaborator and component activity. It replaces
// the process-wide call-tracking flags of earlier revisions with explicit
// per-run state, reset at run start.
type Trace struct {
	ProposerCalls     int `json:"proposerCalls"`
	ProposerFallbacks int `json:"proposerFallbacks"`
	ReviewerCalls     int `json:"reviewerCalls"`
	ReviewerFallbacks int `json:"reviewerFallbacks"`
	OracleCalls       int `json:"oracleCalls"`
	RepairedAttempts  int `json:"repairedAttempts"`
}

// Options configures a run. Proposer is required; the other collaborators
// are optional.
type Options struct {
	Logger *zap.Logger
	Policy convergence.Policy
	// Proposer supplies raw candidate allocations each iteration.
	Proposer collaborator.Proposer
	// Panel reviews each priced attempt; nil runs without feedback.
	Panel *collaborator.Panel
	// Oracle computes the reference optimum for the final report; nil skips
	// the comparison.
	Oracle *optimizer.Oracle
	// Rank orders machines during feasibility repair; nil selects the
	// half-capacity amortized heuristic.
	Rank planning.RankFunc
	// ProposalTimeout bounds each proposal round-trip; zero means no bound.
	ProposalTimeout time.Duration
}

// Result is the finalized outcome of a run.
type Result struct {
	Best           Attempt            `json:"best"`
	History        History            `json:"history"`
	Reason         convergence.Reason `json:"reason"`
	ImprovementPct float64            `json:"improvementPct"`
	Feasible       bool               `json:"feasible"`
	Forced         bool               `json:"forced"`
	Oracle         *optimizer.Result  `json:"oracle,omitempty"`
	Trace          Trace              `json:"trace"`
}

// Run executes one optimization run. It always terminates with a best-found
// allocation and the full history; collaborator failures degrade to local
// fallbacks and the loop honors ctx cancellation between iterations.
func Run(ctx context.Context, problem Problem, opts Options) (*Result, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if opts.Proposer == nil {
		return nil, fmt.Errorf("%w: no proposer configured", planning.ErrCollaboratorUnavailable)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Policy.MaxIterations <= 0 {
		opts.Policy = convergence.DefaultPolicy()
	}

	run := &runState{
		logger:  logger,
		problem: problem,
		opts:    opts,
	}

	totalCapacity := problem.Machines.TotalCapacity()
	logger.Info("optimization run starting",
		zap.Int("demand", problem.Demand),
		zap.Int("machines", len(problem.Machines)),
		zap.Int("totalCapacity", totalCapacity),
	)

	// Capacity triage. When demand cannot be met, or only the full-capacity
	// allocation meets it, there is nothing to optimize: record the single
	// forced attempt and finalize.
	if totalCapacity <= problem.Demand {
		return run.finalizeForced(totalCapacity), nil
	}

	run.loop(ctx)
	return run.finalize(), nil
}

type runState struct {
	logger  *zap.Logger
	problem Problem
	opts    Options

	history History
	trace   Trace
	reason  convergence.Reason
}

func (r *runState) loop(ctx context.Context) {
	r.reason = convergence.ReasonContinueOptimization
	for iteration := 0; iteration < r.opts.Policy.MaxIterations; iteration++ {
		if ctx.Err() != nil {
			r.logger.Warn("run cancelled, finalizing with accumulated history",
				zap.Int("iteration", iteration),
				zap.Error(ctx.Err()),
			)
			return
		}

		attempt := r.attempt(ctx, iteration)
		r.history = append(r.history, attempt)

		decision := r.opts.Policy.Check(len(r.history), r.history.costs(), attempt.Feedback)
		r.logger.Info("convergence check",
			zap.Int("iteration", iteration),
			zap.Float64("total", attempt.Cost.Total),
			zap.Bool("converged", decision.Converged),
			zap.String("reason", string(decision.Reason)),
		)
		if decision.Converged {
			r.reason = decision.Reason
			return
		}
		r.reason = decision.Reason
	}
	r.reason = convergence.ReasonMaxIterationsReached
}

// attempt runs one propose, repair, price, review cycle.
func (r *runState) attempt(ctx context.Context, iteration int) Attempt {
	req := collaborator.ProposalRequest{
		Machines:      r.problem.Machines,
		Demand:        r.problem.Demand,
		Iteration:     iteration,
		PriorAttempts: r.attemptSummaries(),
		PriorFeedback: r.feedbackSummaries(),
	}

	r.trace.ProposerCalls++
	proposal, err := collaborator.ProposeWithTimeout(ctx, r.opts.Proposer, req, r.opts.ProposalTimeout)
	if err != nil {
		r.trace.ProposerFallbacks++
		r.logger.Warn("proposer degraded to greedy fallback",
			zap.Int("iteration", iteration),
			zap.Error(err),
		)
		proposal = collaborator.FallbackProposal(r.problem.Machines, r.problem.Demand)
	}

	allocation, report := repair.Repair(r.problem.Machines, r.problem.Demand, proposal.Allocation, r.opts.Rank)
	if report.Dirty() {
		r.trace.RepairedAttempts++
		for _, violation := range report.ClampViolations {
			r.logger.Warn("capacity violation repaired",
				zap.Int("iteration", iteration),
				zap.String("violation", violation),
			)
		}
		if report.ShortfallFilled > 0 {
			r.logger.Info("demand shortfall filled",
				zap.Int("iteration", iteration),
				zap.Int("units", report.ShortfallFilled),
			)
		}
	}

	cost := costmodel.Price(r.problem.Machines, allocation)

	var round feedback.Round
	if r.opts.Panel != nil && r.opts.Panel.Size() > 0 {
		r.trace.ReviewerCalls += r.opts.Panel.Size()
		var degraded int
		round, degraded = r.opts.Panel.Evaluate(ctx, collaborator.ReviewRequest{
			Machines:   r.problem.Machines,
			Demand:     r.problem.Demand,
			Allocation: allocation,
			Cost:       cost,
			Rationale:  proposal.Rationale,
		})
		r.trace.ReviewerFallbacks += degraded
	}

	return Attempt{
		Iteration:  iteration,
		Allocation: allocation,
		Cost:       cost,
		Rationale:  proposal.Rationale,
		Feedback:   round,
	}
}

func (r *runState) attemptSummaries() []string {
	summaries := make([]string, 0, len(r.history))
	for _, attempt := range r.history {
		summaries = append(summaries, fmt.Sprintf("attempt %d: %v -> cost %.2f",
			attempt.Iteration+1, attempt.Allocation, attempt.Cost.Total))
	}
	return summaries
}

func (r *runState) feedbackSummaries() []string {
	if len(r.history) == 0 {
		return nil
	}
	latest := r.history[len(r.history)-1].Feedback
	summaries := make([]string, 0, len(latest))
	for _, record := range latest {
		summary := fmt.Sprintf("%s says: %s", record.Role, record.Assessment)
		for _, recommendation := range record.Recommendations {
			summary += " | recommends: " + recommendation
		}
		for _, concern := range record.Concerns {
			summary += " | concern: " + concern
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// finalizeForced records the single attempt available when excess capacity
// is absent: every machine at capacity. The run is infeasible when even
// that falls short of demand.
func (r *runState) finalizeForced(totalCapacity int) *Result {
	full := r.problem.Machines.FullCapacity()
	attempt := Attempt{
		Iteration:  0,
		Allocation: full,
		Cost:       costmodel.Price(r.problem.Machines, full),
		Rationale:  "full-capacity allocation, no excess capacity to optimize",
	}
	r.history = History{attempt}

	feasible := totalCapacity >= r.problem.Demand
	if !feasible {
		r.logger.Warn("demand exceeds total capacity",
			zap.Int("demand", r.problem.Demand),
			zap.Int("totalCapacity", totalCapacity),
			zap.Int("shortfall", r.problem.Demand-totalCapacity),
		)
	} else {
		r.logger.Info("exact capacity match, optimization not needed")
	}

	return &Result{
		Best:     attempt,
		History:  r.history,
		Reason:   convergence.ReasonContinueOptimization,
		Feasible: feasible,
		Forced:   true,
		Oracle:   r.oracleReference(),
		Trace:    r.trace,
	}
}

func (r *runState) finalize() *Result {
	if len(r.history) == 0 {
		// Cancelled before the first attempt completed; fall back to the
		// greedy fill so the run still terminates with an allocation.
		fallback := collaborator.FallbackProposal(r.problem.Machines, r.problem.Demand)
		r.history = History{{
			Iteration:  0,
			Allocation: fallback.Allocation,
			Cost:       costmodel.Price(r.problem.Machines, fallback.Allocation),
			Rationale:  fallback.Rationale,
		}}
	}
	best := r.history.Best()
	first := r.history[0]
	return &Result{
		Best:           best,
		History:        r.history,
		Reason:         r.reason,
		ImprovementPct: mathutil.Percentage(first.Cost.Total-best.Cost.Total, first.Cost.Total),
		Feasible:       best.Allocation.Units() >= r.problem.Demand,
		Oracle:         r.oracleReference(),
		Trace:          r.trace,
	}
}

func (r *runState) oracleReference() *optimizer.Result {
	if r.opts.Oracle == nil {
		return nil
	}
	r.trace.OracleCalls++
	reference, err := r.opts.Oracle.Optimize(r.problem.Machines, r.problem.Demand)
	if err != nil {
		r.logger.Warn("oracle reference optimization failed", zap.Error(err))
		return nil
	}
	return &reference
}
